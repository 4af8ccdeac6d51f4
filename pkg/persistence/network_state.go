package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"
)

// StateVersion is the current version of the state file format.
const StateVersion = 1

// NodeKind is the role a node joined with.
type NodeKind string

const (
	NodeKindSlave      NodeKind = "slave"
	NodeKindController NodeKind = "controller"
)

// NodeRecord describes one included node.
type NodeRecord struct {
	// NodeID is the id assigned by the controller (1-232).
	NodeID uint8 `json:"node_id"`

	// Kind is slave or controller.
	Kind NodeKind `json:"kind,omitempty"`

	// AddedAt is when inclusion completed.
	AddedAt time.Time `json:"added_at"`

	// SessionID is the session that included the node.
	SessionID string `json:"session_id,omitempty"`
}

// NetworkState is the persisted node registry.
type NetworkState struct {
	// Version is the state file format version.
	Version int `json:"version"`

	// SavedAt is when the state was last saved.
	SavedAt time.Time `json:"saved_at"`

	// Nodes is kept sorted by NodeID.
	Nodes []NodeRecord `json:"nodes,omitempty"`

	// LastRemoved is the most recently excluded node id (0 if none).
	LastRemoved uint8 `json:"last_removed,omitempty"`
}

// Node returns the record for id.
func (s *NetworkState) Node(id uint8) (NodeRecord, bool) {
	i, found := s.find(id)
	if !found {
		return NodeRecord{}, false
	}
	return s.Nodes[i], true
}

// AddNode inserts or replaces the record for rec.NodeID.
func (s *NetworkState) AddNode(rec NodeRecord) {
	i, found := s.find(rec.NodeID)
	if found {
		s.Nodes[i] = rec
		return
	}
	s.Nodes = slices.Insert(s.Nodes, i, rec)
}

// RemoveNode deletes the record for id and reports whether it existed.
// The id is remembered in LastRemoved either way; a node excluded from
// another controller's network is still a valid removal.
func (s *NetworkState) RemoveNode(id uint8) bool {
	s.LastRemoved = id
	i, found := s.find(id)
	if !found {
		return false
	}
	s.Nodes = slices.Delete(s.Nodes, i, i+1)
	return true
}

// Clone returns a deep copy.
func (s *NetworkState) Clone() *NetworkState {
	c := *s
	c.Nodes = slices.Clone(s.Nodes)
	return &c
}

func (s *NetworkState) find(id uint8) (int, bool) {
	return slices.BinarySearchFunc(s.Nodes, id, func(r NodeRecord, id uint8) int {
		return int(r.NodeID) - int(id)
	})
}

// NetworkStateStore manages persistence of the node registry to a JSON file.
type NetworkStateStore struct {
	mu   sync.Mutex
	path string
}

// NewNetworkStateStore creates a store backed by path.
func NewNetworkStateStore(path string) *NetworkStateStore {
	return &NetworkStateStore{path: path}
}

// Path returns the backing file path.
func (s *NetworkStateStore) Path() string {
	return s.path
}

// Save writes the state, replacing the file atomically.
func (s *NetworkStateStore) Save(state *NetworkState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	state.Version = StateVersion
	state.SavedAt = time.Now()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Load reads the state. Returns nil, nil if the file doesn't exist.
func (s *NetworkStateStore) Load() (*NetworkState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	state := &NetworkState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if state.Version > StateVersion {
		return nil, fmt.Errorf("%s: unsupported state version %d", s.path, state.Version)
	}

	slices.SortFunc(state.Nodes, func(a, b NodeRecord) int {
		return int(a.NodeID) - int(b.NodeID)
	})
	return state, nil
}

// Clear removes the state file.
func (s *NetworkStateStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
