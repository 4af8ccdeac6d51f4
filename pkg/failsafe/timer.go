package failsafe

import (
	"errors"
	"sync"
	"time"
)

// Watchdog duration limits.
const (
	// MinDuration is the shortest allowed watchdog.
	MinDuration = 5 * time.Second

	// MaxDuration is the longest allowed watchdog.
	MaxDuration = 10 * time.Minute

	// DefaultDuration is used when no duration is configured.
	DefaultDuration = 60 * time.Second
)

// Timer errors.
var (
	ErrInvalidDuration = errors.New("invalid watchdog duration")
)

// State represents the watchdog state.
type State uint8

const (
	// StateDisarmed indicates no handshake is being watched.
	StateDisarmed State = iota

	// StateArmed indicates the countdown is running.
	StateArmed

	// StateExpired indicates the handshake ran out of time.
	StateExpired
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisarmed:
		return "DISARMED"
	case StateArmed:
		return "ARMED"
	case StateExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// ValidateDuration checks d against the allowed range.
func ValidateDuration(d time.Duration) error {
	if d < MinDuration || d > MaxDuration {
		return ErrInvalidDuration
	}
	return nil
}

// Timer watches one handshake.
type Timer struct {
	mu sync.RWMutex

	name     string
	state    State
	duration time.Duration

	timer   *time.Timer
	armedAt time.Time

	// generation invalidates expiries from earlier Arm calls.
	generation uint64

	onStateChange func(oldState, newState State)
	onExpire      func()
}

// NewTimer creates a disarmed watchdog. A zero duration selects
// DefaultDuration. The configured range is enforced by ValidateDuration at
// the configuration boundary; here d only has to be positive.
func NewTimer(name string, d time.Duration) (*Timer, error) {
	if d == 0 {
		d = DefaultDuration
	}
	if d < 0 {
		return nil, ErrInvalidDuration
	}
	return &Timer{name: name, duration: d}, nil
}

// Name returns the name given at construction.
func (t *Timer) Name() string {
	return t.name
}

// State returns the current state.
func (t *Timer) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Duration returns the configured duration.
func (t *Timer) Duration() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.duration
}

// Remaining returns the time left, or 0 when not armed.
func (t *Timer) Remaining() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.state != StateArmed {
		return 0
	}
	return max(t.duration-time.Since(t.armedAt), 0)
}

// OnStateChange sets a callback for state changes.
func (t *Timer) OnStateChange(fn func(oldState, newState State)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onStateChange = fn
}

// OnExpire sets the callback invoked when the countdown runs out.
func (t *Timer) OnExpire(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onExpire = fn
}

// Arm starts or restarts the countdown.
func (t *Timer) Arm() {
	t.mu.Lock()

	if t.timer != nil {
		t.timer.Stop()
	}

	oldState := t.state
	t.state = StateArmed
	t.armedAt = time.Now()
	t.generation++
	gen := t.generation
	t.timer = time.AfterFunc(t.duration, func() {
		t.expire(gen)
	})
	callback := t.onStateChange
	t.mu.Unlock()

	if callback != nil && oldState != StateArmed {
		callback(oldState, StateArmed)
	}
}

// Disarm cancels the countdown. It reports whether the timer was armed.
func (t *Timer) Disarm() bool {
	t.mu.Lock()

	if t.state == StateDisarmed {
		t.mu.Unlock()
		return false
	}

	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}

	oldState := t.state
	t.state = StateDisarmed
	t.generation++
	callback := t.onStateChange
	t.mu.Unlock()

	if callback != nil {
		callback(oldState, StateDisarmed)
	}
	return oldState == StateArmed
}

func (t *Timer) expire(gen uint64) {
	t.mu.Lock()

	if gen != t.generation || t.state != StateArmed {
		t.mu.Unlock()
		return
	}

	t.state = StateExpired
	t.timer = nil
	stateCallback := t.onStateChange
	expireCallback := t.onExpire
	t.mu.Unlock()

	if stateCallback != nil {
		stateCallback(StateArmed, StateExpired)
	}
	if expireCallback != nil {
		expireCallback()
	}
}

// SetDuration changes the duration used by the next Arm.
func (t *Timer) SetDuration(d time.Duration) error {
	if d <= 0 {
		return ErrInvalidDuration
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.duration = d
	return nil
}
