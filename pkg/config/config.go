// Package config loads controller settings from YAML or TOML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/homenode/zwave-go/pkg/action"
	"github.com/homenode/zwave-go/pkg/connection"
	"github.com/homenode/zwave-go/pkg/failsafe"
	"github.com/homenode/zwave-go/pkg/transport"
)

// Configuration errors.
var (
	ErrInvalidConfig     = errors.New("invalid config")
	ErrUnsupportedFormat = errors.New("unsupported config format")
)

// Log formats.
const (
	FormatText    = "text"
	FormatJSON    = "json"
	FormatZerolog = "zerolog"
)

// DefaultBaud is the Z-Wave serial API line rate.
const DefaultBaud = 115200

// Config is the controller configuration.
type Config struct {
	Serial    SerialConfig    `yaml:"serial" toml:"serial"`
	Inclusion InclusionConfig `yaml:"inclusion" toml:"inclusion"`
	Exclusion ExclusionConfig `yaml:"exclusion" toml:"exclusion"`
	Log       LogConfig       `yaml:"log" toml:"log"`

	// StateFile is where the node registry is kept. Empty disables persistence.
	StateFile string `yaml:"state_file" toml:"state_file"`
}

// SerialConfig describes the controller's serial port.
type SerialConfig struct {
	Port       string        `yaml:"port" toml:"port"`
	Baud       int           `yaml:"baud" toml:"baud"`
	AckTimeout time.Duration `yaml:"ack_timeout" toml:"ack_timeout"`
	Reconnect  bool          `yaml:"reconnect" toml:"reconnect"`
}

// InclusionConfig holds the defaults for "include".
type InclusionConfig struct {
	HighPower   bool          `yaml:"high_power" toml:"high_power"`
	NetworkWide bool          `yaml:"network_wide" toml:"network_wide"`
	Timeout     time.Duration `yaml:"timeout" toml:"timeout"`
}

// ExclusionConfig holds the defaults for "exclude".
type ExclusionConfig struct {
	Timeout time.Duration `yaml:"timeout" toml:"timeout"`
}

// LogConfig configures operational and protocol logging.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`

	// ProtocolFile receives CBOR capture events (.zlog). Empty disables capture.
	ProtocolFile string `yaml:"protocol_file" toml:"protocol_file"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Serial: SerialConfig{
			Baud:       DefaultBaud,
			AckTimeout: transport.DefaultAckTimeout,
			Reconnect:  true,
		},
		Inclusion: InclusionConfig{
			HighPower: true,
			Timeout:   failsafe.DefaultDuration,
		},
		Exclusion: ExclusionConfig{
			Timeout: failsafe.DefaultDuration,
		},
		Log: LogConfig{
			Level:  "info",
			Format: FormatText,
		},
	}
}

// Load reads path over Default(). The format is chosen by extension.
// The result is not validated; callers apply flag overrides first.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = decodeYAML(data, &cfg)
	case ".toml":
		err = decodeTOML(data, &cfg)
	default:
		return cfg, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func decodeTOML(data []byte, cfg *Config) error {
	meta, err := toml.Decode(string(data), cfg)
	if err != nil {
		return err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown key %q", undecoded[0].String())
	}
	return nil
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Serial.Port == "" {
		return fmt.Errorf("%w: serial port is required", ErrInvalidConfig)
	}
	if c.Serial.Baud <= 0 {
		return fmt.Errorf("%w: baud must be positive, got %d", ErrInvalidConfig, c.Serial.Baud)
	}
	if c.Serial.AckTimeout <= 0 {
		return fmt.Errorf("%w: ack_timeout must be positive", ErrInvalidConfig)
	}
	if err := failsafe.ValidateDuration(c.Inclusion.Timeout); err != nil {
		return fmt.Errorf("%w: inclusion timeout %v: %w", ErrInvalidConfig, c.Inclusion.Timeout, err)
	}
	if err := failsafe.ValidateDuration(c.Exclusion.Timeout); err != nil {
		return fmt.Errorf("%w: exclusion timeout %v: %w", ErrInvalidConfig, c.Exclusion.Timeout, err)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case FormatText, FormatJSON, FormatZerolog:
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return l, fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, s)
	}
	return l, nil
}

// InclusionStart returns the action "include" sends by default.
func (c Config) InclusionStart() action.InclusionStart {
	return action.InclusionStart{
		HighPower:   c.Inclusion.HighPower,
		NetworkWide: c.Inclusion.NetworkWide,
	}
}

// TransportConfig returns the serial transport settings.
func (c Config) TransportConfig() transport.Config {
	return transport.Config{AckTimeout: c.Serial.AckTimeout}
}

// LinkConfig returns the port supervision settings. The caller supplies
// the open function.
func (c Config) LinkConfig(open connection.OpenFunc) connection.Config {
	return connection.Config{
		Open:          open,
		Port:          c.Serial.Port,
		Transport:     c.TransportConfig(),
		AutoReconnect: c.Serial.Reconnect,
	}
}
