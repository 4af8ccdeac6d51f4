package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homenode/zwave-go/pkg/action"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "zwave.yaml", `
serial:
  port: /dev/ttyACM0
  ack_timeout: 2s
inclusion:
  network_wide: true
  timeout: 90s
log:
  level: debug
  format: json
  protocol_file: /tmp/capture.zlog
state_file: /var/lib/zwave/network.json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, DefaultBaud, cfg.Serial.Baud, "unset keys keep defaults")
	assert.Equal(t, 2*time.Second, cfg.Serial.AckTimeout)
	assert.True(t, cfg.Serial.Reconnect)
	assert.True(t, cfg.Inclusion.HighPower)
	assert.True(t, cfg.Inclusion.NetworkWide)
	assert.Equal(t, 90*time.Second, cfg.Inclusion.Timeout)
	assert.Equal(t, 60*time.Second, cfg.Exclusion.Timeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, FormatJSON, cfg.Log.Format)
	assert.Equal(t, "/tmp/capture.zlog", cfg.Log.ProtocolFile)
	assert.Equal(t, "/var/lib/zwave/network.json", cfg.StateFile)
	assert.NoError(t, cfg.Validate())
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "zwave.toml", `
state_file = "network.json"

[serial]
port = "COM3"
baud = 57600
reconnect = false

[inclusion]
high_power = false
timeout = "2m"

[exclusion]
timeout = "30s"

[log]
format = "zerolog"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "COM3", cfg.Serial.Port)
	assert.Equal(t, 57600, cfg.Serial.Baud)
	assert.False(t, cfg.Serial.Reconnect)
	assert.False(t, cfg.Inclusion.HighPower)
	assert.Equal(t, 2*time.Minute, cfg.Inclusion.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Exclusion.Timeout)
	assert.Equal(t, FormatZerolog, cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := Load(writeFile(t, "zwave.json", "{}"))
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("unknown yaml key", func(t *testing.T) {
		_, err := Load(writeFile(t, "zwave.yaml", "serial:\n  prot: /dev/ttyUSB0\n"))
		assert.Error(t, err)
	})

	t.Run("unknown toml key", func(t *testing.T) {
		_, err := Load(writeFile(t, "zwave.toml", "[serial]\nprot = \"/dev/ttyUSB0\"\n"))
		assert.Error(t, err)
	})

	t.Run("empty yaml keeps defaults", func(t *testing.T) {
		cfg, err := Load(writeFile(t, "zwave.yml", ""))
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})
}

func TestValidate(t *testing.T) {
	valid := Default()
	valid.Serial.Port = "/dev/ttyACM0"
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"no port", func(c *Config) { c.Serial.Port = "" }},
		{"zero baud", func(c *Config) { c.Serial.Baud = 0 }},
		{"zero ack timeout", func(c *Config) { c.Serial.AckTimeout = 0 }},
		{"inclusion timeout too short", func(c *Config) { c.Inclusion.Timeout = time.Second }},
		{"exclusion timeout too long", func(c *Config) { c.Exclusion.Timeout = time.Hour }},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.modify(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestInclusionStart(t *testing.T) {
	cfg := Default()
	cfg.Inclusion.NetworkWide = true

	a := cfg.InclusionStart()
	assert.Equal(t, action.InclusionStart{HighPower: true, NetworkWide: true}, a)
	assert.Equal(t, []byte{0xC1}, action.Encode(a).Payload)
}

func TestLinkConfig(t *testing.T) {
	cfg := Default()
	cfg.Serial.Port = "/dev/ttyUSB1"

	lc := cfg.LinkConfig(nil)
	assert.Equal(t, "/dev/ttyUSB1", lc.Port)
	assert.True(t, lc.AutoReconnect)
	assert.Equal(t, cfg.Serial.AckTimeout, lc.Transport.AckTimeout)
}
