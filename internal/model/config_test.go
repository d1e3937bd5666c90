package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reportwell/notifyfeed/internal/apperr"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	d := DefaultAppConfig()
	assert.Equal(t, d.WS, cfg.WS)
	assert.Equal(t, 3, cfg.WS.MaxRetries)
	assert.Equal(t, 2000, cfg.WS.RetryDelayMs)
	assert.Equal(t, ProtocolOpcode, cfg.WS.Protocol)
	assert.Equal(t, SortNewest, cfg.Display.Sort)
}

func TestLoadConfigFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notifyfeed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
ws:
  base_url: wss://api.example.com/ws
  protocol: envelope
  max_retries: 5
display:
  sort: oldest
`), 0o600))

	t.Setenv("REPORTWELL_WS_MAX_RETRIES", "7")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "wss://api.example.com/ws", cfg.WS.BaseURL)
	assert.Equal(t, ProtocolEnvelope, cfg.WS.Protocol)
	assert.Equal(t, 7, cfg.WS.MaxRetries)
	assert.Equal(t, 2000, cfg.WS.RetryDelayMs, "unset keys keep defaults")
	assert.Equal(t, SortOldest, cfg.Display.Sort)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ws:\n  protocol: morse\n"), 0o600))

	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "ws.protocol")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
		want   string
	}{
		{"empty url", func(c *AppConfig) { c.WS.BaseURL = " " }, "ws.base_url"},
		{"negative retries", func(c *AppConfig) { c.WS.MaxRetries = -1 }, "ws.max_retries"},
		{"negative delay", func(c *AppConfig) { c.WS.RetryDelayMs = -5 }, "ws.retry_delay_ms"},
		{"bad sort", func(c *AppConfig) { c.Display.Sort = "random" }, "display.sort must be one of [newest oldest]"},
		{"bad protocol", func(c *AppConfig) { c.WS.Protocol = "binary" }, `ws.protocol must be one of [opcode envelope], got "binary"`},
		{"negative poll interval", func(c *AppConfig) { c.Sync.PollIntervalSec = -1 }, "sync.poll_interval_sec must be at least 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultAppConfig()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}

	assert.NoError(t, DefaultAppConfig().Validate())
}

func TestValidateReportsEveryField(t *testing.T) {
	cfg := DefaultAppConfig()
	cfg.WS.BaseURL = ""
	cfg.WS.MaxRetries = -2

	err := cfg.Validate()
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
	assert.ErrorContains(t, err, "ws.base_url is required")
	assert.ErrorContains(t, err, "ws.max_retries must be at least 0, got -2")
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "notifyfeed.yaml")

	cfg := DefaultAppConfig()
	cfg.WS.BaseURL = "wss://saved.example.com/ws"
	cfg.Display.Sort = SortOldest
	cfg.Metrics.ListenAddr = "127.0.0.1:9464"
	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.WS.BaseURL, loaded.WS.BaseURL)
	assert.Equal(t, SortOldest, loaded.Display.Sort)
	assert.Equal(t, "127.0.0.1:9464", loaded.Metrics.ListenAddr)
}

func TestWSConfigDurations(t *testing.T) {
	ws := WSConfig{RetryDelayMs: 1500, HandshakeTimeoutSec: 3}
	assert.Equal(t, "1.5s", ws.RetryDelay().String())
	assert.Equal(t, "3s", ws.HandshakeTimeout().String())
}
