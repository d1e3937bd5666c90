package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Wire protocols accepted for client-to-server commands.
const (
	ProtocolOpcode   = "opcode"
	ProtocolEnvelope = "envelope"
)

// Feed sort orders.
const (
	SortNewest = "newest"
	SortOldest = "oldest"
)

// APIConfig holds settings for the REST notification endpoint.
type APIConfig struct {
	// BaseURL is the root of the Reportwell REST API.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TimeoutSec bounds each REST request.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec" validate:"min=0"`
}

// WSConfig holds settings for the push notification socket.
type WSConfig struct {
	// BaseURL is the WebSocket host, e.g. wss://api.reportwell.com/ws.
	BaseURL string `mapstructure:"base_url" yaml:"base_url" validate:"required,notblank"`

	// Protocol selects the command encoding: "opcode" or "envelope".
	Protocol string `mapstructure:"protocol" yaml:"protocol" validate:"oneof=opcode envelope"`

	// MaxRetries bounds automatic reconnect attempts after an
	// unexpected close.
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries" validate:"min=0"`

	// RetryDelayMs is the fixed delay before each reconnect attempt.
	RetryDelayMs int `mapstructure:"retry_delay_ms" yaml:"retry_delay_ms" validate:"min=0"`

	// HandshakeTimeoutSec bounds the opening handshake.
	HandshakeTimeoutSec int `mapstructure:"handshake_timeout_sec" yaml:"handshake_timeout_sec" validate:"min=0"`
}

// RetryDelay returns RetryDelayMs as a duration.
func (c WSConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

// HandshakeTimeout returns HandshakeTimeoutSec as a duration.
func (c WSConfig) HandshakeTimeout() time.Duration {
	return time.Duration(c.HandshakeTimeoutSec) * time.Second
}

// SyncConfig controls the periodic REST resync.
type SyncConfig struct {
	PollIntervalSec int `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec" validate:"min=0"`
}

// StoreConfig locates the local snapshot database.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
	Sort  string `mapstructure:"sort" yaml:"sort" validate:"oneof=newest oldest"`
}

// MetricsConfig controls the optional Prometheus endpoint.
type MetricsConfig struct {
	// ListenAddr serves /metrics when set, e.g. "127.0.0.1:9464".
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API     APIConfig     `mapstructure:"api" yaml:"api"`
	WS      WSConfig      `mapstructure:"ws" yaml:"ws"`
	Sync    SyncConfig    `mapstructure:"sync" yaml:"sync"`
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// ConfigDir returns ~/.config/reportwell, falling back to the working
// directory when the home directory cannot be resolved.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "reportwell")
}

// DefaultConfigPath returns the default path for the configuration file.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "notifyfeed.yaml")
}

// DefaultAppConfig returns the configuration used when no file exists.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		API: APIConfig{
			BaseURL:    "http://localhost:8000/api",
			TimeoutSec: 30,
		},
		WS: WSConfig{
			BaseURL:             "ws://localhost:8000/ws",
			Protocol:            ProtocolOpcode,
			MaxRetries:          3,
			RetryDelayMs:        2000,
			HandshakeTimeoutSec: 10,
		},
		Sync: SyncConfig{
			PollIntervalSec: 300,
		},
		Store: StoreConfig{
			Path: filepath.Join(ConfigDir(), "notifyfeed.db"),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			File:   filepath.Join(ConfigDir(), "notifyfeed.log"),
		},
		Display: DisplayConfig{
			Theme: "default",
			Sort:  SortNewest,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultAppConfig()
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.timeout_sec", d.API.TimeoutSec)
	v.SetDefault("ws.base_url", d.WS.BaseURL)
	v.SetDefault("ws.protocol", d.WS.Protocol)
	v.SetDefault("ws.max_retries", d.WS.MaxRetries)
	v.SetDefault("ws.retry_delay_ms", d.WS.RetryDelayMs)
	v.SetDefault("ws.handshake_timeout_sec", d.WS.HandshakeTimeoutSec)
	v.SetDefault("sync.poll_interval_sec", d.Sync.PollIntervalSec)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("display.theme", d.Display.Theme)
	v.SetDefault("display.sort", d.Display.Sort)
	v.SetDefault("metrics.listen_addr", d.Metrics.ListenAddr)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Environment variables prefixed with REPORTWELL_ override file values
// (REPORTWELL_WS_BASE_URL overrides ws.base_url). A missing file is not
// an error: defaults and environment apply.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("REPORTWELL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("api", cfg.API)
	v.Set("ws", cfg.WS)
	v.Set("sync", cfg.Sync)
	v.Set("store", cfg.Store)
	v.Set("log", cfg.Log)
	v.Set("display", cfg.Display)
	v.Set("metrics", cfg.Metrics)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
