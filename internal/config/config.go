package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration of the service.
type Config struct {
	Port     string
	LogLevel string
	DB       DBConfig
	Backend  BackendConfig
	Channel  ChannelConfig
	History  HistoryConfig
	Export   ExportConfig
}

type DBConfig struct {
	Path string
}

// BackendConfig describes the monitoring backend's REST surface.
type BackendConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
}

// ChannelConfig describes the push connection to the backend.
type ChannelConfig struct {
	Path           string
	ReconnectDelay time.Duration
	MaxAttempts    int
}

type HistoryConfig struct {
	Size int
}

type ExportConfig struct {
	Dir string
}

// Config keys, as they appear in configs/config.yml.
const (
	KeyPort                  = "port"
	KeyLogLevel              = "log_level"
	KeyDBPath                = "db.path"
	KeyBackendBaseURL        = "backend.base_url"
	KeyBackendRequestTimeout = "backend.request_timeout"
	KeyChannelPath           = "channel.path"
	KeyChannelReconnectDelay = "channel.reconnect_delay"
	KeyChannelMaxAttempts    = "channel.max_reconnect_attempts"
	KeyHistorySize           = "history.size"
	KeyExportDir             = "export.dir"
)

// Defaults.
const (
	DefaultPort                 = "8080"
	DefaultLogLevel             = "info"
	DefaultDBPath               = "battery.db"
	DefaultBaseURL              = "http://localhost:3000"
	DefaultRequestTimeout       = 10 * time.Second
	DefaultChannelPath          = "/ws"
	DefaultReconnectDelay       = 1 * time.Second
	DefaultMaxReconnectAttempts = 5
	DefaultHistorySize          = 30
	DefaultExportDir            = "exports"
)

// EnvPrefix prefixes environment overrides, e.g. BATTERY_BACKEND_BASE_URL.
const EnvPrefix = "BATTERY"

var errEmptyBaseURL = errors.New("backend.base_url is required")

// New returns a viper instance with defaults and env overrides applied.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyPort, DefaultPort)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyDBPath, DefaultDBPath)
	v.SetDefault(KeyBackendBaseURL, DefaultBaseURL)
	v.SetDefault(KeyBackendRequestTimeout, DefaultRequestTimeout)
	v.SetDefault(KeyChannelPath, DefaultChannelPath)
	v.SetDefault(KeyChannelReconnectDelay, DefaultReconnectDelay)
	v.SetDefault(KeyChannelMaxAttempts, DefaultMaxReconnectAttempts)
	v.SetDefault(KeyHistorySize, DefaultHistorySize)
	v.SetDefault(KeyExportDir, DefaultExportDir)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads config.yml from dir (if present) and returns the typed config.
// A missing file is not an error: defaults and env still apply.
func Load(dir string) (*Config, error) {
	v := New()
	v.AddConfigPath(dir)
	v.SetConfigName("config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return FromViper(v)
}

// FromViper decodes and validates a config from an already prepared viper.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:     v.GetString(KeyPort),
		LogLevel: v.GetString(KeyLogLevel),
		DB:       DBConfig{Path: v.GetString(KeyDBPath)},
		Backend: BackendConfig{
			BaseURL:        strings.TrimRight(v.GetString(KeyBackendBaseURL), "/"),
			RequestTimeout: v.GetDuration(KeyBackendRequestTimeout),
		},
		Channel: ChannelConfig{
			Path:           v.GetString(KeyChannelPath),
			ReconnectDelay: v.GetDuration(KeyChannelReconnectDelay),
			MaxAttempts:    v.GetInt(KeyChannelMaxAttempts),
		},
		History: HistoryConfig{Size: v.GetInt(KeyHistorySize)},
		Export:  ExportConfig{Dir: v.GetString(KeyExportDir)},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Backend.BaseURL == "" {
		return errEmptyBaseURL
	}
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("backend.base_url %q must be an absolute http(s) URL", c.Backend.BaseURL)
	}
	if c.Backend.RequestTimeout <= 0 {
		return fmt.Errorf("backend.request_timeout must be positive, got %v", c.Backend.RequestTimeout)
	}
	if c.Channel.ReconnectDelay <= 0 {
		return fmt.Errorf("channel.reconnect_delay must be positive, got %v", c.Channel.ReconnectDelay)
	}
	if c.Channel.MaxAttempts <= 0 {
		return fmt.Errorf("channel.max_reconnect_attempts must be positive, got %d", c.Channel.MaxAttempts)
	}
	if !strings.HasPrefix(c.Channel.Path, "/") {
		return fmt.Errorf("channel.path %q must start with '/'", c.Channel.Path)
	}
	if c.History.Size <= 0 {
		return fmt.Errorf("history.size must be positive, got %d", c.History.Size)
	}
	return nil
}

// PushURL derives the websocket URL of the push channel from the REST base URL.
func (c *Config) PushURL() string {
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + c.Channel.Path
	return u.String()
}
