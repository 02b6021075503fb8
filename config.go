package authclient

import (
	"encoding/base64"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/goAuth-client/tokenstore"
)

// Config is the complete client configuration.
//
// Fields carry yaml and env tags for config.Load, which starts from [DefaultConfig].
// Booleans that default to true have no env-default tag: an explicit false in YAML must
// survive the env pass.
type Config struct {
	Transport TransportConfig `yaml:"transport"`
	Refresh   RefreshConfig   `yaml:"refresh"`
	Store     StoreConfig     `yaml:"store"`
	Audit     AuditConfig     `yaml:"audit"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Log       LogConfig       `yaml:"log"`
}

/*
====================================
TRANSPORT CONFIG
====================================
*/

// TransportConfig points the client at the authority.
type TransportConfig struct {
	BaseURL   string        `yaml:"base_url" env:"AUTHCLIENT_BASE_URL"`
	Timeout   time.Duration `yaml:"timeout" env:"AUTHCLIENT_HTTP_TIMEOUT" env-default:"15s"`
	UserAgent string        `yaml:"user_agent" env:"AUTHCLIENT_USER_AGENT" env-default:"authclient/1"`
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig tunes the refresh coordinator.
type RefreshConfig struct {
	// Skew is the buffer before access expiry at which a refresh is triggered.
	Skew time.Duration `yaml:"skew" env:"AUTHCLIENT_REFRESH_SKEW" env-default:"60s"`
	// Timeout bounds one refresh round trip, independent of any caller's context.
	Timeout time.Duration `yaml:"timeout" env:"AUTHCLIENT_REFRESH_TIMEOUT" env-default:"30s"`
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreBackend selects a token store implementation.
type StoreBackend string

const (
	StoreFile   StoreBackend = "file"
	StoreRedis  StoreBackend = "redis"
	StoreMemory StoreBackend = "memory"
)

// StoreConfig selects and configures the token store.
//
// File and Redis stores seal their payload. Provide either Key (base64 of 32 bytes) or
// Passphrase (Argon2id-derived key).
type StoreConfig struct {
	Backend StoreBackend `yaml:"backend" env:"AUTHCLIENT_STORE" env-default:"file"`

	// Path is the token file. Empty means <user config dir>/authclient/<identity>.tok.
	Path string `yaml:"path" env:"AUTHCLIENT_STORE_PATH"`

	Key        string `yaml:"key" env:"AUTHCLIENT_STORE_KEY"`
	Passphrase string `yaml:"passphrase" env:"AUTHCLIENT_STORE_PASSPHRASE"`

	KDFMemory      uint32 `yaml:"kdf_memory_kb" env:"AUTHCLIENT_KDF_MEMORY_KB" env-default:"65536"`
	KDFTime        uint32 `yaml:"kdf_time" env:"AUTHCLIENT_KDF_TIME" env-default:"3"`
	KDFParallelism uint8  `yaml:"kdf_parallelism" env:"AUTHCLIENT_KDF_PARALLELISM" env-default:"2"`

	RedisAddr     string `yaml:"redis_addr" env:"AUTHCLIENT_REDIS_ADDR"`
	RedisUsername string `yaml:"redis_username" env:"AUTHCLIENT_REDIS_USERNAME"`
	RedisPassword string `yaml:"redis_password" env:"AUTHCLIENT_REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"AUTHCLIENT_REDIS_DB" env-default:"0"`
	RedisPrefix   string `yaml:"redis_prefix" env:"AUTHCLIENT_REDIS_PREFIX" env-default:"ac"`

	// Identity scopes the stored pair, e.g. one key per device or profile.
	Identity string `yaml:"identity" env:"AUTHCLIENT_IDENTITY" env-default:"default"`
}

// KDF returns the Argon2id parameters for passphrase sealing.
func (s StoreConfig) KDF() tokenstore.KDFConfig {
	return tokenstore.KDFConfig{
		Memory:      s.KDFMemory,
		Time:        s.KDFTime,
		Parallelism: s.KDFParallelism,
	}
}

/*
====================================
OBSERVABILITY CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled" env:"AUTHCLIENT_AUDIT_ENABLED" env-default:"false"`
	BufferSize int  `yaml:"buffer_size" env:"AUTHCLIENT_AUDIT_BUFFER" env-default:"256"`
	DropIfFull bool `yaml:"drop_if_full" env:"AUTHCLIENT_AUDIT_DROP_IF_FULL"`
}

// MetricsConfig controls in-process metrics.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled" env:"AUTHCLIENT_METRICS_ENABLED"`
	EnableLatencyHistograms bool `yaml:"latency_histograms" env:"AUTHCLIENT_METRICS_LATENCY"`
}

// LogConfig configures the logger built by the CLI. Library users inject their own
// through [Builder.WithLogger].
type LogConfig struct {
	Level       string `yaml:"level" env:"AUTHCLIENT_LOG_LEVEL" env-default:"info"`
	Development bool   `yaml:"development" env:"AUTHCLIENT_LOG_DEV" env-default:"false"`
}

// DefaultConfig returns the baseline configuration. BaseURL is left empty.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	kdf := tokenstore.DefaultKDFConfig()
	return Config{
		Transport: TransportConfig{
			Timeout:   15 * time.Second,
			UserAgent: "authclient/1",
		},
		Refresh: RefreshConfig{
			Skew:    60 * time.Second,
			Timeout: 30 * time.Second,
		},
		Store: StoreConfig{
			Backend:        StoreFile,
			KDFMemory:      kdf.Memory,
			KDFTime:        kdf.Time,
			KDFParallelism: kdf.Parallelism,
			RedisPrefix:    "ac",
			Identity:       "default",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func cloneConfig(cfg Config) Config {
	return cfg
}

// Validate checks cfg for values the client cannot run with.
//
// The store section is validated only when the client builds its own store; see
// [Config.ValidateStore].
func (c *Config) Validate() error {
	// Transport
	if strings.TrimSpace(c.Transport.BaseURL) == "" {
		return errors.New("Transport BaseURL is required")
	}
	u, err := url.Parse(c.Transport.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("Transport BaseURL must be an absolute http(s) URL")
	}
	if c.Transport.Timeout <= 0 {
		return errors.New("Transport Timeout must be > 0")
	}

	// Refresh
	if c.Refresh.Skew < 0 {
		return errors.New("Refresh Skew must be >= 0")
	}
	if c.Refresh.Skew > 10*time.Minute {
		return errors.New("Refresh Skew must be <= 10m")
	}
	if c.Refresh.Timeout <= 0 {
		return errors.New("Refresh Timeout must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	// Log
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return errors.New("Log Level must be debug, info, warn or error")
	}

	return nil
}

// ValidateStore checks the store section.
func (c *Config) ValidateStore() error {
	return c.validateStore(false)
}

// validateStore skips the Redis address check when a client is injected.
func (c *Config) validateStore(haveRedis bool) error {
	s := c.Store
	switch s.Backend {
	case StoreMemory:
		return nil
	case StoreFile, StoreRedis:
	default:
		return errors.New("Store Backend must be file, redis or memory")
	}

	if s.Key == "" && s.Passphrase == "" {
		return errors.New("Store requires Key or Passphrase for sealing")
	}
	if s.Key != "" && s.Passphrase != "" {
		return errors.New("Store Key and Passphrase are mutually exclusive")
	}
	if s.Key != "" {
		raw, err := base64.StdEncoding.DecodeString(s.Key)
		if err != nil || len(raw) != 32 {
			return errors.New("Store Key must be base64 of exactly 32 bytes")
		}
	}
	if s.Passphrase != "" {
		if s.KDFMemory < 8*1024 {
			return errors.New("Store KDFMemory must be >= 8192 KB")
		}
		if s.KDFTime < 1 {
			return errors.New("Store KDFTime must be >= 1")
		}
		if s.KDFParallelism < 1 {
			return errors.New("Store KDFParallelism must be >= 1")
		}
	}

	if s.Backend == StoreRedis && !haveRedis {
		if strings.TrimSpace(s.RedisAddr) == "" {
			return errors.New("Store RedisAddr is required for the redis backend")
		}
		if s.RedisDB < 0 {
			return errors.New("Store RedisDB must be >= 0")
		}
	}
	if strings.TrimSpace(s.Identity) == "" {
		return errors.New("Store Identity must not be blank")
	}

	return nil
}
