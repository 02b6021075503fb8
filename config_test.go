package authclient

import (
	"testing"
	"time"
)

func validTestConfig() Config {
	cfg := DefaultConfig()
	cfg.Transport.BaseURL = "https://auth.example.com"
	cfg.Store.Key = "AAECAwQFBgcICQoLDA0ODxAREhMUFRYXGBkaGxwdHh8="
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults with base url",
			mutate:    func(c *Config) {},
			wantValid: true,
		},
		{
			name: "base url missing",
			mutate: func(c *Config) {
				c.Transport.BaseURL = "  "
			},
			wantValid: false,
		},
		{
			name: "base url relative",
			mutate: func(c *Config) {
				c.Transport.BaseURL = "/api"
			},
			wantValid: false,
		},
		{
			name: "base url wrong scheme",
			mutate: func(c *Config) {
				c.Transport.BaseURL = "ftp://auth.example.com"
			},
			wantValid: false,
		},
		{
			name: "http timeout zero",
			mutate: func(c *Config) {
				c.Transport.Timeout = 0
			},
			wantValid: false,
		},
		{
			name: "skew zero valid",
			mutate: func(c *Config) {
				c.Refresh.Skew = 0
			},
			wantValid: true,
		},
		{
			name: "skew negative",
			mutate: func(c *Config) {
				c.Refresh.Skew = -time.Second
			},
			wantValid: false,
		},
		{
			name: "skew too large",
			mutate: func(c *Config) {
				c.Refresh.Skew = 11 * time.Minute
			},
			wantValid: false,
		},
		{
			name: "refresh timeout zero",
			mutate: func(c *Config) {
				c.Refresh.Timeout = 0
			},
			wantValid: false,
		},
		{
			name: "audit enabled without buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
		{
			name: "log level valid",
			mutate: func(c *Config) {
				c.Log.Level = "DEBUG"
			},
			wantValid: true,
		},
		{
			name: "log level invalid",
			mutate: func(c *Config) {
				c.Log.Level = "trace"
			},
			wantValid: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validTestConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatal("expected invalid config, got nil")
			}
		})
	}
}

func TestConfigValidateStore(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "file with key",
			mutate:    func(c *Config) {},
			wantValid: true,
		},
		{
			name: "memory needs no key",
			mutate: func(c *Config) {
				c.Store.Backend = StoreMemory
				c.Store.Key = ""
			},
			wantValid: true,
		},
		{
			name: "unknown backend",
			mutate: func(c *Config) {
				c.Store.Backend = "sqlite"
			},
			wantValid: false,
		},
		{
			name: "file without sealing",
			mutate: func(c *Config) {
				c.Store.Key = ""
			},
			wantValid: false,
		},
		{
			name: "key and passphrase",
			mutate: func(c *Config) {
				c.Store.Passphrase = "correct horse battery staple"
			},
			wantValid: false,
		},
		{
			name: "short key",
			mutate: func(c *Config) {
				c.Store.Key = "AAECAwQFBgcICQoLDA0ODw=="
			},
			wantValid: false,
		},
		{
			name: "passphrase with weak kdf",
			mutate: func(c *Config) {
				c.Store.Key = ""
				c.Store.Passphrase = "correct horse battery staple"
				c.Store.KDFMemory = 1024
			},
			wantValid: false,
		},
		{
			name: "passphrase valid",
			mutate: func(c *Config) {
				c.Store.Key = ""
				c.Store.Passphrase = "correct horse battery staple"
			},
			wantValid: true,
		},
		{
			name: "redis without address",
			mutate: func(c *Config) {
				c.Store.Backend = StoreRedis
			},
			wantValid: false,
		},
		{
			name: "redis with address",
			mutate: func(c *Config) {
				c.Store.Backend = StoreRedis
				c.Store.RedisAddr = "127.0.0.1:6379"
			},
			wantValid: true,
		},
		{
			name: "blank identity",
			mutate: func(c *Config) {
				c.Store.Identity = " "
			},
			wantValid: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validTestConfig()
			tc.mutate(&cfg)
			err := cfg.ValidateStore()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid store config, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatal("expected invalid store config, got nil")
			}
		})
	}
}

func TestConfigValidateStoreWithInjectedRedis(t *testing.T) {
	cfg := validTestConfig()
	cfg.Store.Backend = StoreRedis

	if err := cfg.validateStore(true); err != nil {
		t.Fatalf("injected redis client should not need an address: %v", err)
	}
}

func TestDefaultConfigMatchesDocumentedDefaults(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Refresh.Skew != 60*time.Second {
		t.Fatalf("expected 60s skew, got %v", cfg.Refresh.Skew)
	}
	if cfg.Refresh.Timeout != 30*time.Second {
		t.Fatalf("expected 30s refresh timeout, got %v", cfg.Refresh.Timeout)
	}
	if cfg.Store.Backend != StoreFile {
		t.Fatalf("expected file backend, got %q", cfg.Store.Backend)
	}
}
