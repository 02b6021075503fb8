// Package config loads an authclient.Config from YAML and the environment.
package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"

	authclient "github.com/MrEthical07/goAuth-client"
)

const (
	// EnvPath names the config file when no explicit path is given.
	EnvPath = "AUTHCLIENT_CONFIG"
	// LocalFile is tried in the working directory when neither a path nor EnvPath is set.
	LocalFile = "authclient.yaml"
)

// MustLoad is Load that panics on error.
func MustLoad(path string) *authclient.Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load resolves configuration in this order: the explicit path, the file named by
// AUTHCLIENT_CONFIG, ./authclient.yaml, then environment variables alone. Environment
// variables always override file values, and everything starts from
// [authclient.DefaultConfig].
//
// The result is validated with [authclient.Config.Validate].
func Load(path string) (*authclient.Config, error) {
	cfg := authclient.DefaultConfig()

	readFile := func(p string) error {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("config file %q: %w", p, err)
		}
		// ReadConfig overlays the environment after the file.
		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return fmt.Errorf("read config %q: %w", p, err)
		}
		return nil
	}

	switch {
	case path != "":
		if err := readFile(path); err != nil {
			return nil, err
		}
	case os.Getenv(EnvPath) != "":
		if err := readFile(os.Getenv(EnvPath)); err != nil {
			return nil, err
		}
	default:
		if _, err := os.Stat(LocalFile); err == nil {
			if err := readFile(LocalFile); err != nil {
				return nil, err
			}
		} else if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("read env: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Usage returns a description of every environment variable Load reads.
func Usage() string {
	var cfg authclient.Config
	text, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return err.Error()
	}
	return text
}
