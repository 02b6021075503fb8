package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	authclient "github.com/MrEthical07/goAuth-client"
	"github.com/MrEthical07/goAuth-client/config"
)

// runtime carries what every subcommand needs. prepare fills it lazily so that --help
// works without a config.
type runtime struct {
	configPath string
	baseURL    string
	store      string
	storePath  string
	logLevel   string

	cfg    *authclient.Config
	logger *zap.Logger
	client *authclient.Client
}

func (r *runtime) bindFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&r.configPath, "config", "", "path to a YAML config file")
	f.StringVar(&r.baseURL, "base-url", "", "authority base URL (overrides config)")
	f.StringVar(&r.store, "store", "", "token store backend: file, redis or memory")
	f.StringVar(&r.storePath, "store-path", "", "token file path for the file backend")
	f.StringVar(&r.logLevel, "log-level", "", "debug, info, warn or error")
}

// prepare loads configuration and builds the client. Flags override config values.
func (r *runtime) prepare() error {
	if r.client != nil {
		return nil
	}

	cfg, err := r.loadConfig()
	if err != nil {
		return err
	}
	r.cfg = cfg

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	r.logger = logger

	client, err := authclient.New().
		WithConfig(*cfg).
		WithLogger(logger).
		Build()
	if err != nil {
		return err
	}
	r.client = client
	return nil
}

func (r *runtime) loadConfig() (*authclient.Config, error) {
	if r.baseURL != "" {
		// Load validates, so the flag has to be visible before it runs.
		if err := os.Setenv("AUTHCLIENT_BASE_URL", r.baseURL); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(r.configPath)
	if err != nil {
		return nil, err
	}
	if r.baseURL != "" {
		cfg.Transport.BaseURL = r.baseURL
	}
	if r.store != "" {
		cfg.Store.Backend = authclient.StoreBackend(strings.ToLower(r.store))
	}
	if r.storePath != "" {
		cfg.Store.Path = r.storePath
	}
	if r.logLevel != "" {
		cfg.Log.Level = r.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (r *runtime) close() {
	if r.client != nil {
		if err := r.client.Close(); err != nil {
			r.logger.Warn("close client", zap.Error(err))
		}
	}
	if r.logger != nil {
		_ = r.logger.Sync()
	}
}

// withClient wraps a RunE so the client is built first and closed afterwards.
func (r *runtime) withClient(run func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := r.prepare(); err != nil {
			return err
		}
		defer r.close()
		return run(cmd, args)
	}
}

// withSession additionally restores the persisted session.
func (r *runtime) withSession(run func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return r.withClient(func(cmd *cobra.Command, args []string) error {
		s, err := r.client.Boot(cmd.Context())
		if err != nil {
			return err
		}
		if !s.Authenticated() {
			if s.LastError != "" {
				return fmt.Errorf("%w: %s", authclient.ErrNotAuthenticated, s.LastError)
			}
			return authclient.ErrNotAuthenticated
		}
		return run(cmd, args)
	})
}

func newLogger(cfg authclient.LogConfig) (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case "warn":
		level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	}

	if cfg.Development {
		zc := zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zc.Level = level
		return zc.Build()
	}

	zc := zap.NewProductionConfig()
	zc.Level = level
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}
