package authclient

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MrEthical07/goAuth-client/internal/audit"
	"github.com/MrEthical07/goAuth-client/internal/flows"
	"github.com/MrEthical07/goAuth-client/refresh"
	"github.com/MrEthical07/goAuth-client/tokenstore"
	"github.com/MrEthical07/goAuth-client/transport"
)

// Builder assembles a [Client].
//
// Builder instances are intended to be configured during initialization and then
// discarded; Build may be called once.
type Builder struct {
	config     Config
	store      tokenstore.Store
	redis      redis.UniversalClient
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time

	auditSink AuditSink
	listeners []StateListener

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithBaseURL sets Transport.BaseURL.
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.Transport.BaseURL = baseURL
	return b
}

// WithTokenStore uses store instead of building one from the Store config section.
func (b *Builder) WithTokenStore(store tokenstore.Store) *Builder {
	b.store = store
	return b
}

// WithRedis supplies the client used by the redis store backend. The caller keeps
// ownership and closes it.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithHTTPClient replaces the *http.Client used for every authority call.
func (b *Builder) WithHTTPClient(hc *http.Client) *Builder {
	b.httpClient = hc
	return b
}

// WithLogger sets the structured logger. The default discards everything.
func (b *Builder) WithLogger(l *zap.Logger) *Builder {
	b.logger = l
	return b
}

// WithClock overrides the time source for expiry decisions.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithAuditSink enables auditing into sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

// WithStateListener registers l for session transitions.
func (b *Builder) WithStateListener(l StateListener) *Builder {
	if l != nil {
		b.listeners = append(b.listeners, l)
	}
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the refresh latency histogram. It has no effect while
// metrics are disabled.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the client. No network I/O happens here;
// call [Client.Boot] to restore a persisted session.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	c := &Client{
		cfg:       cfg,
		logger:    logger,
		now:       now,
		metrics:   NewMetrics(cfg.Metrics),
		listeners: append([]StateListener(nil), b.listeners...),
	}
	c.session.Store(&Session{Phase: PhaseUninitialized})

	store := b.store
	if store == nil {
		if err := cfg.validateStore(b.redis != nil); err != nil {
			return nil, err
		}
		built, closer, err := buildStore(cfg.Store, b.redis)
		if err != nil {
			return nil, err
		}
		store = built
		if closer != nil {
			c.closers = append(c.closers, closer)
		}
	}
	c.store = store

	topts := []transport.Option{
		transport.WithClock(now),
		transport.WithLogger(logger.Named("transport")),
	}
	if b.httpClient != nil {
		topts = append(topts, transport.WithHTTPClient(b.httpClient))
	}
	tc, err := transport.New(transport.Config{
		BaseURL:   cfg.Transport.BaseURL,
		Timeout:   cfg.Transport.Timeout,
		UserAgent: cfg.Transport.UserAgent,
	}, topts...)
	if err != nil {
		return nil, err
	}
	c.transport = tc

	if cfg.Audit.Enabled {
		sink := b.auditSink
		if sink == nil {
			sink = audit.NewZapSink(logger)
		}
		c.audit = audit.NewDispatcher(audit.Config{
			Enabled:    true,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
			Retain:     []string{AuditLogout, AuditSessionExpired},
		}, sink)
	}

	c.coord = refresh.New(store, tc, refresh.Config{
		Skew:    cfg.Refresh.Skew,
		Timeout: cfg.Refresh.Timeout,
	},
		refresh.WithClock(now),
		refresh.WithLogger(logger.Named("refresh")),
		refresh.WithHooks(refresh.Hooks{
			OnStart:    func() { c.metrics.Inc(MetricRefreshStarted) },
			OnJoin:     func() { c.metrics.Inc(MetricRefreshJoined) },
			OnComplete: c.observeRefresh,
			OnTerminal: c.sessionLost,
		}),
	)

	c.pipeline = &Pipeline{
		coord:     c.coord,
		transport: tc,
		metrics:   c.metrics,
		logger:    logger.Named("pipeline"),
	}

	c.flows = flows.New(flows.Deps{
		Login: flows.LoginDeps{
			Transport: tc,
			Save:                   c.coord.Replace,
			Clear:                  c.coord.Discard,
			FetchProfile:           c.fetchProfile,
			InvalidCredentials:     transport.ErrInvalidCredentials,
			EmailAlreadyRegistered: transport.ErrEmailAlreadyRegistered,
		},
		Logout: flows.LogoutDeps{
			Store:  store,
			Revoke: tc.Logout,
			Clear:  c.coord.Discard,
		},
		Restore: flows.RestoreDeps{
			Store:        store,
			Now:          now,
			FetchProfile: c.fetchProfile,
			Clear:        c.coord.Discard,
			Corrupt:      tokenstore.ErrCorrupt,
			NetworkErr:   transport.ErrNetwork,
		},
	})

	b.built = true
	return c, nil
}

// buildStore constructs the configured backend. The returned closer, if any, releases
// resources the store owns.
func buildStore(cfg StoreConfig, rdb redis.UniversalClient) (tokenstore.Store, func() error, error) {
	if cfg.Backend == StoreMemory {
		return tokenstore.NewMemoryStore(), nil, nil
	}

	sealer, err := buildSealer(cfg)
	if err != nil {
		return nil, nil, err
	}

	switch cfg.Backend {
	case StoreFile:
		path := cfg.Path
		if path == "" {
			dir, err := os.UserConfigDir()
			if err != nil {
				return nil, nil, fmt.Errorf("resolve token file location: %w", err)
			}
			path = filepath.Join(dir, "authclient", cfg.Identity+".tok")
		}
		fs, err := tokenstore.NewFileStore(path, sealer)
		if err != nil {
			return nil, nil, err
		}
		return fs, nil, nil

	case StoreRedis:
		var closer func() error
		if rdb == nil {
			client := redis.NewClient(&redis.Options{
				Addr:     cfg.RedisAddr,
				Username: cfg.RedisUsername,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			})
			rdb, closer = client, client.Close
		}
		rs, err := tokenstore.NewRedisStore(rdb, cfg.RedisPrefix, cfg.Identity, sealer)
		if err != nil {
			if closer != nil {
				_ = closer()
			}
			return nil, nil, err
		}
		return rs, closer, nil

	default:
		return nil, nil, fmt.Errorf("unsupported store backend %q", cfg.Backend)
	}
}

func buildSealer(cfg StoreConfig) (tokenstore.Sealer, error) {
	if cfg.Key != "" {
		raw, err := base64.StdEncoding.DecodeString(cfg.Key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", tokenstore.ErrInvalidKey, err)
		}
		return tokenstore.NewKeySealer(raw)
	}
	if cfg.Passphrase != "" {
		return tokenstore.NewPassphraseSealer(cfg.Passphrase, cfg.KDF())
	}
	return nil, tokenstore.ErrSealerRequired
}
