package refresh

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MrEthical07/goAuth-client/internal/flows"
	"github.com/MrEthical07/goAuth-client/tokenstore"
	"github.com/MrEthical07/goAuth-client/transport"
)

const (
	DefaultSkew    = 60 * time.Second
	DefaultTimeout = 30 * time.Second
)

var errSuperseded = errors.New("session superseded during refresh")

// Config tunes a [Coordinator].
type Config struct {
	// Skew is how long before access expiry a refresh is triggered.
	Skew time.Duration
	// Timeout bounds a single refresh network call.
	Timeout time.Duration
}

// Hooks observe coordinator activity. All fields are optional and must not call back
// into the Coordinator.
type Hooks struct {
	// OnStart fires when a flight is about to contact the authority.
	OnStart func()
	// OnJoin fires when a caller attaches to a refresh that is already pending.
	OnJoin func()
	// OnComplete fires once per flight after the outcome is known.
	OnComplete func(out Outcome, dur time.Duration)
	// OnTerminal fires synchronously, before any waiter is released, when the session is
	// irrecoverably lost.
	OnTerminal func(reason Reason)
}

// Option customizes a [Coordinator].
type Option func(*Coordinator)

// WithClock overrides the time source used for expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the coordinator logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHooks installs activity hooks.
func WithHooks(h Hooks) Option {
	return func(c *Coordinator) {
		c.hooks = h
	}
}

type flight struct {
	done chan struct{}
	out  Outcome
}

// Coordinator serializes access token refreshes.
type Coordinator struct {
	store     tokenstore.Store
	transport flows.RefreshTransport
	skew      time.Duration
	timeout   time.Duration
	now       func() time.Time
	logger    *zap.Logger
	hooks     Hooks

	mu       sync.Mutex
	inflight *flight
	// generation is bumped by Replace and Discard; a flight only writes the store if the
	// generation it started under is still current.
	generation uint64
}

// New builds a Coordinator over store, using rt to rotate refresh tokens.
func New(store tokenstore.Store, rt flows.RefreshTransport, cfg Config, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:     store,
		transport: rt,
		skew:      cfg.Skew,
		timeout:   cfg.Timeout,
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	if c.skew <= 0 {
		c.skew = DefaultSkew
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EnsureFresh returns an access token that stays valid for longer than the skew buffer,
// refreshing if needed.
func (c *Coordinator) EnsureFresh(ctx context.Context) Outcome {
	pair, ok, err := c.store.Load(ctx)
	if err != nil {
		return Outcome{Err: err}
	}
	if !ok {
		return Outcome{Reason: ReasonUnauthenticated}
	}

	now := c.now()
	if pair.RefreshExpired(now) {
		return c.expireLocally(ctx)
	}
	if pair.AccessValidFor(now, c.skew) {
		return tokenOutcome(pair, false)
	}

	return c.await(ctx, c.join(ctx, pair.AccessToken, false))
}

// ForceRefresh replaces staleAccess, typically after the server rejected it with 401.
//
// The skew check is skipped. If the stored access token already differs from staleAccess
// another caller has rotated meanwhile, and the stored token is returned without a
// network call.
func (c *Coordinator) ForceRefresh(ctx context.Context, staleAccess string) Outcome {
	pair, ok, err := c.store.Load(ctx)
	if err != nil {
		return Outcome{Err: err}
	}
	if !ok {
		return Outcome{Reason: ReasonUnauthenticated}
	}
	if pair.RefreshExpired(c.now()) {
		return c.expireLocally(ctx)
	}
	if pair.AccessToken != staleAccess {
		return tokenOutcome(pair, false)
	}

	return c.await(ctx, c.join(ctx, staleAccess, true))
}

// Replace saves pair as the new session. Any pending refresh is detached in the same
// critical section, so a rotation of the previous session can never overwrite pair.
func (c *Coordinator) Replace(ctx context.Context, pair tokenstore.Pair) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.detachLocked()
	return c.store.Save(ctx, pair)
}

// Discard clears the stored session and detaches any pending refresh atomically. A
// flight that started before Discard returns finds its writes rejected.
func (c *Coordinator) Discard(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.detachLocked()
	return c.store.Clear(ctx)
}

// detachLocked makes any pending flight's writes fail with errSuperseded.
func (c *Coordinator) detachLocked() {
	c.generation++
	c.inflight = nil
}

// InFlight reports whether a refresh is pending.
func (c *Coordinator) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight != nil
}

func (c *Coordinator) join(ctx context.Context, stale string, force bool) *flight {
	c.mu.Lock()
	if f := c.inflight; f != nil {
		c.mu.Unlock()
		if c.hooks.OnJoin != nil {
			c.hooks.OnJoin()
		}
		return f
	}

	f := &flight{done: make(chan struct{})}
	c.inflight = f
	gen := c.generation
	c.mu.Unlock()

	go c.run(context.WithoutCancel(ctx), f, stale, force, gen)
	return f
}

func (c *Coordinator) await(ctx context.Context, f *flight) Outcome {
	select {
	case <-f.done:
		return f.out
	case <-ctx.Done():
		return Outcome{Err: ctx.Err()}
	}
}

func (c *Coordinator) run(parent context.Context, f *flight, stale string, force bool, gen uint64) {
	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	start := time.Now()
	out := c.refresh(ctx, stale, force, gen)

	if out.Reason.Terminal() && c.hooks.OnTerminal != nil {
		c.hooks.OnTerminal(out.Reason)
	}

	c.mu.Lock()
	if c.inflight == f {
		c.inflight = nil
	}
	f.out = out
	c.mu.Unlock()
	close(f.done)

	if c.hooks.OnComplete != nil {
		c.hooks.OnComplete(out, time.Since(start))
	}
}

func (c *Coordinator) refresh(ctx context.Context, stale string, force bool, gen uint64) Outcome {
	current, ok, err := c.store.Load(ctx)
	if err != nil {
		return Outcome{Err: err}
	}
	if !ok {
		return Outcome{Reason: ReasonUnauthenticated}
	}

	// A flight that finished between the caller's load and this one already rotated.
	if current.AccessToken != stale && (force || current.AccessValidFor(c.now(), c.skew)) {
		return tokenOutcome(current, false)
	}

	if c.hooks.OnStart != nil {
		c.hooks.OnStart()
	}
	c.logger.Debug("refreshing access token",
		zap.String("refresh_fp", tokenstore.Fingerprint(current.RefreshToken)),
		zap.Time("access_expires_at", current.AccessExpiresAt),
		zap.Bool("forced", force),
	)

	res := flows.RunRefresh(ctx, current, flows.RefreshDeps{
		Transport: c.transport,
		Now:       c.now,
		Save: func(ctx context.Context, p tokenstore.Pair) error {
			return c.writeIfCurrent(gen, func() error { return c.store.Save(ctx, p) })
		},
		Clear: func(ctx context.Context) error {
			return c.writeIfCurrent(gen, func() error { return c.store.Clear(ctx) })
		},
		Warn: func(msg string, kv ...any) {
			c.logger.Sugar().Warnw(msg, kv...)
		},
		RefreshTokenExpired: transport.ErrRefreshTokenExpired,
		RefreshTokenRevoked: transport.ErrRefreshTokenRevoked,
		Superseded:          errSuperseded,
	})

	if res.Failure.Terminal() {
		c.logger.Info("refresh token unusable; session ended",
			zap.Error(res.Err),
			zap.Bool("cleared", res.Cleared),
		)
	}

	switch res.Failure {
	case flows.RefreshFailureNone:
		c.logger.Debug("access token refreshed",
			zap.String("refresh_fp", tokenstore.Fingerprint(res.Pair.RefreshToken)),
			zap.Time("access_expires_at", res.Pair.AccessExpiresAt),
		)
		return tokenOutcome(res.Pair, true)
	case flows.RefreshFailureExpired:
		return Outcome{Reason: ReasonRefreshTokenExpired, Err: res.Err}
	case flows.RefreshFailureRevoked:
		return Outcome{Reason: ReasonRefreshTokenRevoked, Err: res.Err}
	case flows.RefreshFailureNetwork:
		c.logger.Warn("refresh failed; keeping tokens", zap.Error(res.Err))
		return Outcome{Reason: ReasonNetworkError, Err: res.Err}
	case flows.RefreshFailureSuperseded:
		return c.reevaluate(ctx)
	default:
		c.logger.Error("persisting refreshed tokens failed", zap.Error(res.Err))
		return Outcome{Err: res.Err}
	}
}

// reevaluate answers waiters of a superseded flight from whatever session replaced it.
func (c *Coordinator) reevaluate(ctx context.Context) Outcome {
	pair, ok, err := c.store.Load(ctx)
	switch {
	case err != nil:
		return Outcome{Err: err}
	case !ok:
		return Outcome{Reason: ReasonUnauthenticated}
	case pair.AccessValidFor(c.now(), 0):
		return tokenOutcome(pair, false)
	default:
		return Outcome{Reason: ReasonUnauthenticated}
	}
}

func (c *Coordinator) writeIfCurrent(gen uint64, write func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return errSuperseded
	}
	return write()
}

func (c *Coordinator) expireLocally(ctx context.Context) Outcome {
	if err := c.store.Clear(ctx); err != nil {
		return Outcome{Err: err}
	}
	if c.hooks.OnTerminal != nil {
		c.hooks.OnTerminal(ReasonRefreshTokenExpired)
	}
	return Outcome{Reason: ReasonRefreshTokenExpired}
}
