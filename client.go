package authclient

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/MrEthical07/goAuth-client/internal/audit"
	"github.com/MrEthical07/goAuth-client/internal/flows"
	"github.com/MrEthical07/goAuth-client/refresh"
	"github.com/MrEthical07/goAuth-client/tokenstore"
	"github.com/MrEthical07/goAuth-client/transport"
)

// Client owns one authenticated session against an authority.
//
// Client instances are built once through [Builder] and are safe for concurrent use.
// Session-changing operations (Boot, Login, Register, Logout) are serialized; Do and
// AccessToken run concurrently and share a single refresh.
type Client struct {
	cfg       Config
	store     tokenstore.Store
	transport *transport.Client
	coord     *refresh.Coordinator
	pipeline  *Pipeline
	flows     flows.Service
	metrics   *Metrics
	audit     *audit.Dispatcher
	logger    *zap.Logger
	now       func() time.Time

	session   atomic.Pointer[Session]
	listeners []StateListener

	opMu    sync.Mutex
	closers []func() error
	closed  atomic.Bool
}

// State returns the current session snapshot.
func (c *Client) State() Session {
	return *c.session.Load()
}

// Pipeline returns the authenticated request pipeline.
func (c *Client) Pipeline() *Pipeline {
	return c.pipeline
}

// Config returns a copy of the configuration the client was built with.
func (c *Client) Config() Config {
	return cloneConfig(c.cfg)
}

// Boot restores a persisted session.
//
// An absent session or an expired refresh token ends Unauthenticated without touching the
// network. Otherwise the profile is fetched through the pipeline, refreshing first if the
// access token is close to expiry. A rejected session is cleared. A network failure keeps
// the tokens, ends Unauthenticated and returns an error wrapping [ErrNetwork], so Boot can
// be retried. Corrupt persisted data is cleared and reported as [ErrCorrupt].
func (c *Client) Boot(ctx context.Context) (Session, error) {
	if c.closed.Load() {
		return c.State(), ErrClientClosed
	}
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.transition(Session{Phase: PhaseRestoring})

	res := c.flows.Restore(ctx)
	switch res.Failure {
	case flows.RestoreFailureNone:
		c.metrics.Inc(MetricBootRestored)
		c.emitAudit(ctx, AuditBoot, res.Pair, true, nil, nil)
		profile := res.Profile
		return c.transition(Session{Phase: PhaseAuthenticated, User: &profile}), nil

	case flows.RestoreFailureNoSession:
		c.metrics.Inc(MetricBootUnauthenticated)
		return c.transition(Session{Phase: PhaseUnauthenticated}), nil

	case flows.RestoreFailureExpired:
		c.metrics.Inc(MetricBootUnauthenticated)
		c.emitAudit(ctx, AuditBoot, res.Pair, false, ErrRefreshTokenExpired, nil)
		if !res.Cleared {
			c.logger.Warn("clearing expired session failed", zap.Error(res.Err))
		}
		return c.transition(Session{Phase: PhaseUnauthenticated, LastError: ErrRefreshTokenExpired.Error()}), nil

	case flows.RestoreFailureRejected:
		c.metrics.Inc(MetricBootUnauthenticated)
		c.emitAudit(ctx, AuditBoot, res.Pair, false, res.Err, nil)
		c.logger.Info("stored session rejected", zap.Error(res.Err), zap.Bool("cleared", res.Cleared))
		return c.transition(Session{Phase: PhaseUnauthenticated, LastError: res.Err.Error()}), nil

	case flows.RestoreFailureCorrupt:
		c.metrics.Inc(MetricBootUnauthenticated)
		c.logger.Warn("stored session unreadable", zap.Error(res.Err), zap.Bool("cleared", res.Cleared))
		return c.transition(Session{Phase: PhaseUnauthenticated, LastError: res.Err.Error()}), res.Err

	default:
		c.metrics.Inc(MetricBootUnauthenticated)
		c.logger.Warn("session restore failed; tokens kept", zap.Error(res.Err))
		return c.transition(Session{Phase: PhaseUnauthenticated, LastError: res.Err.Error()}), res.Err
	}
}

// Login exchanges credentials for a session.
//
// Rejected credentials return [ErrInvalidCredentials] and leave both the session and the
// store untouched. Any session held before a successful login is replaced.
func (c *Client) Login(ctx context.Context, creds Credentials) (Session, error) {
	if c.closed.Load() {
		return c.State(), ErrClientClosed
	}
	c.opMu.Lock()
	defer c.opMu.Unlock()

	res := c.flows.Login(ctx, creds)
	return c.finishLogin(ctx, AuditLogin, creds, res)
}

// Register creates an account and logs into it with the same credentials.
//
// A conflict returns [ErrEmailAlreadyRegistered]. If the account was created but the
// follow-up login failed, the error is returned and the session is unchanged.
func (c *Client) Register(ctx context.Context, creds Credentials) (Session, error) {
	if c.closed.Load() {
		return c.State(), ErrClientClosed
	}
	c.opMu.Lock()
	defer c.opMu.Unlock()

	res := c.flows.Register(ctx, creds)
	if res.Registered {
		c.metrics.Inc(MetricRegisterSuccess)
		c.emitAudit(ctx, AuditRegister, TokenPair{Subject: creds.Email}, true, nil, nil)
	} else {
		c.metrics.Inc(MetricRegisterFailure)
		c.emitAudit(ctx, AuditRegister, TokenPair{Subject: creds.Email}, false, res.Err, nil)
		return c.State(), res.Err
	}
	return c.finishLogin(ctx, AuditLogin, creds, res)
}

func (c *Client) finishLogin(ctx context.Context, event string, creds Credentials, res flows.LoginResult) (Session, error) {
	switch res.Failure {
	case flows.LoginFailureNone:
		c.metrics.Inc(MetricLoginSuccess)
		c.emitAudit(ctx, event, res.Pair, true, nil, nil)
		profile := res.Profile
		return c.transition(Session{Phase: PhaseAuthenticated, User: &profile}), nil

	case flows.LoginFailureProfile:
		// The pair was stored and then cleared again.
		c.metrics.Inc(MetricLoginFailure)
		c.emitAudit(ctx, event, res.Pair, false, res.Err, nil)
		c.logger.Warn("profile fetch after login failed", zap.Error(res.Err))
		return c.transition(Session{Phase: PhaseUnauthenticated, LastError: res.Err.Error()}), res.Err

	default:
		c.metrics.Inc(MetricLoginFailure)
		c.emitAudit(ctx, event, TokenPair{Subject: creds.Email}, false, res.Err, nil)
		return c.State(), res.Err
	}
}

// Logout revokes the refresh token on a best-effort basis and always clears the local
// session. Logging out without a session succeeds and does nothing.
//
// The returned error is non-nil only when the local store could not be cleared.
func (c *Client) Logout(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	c.opMu.Lock()
	defer c.opMu.Unlock()

	res := c.flows.Logout(ctx)

	if res.HadSession {
		c.metrics.Inc(MetricLogout)
		meta := map[string]string{"remote": "revoked"}
		if res.RemoteErr != nil {
			c.metrics.Inc(MetricLogoutRemoteFailure)
			c.logger.Warn("server-side logout failed; local session cleared anyway", zap.Error(res.RemoteErr))
			meta["remote"] = "failed"
		}
		c.emitAudit(ctx, AuditLogout, TokenPair{Subject: c.subject()}, res.Err == nil, res.Err, meta)
	}
	if res.Err != nil {
		return res.Err
	}

	if c.State().Phase != PhaseUnauthenticated || res.HadSession {
		c.transition(Session{Phase: PhaseUnauthenticated})
	}
	return nil
}

// AccessToken returns an access token valid for longer than the refresh skew,
// refreshing if necessary.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if c.closed.Load() {
		return "", ErrClientClosed
	}
	out := c.coord.EnsureFresh(ctx)
	if !out.Authenticated() {
		return "", out.AsError()
	}
	return out.Token, nil
}

// Do sends req through the authenticated pipeline. See [Pipeline.Send].
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	return c.pipeline.Send(ctx, req)
}

// WhoAmI fetches the profile for the current session.
func (c *Client) WhoAmI(ctx context.Context) (Profile, error) {
	if c.closed.Load() {
		return Profile{}, ErrClientClosed
	}
	return c.fetchProfile(ctx)
}

// Close flushes the audit dispatcher and releases resources the client created. It does
// not log out.
func (c *Client) Close() error {
	if c == nil || !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if c.audit != nil {
		c.audit.Close()
	}
	var errs []error
	for _, closer := range c.closers {
		if err := closer(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// AuditDropped returns the number of audit events dropped because the buffer was full.
func (c *Client) AuditDropped() uint64 {
	if c == nil || c.audit == nil {
		return 0
	}
	return c.audit.Dropped()
}

// FlushAudit waits until every audit event emitted so far has reached the sink.
func (c *Client) FlushAudit(ctx context.Context) error {
	if c == nil || c.audit == nil {
		return nil
	}
	return c.audit.Flush(ctx)
}

// MetricsSnapshot returns a copy of the in-process metrics.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil || c.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return c.metrics.Snapshot()
}

func (c *Client) fetchProfile(ctx context.Context) (Profile, error) {
	resp, err := c.pipeline.Send(ctx, transport.WhoAmIRequest())
	if err != nil {
		return Profile{}, err
	}
	return transport.ProfileFromResponse(resp)
}

// observeRefresh runs on the refresh goroutine once per flight.
func (c *Client) observeRefresh(out refresh.Outcome, dur time.Duration) {
	c.metrics.Observe(MetricRefreshLatency, dur)

	switch {
	case out.Refreshed:
		c.metrics.Inc(MetricRefreshSuccess)
		c.emitAudit(context.Background(), AuditRefresh, out.Pair, true, nil, nil)
	case out.Authenticated():
		// Another flight had already rotated the pair.
	default:
		c.metrics.Inc(MetricRefreshFailure)
		if out.Reason == refresh.ReasonNetworkError {
			c.metrics.Inc(MetricRefreshNetworkError)
		}
		c.emitAudit(context.Background(), AuditRefresh, TokenPair{Subject: c.subject()}, false, out.AsError(),
			map[string]string{"reason": out.Reason.String()})
	}
}

// sessionLost runs synchronously before refresh waiters are released. It must not take
// opMu: Boot and Login hold it while their profile fetch waits on a refresh.
func (c *Client) sessionLost(reason refresh.Reason) {
	c.metrics.Inc(MetricSessionExpired)
	c.emitAudit(context.Background(), AuditSessionExpired, TokenPair{Subject: c.subject()}, false, nil,
		map[string]string{"reason": reason.String()})
	c.logger.Info("session lost", zap.Stringer("reason", reason))

	lastErr := ErrRefreshTokenRevoked.Error()
	if reason == refresh.ReasonRefreshTokenExpired {
		lastErr = ErrRefreshTokenExpired.Error()
	}
	c.downgrade(lastErr)
}

// downgrade moves an Authenticated session to Unauthenticated. Other phases are left to
// whichever operation is driving them.
func (c *Client) downgrade(lastErr string) {
	next := &Session{Phase: PhaseUnauthenticated, LastError: lastErr}
	for {
		cur := c.session.Load()
		if cur.Phase != PhaseAuthenticated {
			return
		}
		if c.session.CompareAndSwap(cur, next) {
			c.notify(*cur, *next)
			return
		}
	}
}

func (c *Client) transition(next Session) Session {
	prev := c.session.Swap(&next)
	c.notify(*prev, next)
	return next
}

func (c *Client) notify(prev, next Session) {
	for _, l := range c.listeners {
		l(prev, next)
	}
}

func (c *Client) subject() string {
	if u := c.State().User; u != nil {
		if u.Email != "" {
			return u.Email
		}
		return u.ID
	}
	return ""
}

func (c *Client) emitAudit(ctx context.Context, eventType string, pair TokenPair, success bool, err error, metadata map[string]string) {
	if c.audit == nil {
		return
	}
	event := audit.Event{
		Timestamp: c.now(),
		EventType: eventType,
		Subject:   pair.Subject,
		Success:   success,
		Metadata:  metadata,
	}
	if pair.RefreshToken != "" {
		event.Fingerprint = tokenstore.Fingerprint(pair.RefreshToken)
	}
	if err != nil {
		event.Error = err.Error()
	}
	c.audit.Emit(ctx, event)
}
