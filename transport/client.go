package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MrEthical07/goAuth-client/jwt"
	"github.com/MrEthical07/goAuth-client/tokenstore"
)

const (
	pathRegister = "/register"
	pathLogin    = "/login"
	pathRefresh  = "/token/refresh"
	pathLogout   = "/logout"
	pathWhoAmI   = "/me"

	headerRequestID = "X-Request-Id"

	maxBodyBytes = 4 << 20

	// Lifetimes above this are treated as malformed; time.Duration overflows near 292 years.
	maxLifetimeSeconds = 10 * 365 * 24 * 60 * 60
)

// Config configures a [Client].
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Client talks to the authentication authority over HTTP.
//
// Client is safe for concurrent use and holds no token state.
type Client struct {
	base      *url.URL
	http      *http.Client
	userAgent string
	now       func() time.Time
	logger    *zap.Logger
}

// Option customizes a [Client].
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithClock overrides the receipt-time source used to absolutize expires_in.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger for per-call debug records.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New builds a [Client] for cfg.BaseURL.
func New(cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("transport base url required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported base url scheme %q", base.Scheme)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	c := &Client{
		base:      base,
		http:      &http.Client{Timeout: timeout},
		userAgent: cfg.UserAgent,
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, creds Credentials) (Profile, error) {
	resp, err := c.postJSON(ctx, "register", pathRegister, creds)
	if err != nil {
		return Profile{}, err
	}

	switch resp.StatusCode {
	case http.StatusCreated, http.StatusOK:
	case http.StatusBadRequest:
		return Profile{}, apiError("register", resp, ErrInvalidCredentials)
	case http.StatusConflict:
		return Profile{}, apiError("register", resp, ErrEmailAlreadyRegistered)
	default:
		return Profile{}, c.unexpected("register", resp)
	}

	var envelope struct {
		User *Profile `json:"user"`
	}
	if len(resp.Body) == 0 {
		return Profile{Email: creds.Email}, nil
	}
	if err := resp.DecodeJSON(&envelope); err != nil {
		return Profile{}, err
	}
	if envelope.User != nil {
		return *envelope.User, nil
	}
	var flat Profile
	if err := resp.DecodeJSON(&flat); err != nil {
		return Profile{}, err
	}
	return flat, nil
}

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, creds Credentials) (tokenstore.Pair, error) {
	resp, err := c.postJSON(ctx, "login", pathLogin, creds)
	if err != nil {
		return tokenstore.Pair{}, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusBadRequest, http.StatusUnauthorized:
		return tokenstore.Pair{}, apiError("login", resp, ErrInvalidCredentials)
	default:
		return tokenstore.Pair{}, c.unexpected("login", resp)
	}

	return c.pairFromResponse(resp, creds.Email)
}

// Refresh rotates refreshToken. The returned pair carries a new refresh token; the one
// passed in must never be sent again.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (tokenstore.Pair, error) {
	resp, err := c.postJSON(ctx, "refresh", pathRefresh, refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return tokenstore.Pair{}, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusBadRequest, http.StatusUnauthorized:
		sentinel := ErrRefreshTokenRevoked
		if strings.Contains(strings.ToLower(readErrorBody(resp.Body).text()), "expired") {
			sentinel = ErrRefreshTokenExpired
		}
		return tokenstore.Pair{}, apiError("refresh", resp, sentinel)
	default:
		return tokenstore.Pair{}, c.unexpected("refresh", resp)
	}

	return c.pairFromResponse(resp, "")
}

// Logout revokes refreshToken server-side.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	resp, err := c.postJSON(ctx, "logout", pathLogout, refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return err
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusBadRequest:
		return apiError("logout", resp, ErrInvalidRequest)
	default:
		return c.unexpected("logout", resp)
	}
}

// WhoAmI fetches the profile for accessToken directly, without refresh or retry.
func (c *Client) WhoAmI(ctx context.Context, scheme, accessToken string) (Profile, error) {
	resp, err := c.Send(ctx, Request{Method: http.MethodGet, Path: pathWhoAmI}, Authorization(scheme, accessToken))
	if err != nil {
		return Profile{}, err
	}
	return ProfileFromResponse(resp)
}

// ProfileFromResponse interprets a /me response.
func ProfileFromResponse(resp *Response) (Profile, error) {
	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized:
		return Profile{}, apiError("whoami", resp, ErrUnauthorized)
	case resp.StatusCode >= 500:
		return Profile{}, apiError("whoami", resp, ErrNetwork)
	default:
		return Profile{}, apiError("whoami", resp, ErrUnexpectedStatus)
	}
	var p Profile
	if err := resp.DecodeJSON(&p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// WhoAmIRequest is the request description for the profile endpoint.
func WhoAmIRequest() Request {
	return Request{Method: http.MethodGet, Path: pathWhoAmI}
}

// Authorization formats an Authorization header value.
func Authorization(scheme, token string) string {
	if token == "" {
		return ""
	}
	if scheme == "" {
		scheme = tokenstore.DefaultTokenType
	}
	return scheme + " " + token
}

// Send performs req with the given Authorization header value (empty for none).
//
// Every status is returned as a [Response]; only transport failures produce an error,
// wrapped with [ErrNetwork].
func (c *Client) Send(ctx context.Context, req Request, authorization string) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	target := c.resolve(req.Path, req.Query)
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if authorization != "" {
		httpReq.Header.Set("Authorization", authorization)
	}
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	rid := httpReq.Header.Get(headerRequestID)
	if rid == "" {
		rid = requestIDFromContext(ctx)
		if rid == "" {
			rid = uuid.NewString()
		}
		httpReq.Header.Set(headerRequestID, rid)
	}

	start := time.Now()
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Debug("http call failed",
			zap.String("request_id", rid),
			zap.String("method", method),
			zap.String("path", req.Path),
			zap.Duration("dur", time.Since(start)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %s %s: %v", ErrNetwork, method, req.Path, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s body: %v", ErrNetwork, req.Path, err)
	}

	c.logger.Debug("http call",
		zap.String("request_id", rid),
		zap.String("method", method),
		zap.String("path", req.Path),
		zap.Int("status", httpResp.StatusCode),
		zap.Duration("dur", time.Since(start)),
	)

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
		RequestID:  rid,
	}, nil
}

func (c *Client) resolve(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) postJSON(ctx context.Context, op, path string, payload any) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: encode body: %w", op, err)
	}
	return c.Send(ctx, Request{
		Method: http.MethodPost,
		Path:   path,
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   body,
	}, "")
}

// pairFromResponse converts a token response into absolute expiries measured at receipt.
func (c *Client) pairFromResponse(resp *Response, subject string) (tokenstore.Pair, error) {
	receivedAt := c.now()

	var tr tokenResponse
	if err := resp.DecodeJSON(&tr); err != nil {
		return tokenstore.Pair{}, err
	}
	if tr.AccessToken == "" || tr.RefreshToken == "" {
		return tokenstore.Pair{}, fmt.Errorf("%w: token response missing a token", ErrMalformedResponse)
	}
	if tr.ExpiresIn > maxLifetimeSeconds || tr.RefreshExpiresIn > maxLifetimeSeconds {
		return tokenstore.Pair{}, fmt.Errorf("%w: token lifetime out of range", ErrMalformedResponse)
	}

	pair := tokenstore.Pair{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    normalizeTokenType(tr.TokenType),
		Subject:      subject,
		IssuedAt:     receivedAt,
	}

	accessHint, hintErr := jwt.Inspect(tr.AccessToken)
	if hintErr == nil && accessHint.DisplayName() != "" {
		pair.Subject = accessHint.DisplayName()
	}

	switch {
	case tr.ExpiresIn > 0:
		pair.AccessExpiresAt = receivedAt.Add(time.Duration(tr.ExpiresIn) * time.Second)
	case hintErr == nil && !accessHint.ExpiresAt.IsZero():
		pair.AccessExpiresAt = accessHint.ExpiresAt
	default:
		return tokenstore.Pair{}, fmt.Errorf("%w: no access token lifetime", ErrMalformedResponse)
	}

	switch {
	case tr.RefreshExpiresIn > 0:
		pair.RefreshExpiresAt = receivedAt.Add(time.Duration(tr.RefreshExpiresIn) * time.Second)
	default:
		refreshHint, err := jwt.Inspect(tr.RefreshToken)
		if err != nil || refreshHint.ExpiresAt.IsZero() {
			return tokenstore.Pair{}, fmt.Errorf("%w: no refresh token lifetime", ErrMalformedResponse)
		}
		pair.RefreshExpiresAt = refreshHint.ExpiresAt
	}

	// An access token can never be usable past the refresh token that backs it.
	if pair.AccessExpiresAt.After(pair.RefreshExpiresAt) {
		pair.AccessExpiresAt = pair.RefreshExpiresAt
	}

	return pair, nil
}

func (c *Client) unexpected(op string, resp *Response) error {
	if resp.StatusCode >= 500 {
		return apiError(op, resp, ErrNetwork)
	}
	return apiError(op, resp, ErrUnexpectedStatus)
}

func apiError(op string, resp *Response, sentinel error) error {
	msg := readErrorBody(resp.Body).text()
	if msg == "" {
		msg = statusText(resp.StatusCode)
	}
	return &APIError{
		Op:         op,
		StatusCode: resp.StatusCode,
		Message:    msg,
		Err:        sentinel,
	}
}

func readErrorBody(body []byte) errorBody {
	var eb errorBody
	_ = json.Unmarshal(body, &eb)
	return eb
}

func normalizeTokenType(t string) string {
	if t == "" || strings.EqualFold(t, "bearer") {
		return tokenstore.DefaultTokenType
	}
	return t
}
