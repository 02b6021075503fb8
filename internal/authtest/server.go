// Package authtest provides an in-process fake of the authentication authority for tests
// and demos.
package authtest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

var signingKey = []byte("authtest-signing-key")

type user struct {
	id       string
	email    string
	password string
}

type refreshEntry struct {
	email     string
	expiresAt time.Time
	used      bool
	family    string
}

type accessEntry struct {
	email     string
	expiresAt time.Time
}

// Server is a fake authority implementing register, login, refresh rotation, logout and
// whoami, plus an echo API under /api/ that requires a valid access token.
//
// Refresh tokens are single use: presenting a rotated token again revokes the whole
// family, as a real authority with reuse detection would.
type Server struct {
	URL string

	srv   *httptest.Server
	clock *Clock

	AccessTTL  time.Duration
	RefreshTTL time.Duration

	mu       sync.Mutex
	users    map[string]user
	refresh  map[string]*refreshEntry
	access   map[string]accessEntry
	revoked  map[string]bool
	seen     []string
	nextUser int

	Registers atomic.Int64
	Logins    atomic.Int64
	Refreshes atomic.Int64
	Logouts   atomic.Int64
	WhoAmIs   atomic.Int64
	APICalls  atomic.Int64

	refreshDelay    atomic.Int64
	failLogout      atomic.Bool
	failRefresh     atomic.Int32
	omitExpiresIn   atomic.Bool
	rejectAllBearer atomic.Bool
}

// NewServer starts a fake authority. Call Close when done.
func NewServer(clock *Clock) *Server {
	if clock == nil {
		clock = NewClock(time.Now())
	}
	s := &Server{
		clock:      clock,
		AccessTTL:  DefaultAccessTTL,
		RefreshTTL: DefaultRefreshTTL,
		users:      make(map[string]user),
		refresh:    make(map[string]*refreshEntry),
		access:     make(map[string]accessEntry),
		revoked:    make(map[string]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /token/refresh", s.handleRefresh)
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.HandleFunc("GET /me", s.handleMe)
	mux.HandleFunc("/api/", s.handleAPI)

	s.srv = httptest.NewServer(mux)
	s.URL = s.srv.URL
	return s
}

// Close shuts the server down.
func (s *Server) Close() {
	s.srv.Close()
}

// Clock returns the server's time source.
func (s *Server) Clock() *Clock {
	return s.clock
}

// AddUser seeds an account and returns its id.
func (s *Server) AddUser(email, password string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(email, password)
}

func (s *Server) addUserLocked(email, password string) string {
	s.nextUser++
	id := strconv.Itoa(s.nextUser)
	s.users[strings.ToLower(email)] = user{id: id, email: email, password: password}
	return id
}

// SetRefreshDelay makes every refresh request sleep for d before answering.
func (s *Server) SetRefreshDelay(d time.Duration) { s.refreshDelay.Store(int64(d)) }

// SetFailLogout makes logout answer 503.
func (s *Server) SetFailLogout(v bool) { s.failLogout.Store(v) }

// SetFailRefresh makes refresh answer with status (0 restores normal behavior).
func (s *Server) SetFailRefresh(status int) { s.failRefresh.Store(int32(status)) }

// SetOmitExpiresIn drops expires_in from token responses so clients fall back to the
// token's exp claim.
func (s *Server) SetOmitExpiresIn(v bool) { s.omitExpiresIn.Store(v) }

// SetRejectAllBearer makes every bearer-protected endpoint answer 401.
func (s *Server) SetRejectAllBearer(v bool) { s.rejectAllBearer.Store(v) }

// RevokeAccess invalidates an access token before its expiry.
func (s *Server) RevokeAccess(token string) {
	s.mu.Lock()
	delete(s.access, token)
	s.mu.Unlock()
}

// RevokeRefresh invalidates a refresh token server-side.
func (s *Server) RevokeRefresh(token string) {
	s.mu.Lock()
	delete(s.refresh, token)
	s.mu.Unlock()
}

// SeenRefreshTokens returns every refresh token presented to /token/refresh, in order.
func (s *Server) SeenRefreshTokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.seen...)
}

// RefreshTokenActive reports whether token would currently be accepted for rotation.
func (s *Server) RefreshTokenActive(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.refresh[token]
	return ok && !e.used && !s.revoked[e.family] && s.clock.Now().Before(e.expiresAt)
}

// NetworkCalls sums every request the server has answered.
func (s *Server) NetworkCalls() int64 {
	return s.Registers.Load() + s.Logins.Load() + s.Refreshes.Load() +
		s.Logouts.Load() + s.WhoAmIs.Load() + s.APICalls.Load()
}

// IssueExpiredPair mints a pair for email whose access token is already expired, for
// seeding a client store.
func (s *Server) IssueExpiredPair(email string) (access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	access = s.mintLocked(email, "access", now.Add(-time.Minute))
	s.access[access] = accessEntry{email: email, expiresAt: now.Add(-time.Minute)}
	refresh = s.mintLocked(email, "refresh", now.Add(s.RefreshTTL))
	s.refresh[refresh] = &refreshEntry{email: email, expiresAt: now.Add(s.RefreshTTL), family: uuid.NewString()}
	return access, refresh
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshBody struct {
	RefreshToken string `json:"refresh_token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	s.Registers.Add(1)

	var body credentials
	if err := decode(r, &body); err != nil || !strings.Contains(body.Email, "@") || len(body.Password) < 8 {
		writeError(w, http.StatusBadRequest, "invalid_request", "email and password of at least 8 characters required")
		return
	}

	s.mu.Lock()
	if _, exists := s.users[strings.ToLower(body.Email)]; exists {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "conflict", "email already registered")
		return
	}
	id := s.addUserLocked(body.Email, body.Password)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{
		"user": map[string]any{"id": id, "email": body.Email},
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.Logins.Add(1)

	var body credentials
	if err := decode(r, &body); err != nil || body.Email == "" || body.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email and password required")
		return
	}

	s.mu.Lock()
	u, ok := s.users[strings.ToLower(body.Email)]
	if !ok || u.password != body.Password {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
		return
	}
	resp := s.issueLocked(u.email, uuid.NewString())
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.Refreshes.Add(1)

	if d := time.Duration(s.refreshDelay.Load()); d > 0 {
		select {
		case <-time.After(d):
		case <-r.Context().Done():
			return
		}
	}
	if status := int(s.failRefresh.Load()); status != 0 {
		writeError(w, status, "unavailable", "refresh unavailable")
		return
	}

	var body refreshBody
	if err := decode(r, &body); err != nil || body.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "refresh_token required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seen = append(s.seen, body.RefreshToken)

	e, ok := s.refresh[body.RefreshToken]
	switch {
	case !ok:
		writeError(w, http.StatusUnauthorized, "invalid_token", "refresh token revoked")
		return
	case e.used:
		s.revoked[e.family] = true
		writeError(w, http.StatusUnauthorized, "invalid_token", "refresh token reuse detected; session revoked")
		return
	case s.revoked[e.family]:
		writeError(w, http.StatusUnauthorized, "invalid_token", "refresh token revoked")
		return
	case !s.clock.Now().Before(e.expiresAt):
		writeError(w, http.StatusUnauthorized, "invalid_token", "refresh token expired")
		return
	}

	e.used = true
	writeJSON(w, http.StatusOK, s.issueLocked(e.email, e.family))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.Logouts.Add(1)

	if s.failLogout.Load() {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "try again later")
		return
	}

	var body refreshBody
	if err := decode(r, &body); err != nil || body.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "refresh_token required")
		return
	}

	s.mu.Lock()
	if e, ok := s.refresh[body.RefreshToken]; ok {
		s.revoked[e.family] = true
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	s.WhoAmIs.Add(1)

	email, ok := s.authorize(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired access token")
		return
	}

	s.mu.Lock()
	u := s.users[strings.ToLower(email)]
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"id":    u.id,
		"email": u.email,
		"role":  "member",
	})
}

func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	s.APICalls.Add(1)

	email, ok := s.authorize(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired access token")
		return
	}

	if code, err := strconv.Atoi(r.URL.Query().Get("status")); err == nil && code >= 200 {
		writeError(w, code, "forced", "forced status")
		return
	}

	body, _ := io.ReadAll(r.Body)
	writeJSON(w, http.StatusOK, map[string]any{
		"method":     r.Method,
		"path":       r.URL.Path,
		"query":      r.URL.RawQuery,
		"body":       string(body),
		"subject":    email,
		"request_id": r.Header.Get("X-Request-Id"),
	})
}

func (s *Server) authorize(r *http.Request) (string, bool) {
	if s.rejectAllBearer.Load() {
		return "", false
	}
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.access[token]
	if !ok || !s.clock.Now().Before(e.expiresAt) {
		return "", false
	}
	return e.email, true
}

func (s *Server) issueLocked(email, family string) map[string]any {
	now := s.clock.Now()
	accessExp := now.Add(s.AccessTTL)
	refreshExp := now.Add(s.RefreshTTL)

	access := s.mintLocked(email, "access", accessExp)
	refresh := s.mintLocked(email, "refresh", refreshExp)
	s.access[access] = accessEntry{email: email, expiresAt: accessExp}
	s.refresh[refresh] = &refreshEntry{email: email, expiresAt: refreshExp, family: family}

	resp := map[string]any{
		"access_token":       access,
		"refresh_token":      refresh,
		"refresh_expires_in": int64(s.RefreshTTL / time.Second),
		"token_type":         "bearer",
	}
	if !s.omitExpiresIn.Load() {
		resp["expires_in"] = int64(s.AccessTTL / time.Second)
	}
	return resp
}

func (s *Server) mintLocked(email, kind string, exp time.Time) string {
	claims := jwt.MapClaims{
		"sub":   email,
		"email": email,
		"typ":   kind,
		"jti":   uuid.NewString(),
		"iat":   s.clock.Now().Unix(),
		"exp":   exp.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		panic(err)
	}
	return signed
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}
