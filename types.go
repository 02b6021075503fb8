package authclient

import (
	"fmt"

	"github.com/MrEthical07/goAuth-client/internal/audit"
	"github.com/MrEthical07/goAuth-client/tokenstore"
	"github.com/MrEthical07/goAuth-client/transport"
)

type (
	// TokenPair is the access/refresh pair held by the client.
	TokenPair = tokenstore.Pair
	// Profile is the account returned by the authority's profile endpoint.
	Profile = transport.Profile
	// Credentials are the email/password pair for Login and Register.
	Credentials = transport.Credentials
	// Request is a replayable description of an authenticated call.
	Request = transport.Request
	// Response is a fully-read HTTP response.
	Response = transport.Response
)

// Phase is the session lifecycle state.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseRestoring
	PhaseAuthenticated
	PhaseUnauthenticated
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseRestoring:
		return "restoring"
	case PhaseAuthenticated:
		return "authenticated"
	case PhaseUnauthenticated:
		return "unauthenticated"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Session is an immutable snapshot of the client's authentication state. Transitions
// replace the whole snapshot.
type Session struct {
	Phase Phase
	// User is set only while Authenticated.
	User *Profile
	// LastError describes why the last transition left the session unauthenticated.
	LastError string
}

// Authenticated reports whether s is in [PhaseAuthenticated].
func (s Session) Authenticated() bool {
	return s.Phase == PhaseAuthenticated
}

// StateListener is notified after every session transition. It runs on the goroutine
// that caused the transition and must not block or call back into the Client's session
// methods.
type StateListener func(prev, next Session)

type (
	// AuditEvent is one session audit record.
	AuditEvent = audit.Event
	// AuditSink receives audit events from the dispatcher goroutine.
	AuditSink = audit.Sink
	// NoOpSink discards events.
	NoOpSink = audit.NoOpSink
	// ChannelSink buffers events in a channel.
	ChannelSink = audit.ChannelSink
	// JSONWriterSink writes one JSON object per line.
	JSONWriterSink = audit.JSONWriterSink
	// ZapSink logs events through zap.
	ZapSink = audit.ZapSink
)

var (
	NewChannelSink    = audit.NewChannelSink
	NewJSONWriterSink = audit.NewJSONWriterSink
	NewZapSink        = audit.NewZapSink
)

const (
	AuditLogin          = "login"
	AuditRegister       = "register"
	AuditLogout         = "logout"
	AuditRefresh        = "refresh"
	AuditSessionExpired = "session_expired"
	AuditBoot           = "boot"
)
