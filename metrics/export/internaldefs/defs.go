package internaldefs

import (
	authclient "github.com/MrEthical07/goAuth-client"
)

// CounterDef binds a counter ID to its exported name.
type CounterDef struct {
	ID   authclient.MetricID
	Name string
	Help string
}

// HistogramDef binds a histogram ID to its exported name.
type HistogramDef struct {
	ID   authclient.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: authclient.MetricRefreshStarted, Name: "authclient_refresh_started_total", Help: "Refreshes that contacted the authority."},
	{ID: authclient.MetricRefreshJoined, Name: "authclient_refresh_joined_total", Help: "Callers that waited on a pending refresh."},
	{ID: authclient.MetricRefreshSuccess, Name: "authclient_refresh_success_total", Help: "Successful token rotations."},
	{ID: authclient.MetricRefreshFailure, Name: "authclient_refresh_failure_total", Help: "Refreshes that produced no token."},
	{ID: authclient.MetricRefreshNetworkError, Name: "authclient_refresh_network_error_total", Help: "Refreshes that failed transiently."},
	{ID: authclient.MetricSessionExpired, Name: "authclient_session_expired_total", Help: "Sessions lost to an expired or revoked refresh token."},
	{ID: authclient.MetricRequestSent, Name: "authclient_request_sent_total", Help: "Authenticated requests sent, retries included."},
	{ID: authclient.MetricUnauthorizedRetry, Name: "authclient_unauthorized_retry_total", Help: "401 responses that triggered a forced refresh."},
	{ID: authclient.MetricRetryExhausted, Name: "authclient_retry_exhausted_total", Help: "Requests rejected again after the forced refresh."},
	{ID: authclient.MetricNotAuthenticated, Name: "authclient_not_authenticated_total", Help: "Requests short-circuited without a session."},
	{ID: authclient.MetricLoginSuccess, Name: "authclient_login_success_total", Help: "Successful logins."},
	{ID: authclient.MetricLoginFailure, Name: "authclient_login_failure_total", Help: "Failed logins."},
	{ID: authclient.MetricRegisterSuccess, Name: "authclient_register_success_total", Help: "Successful registrations."},
	{ID: authclient.MetricRegisterFailure, Name: "authclient_register_failure_total", Help: "Failed registrations."},
	{ID: authclient.MetricLogout, Name: "authclient_logout_total", Help: "Logouts of an existing session."},
	{ID: authclient.MetricLogoutRemoteFailure, Name: "authclient_logout_remote_failure_total", Help: "Logouts whose server-side revocation failed."},
	{ID: authclient.MetricBootRestored, Name: "authclient_boot_restored_total", Help: "Boots that restored a session."},
	{ID: authclient.MetricBootUnauthenticated, Name: "authclient_boot_unauthenticated_total", Help: "Boots that ended without a session."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: authclient.MetricRefreshLatency, Name: "authclient_refresh_latency_seconds", Help: "Refresh round-trip latency histogram."},
}

// HistogramBounds are the upper bounds, in seconds, of the in-process buckets.
var HistogramBounds = []string{
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"2.5",
	"5",
	"+Inf",
}

// HistogramBoundSuffix names each bucket for exporters that need one series per bound.
var HistogramBoundSuffix = []string{
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"2_5",
	"5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling missing buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
