// Package authclient keeps a client application authenticated against a token authority.
//
// It holds a short-lived access token and a rotating refresh token, refreshes the access
// token ahead of expiry with at most one refresh in flight, retries a request exactly once
// after a 401, and restores the session across process restarts from a [tokenstore.Store].
//
// [Client] methods are safe to call from multiple goroutines after [Builder.Build].
//
// # Architecture boundaries
//
// authclient is the public surface. It exposes [Client], [Builder], [Config], [Pipeline]
// and value types ([Session], [MetricsSnapshot], [AuditEvent]). Refresh coordination
// lives in package refresh, wire calls in package transport, persistence in package
// tokenstore, and flow orchestration under internal/.
//
// # What this package must NOT do
//
//   - Log or export token values. Only [tokenstore.Fingerprint] values leave the process.
//   - Clear stored tokens on a transient network failure.
//   - Send a request more than twice.
package authclient
