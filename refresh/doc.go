// Package refresh coordinates access token renewal so that at most one refresh request is
// in flight at any time.
//
// # Single flight
//
// The Coordinator owns a single in-flight handle guarded by a mutex. The first caller
// that needs a new access token creates the handle and starts the network call; every
// caller arriving while it is pending waits on the same handle and receives the same
// outcome. The handle is cleared before waiters are released, so its lifecycle is always
// absent, pending, absent.
//
// The network call runs detached from the caller's context with its own timeout. A caller
// that gives up gets its context error; the shared refresh keeps going for the others.
//
// # What this package must NOT do
//
//   - Send a refresh token that has already been rotated.
//   - Clear the store on transient (network) failures.
//   - Import authclient.
package refresh
