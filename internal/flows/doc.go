// Package flows contains pure-function orchestrators for every session operation.
//
// Each flow function (RunLogin, RunRefresh, RunLogout, RunRestore) accepts a typed
// dependency struct and returns a result carrying a failure kind. Flows have no side
// effects beyond those dependencies, which keeps the root Client and the refresh
// Coordinator thin.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the token store and the authority transport. They do
// NOT own either resource; ownership stays with the caller.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import authclient or refresh (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency interfaces.
package flows
