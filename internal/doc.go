// Package internal groups implementation packages that are private to authclient.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher and Sink implementations)
//   - authtest: an in-process fake authority and a manual clock for tests, examples and
//     the load generator
//   - flows: pure-function orchestrators for login, register, logout, restore and refresh
package internal
