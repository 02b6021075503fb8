// Package transport performs the network operations against the authentication authority:
// register, login, refresh, logout and whoami, plus a generic bearer-authenticated Send.
//
// Functions here are stateless with respect to tokens. They translate HTTP status codes
// into the client's error taxonomy and convert relative lifetimes (expires_in) into
// absolute instants at receipt time. Retry and refresh policy live in the refresh package
// and the root pipeline, never here.
package transport
