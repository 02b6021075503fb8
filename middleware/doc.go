// Package middleware adapts the authenticated pipeline to net/http.
//
// [RoundTripper] lets a plain *http.Client talk to the authority's API: every request
// gets a fresh bearer token, and a 401 triggers one forced refresh and a single replay.
// Request bodies are buffered so the replay can resend them.
//
// The round tripper only serves URLs under the configured base URL. Requests to other
// hosts fail instead of leaking the access token.
package middleware
