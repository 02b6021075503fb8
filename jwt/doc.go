// Package jwt reads display and expiry hints out of access tokens without verifying them.
//
// The client never trusts these values for authorization: the authority remains the only
// judge of token validity. Hints only fill gaps when a token response omits expires_in,
// and supply a display subject for the session.
//
// # What this package must NOT do
//
//   - Verify signatures or hold signing keys.
//   - Reject a token the authority accepted.
package jwt
