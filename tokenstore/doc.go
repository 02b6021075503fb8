// Package tokenstore provides durable, access-controlled persistence for the client's
// current token pair.
//
// # Backends
//
// [FileStore] keeps a sealed blob in a 0600 file, [RedisStore] keeps a sealed blob under
// a single Redis key whose TTL tracks the refresh-token expiry, and [MemoryStore] keeps the
// pair in process memory. Every backend implements [Store] and is safe for concurrent use.
//
// # Binary encoding
//
// Pairs are encoded in a compact versioned binary format (v1–v2). Older versions are
// migrated forward on read; the encoder only ever writes the current version.
//
// # What this package must NOT do
//
//   - Persist a partial pair (access token without refresh token, or the reverse).
//   - Write token material to disk or Redis without sealing it.
//   - Perform network calls to the authentication authority.
package tokenstore
