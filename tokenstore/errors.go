package tokenstore

import "errors"

var (
	// ErrPartialPair is returned when a pair is missing a token or an expiry.
	ErrPartialPair = errors.New("partial token pair")
	// ErrExpiryOrder is returned when the access token outlives the refresh token.
	ErrExpiryOrder = errors.New("access token expires after refresh token")
	// ErrCorrupt is returned when stored data cannot be opened or decoded.
	ErrCorrupt = errors.New("stored token pair corrupt")
	// ErrUnavailable is returned when the backing medium cannot be reached.
	ErrUnavailable = errors.New("token store unavailable")
	// ErrInsecurePermissions is returned when a token file is readable by other users.
	ErrInsecurePermissions = errors.New("token file permissions too open")
	// ErrSealerRequired is returned when a persistent backend is built without a sealer.
	ErrSealerRequired = errors.New("sealer required")
	// ErrInvalidKey is returned for sealing keys of the wrong size.
	ErrInvalidKey = errors.New("invalid sealing key")
)
