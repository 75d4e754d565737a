package secret

import "errors"

// ErrProtectionUnavailable is returned by a Protector when the platform has
// no user-scoped data protection API.
var ErrProtectionUnavailable = errors.New("platform data protection unavailable")

// Protector wraps key material with a platform mechanism bound to the
// current user (DPAPI on Windows).
type Protector interface {
	Protect(data []byte) ([]byte, error)
	Unprotect(data []byte) ([]byte, error)
}
