//go:build !windows

package secret

// noProtector is used where no user-scoped protection API exists. The key is
// then stored raw and guarded only by file permissions.
type noProtector struct{}

// DefaultProtector returns the platform protector.
func DefaultProtector() Protector {
	return noProtector{}
}

func (noProtector) Protect([]byte) ([]byte, error) {
	return nil, ErrProtectionUnavailable
}

func (noProtector) Unprotect([]byte) ([]byte, error) {
	return nil, ErrProtectionUnavailable
}
