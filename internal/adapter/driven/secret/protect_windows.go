//go:build windows

package secret

import (
	"github.com/billgraziano/dpapi"
)

// dpapiProtector wraps data with Windows DPAPI in user scope.
type dpapiProtector struct{}

// DefaultProtector returns the platform protector.
func DefaultProtector() Protector {
	return dpapiProtector{}
}

func (dpapiProtector) Protect(data []byte) ([]byte, error) {
	return dpapi.EncryptBytes(data)
}

func (dpapiProtector) Unprotect(data []byte) ([]byte, error) {
	return dpapi.DecryptBytes(data)
}
