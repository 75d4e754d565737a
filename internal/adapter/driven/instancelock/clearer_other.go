//go:build !windows

package instancelock

import "github.com/ericfisherdev/ramn/internal/domain/port/driven"

// Clear always fails: named mutexes exist only on Windows.
func (c *Clearer) Clear() error {
	return driven.ErrInstanceLockUnsupported
}
