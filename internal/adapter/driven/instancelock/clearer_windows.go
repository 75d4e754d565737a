//go:build windows

package instancelock

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows"
)

// mutexAllAccess is MUTEX_ALL_ACCESS.
const mutexAllAccess = 0x1F0001

// Clear opens the mutex with full access and closes the handle. A mutex that
// does not exist (no client running) is not an error.
func (c *Clearer) Clear() error {
	name, err := windows.UTF16PtrFromString(c.name)
	if err != nil {
		return fmt.Errorf("encode mutex name: %w", err)
	}

	h, err := windows.OpenMutex(mutexAllAccess, false, name)
	if err != nil {
		if errors.Is(err, windows.ERROR_FILE_NOT_FOUND) {
			return nil
		}
		return fmt.Errorf("open mutex %s: %w", c.name, err)
	}

	if err := windows.CloseHandle(h); err != nil {
		return fmt.Errorf("close mutex %s: %w", c.name, err)
	}
	return nil
}
