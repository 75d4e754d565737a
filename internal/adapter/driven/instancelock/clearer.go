// Package instancelock clears the game client's single-instance lock so
// that several clients can run side by side.
package instancelock

import "github.com/ericfisherdev/ramn/internal/domain/port/driven"

// MutexName is the named mutex the client takes on start to detect a running
// instance.
const MutexName = "ROBLOX_singletonMutex"

// Compile-time interface satisfaction check.
var _ driven.InstanceLockClearer = (*Clearer)(nil)

// Clearer opens and immediately closes the named mutex.
type Clearer struct {
	name string
}

// New returns a Clearer for the client's mutex.
func New() *Clearer {
	return &Clearer{name: MutexName}
}
