package driven

// URIOpener hands a launch descriptor to the OS default URI handler.
type URIOpener interface {
	Open(uri string) error
}

// InstanceLockClearer opens and immediately closes the game client's
// single-instance mutex by name.
type InstanceLockClearer interface {
	// Clear returns nil when the mutex is absent; ErrInstanceLockUnsupported
	// on platforms without named mutexes.
	Clear() error
}
