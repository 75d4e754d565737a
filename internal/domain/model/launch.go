package model

import "time"

// Cookie is a browser cookie as exchanged with the browser automation engine.
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	HTTPOnly bool
	Secure   bool
}

// LaunchResult is the outcome of launching one account into a place.
// Err is nil on success; URI holds the dispatched launch descriptor.
type LaunchResult struct {
	Username string
	PlaceID  string
	URI      string
	Err      error
}

// LoginState is the lifecycle state of an interactive login.
type LoginState string

const (
	LoginStatePending   LoginState = "pending"
	LoginStateSucceeded LoginState = "succeeded"
	LoginStateFailed    LoginState = "failed"
)

// LoginStatus reports the progress of an interactive login started in the
// background.
type LoginStatus struct {
	ID        string
	State     LoginState
	Username  string // Set on success.
	Err       error  // Set on failure.
	StartedAt time.Time
	EndedAt   time.Time
}
