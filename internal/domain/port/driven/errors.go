package driven

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the driven adapters. Adapters wrap them with
// context via fmt.Errorf("...: %w", err); callers test with errors.Is.
var (
	// ErrAccountNotFound indicates no account exists with the given username.
	ErrAccountNotFound = errors.New("account not found")

	// ErrGroupNotFound indicates no group exists with the given id.
	ErrGroupNotFound = errors.New("group not found")

	// ErrDuplicateGroupName indicates a group with the same name already exists.
	ErrDuplicateGroupName = errors.New("group name already exists")

	// ErrInvalidGroupName indicates a blank group name.
	ErrInvalidGroupName = errors.New("group name must not be empty")

	// ErrInvalidTree indicates a presented tree that lists an account under
	// more than one group.
	ErrInvalidTree = errors.New("account appears under more than one group")

	// ErrSecretCorrupt indicates a value carrying the encrypted-token marker
	// that fails authenticated decryption.
	ErrSecretCorrupt = errors.New("stored secret is corrupt or was encrypted with another key")

	// ErrKeyPersistence indicates the encryption key could not be read from or
	// written to protected storage. The cipher falls back to an ephemeral key.
	ErrKeyPersistence = errors.New("encryption key could not be persisted")

	// ErrMissingCredential indicates no platform session cookie is available
	// for the account.
	ErrMissingCredential = errors.New("no platform credential found")

	// ErrLoginTimeout indicates the interactive login did not complete before
	// the deadline.
	ErrLoginTimeout = errors.New("timed out waiting for login to complete")

	// ErrUsernameUnresolved indicates the platform did not return the
	// authenticated username for a freshly captured credential.
	ErrUsernameUnresolved = errors.New("could not determine username after login")

	// ErrProtocol is the parent of all auth-ticket exchange failures.
	ErrProtocol = errors.New("platform protocol error")

	// ErrMissingCSRFToken indicates the first ticket request returned no
	// anti-forgery token.
	ErrMissingCSRFToken = fmt.Errorf("%w: missing csrf token", ErrProtocol)

	// ErrMissingTicket indicates the second ticket request returned no ticket.
	ErrMissingTicket = fmt.Errorf("%w: missing authentication ticket", ErrProtocol)

	// ErrMetadataUnavailable indicates a metadata source produced nothing.
	// It never reaches users; the resolver degrades to sentinel values.
	ErrMetadataUnavailable = errors.New("game metadata unavailable")

	// ErrInstanceLockUnsupported indicates the platform has no named mutex to
	// clear (any OS other than Windows).
	ErrInstanceLockUnsupported = errors.New("single-instance lock clearing is not supported on this platform")
)
