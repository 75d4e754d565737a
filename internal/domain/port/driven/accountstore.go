package driven

import (
	"context"

	"github.com/ericfisherdev/ramn/internal/domain/model"
)

// AccountStore defines the driven port for account persistence. Secrets are
// plaintext at this boundary; the adapter encrypts them at rest.
type AccountStore interface {
	// Upsert inserts or replaces the account. When the account already
	// exists and the incoming alias is empty and group is nil, the stored
	// alias and group are kept.
	Upsert(ctx context.Context, account model.Account) error

	// Get returns the account with its decrypted secret, or ErrAccountNotFound.
	Get(ctx context.Context, username string) (*model.Account, error)

	// List returns all accounts ordered by username.
	List(ctx context.Context) ([]model.AccountSummary, error)

	// Delete removes the account and its last-played rows and returns the
	// profile path the caller must clean up.
	Delete(ctx context.Context, username string) (string, error)

	SetAlias(ctx context.Context, username, alias string) error
	SetGroup(ctx context.Context, username string, groupID *int64) error
}
