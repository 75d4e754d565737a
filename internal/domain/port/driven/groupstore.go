package driven

import (
	"context"

	"github.com/ericfisherdev/ramn/internal/domain/model"
)

// GroupStore defines the driven port for group persistence and for the
// atomic reconciliation of account membership.
type GroupStore interface {
	// List returns all groups ordered by name.
	List(ctx context.Context) ([]model.Group, error)

	// Create returns ErrDuplicateGroupName if the name is taken.
	Create(ctx context.Context, name string) (model.Group, error)

	Rename(ctx context.Context, id int64, name string) error

	// Delete moves all member accounts to ungrouped, then removes the group.
	Delete(ctx context.Context, id int64) error

	// Reconcile sets every account's group to the node it appears under in
	// tree, or to ungrouped when it appears under the ungrouped node or not
	// at all. The whole batch commits atomically.
	Reconcile(ctx context.Context, tree model.Tree) error
}
