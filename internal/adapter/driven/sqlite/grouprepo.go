package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/ericfisherdev/ramn/internal/domain/model"
	"github.com/ericfisherdev/ramn/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.GroupStore = (*GroupRepo)(nil)

// GroupRepo is the SQLite implementation of the GroupStore port interface.
type GroupRepo struct {
	db *DB
}

// NewGroupRepo creates a new GroupRepo backed by the given DB.
func NewGroupRepo(db *DB) *GroupRepo {
	return &GroupRepo{db: db}
}

// List returns all groups ordered by name.
func (r *GroupRepo) List(ctx context.Context) ([]model.Group, error) {
	const query = `SELECT id, COALESCE(name, '') FROM groups ORDER BY name`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var groups []model.Group
	for rows.Next() {
		var g model.Group
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate groups: %w", err)
	}

	return groups, nil
}

// Create inserts a group. Names are trimmed; a name already in use yields
// ErrDuplicateGroupName and leaves the existing group untouched.
func (r *GroupRepo) Create(ctx context.Context, name string) (model.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Group{}, driven.ErrInvalidGroupName
	}

	const query = `INSERT INTO groups (name) VALUES (?)`
	result, err := r.db.Writer.ExecContext(ctx, query, name)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Group{}, fmt.Errorf("create group %q: %w", name, driven.ErrDuplicateGroupName)
		}
		return model.Group{}, fmt.Errorf("create group %q: %w", name, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return model.Group{}, fmt.Errorf("get group id: %w", err)
	}

	return model.Group{ID: id, Name: name}, nil
}

// Rename changes the name of an existing group.
func (r *GroupRepo) Rename(ctx context.Context, id int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return driven.ErrInvalidGroupName
	}

	const query = `UPDATE groups SET name = ? WHERE id = ?`
	result, err := r.db.Writer.ExecContext(ctx, query, name, id)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("rename group %d to %q: %w", id, name, driven.ErrDuplicateGroupName)
		}
		return fmt.Errorf("rename group %d: %w", id, err)
	}

	return requireAffected(result, fmt.Sprintf("rename group %d", id), driven.ErrGroupNotFound)
}

// Delete moves the group's members to ungrouped and removes the group in a
// single transaction.
func (r *GroupRepo) Delete(ctx context.Context, id int64) error {
	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE accounts SET group_id = NULL WHERE group_id = ?`, id); err != nil {
			return fmt.Errorf("ungroup members: %w", err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM groups WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return requireAffected(result, "remove row", driven.ErrGroupNotFound)
	})
	if err != nil {
		return fmt.Errorf("delete group %d: %w", id, err)
	}
	return nil
}

// Reconcile makes stored membership match the presented tree exactly. Every
// account listed under a group node moves to that group; accounts under the
// ungrouped node or missing from the tree become ungrouped. The tree is
// validated and applied inside one writer transaction, so concurrent readers
// observe either the previous membership or the new one.
func (r *GroupRepo) Reconcile(ctx context.Context, tree model.Tree) error {
	membership, duplicates := tree.Membership()
	if len(duplicates) > 0 {
		return fmt.Errorf("reconcile %s: %w", strings.Join(lo.Uniq(duplicates), ", "), driven.ErrInvalidTree)
	}

	groupIDs := lo.Uniq(lo.FilterMap(tree.Nodes, func(node model.TreeNode, _ int) (int64, bool) {
		if node.GroupID == nil {
			return 0, false
		}
		return *node.GroupID, true
	}))

	usernames := lo.Keys(membership)
	sort.Strings(usernames)

	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		for _, id := range groupIDs {
			var exists bool
			if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM groups WHERE id = ?)`, id).Scan(&exists); err != nil {
				return fmt.Errorf("check group %d: %w", id, err)
			}
			if !exists {
				return fmt.Errorf("group %d: %w", id, driven.ErrGroupNotFound)
			}
		}

		if _, err := tx.ExecContext(ctx, `UPDATE accounts SET group_id = NULL WHERE group_id IS NOT NULL`); err != nil {
			return fmt.Errorf("clear membership: %w", err)
		}

		const assign = `UPDATE accounts SET group_id = ? WHERE username = ?`
		for _, username := range usernames {
			result, err := tx.ExecContext(ctx, assign, nullableID(membership[username]), username)
			if err != nil {
				return fmt.Errorf("assign %s: %w", username, err)
			}
			if err := requireAffected(result, "account "+username, driven.ErrAccountNotFound); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("reconcile groups: %w", err)
	}

	return nil
}
