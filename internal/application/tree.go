package application

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/ericfisherdev/ramn/internal/domain/model"
	"github.com/ericfisherdev/ramn/internal/domain/port/driven"
)

// TreeService derives the account tree from the store and applies edits to
// it.
type TreeService struct {
	accounts driven.AccountStore
	groups   driven.GroupStore
	settings driven.SettingsStore
}

// NewTreeService creates a new TreeService with the required dependencies.
func NewTreeService(accounts driven.AccountStore, groups driven.GroupStore, settings driven.SettingsStore) *TreeService {
	return &TreeService{
		accounts: accounts,
		groups:   groups,
		settings: settings,
	}
}

// Tree returns the ungrouped node followed by every group in name order,
// each holding its member accounts with display labels filled in. Empty
// groups are included.
func (s *TreeService) Tree(ctx context.Context) (model.Tree, error) {
	groups, err := s.groups.List(ctx)
	if err != nil {
		return model.Tree{}, fmt.Errorf("build tree: %w", err)
	}
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return model.Tree{}, fmt.Errorf("build tree: %w", err)
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return model.Tree{}, fmt.Errorf("build tree: %w", err)
	}

	names := lo.SliceToMap(groups, func(g model.Group) (int64, string) {
		return g.ID, g.Name
	})
	byGroup := lo.GroupBy(accounts, func(a model.AccountSummary) int64 {
		// Membership pointing at a missing group shows as ungrouped.
		if a.GroupID == nil {
			return 0
		}
		if _, ok := names[*a.GroupID]; !ok {
			return 0
		}
		return *a.GroupID
	})

	label := func(members []model.AccountSummary, groupName string) []model.AccountSummary {
		return lo.Map(members, func(a model.AccountSummary, _ int) model.AccountSummary {
			a.Label = a.FormatLabel(settings.HideUsernames, groupName)
			return a
		})
	}

	tree := model.Tree{Nodes: make([]model.TreeNode, 0, len(groups)+1)}
	tree.Nodes = append(tree.Nodes, model.TreeNode{
		Name:     model.UngroupedName,
		Accounts: label(byGroup[0], ""),
	})
	for _, g := range groups {
		id := g.ID
		tree.Nodes = append(tree.Nodes, model.TreeNode{
			GroupID:  &id,
			Name:     g.Name,
			Accounts: label(byGroup[g.ID], g.Name),
		})
	}

	return tree, nil
}

// Reconcile makes stored membership match tree.
func (s *TreeService) Reconcile(ctx context.Context, tree model.Tree) error {
	return s.groups.Reconcile(ctx, tree)
}

// Groups returns all groups ordered by name.
func (s *TreeService) Groups(ctx context.Context) ([]model.Group, error) {
	return s.groups.List(ctx)
}

// CreateGroup adds a group.
func (s *TreeService) CreateGroup(ctx context.Context, name string) (model.Group, error) {
	return s.groups.Create(ctx, name)
}

// RenameGroup renames a group.
func (s *TreeService) RenameGroup(ctx context.Context, id int64, name string) error {
	return s.groups.Rename(ctx, id, name)
}

// DeleteGroup removes a group, moving its members to ungrouped.
func (s *TreeService) DeleteGroup(ctx context.Context, id int64) error {
	return s.groups.Delete(ctx, id)
}
