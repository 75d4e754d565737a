package model

// Group is a named bucket of accounts. The ungrouped bucket is not a Group;
// it is represented by a nil group reference.
type Group struct {
	ID   int64
	Name string
}

// UngroupedName is the display name of the sentinel bucket for accounts
// without a group.
const UngroupedName = "Ungrouped"

// TreeNode is one top-level node of the account tree: a group (or the
// ungrouped bucket when GroupID is nil) and the accounts presented under it.
type TreeNode struct {
	GroupID  *int64
	Name     string
	Accounts []AccountSummary
}

// Tree is the hierarchical view of accounts under groups. It is always
// derived from the store; a tree received from a client is the presented
// structure passed to reconcile.
type Tree struct {
	Nodes []TreeNode
}

// Membership flattens the tree into username -> group reference. The second
// return value lists usernames that appear under more than one node.
func (t Tree) Membership() (map[string]*int64, []string) {
	members := make(map[string]*int64)
	var duplicates []string
	for _, node := range t.Nodes {
		for _, acct := range node.Accounts {
			if _, seen := members[acct.Username]; seen {
				duplicates = append(duplicates, acct.Username)
				continue
			}
			members[acct.Username] = node.GroupID
		}
	}
	return members, duplicates
}
