package model

import "strings"

// Account is a stored platform identity. Username is the unique key and is
// assigned by the platform when the login completes; it never changes after.
type Account struct {
	Username    string
	Alias       string // Free-text label, stored as plaintext.
	GroupID     *int64 // nil means ungrouped.
	Secret      string // Platform session cookie; plaintext at the domain boundary.
	ProfilePath string // Browser profile directory owned by this account.
}

// AccountSummary is the listing projection of an account. It never carries
// the secret.
type AccountSummary struct {
	Username string
	Alias    string
	GroupID  *int64
	Label    string // Display label; filled in when building the tree.
}

// HiddenUsername replaces the username in labels when usernames are hidden.
const HiddenUsername = "[hidden]"

// FormatLabel renders the display label for an account, e.g.
// "alice [alias: main] [group: Farm]". groupName is empty for ungrouped
// accounts.
func (a AccountSummary) FormatLabel(hideUsername bool, groupName string) string {
	parts := []string{a.Username}
	if hideUsername {
		parts[0] = HiddenUsername
	}
	if a.Alias != "" {
		parts = append(parts, "[alias: "+a.Alias+"]")
	}
	if groupName != "" {
		parts = append(parts, "[group: "+groupName+"]")
	}
	return strings.Join(parts, " ")
}

// SameGroup reports whether two group references point at the same group.
// Two nil references are equal (both ungrouped).
func SameGroup(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
