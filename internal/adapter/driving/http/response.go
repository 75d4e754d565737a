package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ericfisherdev/ramn/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status      string `json:"status"`
	Time        string `json:"time"`
	KeyDegraded bool   `json:"key_degraded"`
	KeyError    string `json:"key_error,omitempty"`
}

// AccountResponse is the JSON representation of an account. It never
// carries the secret.
type AccountResponse struct {
	Username string `json:"username"`
	Alias    string `json:"alias"`
	GroupID  *int64 `json:"group_id"`
}

// TreeAccountResponse is an account as listed in the tree, with its display
// label.
type TreeAccountResponse struct {
	AccountResponse
	Label string `json:"label"`
}

// TreeNodeResponse is one top-level node. group_id is null for the
// ungrouped node.
type TreeNodeResponse struct {
	GroupID  *int64                `json:"group_id"`
	Name     string                `json:"name"`
	Count    int                   `json:"count"`
	Accounts []TreeAccountResponse `json:"accounts"`
}

// TreeResponse is the JSON representation of the account tree.
type TreeResponse struct {
	Nodes []TreeNodeResponse `json:"nodes"`
}

// TreeNodeRequest is one node of a presented tree.
type TreeNodeRequest struct {
	GroupID  *int64   `json:"group_id"`
	Accounts []string `json:"accounts"`
}

// TreeRequest is the JSON body for the reconcile endpoint.
type TreeRequest struct {
	Nodes []TreeNodeRequest `json:"nodes"`
}

func (req TreeRequest) toTree() model.Tree {
	tree := model.Tree{Nodes: make([]model.TreeNode, 0, len(req.Nodes))}
	for _, n := range req.Nodes {
		node := model.TreeNode{GroupID: n.GroupID}
		for _, username := range n.Accounts {
			node.Accounts = append(node.Accounts, model.AccountSummary{Username: username, GroupID: n.GroupID})
		}
		tree.Nodes = append(tree.Nodes, node)
	}
	return tree
}

// GroupResponse is the JSON representation of a group.
type GroupResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// GroupRequest is the JSON body for creating or renaming a group.
type GroupRequest struct {
	Name string `json:"name"`
}

// AliasRequest is the JSON body for the set alias endpoint.
type AliasRequest struct {
	Alias string `json:"alias"`
}

// GroupAssignRequest is the JSON body for the set group endpoint.
type GroupAssignRequest struct {
	GroupID *int64 `json:"group_id"`
}

// BrowserRequest is the optional JSON body for the open browser endpoint.
type BrowserRequest struct {
	URL string `json:"url"`
}

// LoginStartedResponse is returned when a login begins.
type LoginStartedResponse struct {
	LoginID string `json:"login_id"`
}

// LoginStatusResponse is the JSON representation of a login's progress.
type LoginStatusResponse struct {
	ID        string `json:"id"`
	State     string `json:"state"`
	Username  string `json:"username,omitempty"`
	Error     string `json:"error,omitempty"`
	StartedAt string `json:"started_at"`
	EndedAt   string `json:"ended_at,omitempty"`
}

// LastPlayedResponse is the JSON representation of a history entry.
type LastPlayedResponse struct {
	PlaceID   string `json:"place_id"`
	Name      string `json:"name"`
	IconURL   string `json:"icon_url"`
	PlayedAt  string `json:"played_at"`
	PlayedAgo string `json:"played_ago"`
}

// LaunchRequest is the JSON body for the launch endpoint. place may be a
// bare id or a game URL.
type LaunchRequest struct {
	Usernames []string `json:"usernames"`
	Place     string   `json:"place"`
}

// LaunchResultResponse is the outcome for one account. The launch uri is
// not echoed since it embeds the one-time ticket.
type LaunchResultResponse struct {
	Username string `json:"username"`
	PlaceID  string `json:"place_id"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
}

// LaunchResponse is the JSON representation of a batch launch.
type LaunchResponse struct {
	Results []LaunchResultResponse `json:"results"`
}

// SettingsResponse is the JSON representation of the feature toggles, used
// for both reads and writes.
type SettingsResponse struct {
	MultiInstance bool `json:"multi_instance"`
	HideUsernames bool `json:"hide_usernames"`
}

func toAccountResponse(a model.AccountSummary) AccountResponse {
	return AccountResponse{Username: a.Username, Alias: a.Alias, GroupID: a.GroupID}
}

func toTreeResponse(tree model.Tree) TreeResponse {
	resp := TreeResponse{Nodes: make([]TreeNodeResponse, 0, len(tree.Nodes))}
	for _, n := range tree.Nodes {
		accounts := make([]TreeAccountResponse, 0, len(n.Accounts))
		for _, a := range n.Accounts {
			accounts = append(accounts, TreeAccountResponse{AccountResponse: toAccountResponse(a), Label: a.Label})
		}
		resp.Nodes = append(resp.Nodes, TreeNodeResponse{
			GroupID:  n.GroupID,
			Name:     n.Name,
			Count:    len(accounts),
			Accounts: accounts,
		})
	}
	return resp
}

func toGroupResponse(g model.Group) GroupResponse {
	return GroupResponse{ID: g.ID, Name: g.Name}
}

func toLoginStatusResponse(s model.LoginStatus) LoginStatusResponse {
	resp := LoginStatusResponse{
		ID:        s.ID,
		State:     string(s.State),
		Username:  s.Username,
		StartedAt: s.StartedAt.UTC().Format(time.RFC3339),
	}
	if s.Err != nil {
		resp.Error = s.Err.Error()
	}
	if !s.EndedAt.IsZero() {
		resp.EndedAt = s.EndedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func toLastPlayedResponse(e model.LastPlayed) LastPlayedResponse {
	return LastPlayedResponse{
		PlaceID:   e.PlaceID,
		Name:      e.Name,
		IconURL:   e.IconURL,
		PlayedAt:  e.PlayedAt.UTC().Format(time.RFC3339),
		PlayedAgo: humanize.Time(e.PlayedAt),
	}
}

func toLaunchResultResponse(r model.LaunchResult) LaunchResultResponse {
	resp := LaunchResultResponse{Username: r.Username, PlaceID: r.PlaceID, OK: r.Err == nil}
	if r.Err != nil {
		resp.Error = r.Err.Error()
	}
	return resp
}

func toSettingsResponse(s model.Settings) SettingsResponse {
	return SettingsResponse{MultiInstance: s.MultiInstance, HideUsernames: s.HideUsernames}
}
