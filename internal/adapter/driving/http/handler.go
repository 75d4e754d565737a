package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ericfisherdev/ramn/internal/application"
	"github.com/ericfisherdev/ramn/internal/domain/model"
	"github.com/ericfisherdev/ramn/internal/domain/port/driven"
)

// defaultBrowserURL is where an account browser opens when no url is given.
const defaultBrowserURL = "https://www.roblox.com/home"

// Handler is the HTTP driving adapter that serves the loopback JSON API.
type Handler struct {
	accounts *application.AccountService
	tree     *application.TreeService
	launcher *application.LaunchService
	history  *application.HistoryService
	settings *application.SettingsService
	health   *application.HealthService
	metrics  http.Handler
	logger   *slog.Logger
}

// NewHandler creates a Handler with all required dependencies. metrics may
// be nil to leave /metrics unregistered.
func NewHandler(
	accounts *application.AccountService,
	tree *application.TreeService,
	launcher *application.LaunchService,
	history *application.HistoryService,
	settings *application.SettingsService,
	health *application.HealthService,
	metrics http.Handler,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		accounts: accounts,
		tree:     tree,
		launcher: launcher,
		history:  history,
		settings: settings,
		health:   health,
		metrics:  metrics,
		logger:   logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging, recovery and cross-origin middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", h.Health)

	mux.HandleFunc("GET /api/v1/accounts", h.ListAccounts)
	mux.HandleFunc("POST /api/v1/accounts/login", h.BeginLogin)
	mux.HandleFunc("GET /api/v1/logins/{id}", h.LoginStatus)
	mux.HandleFunc("DELETE /api/v1/accounts/{username}", h.RemoveAccount)
	mux.HandleFunc("PUT /api/v1/accounts/{username}/alias", h.SetAlias)
	mux.HandleFunc("PUT /api/v1/accounts/{username}/group", h.SetGroup)
	mux.HandleFunc("POST /api/v1/accounts/{username}/browser", h.OpenBrowser)
	mux.HandleFunc("GET /api/v1/accounts/{username}/last-played", h.ListLastPlayed)
	mux.HandleFunc("DELETE /api/v1/accounts/{username}/last-played/{placeID}", h.DeleteLastPlayed)

	mux.HandleFunc("GET /api/v1/groups", h.ListGroups)
	mux.HandleFunc("POST /api/v1/groups", h.CreateGroup)
	mux.HandleFunc("PUT /api/v1/groups/{id}", h.RenameGroup)
	mux.HandleFunc("DELETE /api/v1/groups/{id}", h.DeleteGroup)

	mux.HandleFunc("GET /api/v1/tree", h.GetTree)
	mux.HandleFunc("PUT /api/v1/tree", h.ReconcileTree)

	mux.HandleFunc("POST /api/v1/launch", h.Launch)

	mux.HandleFunc("GET /api/v1/settings", h.GetSettings)
	mux.HandleFunc("PUT /api/v1/settings", h.PutSettings)

	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics)
	}

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = originGuard(logger, wrapped)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Health reports store reachability and whether the encryption key is
// ephemeral. An unreachable store answers 503.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	report := h.health.Check(r.Context())

	resp := HealthResponse{
		Status:      report.Status,
		Time:        time.Now().UTC().Format(time.RFC3339),
		KeyDegraded: report.KeyDegraded != nil,
	}
	if report.KeyDegraded != nil {
		resp.KeyError = report.KeyDegraded.Error()
	}

	status := http.StatusOK
	if report.Store != nil {
		h.logger.Error("health check: store unreachable", "error", report.Store)
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// ListAccounts returns all accounts ordered by username.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.List(r.Context())
	if err != nil {
		h.writeServiceError(w, "list accounts", err)
		return
	}

	resp := make([]AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		resp = append(resp, toAccountResponse(a))
	}
	writeJSON(w, http.StatusOK, resp)
}

// BeginLogin starts an interactive login and returns its id for polling.
func (h *Handler) BeginLogin(w http.ResponseWriter, r *http.Request) {
	id := h.accounts.BeginLogin(r.Context())
	writeJSON(w, http.StatusAccepted, LoginStartedResponse{LoginID: id})
}

// LoginStatus returns the progress of a login.
func (h *Handler) LoginStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.accounts.LoginStatus(r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, "login status", err)
		return
	}
	writeJSON(w, http.StatusOK, toLoginStatusResponse(status))
}

// RemoveAccount deletes an account and its profile.
func (h *Handler) RemoveAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.Remove(r.Context(), r.PathValue("username")); err != nil {
		h.writeServiceError(w, "remove account", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetAlias replaces an account's alias.
func (h *Handler) SetAlias(w http.ResponseWriter, r *http.Request) {
	var req AliasRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.accounts.SetAlias(r.Context(), r.PathValue("username"), req.Alias); err != nil {
		h.writeServiceError(w, "set alias", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetGroup moves an account into a group; a null group_id ungroups it.
func (h *Handler) SetGroup(w http.ResponseWriter, r *http.Request) {
	var req GroupAssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.accounts.SetGroup(r.Context(), r.PathValue("username"), req.GroupID); err != nil {
		h.writeServiceError(w, "set group", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// OpenBrowser opens a browser window on the account's profile. The body is
// optional.
func (h *Handler) OpenBrowser(w http.ResponseWriter, r *http.Request) {
	var req BrowserRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if req.URL == "" {
		req.URL = defaultBrowserURL
	}

	if err := h.accounts.OpenBrowser(r.Context(), r.PathValue("username"), req.URL); err != nil {
		h.writeServiceError(w, "open browser", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListLastPlayed returns an account's recent places, newest first.
func (h *Handler) ListLastPlayed(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	entries, err := h.history.List(r.Context(), r.PathValue("username"), limit)
	if err != nil {
		h.writeServiceError(w, "list last played", err)
		return
	}

	resp := make([]LastPlayedResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, toLastPlayedResponse(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

// DeleteLastPlayed removes one history entry.
func (h *Handler) DeleteLastPlayed(w http.ResponseWriter, r *http.Request) {
	if err := h.history.Delete(r.Context(), r.PathValue("username"), r.PathValue("placeID")); err != nil {
		h.writeServiceError(w, "delete last played", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListGroups returns all groups ordered by name.
func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.tree.Groups(r.Context())
	if err != nil {
		h.writeServiceError(w, "list groups", err)
		return
	}

	resp := make([]GroupResponse, 0, len(groups))
	for _, g := range groups {
		resp = append(resp, toGroupResponse(g))
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateGroup adds a group.
func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req GroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	group, err := h.tree.CreateGroup(r.Context(), req.Name)
	if err != nil {
		h.writeServiceError(w, "create group", err)
		return
	}
	writeJSON(w, http.StatusCreated, toGroupResponse(group))
}

// RenameGroup renames a group.
func (h *Handler) RenameGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := groupID(w, r)
	if !ok {
		return
	}

	var req GroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.tree.RenameGroup(r.Context(), id, req.Name); err != nil {
		h.writeServiceError(w, "rename group", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteGroup removes a group, moving its members to ungrouped.
func (h *Handler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := groupID(w, r)
	if !ok {
		return
	}

	if err := h.tree.DeleteGroup(r.Context(), id); err != nil {
		h.writeServiceError(w, "delete group", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetTree returns the derived account tree.
func (h *Handler) GetTree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.tree.Tree(r.Context())
	if err != nil {
		h.writeServiceError(w, "get tree", err)
		return
	}
	writeJSON(w, http.StatusOK, toTreeResponse(tree))
}

// ReconcileTree makes stored membership match the presented tree, then
// returns the tree as now stored.
func (h *Handler) ReconcileTree(w http.ResponseWriter, r *http.Request) {
	var req TreeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.tree.Reconcile(r.Context(), req.toTree()); err != nil {
		h.writeServiceError(w, "reconcile tree", err)
		return
	}

	h.GetTree(w, r)
}

// Launch starts each listed account in the requested place, one after the
// other. Per-account failures are reported in the results; the status is
// non-2xx only when no account launched.
func (h *Handler) Launch(w http.ResponseWriter, r *http.Request) {
	var req LaunchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Usernames) == 0 {
		writeError(w, http.StatusBadRequest, "usernames must not be empty")
		return
	}
	if _, err := model.ExtractPlaceID(req.Place); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	results := h.launcher.LaunchBatch(r.Context(), req.Usernames, req.Place)

	resp := LaunchResponse{Results: make([]LaunchResultResponse, 0, len(results))}
	var firstErr error
	launched := 0
	for _, res := range results {
		resp.Results = append(resp.Results, toLaunchResultResponse(res))
		if res.Err == nil {
			launched++
		} else if firstErr == nil {
			firstErr = res.Err
		}
	}

	status := http.StatusOK
	if launched == 0 && firstErr != nil {
		status, _ = statusFor(firstErr)
	}
	writeJSON(w, status, resp)
}

// GetSettings returns the feature toggles.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.Get(r.Context())
	if err != nil {
		h.writeServiceError(w, "get settings", err)
		return
	}
	writeJSON(w, http.StatusOK, toSettingsResponse(settings))
}

// PutSettings replaces the feature toggles.
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsResponse
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	settings := model.Settings{MultiInstance: req.MultiInstance, HideUsernames: req.HideUsernames}
	if err := h.settings.Set(r.Context(), settings); err != nil {
		h.writeServiceError(w, "set settings", err)
		return
	}
	writeJSON(w, http.StatusOK, toSettingsResponse(settings))
}

func groupID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid group id")
		return 0, false
	}
	return id, true
}

// writeServiceError maps a service error to a status code and a client-safe
// message. Unexpected errors are logged and reported as 500.
func (h *Handler) writeServiceError(w http.ResponseWriter, op string, err error) {
	status, message := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "op", op, "error", err)
	}
	writeError(w, status, message)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, driven.ErrAccountNotFound),
		errors.Is(err, driven.ErrGroupNotFound),
		errors.Is(err, application.ErrLoginNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, driven.ErrDuplicateGroupName):
		return http.StatusConflict, err.Error()
	case errors.Is(err, driven.ErrInvalidGroupName),
		errors.Is(err, driven.ErrInvalidTree),
		errors.Is(err, model.ErrInvalidPlaceID):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, driven.ErrMissingCredential):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, driven.ErrProtocol), errors.Is(err, application.ErrLaunchDispatch):
		return http.StatusBadGateway, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
