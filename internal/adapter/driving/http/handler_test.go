package httphandler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httphandler "github.com/ericfisherdev/ramn/internal/adapter/driving/http"
	"github.com/ericfisherdev/ramn/internal/adapter/metrics"
	"github.com/ericfisherdev/ramn/internal/application"
	"github.com/ericfisherdev/ramn/internal/domain/model"
	"github.com/ericfisherdev/ramn/internal/domain/port/driven"
)

// --- Fake implementations ---

type fakeAccounts struct {
	mu       sync.Mutex
	accounts map[string]model.Account
	listErr  error
}

func (f *fakeAccounts) Upsert(_ context.Context, a model.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[a.Username] = a
	return nil
}

func (f *fakeAccounts) Get(_ context.Context, username string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[username]
	if !ok {
		return nil, driven.ErrAccountNotFound
	}
	return &a, nil
}

func (f *fakeAccounts) List(_ context.Context) ([]model.AccountSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]model.AccountSummary, 0, len(f.accounts))
	for _, a := range f.accounts {
		out = append(out, model.AccountSummary{Username: a.Username, Alias: a.Alias, GroupID: a.GroupID})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (f *fakeAccounts) Delete(_ context.Context, username string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[username]; !ok {
		return "", driven.ErrAccountNotFound
	}
	delete(f.accounts, username)
	return "", nil
}

func (f *fakeAccounts) SetAlias(_ context.Context, username, alias string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[username]
	if !ok {
		return driven.ErrAccountNotFound
	}
	a.Alias = alias
	f.accounts[username] = a
	return nil
}

func (f *fakeAccounts) SetGroup(_ context.Context, username string, groupID *int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[username]
	if !ok {
		return driven.ErrAccountNotFound
	}
	a.GroupID = groupID
	f.accounts[username] = a
	return nil
}

type fakeGroups struct {
	groups     []model.Group
	reconciled []model.Tree
	accounts   *fakeAccounts
}

func (f *fakeGroups) List(_ context.Context) ([]model.Group, error) { return f.groups, nil }

func (f *fakeGroups) Create(_ context.Context, name string) (model.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Group{}, driven.ErrInvalidGroupName
	}
	for _, g := range f.groups {
		if g.Name == name {
			return model.Group{}, driven.ErrDuplicateGroupName
		}
	}
	g := model.Group{ID: int64(len(f.groups) + 1), Name: name}
	f.groups = append(f.groups, g)
	return g, nil
}

func (f *fakeGroups) Rename(_ context.Context, id int64, name string) error {
	for i := range f.groups {
		if f.groups[i].ID == id {
			f.groups[i].Name = name
			return nil
		}
	}
	return driven.ErrGroupNotFound
}

func (f *fakeGroups) Delete(_ context.Context, id int64) error {
	for i := range f.groups {
		if f.groups[i].ID == id {
			f.groups = append(f.groups[:i], f.groups[i+1:]...)
			return nil
		}
	}
	return driven.ErrGroupNotFound
}

func (f *fakeGroups) Reconcile(ctx context.Context, tree model.Tree) error {
	membership, dups := tree.Membership()
	if len(dups) > 0 {
		return driven.ErrInvalidTree
	}
	f.reconciled = append(f.reconciled, tree)
	for username, groupID := range membership {
		if err := f.accounts.SetGroup(ctx, username, groupID); err != nil {
			return err
		}
	}
	return nil
}

type fakeLastPlayed struct {
	entries []model.LastPlayed
	deleted []string
}

func (f *fakeLastPlayed) Record(context.Context, model.LastPlayed) error { return nil }
func (f *fakeLastPlayed) Touch(context.Context, string, string, time.Time) error {
	return nil
}
func (f *fakeLastPlayed) UpdateMetadata(context.Context, string, string, string, string) error {
	return nil
}
func (f *fakeLastPlayed) List(_ context.Context, _ string, limit int) ([]model.LastPlayed, error) {
	if limit > 0 && limit < len(f.entries) {
		return f.entries[:limit], nil
	}
	return f.entries, nil
}
func (f *fakeLastPlayed) Delete(_ context.Context, _, placeID string) error {
	f.deleted = append(f.deleted, placeID)
	return nil
}

type fakeSettings struct{ settings model.Settings }

func (f *fakeSettings) Get(context.Context) (model.Settings, error) { return f.settings, nil }
func (f *fakeSettings) Set(_ context.Context, s model.Settings) error {
	f.settings = s
	return nil
}

type fakePlatform struct{ failSecrets map[string]error }

func (f *fakePlatform) AuthTicket(_ context.Context, secret, _ string) (string, error) {
	if err := f.failSecrets[secret]; err != nil {
		return "", err
	}
	return "t-" + secret, nil
}
func (f *fakePlatform) LaunchURI(ticket, placeID string) string {
	return "roblox-player:1+gameinfo:" + ticket + "+place:" + placeID
}
func (f *fakePlatform) ResolveUsername(context.Context, string) (string, error) {
	return "", driven.ErrUsernameUnresolved
}

type fakeOpener struct{}

func (fakeOpener) Open(string) error { return nil }

type fakeSession struct{ navigated []string }

func (s *fakeSession) Cookies(context.Context) ([]model.Cookie, error)          { return nil, nil }
func (s *fakeSession) InjectCookie(context.Context, model.Cookie) error         { return nil }
func (s *fakeSession) WaitForURL(context.Context, string, time.Duration) error { return driven.ErrLoginTimeout }
func (s *fakeSession) Close() error                                             { return nil }
func (s *fakeSession) Navigate(_ context.Context, url string) error {
	s.navigated = append(s.navigated, url)
	return nil
}

type fakeBrowser struct{ session *fakeSession }

func (f *fakeBrowser) OpenPersistentSession(context.Context, string, string) (driven.BrowserSession, error) {
	return f.session, nil
}

type unsupportedClearer struct{}

func (unsupportedClearer) Clear() error { return driven.ErrInstanceLockUnsupported }

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubKey struct{ err error }

func (s stubKey) Degraded() error { return s.err }

// --- Test helpers ---

var testTime = time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	accounts   *fakeAccounts
	groups     *fakeGroups
	lastPlayed *fakeLastPlayed
	settings   *fakeSettings
	platform   *fakePlatform
	browser    *fakeBrowser
	pinger     stubPinger
	key        stubKey
}

func newFixture() *fixture {
	accounts := &fakeAccounts{accounts: map[string]model.Account{
		"alice": {Username: "alice", Alias: "main", Secret: "s-alice"},
		"bob":   {Username: "bob", Secret: "s-bob"},
	}}
	return &fixture{
		accounts:   accounts,
		groups:     &fakeGroups{groups: []model.Group{{ID: 1, Name: "Farm"}}, accounts: accounts},
		lastPlayed: &fakeLastPlayed{},
		settings:   &fakeSettings{},
		platform:   &fakePlatform{failSecrets: map[string]error{}},
		browser:    &fakeBrowser{session: &fakeSession{}},
	}
}

func (f *fixture) mux(t *testing.T) http.Handler {
	t.Helper()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	lock := application.NewInstanceLockService(unsupportedClearer{}, time.Hour, m)
	t.Cleanup(lock.Stop)

	accountSvc := application.NewAccountService(f.accounts, f.platform, f.browser, t.TempDir(), time.Second)
	treeSvc := application.NewTreeService(f.accounts, f.groups, f.settings)
	launchSvc := application.NewLaunchService(f.accounts, f.platform, fakeOpener{}, f.lastPlayed, f.settings,
		lock, nil, application.LaunchConfig{}, m)
	historySvc := application.NewHistoryService(f.lastPlayed, nil)
	settingsSvc := application.NewSettingsService(f.settings, lock)
	healthSvc := application.NewHealthService(f.pinger, f.key)

	h := httphandler.NewHandler(accountSvc, treeSvc, launchSvc, historySvc, settingsSvc, healthSvc,
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), slog.Default())
	return httphandler.NewServeMux(h, slog.Default())
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	err := json.NewDecoder(rec.Body).Decode(v)
	require.NoError(t, err)
}

func ptr(v int64) *int64 { return &v }

// --- Tests ---

func TestHealth(t *testing.T) {
	tests := []struct {
		name         string
		pingErr      error
		keyErr       error
		wantStatus   int
		wantBody     string
		wantDegraded bool
	}{
		{name: "ok", wantStatus: http.StatusOK, wantBody: "ok"},
		{name: "ephemeral key", keyErr: errors.New("read-only"), wantStatus: http.StatusOK, wantBody: "degraded", wantDegraded: true},
		{name: "store down", pingErr: errors.New("closed"), wantStatus: http.StatusServiceUnavailable, wantBody: "down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.pinger, f.key = stubPinger{err: tt.pingErr}, stubKey{err: tt.keyErr}

			rec := do(t, f.mux(t), http.MethodGet, "/api/v1/health", nil)
			assert.Equal(t, tt.wantStatus, rec.Code)

			var resp httphandler.HealthResponse
			decodeJSON(t, rec, &resp)
			assert.Equal(t, tt.wantBody, resp.Status)
			assert.Equal(t, tt.wantDegraded, resp.KeyDegraded)
			assert.NotEmpty(t, resp.Time)
		})
	}
}

func TestListAccounts(t *testing.T) {
	f := newFixture()
	rec := do(t, f.mux(t), http.MethodGet, "/api/v1/accounts", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []map[string]any
	decodeJSON(t, rec, &resp)
	require.Len(t, resp, 2)
	assert.Equal(t, "alice", resp[0]["username"])
	assert.Equal(t, "main", resp[0]["alias"])
	assert.Nil(t, resp[0]["group_id"])
	assert.NotContains(t, resp[0], "secret")
}

func TestListAccounts_StoreError(t *testing.T) {
	f := newFixture()
	f.accounts.listErr = errors.New("db fail")

	rec := do(t, f.mux(t), http.MethodGet, "/api/v1/accounts", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp map[string]string
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "internal server error", resp["error"])
}

func TestLogin_StartAndPoll(t *testing.T) {
	f := newFixture()
	mux := f.mux(t)

	rec := do(t, mux, http.MethodPost, "/api/v1/accounts/login", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var started httphandler.LoginStartedResponse
	decodeJSON(t, rec, &started)
	require.NotEmpty(t, started.LoginID)

	var status httphandler.LoginStatusResponse
	require.Eventually(t, func() bool {
		rec := do(t, mux, http.MethodGet, "/api/v1/logins/"+started.LoginID, nil)
		if rec.Code != http.StatusOK {
			return false
		}
		if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
			return false
		}
		return status.State != string(model.LoginStatePending)
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, string(model.LoginStateFailed), status.State)
	assert.Contains(t, status.Error, driven.ErrLoginTimeout.Error())
	assert.NotEmpty(t, status.EndedAt)
}

func TestLoginStatus_NotFound(t *testing.T) {
	rec := do(t, newFixture().mux(t), http.MethodGet, "/api/v1/logins/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRemoveAccount(t *testing.T) {
	f := newFixture()
	mux := f.mux(t)

	rec := do(t, mux, http.MethodDelete, "/api/v1/accounts/bob", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotContains(t, f.accounts.accounts, "bob")

	rec = do(t, mux, http.MethodDelete, "/api/v1/accounts/bob", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSetAliasAndGroup(t *testing.T) {
	f := newFixture()
	mux := f.mux(t)

	rec := do(t, mux, http.MethodPut, "/api/v1/accounts/bob/alias", httphandler.AliasRequest{Alias: "alt"})
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "alt", f.accounts.accounts["bob"].Alias)

	rec = do(t, mux, http.MethodPut, "/api/v1/accounts/bob/group", `{"group_id": 1}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, ptr(1), f.accounts.accounts["bob"].GroupID)

	rec = do(t, mux, http.MethodPut, "/api/v1/accounts/bob/group", `{"group_id": null}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, f.accounts.accounts["bob"].GroupID)

	rec = do(t, mux, http.MethodPut, "/api/v1/accounts/nobody/alias", httphandler.AliasRequest{Alias: "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, mux, http.MethodPut, "/api/v1/accounts/bob/alias", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOpenBrowser(t *testing.T) {
	f := newFixture()
	mux := f.mux(t)

	rec := do(t, mux, http.MethodPost, "/api/v1/accounts/alice/browser", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, mux, http.MethodPost, "/api/v1/accounts/alice/browser", httphandler.BrowserRequest{URL: "https://www.roblox.com/games/1818"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	assert.Equal(t, []string{"https://www.roblox.com/home", "https://www.roblox.com/games/1818"}, f.browser.session.navigated)
}

func TestLastPlayed(t *testing.T) {
	f := newFixture()
	f.lastPlayed.entries = []model.LastPlayed{
		{Username: "alice", PlaceID: "1818", Name: "Classic", IconURL: "https://icon", PlayedAt: testTime},
		{Username: "alice", PlaceID: "920587237", Name: "Adopt Me!", PlayedAt: testTime.Add(-time.Hour)},
	}
	mux := f.mux(t)

	rec := do(t, mux, http.MethodGet, "/api/v1/accounts/alice/last-played?limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []httphandler.LastPlayedResponse
	decodeJSON(t, rec, &resp)
	require.Len(t, resp, 1)
	assert.Equal(t, "1818", resp[0].PlaceID)
	assert.Equal(t, "Classic", resp[0].Name)
	assert.Equal(t, "2026-02-10T12:00:00Z", resp[0].PlayedAt)
	assert.NotEmpty(t, resp[0].PlayedAgo)

	rec = do(t, mux, http.MethodGet, "/api/v1/accounts/alice/last-played?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, mux, http.MethodDelete, "/api/v1/accounts/alice/last-played/1818", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"1818"}, f.lastPlayed.deleted)
}

func TestGroups(t *testing.T) {
	f := newFixture()
	mux := f.mux(t)

	rec := do(t, mux, http.MethodPost, "/api/v1/groups", httphandler.GroupRequest{Name: "Alts"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created httphandler.GroupResponse
	decodeJSON(t, rec, &created)
	assert.Equal(t, httphandler.GroupResponse{ID: 2, Name: "Alts"}, created)

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
	}{
		{"duplicate name", http.MethodPost, "/api/v1/groups", httphandler.GroupRequest{Name: "Farm"}, http.StatusConflict},
		{"blank name", http.MethodPost, "/api/v1/groups", httphandler.GroupRequest{Name: "  "}, http.StatusBadRequest},
		{"rename", http.MethodPut, "/api/v1/groups/2", httphandler.GroupRequest{Name: "Alt accounts"}, http.StatusNoContent},
		{"rename missing", http.MethodPut, "/api/v1/groups/99", httphandler.GroupRequest{Name: "x"}, http.StatusNotFound},
		{"bad id", http.MethodDelete, "/api/v1/groups/abc", nil, http.StatusBadRequest},
		{"delete", http.MethodDelete, "/api/v1/groups/2", nil, http.StatusNoContent},
		{"delete missing", http.MethodDelete, "/api/v1/groups/2", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, mux, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}

	rec = do(t, mux, http.MethodGet, "/api/v1/groups", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var groups []httphandler.GroupResponse
	decodeJSON(t, rec, &groups)
	assert.Equal(t, []httphandler.GroupResponse{{ID: 1, Name: "Farm"}}, groups)
}

func TestTree_GetAndReconcile(t *testing.T) {
	f := newFixture()
	mux := f.mux(t)

	body := `{"nodes": [
		{"group_id": null, "accounts": ["bob"]},
		{"group_id": 1, "accounts": ["alice"]}
	]}`
	rec := do(t, mux, http.MethodPut, "/api/v1/tree", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var tree httphandler.TreeResponse
	decodeJSON(t, rec, &tree)
	require.Len(t, tree.Nodes, 2)

	assert.Nil(t, tree.Nodes[0].GroupID)
	assert.Equal(t, model.UngroupedName, tree.Nodes[0].Name)
	assert.Equal(t, 1, tree.Nodes[0].Count)
	assert.Equal(t, "bob", tree.Nodes[0].Accounts[0].Username)

	assert.Equal(t, ptr(1), tree.Nodes[1].GroupID)
	require.Len(t, tree.Nodes[1].Accounts, 1)
	assert.Equal(t, "alice [alias: main] [group: Farm]", tree.Nodes[1].Accounts[0].Label)
}

func TestTree_ReconcileRejectsDuplicates(t *testing.T) {
	body := `{"nodes": [
		{"group_id": null, "accounts": ["bob"]},
		{"group_id": 1, "accounts": ["bob"]}
	]}`
	rec := do(t, newFixture().mux(t), http.MethodPut, "/api/v1/tree", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLaunch(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		fail       map[string]error
		wantStatus int
		wantOK     []bool
	}{
		{
			name:       "all launch",
			body:       httphandler.LaunchRequest{Usernames: []string{"alice", "bob"}, Place: "https://www.roblox.com/games/1818/Classic"},
			wantStatus: http.StatusOK,
			wantOK:     []bool{true, true},
		},
		{
			name:       "one fails",
			body:       httphandler.LaunchRequest{Usernames: []string{"alice", "bob"}, Place: "1818"},
			fail:       map[string]error{"s-alice": driven.ErrMissingCSRFToken},
			wantStatus: http.StatusOK,
			wantOK:     []bool{false, true},
		},
		{
			name:       "all fail on protocol",
			body:       httphandler.LaunchRequest{Usernames: []string{"alice"}, Place: "1818"},
			fail:       map[string]error{"s-alice": driven.ErrMissingTicket},
			wantStatus: http.StatusBadGateway,
			wantOK:     []bool{false},
		},
		{
			name:       "invalid place",
			body:       httphandler.LaunchRequest{Usernames: []string{"alice"}, Place: "no digits"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "no usernames",
			body:       httphandler.LaunchRequest{Place: "1818"},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			for secret, err := range tt.fail {
				f.platform.failSecrets[secret] = err
			}

			rec := do(t, f.mux(t), http.MethodPost, "/api/v1/launch", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantOK == nil {
				return
			}
			var resp httphandler.LaunchResponse
			decodeJSON(t, rec, &resp)
			require.Len(t, resp.Results, len(tt.wantOK))
			for i, ok := range tt.wantOK {
				assert.Equal(t, ok, resp.Results[i].OK, resp.Results[i].Error)
				assert.Equal(t, "1818", resp.Results[i].PlaceID)
			}
			assert.NotContains(t, rec.Body.String(), "gameinfo", "tickets are not echoed")
		})
	}
}

func TestSettings(t *testing.T) {
	f := newFixture()
	mux := f.mux(t)

	rec := do(t, mux, http.MethodPut, "/api/v1/settings", httphandler.SettingsResponse{MultiInstance: true, HideUsernames: true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.Settings{MultiInstance: true, HideUsernames: true}, f.settings.settings)

	rec = do(t, mux, http.MethodGet, "/api/v1/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp httphandler.SettingsResponse
	decodeJSON(t, rec, &resp)
	assert.True(t, resp.MultiInstance)
	assert.True(t, resp.HideUsernames)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture()
	mux := f.mux(t)

	do(t, mux, http.MethodPost, "/api/v1/launch", httphandler.LaunchRequest{Usernames: []string{"alice"}, Place: "1818"})

	rec := do(t, mux, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `ramn_launch_launches_total{outcome="ok"} 1`)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := httphandler.NewHandler(nil, nil, nil, nil, nil, nil, nil, slog.Default())
	mux := httphandler.NewServeMux(h, slog.Default())

	rec := do(t, mux, http.MethodGet, "/api/v1/accounts", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp map[string]string
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "internal server error", resp["error"])
}

func TestOriginGuard(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		origin     string
		fetchSite  string
		wantStatus int
	}{
		{name: "no origin", method: http.MethodDelete, wantStatus: http.StatusNoContent},
		{name: "loopback origin", method: http.MethodDelete, origin: "http://127.0.0.1:8765", wantStatus: http.StatusNoContent},
		{name: "localhost origin", method: http.MethodDelete, origin: "http://localhost:3000", wantStatus: http.StatusNoContent},
		{name: "foreign origin", method: http.MethodDelete, origin: "https://evil.example", wantStatus: http.StatusForbidden},
		{name: "cross-site fetch", method: http.MethodDelete, fetchSite: "cross-site", wantStatus: http.StatusForbidden},
		{name: "reads are allowed", method: http.MethodGet, origin: "https://evil.example", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			path := "/api/v1/accounts/bob"
			if tt.method == http.MethodGet {
				path = "/api/v1/accounts"
			}

			req := httptest.NewRequest(tt.method, path, nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.fetchSite != "" {
				req.Header.Set("Sec-Fetch-Site", tt.fetchSite)
			}
			rec := httptest.NewRecorder()
			f.mux(t).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusForbidden {
				assert.Contains(t, f.accounts.accounts, "bob", "rejected request has no effect")
			}
		})
	}
}
