package application_test

import (
	"context"
	"sync"
	"time"

	"github.com/ericfisherdev/ramn/internal/application"
	"github.com/ericfisherdev/ramn/internal/domain/model"
	"github.com/ericfisherdev/ramn/internal/domain/port/driven"
)

// --- Mock implementations ---

type mockAccountStore struct {
	mu       sync.Mutex
	accounts map[string]model.Account
	upserts  []model.Account
	getErr   error
	deleted  []string
}

func newMockAccountStore(accounts ...model.Account) *mockAccountStore {
	m := &mockAccountStore{accounts: make(map[string]model.Account)}
	for _, a := range accounts {
		m.accounts[a.Username] = a
	}
	return m
}

func (m *mockAccountStore) Upsert(_ context.Context, account model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts = append(m.upserts, account)
	m.accounts[account.Username] = account
	return nil
}

func (m *mockAccountStore) Get(_ context.Context, username string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	a, ok := m.accounts[username]
	if !ok {
		return nil, driven.ErrAccountNotFound
	}
	return &a, nil
}

func (m *mockAccountStore) List(_ context.Context) ([]model.AccountSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.AccountSummary
	for _, a := range m.accounts {
		out = append(out, model.AccountSummary{Username: a.Username, Alias: a.Alias, GroupID: a.GroupID})
	}
	return out, nil
}

func (m *mockAccountStore) Delete(_ context.Context, username string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[username]
	if !ok {
		return "", driven.ErrAccountNotFound
	}
	delete(m.accounts, username)
	m.deleted = append(m.deleted, username)
	return a.ProfilePath, nil
}

func (m *mockAccountStore) SetAlias(_ context.Context, username, alias string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[username]
	if !ok {
		return driven.ErrAccountNotFound
	}
	a.Alias = alias
	m.accounts[username] = a
	return nil
}

func (m *mockAccountStore) SetGroup(_ context.Context, username string, groupID *int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[username]
	if !ok {
		return driven.ErrAccountNotFound
	}
	a.GroupID = groupID
	m.accounts[username] = a
	return nil
}

type mockGroupStore struct {
	groups     []model.Group
	reconciled []model.Tree
}

func (m *mockGroupStore) List(_ context.Context) ([]model.Group, error) { return m.groups, nil }

func (m *mockGroupStore) Create(_ context.Context, name string) (model.Group, error) {
	g := model.Group{ID: int64(len(m.groups) + 1), Name: name}
	m.groups = append(m.groups, g)
	return g, nil
}

func (m *mockGroupStore) Rename(_ context.Context, _ int64, _ string) error { return nil }
func (m *mockGroupStore) Delete(_ context.Context, _ int64) error           { return nil }

func (m *mockGroupStore) Reconcile(_ context.Context, tree model.Tree) error {
	m.reconciled = append(m.reconciled, tree)
	return nil
}

type touchCall struct {
	Username string
	PlaceID  string
	At       time.Time
}

type metadataCall struct {
	Username string
	PlaceID  string
	Name     string
	IconURL  string
}

type mockLastPlayedStore struct {
	mu       sync.Mutex
	touches  []touchCall
	updates  []metadataCall
	entries  []model.LastPlayed
	listArgs []int
	deletes  []string
}

func (m *mockLastPlayedStore) Record(_ context.Context, entry model.LastPlayed) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockLastPlayedStore) Touch(_ context.Context, username, placeID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touches = append(m.touches, touchCall{Username: username, PlaceID: placeID, At: at})
	return nil
}

func (m *mockLastPlayedStore) UpdateMetadata(_ context.Context, username, placeID, name, iconURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, metadataCall{Username: username, PlaceID: placeID, Name: name, IconURL: iconURL})
	return nil
}

func (m *mockLastPlayedStore) List(_ context.Context, _ string, limit int) ([]model.LastPlayed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listArgs = append(m.listArgs, limit)
	return m.entries, nil
}

func (m *mockLastPlayedStore) Delete(_ context.Context, _, placeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, placeID)
	return nil
}

func (m *mockLastPlayedStore) metadataUpdates() []metadataCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]metadataCall(nil), m.updates...)
}

type mockSettingsStore struct {
	settings model.Settings
	sets     int
}

func (m *mockSettingsStore) Get(_ context.Context) (model.Settings, error) { return m.settings, nil }

func (m *mockSettingsStore) Set(_ context.Context, settings model.Settings) error {
	m.settings = settings
	m.sets++
	return nil
}

type mockPlatform struct {
	mu         sync.Mutex
	tickets    map[string]error // secret -> error returned by AuthTicket
	ticketArgs []string
	username   string
	resolveErr error
}

func (m *mockPlatform) AuthTicket(_ context.Context, secret, placeID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ticketArgs = append(m.ticketArgs, secret+"@"+placeID)
	if err := m.tickets[secret]; err != nil {
		return "", err
	}
	return "ticket-" + secret, nil
}

func (m *mockPlatform) LaunchURI(ticket, placeID string) string {
	return "roblox-player:1+gameinfo:" + ticket + "+place:" + placeID
}

func (m *mockPlatform) ResolveUsername(_ context.Context, _ string) (string, error) {
	if m.resolveErr != nil {
		return "", m.resolveErr
	}
	return m.username, nil
}

type mockOpener struct {
	mu     sync.Mutex
	opened []string
	err    error
}

func (m *mockOpener) Open(uri string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.opened = append(m.opened, uri)
	return nil
}

type mockBurster struct {
	mu     sync.Mutex
	bursts []time.Duration
	done   chan struct{}
}

func newMockBurster() *mockBurster {
	return &mockBurster{done: make(chan struct{}, 16)}
}

func (m *mockBurster) Burst(_ context.Context, duration, _ time.Duration) {
	m.mu.Lock()
	m.bursts = append(m.bursts, duration)
	m.mu.Unlock()
	m.done <- struct{}{}
}

func (m *mockBurster) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bursts)
}

type mockSubmitter struct {
	jobs []application.EnrichmentJob
}

func (m *mockSubmitter) Submit(job application.EnrichmentJob) bool {
	m.jobs = append(m.jobs, job)
	return true
}

type mockLockToggle struct {
	calls []bool
}

func (m *mockLockToggle) SetEnabled(_ context.Context, enabled bool) {
	m.calls = append(m.calls, enabled)
}

type mockClearer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (m *mockClearer) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.err
}

func (m *mockClearer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockSource struct {
	name  string
	info  model.PlaceInfo
	err   error
	calls int
}

func (m *mockSource) Name() string { return m.name }

func (m *mockSource) LookupPlace(_ context.Context, _ string) (model.PlaceInfo, error) {
	m.calls++
	return m.info, m.err
}

type mockThumbnails struct {
	icon  string
	err   error
	calls []string
}

func (m *mockThumbnails) GameIcon(_ context.Context, universeID string) (string, error) {
	m.calls = append(m.calls, universeID)
	return m.icon, m.err
}

type mockRecorder struct {
	mu       sync.Mutex
	launches []string
	tickets  []string
	lookups  []string
	drops    int
	clears   int
}

func (m *mockRecorder) Launch(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.launches = append(m.launches, outcome)
}

func (m *mockRecorder) TicketFailure(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickets = append(m.tickets, reason)
}

func (m *mockRecorder) MetadataLookup(source string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := "miss"
	if ok {
		result = "hit"
	}
	m.lookups = append(m.lookups, source+":"+result)
}

func (m *mockRecorder) LockClear(error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clears++
}

func (m *mockRecorder) EnrichmentDrop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drops++
}

type mockSession struct {
	mu        sync.Mutex
	cookies   []model.Cookie
	waitErr   error
	injected  []model.Cookie
	navigated []string
	closed    bool
}

func (m *mockSession) Cookies(_ context.Context) ([]model.Cookie, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cookies, nil
}

func (m *mockSession) InjectCookie(_ context.Context, cookie model.Cookie) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.injected = append(m.injected, cookie)
	return nil
}

func (m *mockSession) Navigate(_ context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.navigated = append(m.navigated, url)
	return nil
}

func (m *mockSession) WaitForURL(_ context.Context, _ string, _ time.Duration) error {
	return m.waitErr
}

func (m *mockSession) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockSession) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

type openCall struct {
	StoragePath string
	StartURL    string
}

type mockBrowser struct {
	mu      sync.Mutex
	session *mockSession
	opens   []openCall
}

func (m *mockBrowser) OpenPersistentSession(_ context.Context, storagePath, startURL string) (driven.BrowserSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opens = append(m.opens, openCall{StoragePath: storagePath, StartURL: startURL})
	return m.session, nil
}

func (m *mockBrowser) openCalls() []openCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]openCall(nil), m.opens...)
}
