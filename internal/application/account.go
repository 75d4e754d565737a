package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/ramn/internal/domain/model"
	"github.com/ericfisherdev/ramn/internal/domain/port/driven"
)

const (
	loginURL         = "https://www.roblox.com/Login"
	loginDonePattern = "https://www.roblox.com/home*"
	securityCookie   = ".ROBLOSECURITY"
	cookieDomain     = ".roblox.com"
)

// ErrLoginNotFound indicates an unknown login id.
var ErrLoginNotFound = errors.New("login not found")

// AccountService manages the account lifecycle: interactive login, browser
// sessions on an account's profile, removal and labelling.
type AccountService struct {
	accounts     driven.AccountStore
	platform     driven.PlatformClient
	browser      driven.BrowserAutomation
	profileRoot  string
	loginTimeout time.Duration

	now func() time.Time

	mu     sync.Mutex
	logins map[string]*model.LoginStatus
}

// NewAccountService creates an AccountService. Profiles are created under
// profileRoot, one directory per account.
func NewAccountService(
	accounts driven.AccountStore,
	platform driven.PlatformClient,
	browser driven.BrowserAutomation,
	profileRoot string,
	loginTimeout time.Duration,
) *AccountService {
	return &AccountService{
		accounts:     accounts,
		platform:     platform,
		browser:      browser,
		profileRoot:  profileRoot,
		loginTimeout: loginTimeout,
		now:          time.Now,
		logins:       make(map[string]*model.LoginStatus),
	}
}

// List returns all accounts ordered by username.
func (s *AccountService) List(ctx context.Context) ([]model.AccountSummary, error) {
	return s.accounts.List(ctx)
}

// BeginLogin starts an interactive login in the background and returns its
// id. The login runs detached from ctx's cancellation and is bounded by the
// login timeout.
func (s *AccountService) BeginLogin(ctx context.Context) string {
	id := uuid.NewString()

	s.mu.Lock()
	s.logins[id] = &model.LoginStatus{ID: id, State: model.LoginStatePending, StartedAt: s.now()}
	s.mu.Unlock()

	go func() {
		username, err := s.runLogin(context.WithoutCancel(ctx), id)
		s.finishLogin(id, username, err)
	}()

	slog.Info("login started", "login_id", id)
	return id
}

// LoginStatus returns a snapshot of the login with the given id.
func (s *AccountService) LoginStatus(id string) (model.LoginStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, ok := s.logins[id]
	if !ok {
		return model.LoginStatus{}, fmt.Errorf("login %s: %w", id, ErrLoginNotFound)
	}
	return *status, nil
}

func (s *AccountService) finishLogin(id, username string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := s.logins[id]
	status.EndedAt = s.now()
	if err != nil {
		status.State, status.Err = model.LoginStateFailed, err
		slog.Warn("login failed", "login_id", id, "error", err)
		return
	}
	status.State, status.Username = model.LoginStateSucceeded, username
	slog.Info("login succeeded", "login_id", id, "username", username)
}

// runLogin drives one login on a temporary profile named after the login id.
// Every failure path removes the temporary profile.
func (s *AccountService) runLogin(ctx context.Context, id string) (username string, err error) {
	tempProfile := filepath.Join(s.profileRoot, id)
	defer func() {
		if err != nil {
			if rmErr := os.RemoveAll(tempProfile); rmErr != nil {
				slog.Warn("remove temporary profile", "path", tempProfile, "error", rmErr)
			}
		}
	}()

	if err := os.MkdirAll(tempProfile, 0o700); err != nil {
		return "", fmt.Errorf("create profile: %w", err)
	}

	secret, err := s.captureSecret(ctx, tempProfile)
	if err != nil {
		return "", err
	}

	username, err = s.platform.ResolveUsername(ctx, secret)
	if err != nil {
		return "", err
	}

	profile := filepath.Join(s.profileRoot, username)
	if err := replaceDir(tempProfile, profile); err != nil {
		return "", fmt.Errorf("move profile for %s: %w", username, err)
	}

	account := model.Account{Username: username, Secret: secret, ProfilePath: profile}
	if err := s.accounts.Upsert(ctx, account); err != nil {
		return "", err
	}

	return username, nil
}

// captureSecret opens the login page, waits for the user to finish signing
// in and returns the session cookie. The browser session is always closed.
func (s *AccountService) captureSecret(ctx context.Context, profile string) (string, error) {
	session, err := s.browser.OpenPersistentSession(ctx, profile, loginURL)
	if err != nil {
		return "", fmt.Errorf("open login browser: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			slog.Debug("close login browser", "error", err)
		}
	}()

	if err := session.WaitForURL(ctx, loginDonePattern, s.loginTimeout); err != nil {
		return "", err
	}

	cookies, err := session.Cookies(ctx)
	if err != nil {
		return "", fmt.Errorf("read cookies: %w", err)
	}
	for _, c := range cookies {
		if c.Name == securityCookie && c.Value != "" {
			return c.Value, nil
		}
	}
	return "", fmt.Errorf("login: %w", driven.ErrMissingCredential)
}

// OpenBrowser opens a browser window on the account's profile at url,
// injecting the session cookie when the profile lost it. The window stays
// open until the user closes it or the process shuts down.
func (s *AccountService) OpenBrowser(ctx context.Context, username, url string) error {
	account, err := s.accounts.Get(ctx, username)
	if err != nil {
		return err
	}

	session, err := s.browser.OpenPersistentSession(ctx, account.ProfilePath, "")
	if err != nil {
		return fmt.Errorf("open browser for %s: %w", username, err)
	}

	if account.Secret != "" {
		if err := ensureSecurityCookie(ctx, session, account.Secret); err != nil {
			slog.Warn("inject session cookie", "username", username, "error", err)
		}
	}

	if err := session.Navigate(ctx, url); err != nil {
		_ = session.Close()
		return fmt.Errorf("navigate browser for %s: %w", username, err)
	}

	slog.Info("opened browser", "username", username)
	return nil
}

func ensureSecurityCookie(ctx context.Context, session driven.BrowserSession, secret string) error {
	cookies, err := session.Cookies(ctx)
	if err != nil {
		return err
	}
	for _, c := range cookies {
		if c.Name == securityCookie && c.Value != "" {
			return nil
		}
	}
	return session.InjectCookie(ctx, model.Cookie{
		Name:     securityCookie,
		Value:    secret,
		Domain:   cookieDomain,
		Path:     "/",
		HTTPOnly: true,
		Secure:   true,
	})
}

// Remove deletes the account and, when it lies inside the profiles root,
// its profile directory.
func (s *AccountService) Remove(ctx context.Context, username string) error {
	profile, err := s.accounts.Delete(ctx, username)
	if err != nil {
		return err
	}

	if profile == "" {
		return nil
	}
	if !withinRoot(s.profileRoot, profile) {
		slog.Warn("profile outside profiles root left in place", "username", username, "path", profile)
		return nil
	}
	if err := os.RemoveAll(profile); err != nil {
		slog.Warn("remove profile", "username", username, "path", profile, "error", err)
	}

	slog.Info("removed account", "username", username)
	return nil
}

// SetAlias replaces the account's alias.
func (s *AccountService) SetAlias(ctx context.Context, username, alias string) error {
	return s.accounts.SetAlias(ctx, username, strings.TrimSpace(alias))
}

// SetGroup moves the account into groupID, or to ungrouped when nil.
func (s *AccountService) SetGroup(ctx context.Context, username string, groupID *int64) error {
	return s.accounts.SetGroup(ctx, username, groupID)
}

// replaceDir moves src to dst, removing whatever was at dst.
func replaceDir(src, dst string) error {
	if err := os.RemoveAll(dst); err != nil {
		return err
	}
	return os.Rename(src, dst)
}

func withinRoot(root, path string) bool {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
