// Package browser implements the BrowserAutomation port with Playwright,
// driving a Chromium persistent context per profile directory.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/ericfisherdev/ramn/internal/domain/model"
	"github.com/ericfisherdev/ramn/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.BrowserAutomation = (*Automation)(nil)
	_ driven.BrowserSession    = (*Session)(nil)
)

// launchArgs match the window the login flow has always used: an app-style
// window without the crashed-session bubble.
var launchArgs = []string{
	"--disable-session-crashed-bubble",
	"--app=https://www.roblox.com",
	"--window-size=700,800",
}

// Automation starts the Playwright driver on first use and tracks every open
// session so Close can shut them all down.
type Automation struct {
	headless bool

	mu       sync.Mutex
	pw       *playwright.Playwright
	sessions map[*Session]struct{}
}

// New creates an Automation. The driver is not started until the first
// session is opened.
func New(headless bool) *Automation {
	return &Automation{
		headless: headless,
		sessions: make(map[*Session]struct{}),
	}
}

// Install downloads the Playwright driver and Chromium if missing.
func Install() error {
	if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
		return fmt.Errorf("install playwright chromium: %w", err)
	}
	return nil
}

// OpenPersistentSession launches Chromium on storagePath and navigates its
// first page to startURL when one is given.
func (a *Automation) OpenPersistentSession(ctx context.Context, storagePath, startURL string) (driven.BrowserSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pw, err := a.driver()
	if err != nil {
		return nil, err
	}

	bctx, err := pw.Chromium.LaunchPersistentContext(storagePath, playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(a.headless),
		Args:     launchArgs,
	})
	if err != nil {
		return nil, fmt.Errorf("launch persistent context %s: %w", storagePath, err)
	}

	var page playwright.Page
	if pages := bctx.Pages(); len(pages) > 0 {
		page = pages[0]
	} else if page, err = bctx.NewPage(); err != nil {
		_ = bctx.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}

	s := &Session{owner: a, bctx: bctx, page: page}
	if startURL != "" {
		if err := s.Navigate(ctx, startURL); err != nil {
			_ = s.Close()
			return nil, err
		}
	}

	a.mu.Lock()
	a.sessions[s] = struct{}{}
	a.mu.Unlock()

	return s, nil
}

// Close closes every open session and stops the driver.
func (a *Automation) Close() error {
	a.mu.Lock()
	sessions := make([]*Session, 0, len(a.sessions))
	for s := range a.sessions {
		sessions = append(sessions, s)
	}
	pw := a.pw
	a.pw = nil
	a.mu.Unlock()

	for _, s := range sessions {
		if err := s.Close(); err != nil {
			slog.Debug("close browser session", "error", err)
		}
	}

	if pw == nil {
		return nil
	}
	if err := pw.Stop(); err != nil {
		return fmt.Errorf("stop playwright: %w", err)
	}
	return nil
}

func (a *Automation) driver() (*playwright.Playwright, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.pw != nil {
		return a.pw, nil
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	a.pw = pw
	return pw, nil
}

func (a *Automation) forget(s *Session) {
	a.mu.Lock()
	delete(a.sessions, s)
	a.mu.Unlock()
}

// Session is one persistent Chromium context and its first page.
type Session struct {
	owner *Automation
	bctx  playwright.BrowserContext
	page  playwright.Page

	closeOnce sync.Once
	closeErr  error
}

// Cookies returns every cookie in the context.
func (s *Session) Cookies(_ context.Context) ([]model.Cookie, error) {
	cookies, err := s.bctx.Cookies()
	if err != nil {
		return nil, fmt.Errorf("read cookies: %w", err)
	}

	out := make([]model.Cookie, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, model.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HttpOnly,
			Secure:   c.Secure,
		})
	}
	return out, nil
}

// InjectCookie adds cookie to the context with SameSite=Lax.
func (s *Session) InjectCookie(_ context.Context, cookie model.Cookie) error {
	err := s.bctx.AddCookies([]playwright.OptionalCookie{{
		Name:     cookie.Name,
		Value:    cookie.Value,
		Domain:   playwright.String(cookie.Domain),
		Path:     playwright.String(cookie.Path),
		HttpOnly: playwright.Bool(cookie.HTTPOnly),
		Secure:   playwright.Bool(cookie.Secure),
		SameSite: playwright.SameSiteAttributeLax,
	}})
	if err != nil {
		return fmt.Errorf("add cookie %s: %w", cookie.Name, err)
	}
	return nil
}

// Navigate loads url in the session's page.
func (s *Session) Navigate(_ context.Context, url string) error {
	if _, err := s.page.Goto(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

// WaitForURL blocks until the page URL matches the glob pattern. The wait
// ends at timeout or at the context deadline, whichever is sooner.
func (s *Session) WaitForURL(ctx context.Context, pattern string, timeout time.Duration) error {
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return driven.ErrLoginTimeout
	}

	err := s.page.WaitForURL(pattern, playwright.PageWaitForURLOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			return fmt.Errorf("wait for %s: %w", pattern, driven.ErrLoginTimeout)
		}
		return fmt.Errorf("wait for %s: %w", pattern, err)
	}
	return nil
}

// Close closes the context. Calling Close more than once is safe.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.owner.forget(s)
		if err := s.bctx.Close(); err != nil {
			s.closeErr = fmt.Errorf("close browser context: %w", err)
		}
	})
	return s.closeErr
}
