package driven

import (
	"context"
	"time"

	"github.com/ericfisherdev/ramn/internal/domain/model"
)

// BrowserAutomation opens persistent browsing sessions backed by a profile
// directory. Implementations must be safe for use from multiple goroutines.
type BrowserAutomation interface {
	OpenPersistentSession(ctx context.Context, storagePath, startURL string) (BrowserSession, error)
}

// BrowserSession is a single persistent browsing session.
type BrowserSession interface {
	Cookies(ctx context.Context) ([]model.Cookie, error)
	InjectCookie(ctx context.Context, cookie model.Cookie) error
	Navigate(ctx context.Context, url string) error

	// WaitForURL blocks until the session navigates to a URL matching the
	// glob pattern, or returns ErrLoginTimeout after timeout.
	WaitForURL(ctx context.Context, pattern string, timeout time.Duration) error

	Close() error
}
