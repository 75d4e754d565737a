// Package roblox implements the platform ports against the Roblox web APIs:
// the authentication-ticket exchange, the launch descriptor, username
// resolution, and the game metadata lookups used for enrichment.
package roblox

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/gregjones/httpcache"
	"golang.org/x/time/rate"

	"github.com/ericfisherdev/ramn/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.PlatformClient  = (*Client)(nil)
	_ driven.ThumbnailSource = (*Client)(nil)
)

// userAgent is sent on metadata requests; the public game endpoints reject
// or degrade responses for obviously non-browser clients.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Endpoints holds the base URL of every platform host the client talks to.
type Endpoints struct {
	Auth       string
	Users      string
	Games      string
	Thumbnails string
	Web        string
}

// DefaultEndpoints returns the production hosts.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Auth:       "https://auth.roblox.com",
		Users:      "https://users.roblox.com",
		Games:      "https://games.roblox.com",
		Thumbnails: "https://thumbnails.roblox.com",
		Web:        "https://www.roblox.com",
	}
}

// Client talks to the platform. Authenticated calls go through an uncached
// transport; metadata calls share an in-memory HTTP cache and a token-bucket
// limiter.
type Client struct {
	auth      *http.Client
	metadata  *http.Client
	limiter   *rate.Limiter
	endpoints Endpoints
	backoff   time.Duration // Initial interval between username lookup attempts.

	now       func() time.Time
	trackerID func() int
}

// NewClient creates a Client for the production endpoints with the
// following transport stack for metadata requests:
//  1. httpcache (in-memory, honours Cache-Control and ETag)
//  2. rate limiter (metadataRPS requests per second, burst of the same size)
func NewClient(metadataRPS float64) *Client {
	limit := rate.Limit(metadataRPS)
	burst := int(metadataRPS)
	if metadataRPS <= 0 {
		limit, burst = rate.Inf, 0
	}
	if burst < 1 {
		burst = 1
	}

	return &Client{
		auth: &http.Client{Timeout: 15 * time.Second},
		metadata: &http.Client{
			Timeout:   10 * time.Second,
			Transport: httpcache.NewMemoryCacheTransport(),
		},
		limiter:   rate.NewLimiter(limit, burst),
		endpoints: DefaultEndpoints(),
		backoff:   500 * time.Millisecond,
		now:       time.Now,
		trackerID: randomTrackerID,
	}
}

// NewClientWithHTTPClient creates a Client that sends every request through
// httpClient to baseURL. This constructor is intended for testing, allowing
// injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) *Client {
	base := strings.TrimRight(baseURL, "/")
	return &Client{
		auth:     httpClient,
		metadata: httpClient,
		limiter:  rate.NewLimiter(rate.Inf, 0),
		endpoints: Endpoints{
			Auth:       base,
			Users:      base,
			Games:      base,
			Thumbnails: base,
			Web:        base,
		},
		backoff:   time.Millisecond,
		now:       time.Now,
		trackerID: randomTrackerID,
	}
}

// LaunchURI builds the launch descriptor for ticket and placeID using the
// current time and a fresh browser tracker id.
func (c *Client) LaunchURI(ticket, placeID string) string {
	return BuildLaunchURI(ticket, placeID, c.now(), c.trackerID())
}

// getMetadata issues a rate-limited GET with browser-like headers.
func (c *Client) getMetadata(ctx context.Context, url, accept string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", accept)

	resp, err := c.metadata.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: unexpected status %d", url, resp.StatusCode)
	}
	return resp, nil
}

// randomTrackerID returns a six-digit browser tracker id.
func randomTrackerID() int {
	return 100000 + rand.IntN(900000)
}
