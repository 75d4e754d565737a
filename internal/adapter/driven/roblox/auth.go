package roblox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cenkalti/backoff/v4"

	"github.com/ericfisherdev/ramn/internal/domain/port/driven"
)

// SecurityCookie is the name of the platform's long-lived session cookie.
const SecurityCookie = ".ROBLOSECURITY"

const (
	headerCSRFToken  = "X-Csrf-Token"
	headerAuthTicket = "Rbx-Authentication-Ticket"
)

// AuthTicket exchanges secret for a one-time authentication ticket. The
// first POST is expected to be rejected with an anti-forgery token in the
// response headers; the second POST repeats the request with that token and
// receives the ticket. A first response without a token ends the exchange
// with driven.ErrMissingCSRFToken.
func (c *Client) AuthTicket(ctx context.Context, secret, placeID string) (string, error) {
	first, err := c.postTicket(ctx, secret, placeID, "")
	if err != nil {
		return "", err
	}
	token := first.Get(headerCSRFToken)
	if token == "" {
		return "", fmt.Errorf("request auth ticket for place %s: %w", placeID, driven.ErrMissingCSRFToken)
	}

	second, err := c.postTicket(ctx, secret, placeID, token)
	if err != nil {
		return "", err
	}
	ticket := second.Get(headerAuthTicket)
	if ticket == "" {
		return "", fmt.Errorf("request auth ticket for place %s: %w", placeID, driven.ErrMissingTicket)
	}

	return ticket, nil
}

// postTicket sends one ticket request and returns the response headers. The
// status code is not checked; the protocol is driven by headers alone.
func (c *Client) postTicket(ctx context.Context, secret, placeID, csrfToken string) (http.Header, error) {
	url := c.endpoints.Auth + "/v1/authentication-ticket/"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader("{}"))
	if err != nil {
		return nil, fmt.Errorf("build ticket request: %w", err)
	}
	req.AddCookie(&http.Cookie{Name: SecurityCookie, Value: secret})
	req.Header.Set("Referer", c.endpoints.Web+"/games/"+placeID)
	req.Header.Set("Content-Type", "application/json")
	if csrfToken != "" {
		req.Header.Set(headerCSRFToken, csrfToken)
	}

	resp, err := c.auth.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post ticket request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.Header, nil
}

// ResolveUsername returns the name of the user that owns secret. Transport
// failures and 5xx responses are retried with exponential backoff, up to
// three attempts; any other failure returns driven.ErrUsernameUnresolved.
func (c *Client) ResolveUsername(ctx context.Context, secret string) (string, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.backoff
	retry := backoff.WithContext(backoff.WithMaxRetries(policy, 2), ctx)

	var name string
	op := func() error {
		n, err := c.fetchUsername(ctx, secret)
		if err != nil {
			return err
		}
		name = n
		return nil
	}

	if err := backoff.Retry(op, retry); err != nil {
		return "", fmt.Errorf("%w: %w", driven.ErrUsernameUnresolved, err)
	}
	return name, nil
}

var errEmptyUsername = errors.New("response carried no name")

func (c *Client) fetchUsername(ctx context.Context, secret string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoints.Users+"/v1/users/authenticated", nil)
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.AddCookie(&http.Cookie{Name: SecurityCookie, Value: secret})
	req.Header.Set("Accept", "application/json")

	resp, err := c.auth.Do(req)
	if err != nil {
		return "", fmt.Errorf("get authenticated user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return "", fmt.Errorf("get authenticated user: status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", backoff.Permanent(fmt.Errorf("get authenticated user: status %d", resp.StatusCode))
	}

	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", backoff.Permanent(fmt.Errorf("decode authenticated user: %w", err))
	}
	if body.Name == "" {
		return "", backoff.Permanent(errEmptyUsername)
	}
	return body.Name, nil
}
