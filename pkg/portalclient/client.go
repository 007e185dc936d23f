// Package portalclient is a Go client for the clinic portal API. It carries
// the session in an HTTP-only cookie jar and transparently refreshes an
// expired access token: a request that comes back 401 triggers one refresh
// call and one replay, with concurrent refreshes collapsed into a single
// flight.
package portalclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Client talks to one portal instance. Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger

	refreshGroup singleflight.Group

	// onSessionInvalid is called when the session is beyond recovery (the
	// refresh endpoint itself failed for a reason other than 401 or 429).
	// Browser frontends redirect to the login page here.
	onSessionInvalid func()
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. A cookie jar is added
// when the given client has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the client logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithSessionInvalidHandler registers the callback invoked when the session
// cannot be recovered by a refresh.
func WithSessionInvalidHandler(fn func()) Option {
	return func(c *Client) { c.onSessionInvalid = fn }
}

// New creates a portal client for the given base URL, e.g.
// "https://portal.example.com/api/v1".
func New(baseURL string, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if c.httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("portalclient: creating cookie jar: %w", err)
		}
		c.httpClient.Jar = jar
	}
	return c, nil
}

// envelope is the standard response wrapper used by every portal endpoint.
type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// authPaths never participate in the refresh-and-replay dance: a 401 from
// login or register is a real answer, and retrying refresh from inside
// refresh would loop.
var authPaths = []string{"/auth/login", "/auth/register", "/auth/refresh"}

func isAuthPath(path string) bool {
	for _, p := range authPaths {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// do sends one API request, refreshing the session and replaying once on 401.
// out, when non-nil, receives the unmarshalled data field of the envelope.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	status, respBody, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}

	if status != http.StatusUnauthorized || isAuthPath(path) {
		return decode(status, respBody, out)
	}

	c.log.Debug().Str("path", path).Msg("got 401, attempting session refresh")
	if err := c.refreshSession(ctx); err != nil {
		return err
	}

	// Exactly one replay. A second 401 means the new token was rejected
	// too; surface that instead of looping.
	status, respBody, err = c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		return ErrSessionExpired
	}
	return decode(status, respBody, out)
}

// refreshSession calls the refresh endpoint, collapsing concurrent callers
// into a single request. Every waiter gets the outcome of that one flight.
func (c *Client) refreshSession(ctx context.Context) error {
	_, err, _ := c.refreshGroup.Do("refresh", func() (interface{}, error) {
		// The flight's outcome is shared with every waiter, so it must not
		// die with the context of whichever caller happened to start it.
		status, body, err := c.send(context.WithoutCancel(ctx), http.MethodPost, "/auth/refresh", nil)
		if err != nil {
			return nil, err
		}
		switch {
		case status < 300:
			c.log.Debug().Msg("session refreshed")
			return nil, nil
		case status == http.StatusUnauthorized:
			return nil, ErrSessionExpired
		case status == http.StatusTooManyRequests:
			return nil, &APIError{StatusCode: status, Message: extractErrorMessage(body, "refresh rate limited")}
		default:
			// The session is in an unrecoverable state; hand control to
			// the host application.
			if c.onSessionInvalid != nil {
				c.onSessionInvalid()
			}
			return nil, &APIError{StatusCode: status, Message: extractErrorMessage(body, "session refresh failed")}
		}
	})
	return err
}

func (c *Client) send(ctx context.Context, method, path string, body interface{}) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("portalclient: encoding request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("portalclient: building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("portalclient: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("portalclient: reading response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

func decode(status int, body []byte, out interface{}) error {
	if status >= 400 {
		return &APIError{
			StatusCode: status,
			Message:    extractErrorMessage(body, http.StatusText(status)),
		}
	}
	if out == nil {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("portalclient: decoding response: %w", err)
	}
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("portalclient: decoding response data: %w", err)
	}
	return nil
}
