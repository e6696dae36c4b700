package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// DefaultRefreshMargin is the time-to-expiry window within which an access
// token is treated as already expired when recovering from a 401.
const DefaultRefreshMargin = 30 * time.Second

// TokenSource supplies bearer tokens and the refresh flow for the client.
// It is the only collaborator allowed to mutate ambient session state.
type TokenSource interface {
	// Token returns the current access token, or "" when no session exists.
	Token() string
	// Authenticated reports whether a session is currently established.
	Authenticated() bool
	// UpdateToken refreshes the access token if it expires within margin.
	// It reports whether a refresh actually happened.
	UpdateToken(ctx context.Context, margin time.Duration) (bool, error)
	// RequestLogin starts the provider's login flow. The client invokes it
	// when a refresh attempt fails for an authenticated session.
	RequestLogin()
}

// Client is an HTTP client for the storefront API. It attaches the current
// bearer token to every request and transparently recovers from a single
// expired-token failure: on a 401 for an authenticated session it refreshes
// the token once and replays the request once. All other failures are
// surfaced unmodified as *APIError values.
type Client struct {
	base          *url.URL
	http          *http.Client
	session       TokenSource
	refreshMargin time.Duration
	lg            *zap.Logger
}

// Option customizes Client construction.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRefreshMargin overrides the token time-to-expiry margin used when
// recovering from a 401.
func WithRefreshMargin(margin time.Duration) Option {
	return func(c *Client) {
		if margin > 0 {
			c.refreshMargin = margin
		}
	}
}

// WithLogger attaches a logger. The default discards everything.
func WithLogger(lg *zap.Logger) Option {
	return func(c *Client) {
		if lg != nil {
			c.lg = lg
		}
	}
}

// NewClient creates a Client for the API at baseURL.
func NewClient(baseURL string, session TokenSource, opts ...Option) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}

	c := &Client{
		base: base,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   30 * time.Second,
		},
		session:       session,
		refreshMargin: DefaultRefreshMargin,
		lg:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get issues a GET request and decodes the response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.call(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST request with a JSON body and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	return c.call(ctx, http.MethodPost, path, in, out)
}

// Put issues a PUT request with a JSON body and decodes the response into out.
func (c *Client) Put(ctx context.Context, path string, in, out any) error {
	return c.call(ctx, http.MethodPut, path, in, out)
}

// Delete issues a DELETE request. The response body is discarded.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.call(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
	}

	resp, err := c.send(ctx, method, path, body, c.session.Token())
	if err != nil {
		return err
	}

	// A 401 on an authenticated session means the access token expired
	// between refreshes. Refresh once and replay once; a second 401 is
	// surfaced to the caller.
	if resp.StatusCode == http.StatusUnauthorized && c.session.Authenticated() {
		origErr := c.decodeError(resp)

		refreshed, refreshErr := c.session.UpdateToken(ctx, c.refreshMargin)
		if refreshErr != nil {
			c.lg.Warn("Token refresh failed, starting login flow", zap.Error(refreshErr))
			c.session.RequestLogin()
			return origErr
		}
		if !refreshed {
			return origErr
		}

		c.lg.Debug("Token refreshed, replaying request",
			zap.String("method", method),
			zap.String("path", path),
		)
		resp, err = c.send(ctx, method, path, body, c.session.Token())
		if err != nil {
			return err
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.decodeError(resp)
	}

	if out == nil {
		drain(resp)
		return nil
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body []byte, token string) (*http.Response, error) {
	u := c.base.JoinPath(path)

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	// Requests without a cached token go out unauthenticated.
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}
	return resp, nil
}

// decodeError reads and closes the response body, returning the normalized
// *APIError. A body that is not the standard error shape still yields an
// APIError with the status code set.
func (c *Client) decodeError(resp *http.Response) error {
	defer resp.Body.Close()

	apiErr := &APIError{Status: resp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err == nil && len(data) > 0 && strings.Contains(resp.Header.Get("Content-Type"), "json") {
		// Best effort: keep the bare status error when the body does not parse.
		_ = json.Unmarshal(data, apiErr)
		apiErr.Status = resp.StatusCode
	}
	return apiErr
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	_ = resp.Body.Close()
}
