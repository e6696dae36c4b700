// Package auth implements the client side of the OpenID-Connect session:
// direct-grant login against the identity provider, token refresh with a
// time-to-expiry margin, logout, and access to the parsed identity claims.
package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
)

// Well-known realm roles.
const (
	RoleAdmin  = "ADMIN"
	RoleClient = "CLIENT"
)

// ErrNotAuthenticated is returned by token operations when no session exists.
var ErrNotAuthenticated = errors.New("not authenticated")

// ProviderError carries the OAuth error body returned by the identity
// provider on failed token requests.
type ProviderError struct {
	Status      int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *ProviderError) Error() string {
	if e.Description != "" {
		return "identity provider: " + e.Description
	}
	if e.Code != "" {
		return "identity provider: " + e.Code
	}
	return "identity provider: request failed"
}

// Identity holds the user attributes parsed from the access token.
type Identity struct {
	ID       string
	Username string
	Email    string
	Name     string
	Roles    []string
}

// HasRole reports whether the identity carries the given realm role.
func (id *Identity) HasRole(role string) bool {
	if id == nil {
		return false
	}
	for _, r := range id.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// tokenClaims is the subset of access-token claims the client reads. The
// token is decoded without signature verification: the provider is trusted
// over TLS and the claims only gate UI, never server-side authorization.
type tokenClaims struct {
	jwt.RegisteredClaims

	PreferredUsername string      `json:"preferred_username"`
	Email             string      `json:"email"`
	Name              string      `json:"name"`
	RealmAccess       realmAccess `json:"realm_access"`
}

type realmAccess struct {
	Roles []string `json:"roles"`
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int    `json:"expires_in"`
	RefreshExpiresIn int    `json:"refresh_expires_in"`
	TokenType        string `json:"token_type"`
}

// Config locates the identity provider realm.
type Config struct {
	// IssuerURL is the provider base URL, e.g. http://localhost:9090.
	IssuerURL string
	// Realm is the provider realm name.
	Realm string
	// ClientID is the OAuth client identifier of this application.
	ClientID string
}

func (c Config) realmURL() string {
	return strings.TrimSuffix(c.IssuerURL, "/") + "/realms/" + c.Realm
}

// Session is the local session state backed by the identity provider. It is
// safe for concurrent use; the API client reads tokens from it and triggers
// refreshes, views read the identity.
type Session struct {
	cfg  Config
	http *http.Client
	lg   *zap.Logger
	now  func() time.Time

	// onLoginNeeded runs when a refresh fails for an established session,
	// i.e. when the only way forward is a fresh login.
	onLoginNeeded func()

	mu           sync.Mutex
	initialized  bool
	accessToken  string
	refreshToken string
	expiresAt    time.Time
	identity     *Identity
}

// SessionOption customizes Session construction.
type SessionOption func(*Session)

// WithHTTPClient overrides the HTTP client used for provider requests.
func WithHTTPClient(hc *http.Client) SessionOption {
	return func(s *Session) {
		if hc != nil {
			s.http = hc
		}
	}
}

// WithLogger attaches a logger. The default discards everything.
func WithLogger(lg *zap.Logger) SessionOption {
	return func(s *Session) {
		if lg != nil {
			s.lg = lg
		}
	}
}

// WithClock overrides the time source. Tests use it to drive expiry.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSession creates an unauthenticated Session for the given provider realm.
func NewSession(cfg Config, opts ...SessionOption) *Session {
	s := &Session{
		cfg:  cfg,
		http: &http.Client{Timeout: 10 * time.Second},
		lg:   zap.NewNop(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetLoginHandler registers the callback invoked when an established session
// can no longer be refreshed. The UI uses it to route back to the login view.
func (s *Session) SetLoginHandler(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLoginNeeded = fn
}

// Initialize performs the provider handshake: it verifies the realm is
// reachable. The route guard renders a loading affordance until this has
// completed.
func (s *Session) Initialize(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.realmURL(), nil)
	if err != nil {
		return errors.Wrap(err, "create realm request")
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "reach identity provider")
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &ProviderError{Status: resp.StatusCode, Code: "realm_unavailable"}
	}

	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()
	return nil
}

// Initialized reports whether the provider handshake has completed.
func (s *Session) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// Login authenticates with the resource-owner password grant and caches the
// issued tokens.
func (s *Session) Login(ctx context.Context, username, password string) error {
	form := url.Values{
		"grant_type": {"password"},
		"client_id":  {s.cfg.ClientID},
		"username":   {username},
		"password":   {password},
	}
	tok, err := s.tokenRequest(ctx, form)
	if err != nil {
		return err
	}
	if err := s.adopt(tok); err != nil {
		return err
	}
	s.lg.Info("Logged in", zap.String("username", username))
	return nil
}

// UpdateToken refreshes the access token when it expires within margin. It
// reports whether a refresh actually happened; a token with enough lifetime
// left is kept as is. A failed refresh clears the session.
func (s *Session) UpdateToken(ctx context.Context, margin time.Duration) (bool, error) {
	s.mu.Lock()
	if s.refreshToken == "" {
		s.mu.Unlock()
		return false, ErrNotAuthenticated
	}
	if s.expiresAt.After(s.now().Add(margin)) {
		s.mu.Unlock()
		return false, nil
	}
	refresh := s.refreshToken
	s.mu.Unlock()

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {s.cfg.ClientID},
		"refresh_token": {refresh},
	}
	tok, err := s.tokenRequest(ctx, form)
	if err != nil {
		s.clear()
		return false, errors.Wrap(err, "refresh token")
	}
	if err := s.adopt(tok); err != nil {
		s.clear()
		return false, err
	}
	s.lg.Debug("Access token refreshed")
	return true, nil
}

// Logout invalidates the refresh token at the provider and clears the local
// session. Provider errors are logged but not returned: the local session is
// gone either way.
func (s *Session) Logout(ctx context.Context) {
	s.mu.Lock()
	refresh := s.refreshToken
	s.mu.Unlock()
	s.clear()

	if refresh == "" {
		return
	}
	form := url.Values{
		"client_id":     {s.cfg.ClientID},
		"refresh_token": {refresh},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.cfg.realmURL()+"/protocol/openid-connect/logout",
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := s.http.Do(req)
	if err != nil {
		s.lg.Warn("Provider logout failed", zap.Error(err))
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

// Token returns the current access token, or "" when no session exists.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken
}

// Authenticated reports whether a session is currently established.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken != ""
}

// Identity returns the parsed identity, or nil when unauthenticated.
func (s *Session) Identity() *Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// HasRealmRole reports whether the current identity carries the role.
func (s *Session) HasRealmRole(role string) bool {
	return s.Identity().HasRole(role)
}

// RequestLogin invokes the registered login handler. The API client calls it
// when refresh-and-replay is no longer possible.
func (s *Session) RequestLogin() {
	s.mu.Lock()
	fn := s.onLoginNeeded
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (s *Session) tokenRequest(ctx context.Context, form url.Values) (*tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.cfg.realmURL()+"/protocol/openid-connect/token",
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "token request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "read token response")
	}
	if resp.StatusCode != http.StatusOK {
		provErr := &ProviderError{Status: resp.StatusCode}
		_ = json.Unmarshal(data, provErr)
		return nil, provErr
	}

	var tok tokenResponse
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, errors.Wrap(err, "decode token response")
	}
	if tok.AccessToken == "" {
		return nil, errors.New("token response missing access_token")
	}
	return &tok, nil
}

// adopt installs a token response as the current session state.
func (s *Session) adopt(tok *tokenResponse) error {
	identity, err := ParseIdentity(tok.AccessToken)
	if err != nil {
		return errors.Wrap(err, "parse access token")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = tok.AccessToken
	s.refreshToken = tok.RefreshToken
	s.expiresAt = s.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	s.identity = identity
	return nil
}

func (s *Session) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = ""
	s.refreshToken = ""
	s.expiresAt = time.Time{}
	s.identity = nil
}

// ParseIdentity decodes the identity claims from an access token without
// verifying its signature.
func ParseIdentity(accessToken string) (*Identity, error) {
	var claims tokenClaims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(accessToken, &claims); err != nil {
		return nil, err
	}
	return &Identity{
		ID:       claims.Subject,
		Username: claims.PreferredUsername,
		Email:    claims.Email,
		Name:     claims.Name,
		Roles:    claims.RealmAccess.Roles,
	}, nil
}
