package stubserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/shopfront/shopfront/internal/auth"
)

// stubUser is a fixed identity served by the identity stub.
type stubUser struct {
	ID       string
	Username string
	Password string
	Email    string
	Name     string
	Roles    []string
}

// defaultUsers mirrors the demo realm: one admin, one regular customer.
var defaultUsers = []stubUser{
	{
		ID:       "11111111-1111-1111-1111-111111111111",
		Username: "admin",
		Password: "admin",
		Email:    "admin@example.com",
		Name:     "Alice Admin",
		Roles:    []string{auth.RoleAdmin, auth.RoleClient},
	},
	{
		ID:       "22222222-2222-2222-2222-222222222222",
		Username: "client",
		Password: "client",
		Email:    "client@example.com",
		Name:     "Charlie Client",
		Roles:    []string{auth.RoleClient},
	},
}

// Identity is a minimal OpenID-Connect-compatible token issuer: password and
// refresh_token grants, HS256-signed tokens carrying realm roles.
type Identity struct {
	realm      string
	signingKey []byte
	tokenTTL   time.Duration
	refreshTTL time.Duration
	users      map[string]stubUser
	now        func() time.Time
}

// NewIdentity creates the identity stub with the default demo users.
func NewIdentity(cfg *Config) *Identity {
	users := make(map[string]stubUser, len(defaultUsers))
	for _, u := range defaultUsers {
		users[u.Username] = u
	}
	return &Identity{
		realm:      cfg.Realm,
		signingKey: []byte(cfg.SigningKey),
		tokenTTL:   cfg.TokenTTL,
		refreshTTL: cfg.RefreshTTL,
		users:      users,
		now:        time.Now,
	}
}

// SetClock overrides the token issuance time source.
func (i *Identity) SetClock(now func() time.Time) {
	if now != nil {
		i.now = now
	}
}

type accessClaims struct {
	jwt.RegisteredClaims

	Typ               string      `json:"typ"`
	PreferredUsername string      `json:"preferred_username"`
	Email             string      `json:"email,omitempty"`
	Name              string      `json:"name,omitempty"`
	RealmAccess       realmAccess `json:"realm_access"`
}

type realmAccess struct {
	Roles []string `json:"roles"`
}

// Handler routes the identity endpoints under /realms/{realm}/.
func (i *Identity) Handler() http.Handler {
	mux := http.NewServeMux()
	prefix := "/realms/" + i.realm
	mux.HandleFunc("GET "+prefix, i.handleRealm)
	mux.HandleFunc("POST "+prefix+"/protocol/openid-connect/token", i.handleToken)
	mux.HandleFunc("POST "+prefix+"/protocol/openid-connect/logout", i.handleLogout)
	return mux
}

func (i *Identity) handleRealm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"realm":           i.realm,
		"token-service":   "/realms/" + i.realm + "/protocol/openid-connect",
		"public_key_mode": "hmac",
		"stub":            "true",
	})
}

func (i *Identity) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		oauthError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}

	switch r.PostFormValue("grant_type") {
	case "password":
		user, ok := i.users[r.PostFormValue("username")]
		if !ok || user.Password != r.PostFormValue("password") {
			oauthError(w, http.StatusUnauthorized, "invalid_grant", "Invalid user credentials")
			return
		}
		i.issueTokens(w, user)

	case "refresh_token":
		claims, err := i.parseToken(r.PostFormValue("refresh_token"), "Refresh")
		if err != nil {
			oauthError(w, http.StatusBadRequest, "invalid_grant", "Invalid refresh token")
			return
		}
		user, ok := i.users[claims.PreferredUsername]
		if !ok {
			oauthError(w, http.StatusBadRequest, "invalid_grant", "Unknown session")
			return
		}
		i.issueTokens(w, user)

	default:
		oauthError(w, http.StatusBadRequest, "unsupported_grant_type", "unsupported grant type")
	}
}

func (i *Identity) handleLogout(w http.ResponseWriter, r *http.Request) {
	// Stateless stub: nothing to revoke.
	w.WriteHeader(http.StatusNoContent)
}

func (i *Identity) issueTokens(w http.ResponseWriter, user stubUser) {
	now := i.now()

	access, err := i.sign(user, "Bearer", now, i.tokenTTL)
	if err != nil {
		oauthError(w, http.StatusInternalServerError, "server_error", "token signing failed")
		return
	}
	refresh, err := i.sign(user, "Refresh", now, i.refreshTTL)
	if err != nil {
		oauthError(w, http.StatusInternalServerError, "server_error", "token signing failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":       access,
		"refresh_token":      refresh,
		"expires_in":         int(i.tokenTTL.Seconds()),
		"refresh_expires_in": int(i.refreshTTL.Seconds()),
		"token_type":         "Bearer",
	})
}

func (i *Identity) sign(user stubUser, typ string, now time.Time, ttl time.Duration) (string, error) {
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    "stub-server/" + i.realm,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.New().String(),
		},
		Typ:               typ,
		PreferredUsername: user.Username,
		Email:             user.Email,
		Name:              user.Name,
		RealmAccess:       realmAccess{Roles: user.Roles},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.signingKey)
}

// parseToken validates signature, expiry, and the expected token type.
func (i *Identity) parseToken(raw, typ string) (*accessClaims, error) {
	var claims accessClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return i.signingKey, nil
	})
	if err != nil || !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}
	if claims.Typ != typ {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return &claims, nil
}

func oauthError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, map[string]string{
		"error":             code,
		"error_description": description,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
