package auth

// GuardState is the outcome of evaluating access to a guarded view.
type GuardState int

const (
	// GuardInitializing means the provider handshake has not finished yet;
	// the caller renders a loading affordance and nothing else.
	GuardInitializing GuardState = iota
	// GuardUnauthenticated means no session exists; the caller starts the
	// login flow and renders nothing further.
	GuardUnauthenticated
	// GuardForbidden means the session lacks a required role. Terminal: the
	// caller renders an access-denied view, no retry.
	GuardForbidden
	// GuardAuthorized means the guarded content may render.
	GuardAuthorized
)

func (s GuardState) String() string {
	switch s {
	case GuardInitializing:
		return "initializing"
	case GuardUnauthenticated:
		return "unauthenticated"
	case GuardForbidden:
		return "forbidden"
	case GuardAuthorized:
		return "authorized"
	default:
		return "unknown"
	}
}

// SessionState is the read-only session view the guard evaluates against.
type SessionState interface {
	Initialized() bool
	Authenticated() bool
	HasRealmRole(role string) bool
}

// Evaluate decides whether a view guarded by the given roles may render.
// An empty role list only requires authentication. The result is computed
// fresh on every call; guards hold no state between navigations.
func Evaluate(sess SessionState, roles ...string) GuardState {
	if !sess.Initialized() {
		return GuardInitializing
	}
	if !sess.Authenticated() {
		return GuardUnauthenticated
	}
	for _, role := range roles {
		if sess.HasRealmRole(role) {
			return GuardAuthorized
		}
	}
	if len(roles) == 0 {
		return GuardAuthorized
	}
	return GuardForbidden
}
