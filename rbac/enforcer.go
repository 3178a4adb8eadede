package rbac

import (
	"net/http"

	"github.com/eportal/backend/httpx"
)

// Decision is the outcome of evaluating a request against a guard.
type Decision int

const (
	Authorized Decision = iota
	Unauthenticated
	Forbidden
)

func (d Decision) String() string {
	switch d {
	case Authorized:
		return "authorized"
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// RoleResolver extracts the roles of the current request's principal. The
// boolean is false when the request carries no principal at all.
type RoleResolver func(r *http.Request) ([]Role, bool)

// Enforcer coordinates authentication and role gates for HTTP handlers.
type Enforcer struct {
	resolve   RoleResolver
	loginPath string
}

// NewEnforcer constructs an enforcer. Unauthenticated requests are redirected
// to loginPath.
func NewEnforcer(resolver RoleResolver, loginPath string) *Enforcer {
	if loginPath == "" {
		loginPath = "/auth/login"
	}
	return &Enforcer{resolve: resolver, loginPath: loginPath}
}

// Decide evaluates the request. A nil requirement checks authentication only.
// The role check never runs for a request without a principal.
func (e *Enforcer) Decide(r *http.Request, req *Requirement) Decision {
	roles, ok := e.resolve(r)
	if !ok {
		return Unauthenticated
	}
	if req == nil {
		return Authorized
	}
	if HasRole(roles, *req) {
		return Authorized
	}
	return Forbidden
}

// Authenticate rejects requests that carry no principal.
func (e *Enforcer) Authenticate() func(http.Handler) http.Handler {
	return e.gate(nil)
}

// Require admits principals holding any role of req. It checks
// authentication first, so gates may be stacked in any number. An empty
// requirement is a configuration error and panics at mount time.
func (e *Enforcer) Require(req Requirement) func(http.Handler) http.Handler {
	if req.IsZero() {
		panic(ErrEmptyRequirement)
	}
	return e.gate(&req)
}

func (e *Enforcer) gate(req *Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch e.Decide(r, req) {
			case Authorized:
				next.ServeHTTP(w, r)
			case Unauthenticated:
				http.Redirect(w, r, e.loginPath, http.StatusFound)
			default:
				httpx.Error(w, http.StatusForbidden, "Forbidden: insufficient role")
			}
		})
	}
}
