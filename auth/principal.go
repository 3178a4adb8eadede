package auth

import (
	"context"
	"net/http"

	"github.com/eportal/backend/rbac"
)

// Principal is the authenticated identity held in session state. Roles are
// stored in their canonical uppercase form.
type Principal struct {
	ID             int64    `json:"id"`
	Email          string   `json:"email"`
	FullName       string   `json:"full_name"`
	Roles          []string `json:"roles"`
	DepartmentID   *int64   `json:"department_id,omitempty"`
	DepartmentName *string  `json:"department_name,omitempty"`
	OfficerID      *int64   `json:"officer_id,omitempty"`
	Phone          *string  `json:"phone,omitempty"`
	DateOfBirth    *string  `json:"date_of_birth,omitempty"`
}

// HasRole reports whether the principal holds role, ignoring case.
func (p *Principal) HasRole(role rbac.Role) bool {
	if p == nil {
		return false
	}
	return rbac.Contains(p.Roles, role)
}

// Clone returns a deep copy so handlers never alias session-owned state.
func (p Principal) Clone() Principal {
	out := p
	out.Roles = append([]string(nil), p.Roles...)
	if p.DepartmentID != nil {
		v := *p.DepartmentID
		out.DepartmentID = &v
	}
	if p.DepartmentName != nil {
		v := *p.DepartmentName
		out.DepartmentName = &v
	}
	if p.OfficerID != nil {
		v := *p.OfficerID
		out.OfficerID = &v
	}
	if p.Phone != nil {
		v := *p.Phone
		out.Phone = &v
	}
	if p.DateOfBirth != nil {
		v := *p.DateOfBirth
		out.DateOfBirth = &v
	}
	return out
}

type contextKey string

const (
	principalKey  contextKey = "authPrincipal"
	sessionKeyKey contextKey = "authSessionKey"
)

// WithPrincipal returns a context carrying a copy of p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	clone := p.Clone()
	return context.WithValue(ctx, principalKey, &clone)
}

// FromContext retrieves the authenticated principal, if any.
func FromContext(ctx context.Context) *Principal {
	if ctx == nil {
		return nil
	}
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}

// ResolveRoles adapts the session principal to the rbac enforcer.
func ResolveRoles(r *http.Request) ([]rbac.Role, bool) {
	p := FromContext(r.Context())
	if p == nil {
		return nil, false
	}
	return rbac.Roles(p.Roles), true
}

func withSessionKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, sessionKeyKey, key)
}

func sessionKeyFromContext(ctx context.Context) string {
	key, _ := ctx.Value(sessionKeyKey).(string)
	return key
}
