package rbac

import (
	"errors"
	"strings"
)

// Role represents a named capability tag granted to a principal.
type Role string

const (
	RoleCitizen  Role = "CITIZEN"
	RoleOfficer  Role = "OFFICER"
	RoleDeptHead Role = "DEPT_HEAD"
	RoleAdmin    Role = "ADMIN"
)

// ErrEmptyRequirement is returned when a resource declares no required role.
var ErrEmptyRequirement = errors.New("role requirement must name at least one role")

// Canonical is the single normalization applied to role names before any
// comparison. Role names are case-insensitive.
func Canonical(name string) Role {
	return Role(strings.ToUpper(strings.TrimSpace(name)))
}

// Roles canonicalizes a list of raw role names, dropping blanks.
func Roles(names []string) []Role {
	out := make([]Role, 0, len(names))
	for _, name := range names {
		if role := Canonical(name); role != "" {
			out = append(out, role)
		}
	}
	return out
}

// Fold merges extra role names into existing ones. Output is canonical,
// de-duplicated and keeps first-seen order, so folding the same role twice
// is a no-op.
func Fold(existing []string, extra ...string) []string {
	seen := make(map[Role]struct{}, len(existing)+len(extra))
	out := make([]string, 0, len(existing)+len(extra))
	for _, name := range append(append([]string{}, existing...), extra...) {
		role := Canonical(name)
		if role == "" {
			continue
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, string(role))
	}
	return out
}

// Requirement is the hold-any-of role set a resource group declares.
// The zero value is invalid; build one with NewRequirement.
type Requirement struct {
	roles []Role
}

// NewRequirement builds a requirement satisfied by any of the given roles.
func NewRequirement(roles ...Role) (Requirement, error) {
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, string(role))
	}
	folded := Fold(nil, names...)
	if len(folded) == 0 {
		return Requirement{}, ErrEmptyRequirement
	}
	return Requirement{roles: Roles(folded)}, nil
}

// MustRequire is NewRequirement for static route declarations.
func MustRequire(roles ...Role) Requirement {
	req, err := NewRequirement(roles...)
	if err != nil {
		panic(err)
	}
	return req
}

// Roles returns the canonical roles of the requirement.
func (r Requirement) Roles() []Role {
	return append([]Role(nil), r.roles...)
}

// IsZero reports whether the requirement names no role at all.
func (r Requirement) IsZero() bool {
	return len(r.roles) == 0
}

// HasRole reports whether any held role satisfies the requirement.
func HasRole(held []Role, req Requirement) bool {
	if len(held) == 0 || req.IsZero() {
		return false
	}
	roleSet := make(map[Role]struct{}, len(held))
	for _, role := range held {
		roleSet[Canonical(string(role))] = struct{}{}
	}
	for _, required := range req.roles {
		if _, ok := roleSet[required]; ok {
			return true
		}
	}
	return false
}

// Contains reports whether names include role, ignoring case.
func Contains(names []string, role Role) bool {
	want := Canonical(string(role))
	for _, name := range names {
		if Canonical(name) == want {
			return true
		}
	}
	return false
}

// LandingPath picks the area a freshly authenticated principal is sent to.
func LandingPath(names []string) string {
	switch {
	case Contains(names, RoleAdmin):
		return "/admin"
	case Contains(names, RoleOfficer):
		return "/officer"
	case Contains(names, RoleDeptHead):
		return "/depthead"
	case Contains(names, RoleCitizen):
		return "/citizen"
	default:
		return "/"
	}
}
