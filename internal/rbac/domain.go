package rbac

import (
	"fmt"
	"sort"
	"strings"

	"github.com/clubroster/roster/internal/shared"
)

// Role represents a high-level permission grouping assigned to a user.
type Role string

// The closed set of roles. Users hold exactly one.
const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleViewer  Role = "viewer"
)

// DefaultRole is assigned when registration does not name one.
const DefaultRole = RoleViewer

// Roles lists every valid role.
func Roles() []Role {
	return []Role{RoleAdmin, RoleManager, RoleViewer}
}

// Valid reports whether r belongs to the closed role set.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleViewer:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}

// ParseRole validates raw against the role set. Empty input yields DefaultRole.
func ParseRole(raw string) (Role, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultRole, nil
	}
	role := Role(raw)
	if !role.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", shared.ErrValidation, raw)
	}
	return role, nil
}

// RoleSet is an immutable set of roles permitted to perform an operation.
type RoleSet struct {
	members map[Role]struct{}
}

// NewRoleSet builds a RoleSet. It panics on a role outside the closed set, so
// misconfigured routes fail at startup rather than silently denying.
func NewRoleSet(roles ...Role) RoleSet {
	members := make(map[Role]struct{}, len(roles))
	for _, r := range roles {
		if !r.Valid() {
			panic(fmt.Sprintf("rbac: invalid role %q in role set", r))
		}
		members[r] = struct{}{}
	}
	return RoleSet{members: members}
}

// Contains reports whether r is in the set.
func (s RoleSet) Contains(r Role) bool {
	_, ok := s.members[r]
	return ok
}

// Len returns the number of roles in the set.
func (s RoleSet) Len() int {
	return len(s.members)
}

// Slice returns the members in a stable order.
func (s RoleSet) Slice() []Role {
	out := make([]Role, 0, len(s.members))
	for r := range s.members {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
