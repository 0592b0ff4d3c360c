package auth

import (
	"fmt"
	"sort"
	"strings"
)

// Role is a global role attached to a user account. The set is closed;
// anything outside it is rejected at the boundary rather than stored.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleAttorney Role = "ATTORNEY"
	RoleClient   Role = "CLIENT"
)

// ParseRole normalizes and validates a role label.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleAttorney:
		return RoleAttorney, nil
	case RoleClient:
		return RoleClient, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, raw)
	}
}

// RoleSet holds a user's global roles. Membership checks are the only
// operation hot paths need; everything else is boundary plumbing.
type RoleSet map[Role]struct{}

// NewRoleSet builds a set from the given roles.
func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

// ParseRoleSet builds a set from string labels, rejecting unknown roles.
func ParseRoleSet(labels []string) (RoleSet, error) {
	set := make(RoleSet, len(labels))
	for _, label := range labels {
		role, err := ParseRole(label)
		if err != nil {
			return nil, err
		}
		set[role] = struct{}{}
	}
	return set, nil
}

// Has reports whether the role is present.
func (s RoleSet) Has(role Role) bool {
	_, ok := s[role]
	return ok
}

// Add returns a copy of the set with the role included.
func (s RoleSet) Add(role Role) RoleSet {
	out := make(RoleSet, len(s)+1)
	for r := range s {
		out[r] = struct{}{}
	}
	out[role] = struct{}{}
	return out
}

// Remove returns a copy of the set without the role.
func (s RoleSet) Remove(role Role) RoleSet {
	out := make(RoleSet, len(s))
	for r := range s {
		if r == role {
			continue
		}
		out[r] = struct{}{}
	}
	return out
}

// Labels returns the sorted string form, suitable for storage and claims.
func (s RoleSet) Labels() []string {
	if len(s) == 0 {
		return nil
	}
	out := make([]string, 0, len(s))
	for r := range s {
		out = append(out, string(r))
	}
	sort.Strings(out)
	return out
}
