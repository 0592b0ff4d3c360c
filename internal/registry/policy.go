package registry

import (
	"context"
	"errors"

	"lexvault.org/internal/auth"
)

// Pure authorization decisions. Denials never distinguish "does not exist"
// from "exists but not yours"; read paths collapse both to ErrNotFound and
// privileged surfaces return auth.ErrForbidden.

// RequireAdmin succeeds only for an authenticated user carrying ADMIN.
// ADMIN is granted exactly once at bootstrap to the configured email and
// is otherwise immutable through normal APIs.
func RequireAdmin(p auth.Principal) error {
	if p.Kind == "" {
		return auth.ErrUnauthenticated
	}
	if !p.HasRole(auth.RoleAdmin) {
		return auth.ErrForbidden
	}
	return nil
}

// RequireAttorney succeeds for a verified attorney. Attorneys hold global
// read access to all clients and policies across organizations, since the
// registry's point is cross-firm findability. Write operations are gated
// separately by per-organization access grants.
func RequireAttorney(p auth.Principal) error {
	if p.Kind == "" {
		return auth.ErrUnauthenticated
	}
	if !p.HasRole(auth.RoleAttorney) {
		return auth.ErrForbidden
	}
	return nil
}

// AssertClientSelfAccess allows a client-role principal to touch only the
// client record linked to their own user id.
func AssertClientSelfAccess(p auth.Principal, c Client) error {
	if p.Kind == "" {
		return auth.ErrUnauthenticated
	}
	if p.Kind == auth.KindInviteBearer {
		if p.ClientID == c.ID {
			return nil
		}
		return auth.ErrForbidden
	}
	if c.UserID != "" && p.UserID == c.UserID {
		return nil
	}
	return auth.ErrForbidden
}

// CanAccessRegistry reports whether the principal may reach protected
// surfaces at all.
func CanAccessRegistry(p auth.Principal) bool {
	return p.Kind != ""
}

// CanSearch reports whether the principal may use the search surface.
func CanSearch(p auth.Principal) bool {
	return p.HasRole(auth.RoleAttorney) || p.HasRole(auth.RoleAdmin) || p.HasScope(auth.ScopeSearch)
}

// CanViewAudit reports whether the principal may read audit trails at all;
// per-client gating still applies on top.
func CanViewAudit(p auth.Principal) bool {
	return p.HasRole(auth.RoleAttorney) || p.HasRole(auth.RoleAdmin)
}

// AssertAttorneyCanAccessClient gates client-file mutation, PDF export and
// audit-trail views: operations with higher sensitivity than plain search.
// Passes on an active access grant or the global-admin bypass.
func (s *Service) AssertAttorneyCanAccessClient(ctx context.Context, p auth.Principal, clientID string) error {
	if p.Kind == "" {
		return auth.ErrUnauthenticated
	}
	if p.HasRole(auth.RoleAdmin) {
		return nil
	}
	if !p.HasRole(auth.RoleAttorney) {
		return auth.ErrForbidden
	}
	access, err := s.store.GetAccess(ctx, p.UserID, clientID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return auth.ErrForbidden
		}
		return err
	}
	if !access.IsActive {
		return auth.ErrForbidden
	}
	return nil
}
