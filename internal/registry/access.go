package registry

import (
	"context"
	"fmt"
	"strings"

	"lexvault.org/internal/audit"
	"lexvault.org/internal/auth"
)

// GrantAccess creates or reactivates an attorney's access grant on a
// client. Idempotent: granting twice never creates two rows. Requires an
// OWNER of the organization or an admin.
func (s *Service) GrantAccess(ctx context.Context, actor auth.Principal, attorneyID, clientID, orgID string) (AttorneyClientAccess, error) {
	if actor.Kind == "" {
		return AttorneyClientAccess{}, auth.ErrUnauthenticated
	}
	attorneyID = strings.TrimSpace(attorneyID)
	clientID = strings.TrimSpace(clientID)
	orgID = strings.TrimSpace(orgID)
	if attorneyID == "" || clientID == "" || orgID == "" {
		return AttorneyClientAccess{}, fmt.Errorf("%w: attorney_id, client_id and organization_id are required", ErrInvalidInput)
	}
	if err := s.requireOwnerOrAdmin(ctx, actor, orgID); err != nil {
		return AttorneyClientAccess{}, err
	}

	access, err := s.store.UpsertAccess(ctx, attorneyID, clientID, orgID)
	if err != nil {
		return AttorneyClientAccess{}, err
	}
	s.audit.Record(ctx, audit.Entry{
		Action:      audit.ActionAccessGranted,
		ActorUserID: actor.UserID,
		ClientID:    clientID,
		OrgID:       orgID,
		Message:     fmt.Sprintf("access granted to attorney %s", attorneyID),
	})
	return access, nil
}

// RevokeAccess deactivates a grant and stamps RevokedAt. The row is kept
// for audit continuity.
func (s *Service) RevokeAccess(ctx context.Context, actor auth.Principal, attorneyID, clientID string) (AttorneyClientAccess, error) {
	if actor.Kind == "" {
		return AttorneyClientAccess{}, auth.ErrUnauthenticated
	}
	attorneyID = strings.TrimSpace(attorneyID)
	clientID = strings.TrimSpace(clientID)
	if attorneyID == "" || clientID == "" {
		return AttorneyClientAccess{}, fmt.Errorf("%w: attorney_id and client_id are required", ErrInvalidInput)
	}
	existing, err := s.store.GetAccess(ctx, attorneyID, clientID)
	if err != nil {
		return AttorneyClientAccess{}, err
	}
	if err := s.requireOwnerOrAdmin(ctx, actor, existing.OrganizationID); err != nil {
		return AttorneyClientAccess{}, err
	}

	access, err := s.store.RevokeAccess(ctx, attorneyID, clientID)
	if err != nil {
		return AttorneyClientAccess{}, err
	}
	s.audit.Record(ctx, audit.Entry{
		Action:      audit.ActionAccessRevoked,
		ActorUserID: actor.UserID,
		ClientID:    clientID,
		OrgID:       access.OrganizationID,
		Message:     fmt.Sprintf("access revoked for attorney %s", attorneyID),
	})
	return access, nil
}
