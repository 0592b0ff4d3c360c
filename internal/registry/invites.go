package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lexvault.org/internal/audit"
	"lexvault.org/internal/auth"
	"lexvault.org/internal/ids"
)

// InviteClient registers a client (deduplicated by fingerprint within the
// organization) and issues a single-use invite. The acting user must be an
// attorney with an OWNER or ATTORNEY membership in the organization.
func (s *Service) InviteClient(ctx context.Context, actor auth.Principal, orgID, name, email string) (Client, ClientInvite, error) {
	if err := RequireAttorney(actor); err != nil {
		return Client{}, ClientInvite{}, err
	}
	orgID = strings.TrimSpace(orgID)
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))
	if orgID == "" {
		return Client{}, ClientInvite{}, fmt.Errorf("%w: organization_id is required", ErrInvalidInput)
	}
	if name == "" {
		return Client{}, ClientInvite{}, fmt.Errorf("%w: client name is required", ErrInvalidInput)
	}
	if email == "" || !strings.Contains(email, "@") {
		return Client{}, ClientInvite{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}

	membership, err := s.store.GetMembership(ctx, actor.UserID, orgID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Client{}, ClientInvite{}, auth.ErrForbidden
		}
		return Client{}, ClientInvite{}, err
	}
	if membership.Role != MemberOwner && membership.Role != MemberAttorney {
		return Client{}, ClientInvite{}, auth.ErrForbidden
	}

	now := s.now().UTC()
	fingerprint := ClientFingerprint(name, email)

	client, err := s.store.FindClientByFingerprint(ctx, orgID, fingerprint)
	switch {
	case err == nil:
		// Existing client; re-inviting is allowed and issues a new token.
	case errors.Is(err, ErrNotFound):
		client, err = s.store.CreateClient(ctx, Client{
			ID:          ids.New(),
			Name:        name,
			Email:       email,
			Fingerprint: fingerprint,
			OrgID:       orgID,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return Client{}, ClientInvite{}, err
		}
		s.audit.Record(ctx, audit.Entry{
			Action:      audit.ActionClientCreated,
			ActorUserID: actor.UserID,
			ClientID:    client.ID,
			OrgID:       orgID,
			Message:     "client registered",
		})
	default:
		return Client{}, ClientInvite{}, err
	}

	token, err := NewInviteToken()
	if err != nil {
		return Client{}, ClientInvite{}, err
	}
	invite, err := s.store.CreateInvite(ctx, ClientInvite{
		ID:              ids.New(),
		Token:           token,
		ClientID:        client.ID,
		Email:           email,
		ExpiresAt:       now.Add(s.inviteTTL),
		CreatedAt:       now,
		InvitedByUserID: actor.UserID,
	})
	if err != nil {
		return Client{}, ClientInvite{}, err
	}
	s.audit.Record(ctx, audit.Entry{
		Action:      audit.ActionInviteCreated,
		ActorUserID: actor.UserID,
		ClientID:    client.ID,
		OrgID:       orgID,
		Message:     fmt.Sprintf("invite issued, expires %s", invite.ExpiresAt.Format("2006-01-02")),
	})
	return client, invite, nil
}

// LookupInvite resolves a raw token to its invite and client for form
// rendering. Used, expired and unknown tokens all fail with the same
// coarse errors the public surface may show.
func (s *Service) LookupInvite(ctx context.Context, token string) (ClientInvite, Client, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return ClientInvite{}, Client{}, ErrNotFound
	}
	invite, err := s.store.GetInviteByToken(ctx, token)
	if err != nil {
		return ClientInvite{}, Client{}, err
	}
	if invite.UsedAt != nil || !invite.ExpiresAt.After(s.now().UTC()) {
		return ClientInvite{}, Client{}, ErrInviteExpired
	}
	client, err := s.store.GetClient(ctx, invite.ClientID)
	if err != nil {
		return ClientInvite{}, Client{}, err
	}
	return invite, client, nil
}

// AcceptInvite consumes an invite on behalf of the authenticated user. The
// store applies the linked-client write, the single-use stamp, the grant
// reactivation and the audit append in one transaction; a concurrent
// acceptance loses the conditional UsedAt update and surfaces as
// ErrInviteUsed.
func (s *Service) AcceptInvite(ctx context.Context, actor auth.Principal, token string) (AcceptResult, error) {
	if actor.Kind != auth.KindUser {
		return AcceptResult{}, auth.ErrUnauthenticated
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return AcceptResult{}, ErrNotFound
	}

	entry := s.audit.Prepare(audit.Entry{
		Action:      audit.ActionInviteAccepted,
		ActorUserID: actor.UserID,
		Message:     "invite accepted",
	})
	res, err := s.store.AcceptInvite(ctx, token, actor.UserID, s.now().UTC(), entry)
	if err != nil {
		return AcceptResult{}, err
	}
	entry.ClientID = res.Client.ID
	entry.OrgID = res.Client.OrgID
	s.audit.Mirror(entry)
	return res, nil
}

// ReactivateInvite clears UsedAt and extends expiry. This is an explicit
// admin override, distinct from normal issuance, and always audited.
func (s *Service) ReactivateInvite(ctx context.Context, actor auth.Principal, inviteID string) (ClientInvite, error) {
	if err := RequireAdmin(actor); err != nil {
		return ClientInvite{}, err
	}
	inviteID = strings.TrimSpace(inviteID)
	if inviteID == "" {
		return ClientInvite{}, fmt.Errorf("%w: invite_id is required", ErrInvalidInput)
	}
	invite, err := s.store.ReactivateInvite(ctx, inviteID, s.now().UTC().Add(s.inviteTTL))
	if err != nil {
		return ClientInvite{}, err
	}
	s.audit.Record(ctx, audit.Entry{
		Action:      audit.ActionInviteReactivate,
		ActorUserID: actor.UserID,
		ClientID:    invite.ClientID,
		Message:     fmt.Sprintf("invite %s reactivated", invite.ID),
	})
	return invite, nil
}
