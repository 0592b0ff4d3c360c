package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"lexvault.org/internal/audit"
	"lexvault.org/internal/registry"
)

func (s *Store) CreateInvite(ctx context.Context, inv registry.ClientInvite) (registry.ClientInvite, error) {
	_, err := s.db.ExecContext(ctx, `
		insert into client_invites (id, token, client_id, email, expires_at, used_at, created_at, invited_by_user_id)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
	`, inv.ID, inv.Token, inv.ClientID, inv.Email, inv.ExpiresAt, nullableTime(inv.UsedAt), inv.CreatedAt, nullableString(inv.InvitedByUserID))
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return registry.ClientInvite{}, registry.ErrConflict
		}
		return registry.ClientInvite{}, err
	}
	return inv, nil
}

func (s *Store) GetInvite(ctx context.Context, id string) (registry.ClientInvite, error) {
	return scanInvite(s.db.QueryRowContext(ctx, `
		select id, token, client_id, email, expires_at, used_at, created_at, invited_by_user_id
		from client_invites where id = $1
	`, id))
}

func (s *Store) GetInviteByToken(ctx context.Context, token string) (registry.ClientInvite, error) {
	return scanInvite(s.db.QueryRowContext(ctx, `
		select id, token, client_id, email, expires_at, used_at, created_at, invited_by_user_id
		from client_invites where token = $1
	`, token))
}

func scanInvite(row rowScanner) (registry.ClientInvite, error) {
	var (
		inv       registry.ClientInvite
		usedAt    sql.NullTime
		invitedBy sql.NullString
	)
	err := row.Scan(&inv.ID, &inv.Token, &inv.ClientID, &inv.Email, &inv.ExpiresAt, &usedAt, &inv.CreatedAt, &invitedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return registry.ClientInvite{}, registry.ErrNotFound
	}
	if err != nil {
		return registry.ClientInvite{}, err
	}
	if usedAt.Valid {
		t := usedAt.Time
		inv.UsedAt = &t
	}
	inv.InvitedByUserID = invitedBy.String
	return inv, nil
}

// AcceptInvite applies the acceptance atomically. The conditional update
// on used_at is the serialization point: under concurrent acceptance of
// the same token exactly one transaction affects a row, the rest fail.
func (s *Store) AcceptInvite(ctx context.Context, token, userID string, now time.Time, entry audit.Entry) (registry.AcceptResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return registry.AcceptResult{}, err
	}
	defer func() { _ = tx.Rollback() }()

	inv, err := scanInvite(tx.QueryRowContext(ctx, `
		select id, token, client_id, email, expires_at, used_at, created_at, invited_by_user_id
		from client_invites where token = $1
	`, token))
	if err != nil {
		return registry.AcceptResult{}, err
	}
	if inv.UsedAt != nil {
		return registry.AcceptResult{}, registry.ErrInviteUsed
	}
	if !inv.ExpiresAt.After(now) {
		return registry.AcceptResult{}, registry.ErrInviteExpired
	}

	// Link the client; idempotent when already linked to the same user,
	// refused when linked to a different one.
	client, err := scanClient(tx.QueryRowContext(ctx, `
		update clients set user_id = $1, updated_at = $2
		where id = $3 and (user_id is null or user_id = $1)
		returning id, name, email, fingerprint, user_id, org_id, created_at, updated_at
	`, userID, now, inv.ClientID))
	if errors.Is(err, registry.ErrNotFound) {
		return registry.AcceptResult{}, registry.ErrConflict
	}
	if err != nil {
		return registry.AcceptResult{}, err
	}

	res, err := tx.ExecContext(ctx, `
		update client_invites set used_at = $1 where id = $2 and used_at is null
	`, now, inv.ID)
	if err != nil {
		return registry.AcceptResult{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return registry.AcceptResult{}, registry.ErrInviteUsed
	}
	used := now
	inv.UsedAt = &used

	var accessPtr *registry.AttorneyClientAccess
	if inv.InvitedByUserID != "" {
		var orgID string
		err := tx.QueryRowContext(ctx, `
			select organization_id from org_members
			where user_id = $1 order by created_at asc limit 1
		`, inv.InvitedByUserID).Scan(&orgID)
		switch {
		case err == nil:
			access, err := scanAccess(tx.QueryRowContext(ctx, `
				insert into attorney_client_access (attorney_id, client_id, organization_id, is_active, granted_at)
				values ($1, $2, $3, true, $4)
				on conflict (attorney_id, client_id) do update
				set is_active = true, revoked_at = null
				returning attorney_id, client_id, organization_id, is_active, granted_at, revoked_at
			`, inv.InvitedByUserID, client.ID, orgID, now))
			if err != nil {
				return registry.AcceptResult{}, err
			}
			accessPtr = &access
		case errors.Is(err, sql.ErrNoRows):
			// Inviter left all organizations since issuing; the
			// acceptance still stands, just without a grant.
		default:
			return registry.AcceptResult{}, err
		}
	}

	entry.ClientID = client.ID
	entry.OrgID = client.OrgID
	if _, err := tx.ExecContext(ctx, `
		insert into audit_logs (id, action, actor_user_id, client_id, org_id, policy_id, message, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
	`, entry.ID, string(entry.Action), nullableString(entry.ActorUserID), nullableString(entry.ClientID),
		nullableString(entry.OrgID), nullableString(entry.PolicyID), entry.Message, entry.CreatedAt); err != nil {
		return registry.AcceptResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return registry.AcceptResult{}, err
	}
	return registry.AcceptResult{Invite: inv, Client: client, Access: accessPtr}, nil
}

func (s *Store) ReactivateInvite(ctx context.Context, id string, expiresAt time.Time) (registry.ClientInvite, error) {
	return scanInvite(s.db.QueryRowContext(ctx, `
		update client_invites set used_at = null, expires_at = $1
		where id = $2
		returning id, token, client_id, email, expires_at, used_at, created_at, invited_by_user_id
	`, expiresAt, id))
}
