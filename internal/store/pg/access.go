package pg

import (
	"context"
	"database/sql"
	"errors"

	"lexvault.org/internal/registry"
)

// The unique constraint on (attorney_id, client_id) is the concurrency
// guard for grants: a concurrent duplicate insert lands on the conflict
// branch and reactivates the existing row instead of erroring.

func (s *Store) UpsertAccess(ctx context.Context, attorneyID, clientID, orgID string) (registry.AttorneyClientAccess, error) {
	return scanAccess(s.db.QueryRowContext(ctx, `
		insert into attorney_client_access (attorney_id, client_id, organization_id, is_active, granted_at)
		values ($1, $2, $3, true, now())
		on conflict (attorney_id, client_id) do update
		set is_active = true, revoked_at = null
		returning attorney_id, client_id, organization_id, is_active, granted_at, revoked_at
	`, attorneyID, clientID, orgID))
}

func (s *Store) RevokeAccess(ctx context.Context, attorneyID, clientID string) (registry.AttorneyClientAccess, error) {
	return scanAccess(s.db.QueryRowContext(ctx, `
		update attorney_client_access
		set is_active = false, revoked_at = now()
		where attorney_id = $1 and client_id = $2
		returning attorney_id, client_id, organization_id, is_active, granted_at, revoked_at
	`, attorneyID, clientID))
}

func (s *Store) GetAccess(ctx context.Context, attorneyID, clientID string) (registry.AttorneyClientAccess, error) {
	return scanAccess(s.db.QueryRowContext(ctx, `
		select attorney_id, client_id, organization_id, is_active, granted_at, revoked_at
		from attorney_client_access
		where attorney_id = $1 and client_id = $2
	`, attorneyID, clientID))
}

func scanAccess(row rowScanner) (registry.AttorneyClientAccess, error) {
	var (
		a       registry.AttorneyClientAccess
		revoked sql.NullTime
	)
	err := row.Scan(&a.AttorneyID, &a.ClientID, &a.OrganizationID, &a.IsActive, &a.GrantedAt, &revoked)
	if errors.Is(err, sql.ErrNoRows) {
		return registry.AttorneyClientAccess{}, registry.ErrNotFound
	}
	if err != nil {
		return registry.AttorneyClientAccess{}, err
	}
	if revoked.Valid {
		t := revoked.Time
		a.RevokedAt = &t
	}
	return a, nil
}
