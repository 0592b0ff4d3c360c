package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"lexvault.org/internal/auth"
	"lexvault.org/internal/registry"
)

func (s *Store) CreateOrganization(ctx context.Context, org registry.Organization) (registry.Organization, error) {
	_, err := s.db.ExecContext(ctx, `
		insert into organizations (id, name, slug, billing_plan, billing_status, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7)
	`, org.ID, org.Name, org.Slug, nullableString(org.BillingPlan), nullableString(org.BillingStatus), org.CreatedAt, org.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return registry.Organization{}, registry.ErrConflict
		}
		return registry.Organization{}, err
	}
	return org, nil
}

func (s *Store) GetOrganization(ctx context.Context, id string) (registry.Organization, error) {
	return s.scanOrganization(s.db.QueryRowContext(ctx, `
		select id, name, slug, billing_plan, billing_status, created_at, updated_at
		from organizations where id = $1
	`, id))
}

func (s *Store) GetOrganizationBySlug(ctx context.Context, slug string) (registry.Organization, error) {
	return s.scanOrganization(s.db.QueryRowContext(ctx, `
		select id, name, slug, billing_plan, billing_status, created_at, updated_at
		from organizations where slug = $1
	`, slug))
}

func (s *Store) ListOrganizations(ctx context.Context, limit int) ([]registry.Organization, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name, slug, billing_plan, billing_status, created_at, updated_at
		from organizations
		order by created_at asc
		limit $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []registry.Organization
	for rows.Next() {
		var (
			org          registry.Organization
			plan, status sql.NullString
		)
		if err := rows.Scan(&org.ID, &org.Name, &org.Slug, &plan, &status, &org.CreatedAt, &org.UpdatedAt); err != nil {
			return nil, err
		}
		org.BillingPlan = plan.String
		org.BillingStatus = status.String
		out = append(out, org)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) scanOrganization(row *sql.Row) (registry.Organization, error) {
	var (
		org          registry.Organization
		plan, status sql.NullString
	)
	err := row.Scan(&org.ID, &org.Name, &org.Slug, &plan, &status, &org.CreatedAt, &org.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return registry.Organization{}, registry.ErrNotFound
	}
	if err != nil {
		return registry.Organization{}, err
	}
	org.BillingPlan = plan.String
	org.BillingStatus = status.String
	return org, nil
}

func (s *Store) CreateUser(ctx context.Context, u registry.User) (registry.User, error) {
	roles, err := json.Marshal(u.Roles.Labels())
	if err != nil {
		return registry.User{}, fmt.Errorf("marshal roles: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		insert into users (id, email, password_hash, roles, license_status, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7)
	`, u.ID, u.Email, u.PasswordHash, roles, nullableString(u.LicenseStatus), u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return registry.User{}, registry.ErrConflict
		}
		return registry.User{}, err
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (registry.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		select id, email, password_hash, roles, license_status, created_at, updated_at
		from users where id = $1
	`, id))
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (registry.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		select id, email, password_hash, roles, license_status, created_at, updated_at
		from users where lower(email) = lower($1)
	`, email))
}

func (s *Store) scanUser(row *sql.Row) (registry.User, error) {
	var (
		u        registry.User
		rawRoles []byte
		license  sql.NullString
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &rawRoles, &license, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return registry.User{}, registry.ErrNotFound
	}
	if err != nil {
		return registry.User{}, err
	}
	var labels []string
	if len(rawRoles) > 0 {
		if err := json.Unmarshal(rawRoles, &labels); err != nil {
			return registry.User{}, fmt.Errorf("decode roles: %w", err)
		}
	}
	roles, err := auth.ParseRoleSet(labels)
	if err != nil {
		return registry.User{}, err
	}
	u.Roles = roles
	u.LicenseStatus = license.String
	return u, nil
}

func (s *Store) SetUserRoles(ctx context.Context, userID string, roles []string) (registry.User, error) {
	raw, err := json.Marshal(roles)
	if err != nil {
		return registry.User{}, fmt.Errorf("marshal roles: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		update users set roles = $1, updated_at = now() where id = $2
	`, raw, userID)
	if err != nil {
		return registry.User{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return registry.User{}, registry.ErrNotFound
	}
	return s.GetUser(ctx, userID)
}

func (s *Store) VerifyAttorney(ctx context.Context, userID, status string, roles []string) (registry.User, error) {
	raw, err := json.Marshal(roles)
	if err != nil {
		return registry.User{}, fmt.Errorf("marshal roles: %w", err)
	}
	return s.scanUser(s.db.QueryRowContext(ctx, `
		update users set license_status = $1, roles = $2, updated_at = now()
		where id = $3
		returning id, email, password_hash, roles, license_status, created_at, updated_at
	`, status, raw, userID))
}

func (s *Store) AddMember(ctx context.Context, m registry.OrgMembership) (registry.OrgMembership, error) {
	_, err := s.db.ExecContext(ctx, `
		insert into org_members (user_id, organization_id, role, created_at)
		values ($1, $2, $3, $4)
	`, m.UserID, m.OrganizationID, string(m.Role), m.CreatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return registry.OrgMembership{}, registry.ErrConflict
		}
		return registry.OrgMembership{}, err
	}
	return m, nil
}

func (s *Store) GetMembership(ctx context.Context, userID, orgID string) (registry.OrgMembership, error) {
	var m registry.OrgMembership
	var role string
	err := s.db.QueryRowContext(ctx, `
		select user_id, organization_id, role, created_at
		from org_members where user_id = $1 and organization_id = $2
	`, userID, orgID).Scan(&m.UserID, &m.OrganizationID, &role, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return registry.OrgMembership{}, registry.ErrNotFound
	}
	if err != nil {
		return registry.OrgMembership{}, err
	}
	m.Role = registry.MemberRole(role)
	return m, nil
}

func (s *Store) FirstMembership(ctx context.Context, userID string) (registry.OrgMembership, error) {
	var m registry.OrgMembership
	var role string
	err := s.db.QueryRowContext(ctx, `
		select user_id, organization_id, role, created_at
		from org_members where user_id = $1
		order by created_at asc limit 1
	`, userID).Scan(&m.UserID, &m.OrganizationID, &role, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return registry.OrgMembership{}, registry.ErrNotFound
	}
	if err != nil {
		return registry.OrgMembership{}, err
	}
	m.Role = registry.MemberRole(role)
	return m, nil
}

func (s *Store) CreateClient(ctx context.Context, c registry.Client) (registry.Client, error) {
	_, err := s.db.ExecContext(ctx, `
		insert into clients (id, name, email, fingerprint, user_id, org_id, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
	`, c.ID, c.Name, c.Email, c.Fingerprint, nullableString(c.UserID), c.OrgID, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return registry.Client{}, registry.ErrConflict
		}
		return registry.Client{}, err
	}
	return c, nil
}

func (s *Store) GetClient(ctx context.Context, id string) (registry.Client, error) {
	return scanClient(s.db.QueryRowContext(ctx, `
		select id, name, email, fingerprint, user_id, org_id, created_at, updated_at
		from clients where id = $1
	`, id))
}

func (s *Store) FindClientByFingerprint(ctx context.Context, orgID, fingerprint string) (registry.Client, error) {
	return scanClient(s.db.QueryRowContext(ctx, `
		select id, name, email, fingerprint, user_id, org_id, created_at, updated_at
		from clients where org_id = $1 and fingerprint = $2
	`, orgID, fingerprint))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner) (registry.Client, error) {
	var (
		c      registry.Client
		userID sql.NullString
	)
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Fingerprint, &userID, &c.OrgID, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return registry.Client{}, registry.ErrNotFound
	}
	if err != nil {
		return registry.Client{}, err
	}
	c.UserID = userID.String
	return c, nil
}

func (s *Store) SearchClients(ctx context.Context, query string, limit int) ([]registry.Client, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name, email, fingerprint, user_id, org_id, created_at, updated_at
		from clients
		where name ilike '%' || $1 || '%' or email ilike '%' || $1 || '%'
		order by name
		limit $2
	`, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []registry.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
