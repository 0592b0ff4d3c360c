package registry

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"lexvault.org/internal/audit"
	"lexvault.org/internal/auth"
	"lexvault.org/internal/ids"
)

const defaultInviteTTL = 14 * 24 * time.Hour

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Service provides registry operations with authorization and auditing.
type Service struct {
	store Store
	audit *audit.Writer
	now   func() time.Time

	inviteTTL           time.Duration
	bootstrapAdminEmail string
}

// Option configures Service behavior.
type Option func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithInviteTTL configures the invite expiry window.
func WithInviteTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.inviteTTL = ttl
		}
	}
}

// WithBootstrapAdminEmail configures the single email auto-granted ADMIN
// on first sign-in.
func WithBootstrapAdminEmail(email string) Option {
	return func(s *Service) {
		s.bootstrapAdminEmail = strings.TrimSpace(strings.ToLower(email))
	}
}

// NewService constructs a Service.
func NewService(store Store, auditor *audit.Writer, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("registry store is required")
	}
	if auditor == nil {
		return nil, errors.New("audit writer is required")
	}
	svc := &Service{
		store:     store,
		audit:     auditor,
		now:       time.Now,
		inviteTTL: defaultInviteTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// RegisterUser creates an account with the CLIENT role. Attorneys gain the
// ATTORNEY role only through admin verification.
func (s *Service) RegisterUser(ctx context.Context, email, password string) (User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return User{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	password = strings.TrimSpace(password)
	if password == "" {
		return User{}, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return User{}, err
	}
	now := s.now().UTC()
	return s.store.CreateUser(ctx, User{
		ID:            ids.New(),
		Email:         email,
		PasswordHash:  hash,
		Roles:         auth.NewRoleSet(auth.RoleClient),
		LicenseStatus: "",
		CreatedAt:     now,
		UpdatedAt:     now,
	})
}

// Authenticate verifies credentials and applies the admin bootstrap: the
// one configured email is granted ADMIN on first sign-in, through the same
// audited role-grant path as every other role change.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return User{}, auth.ErrUnauthenticated
	}
	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, auth.ErrUnauthenticated
		}
		return User{}, err
	}
	if err := auth.VerifyPassword(user.PasswordHash, password); err != nil {
		return User{}, auth.ErrUnauthenticated
	}

	if s.bootstrapAdminEmail != "" &&
		strings.EqualFold(user.Email, s.bootstrapAdminEmail) &&
		!user.Roles.Has(auth.RoleAdmin) {
		updated, err := s.store.SetUserRoles(ctx, user.ID, user.Roles.Add(auth.RoleAdmin).Labels())
		if err != nil {
			return User{}, err
		}
		user = updated
		s.audit.Record(ctx, audit.Entry{
			Action:      audit.ActionRoleGranted,
			ActorUserID: user.ID,
			Message:     "ADMIN granted to bootstrap address on first sign-in",
		})
	}
	return user, nil
}

// GrantRole adds a global role to a user. Admin-only, always audited, and
// never grants ADMIN: bootstrap is the only path that does.
func (s *Service) GrantRole(ctx context.Context, actor auth.Principal, userID string, role auth.Role) (User, error) {
	if err := RequireAdmin(actor); err != nil {
		return User{}, err
	}
	if role == auth.RoleAdmin {
		return User{}, fmt.Errorf("%w: ADMIN cannot be granted through the API", auth.ErrForbidden)
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return User{}, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return User{}, err
	}
	updated, err := s.store.SetUserRoles(ctx, user.ID, user.Roles.Add(role).Labels())
	if err != nil {
		return User{}, err
	}
	s.audit.Record(ctx, audit.Entry{
		Action:      audit.ActionRoleGranted,
		ActorUserID: actor.UserID,
		Message:     fmt.Sprintf("role %s granted to user %s", role, user.ID),
	})
	return updated, nil
}

// RevokeRole removes a global role from a user. Admin-only, audited.
// ADMIN is immutable through this path as well.
func (s *Service) RevokeRole(ctx context.Context, actor auth.Principal, userID string, role auth.Role) (User, error) {
	if err := RequireAdmin(actor); err != nil {
		return User{}, err
	}
	if role == auth.RoleAdmin {
		return User{}, fmt.Errorf("%w: ADMIN cannot be revoked through the API", auth.ErrForbidden)
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return User{}, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return User{}, err
	}
	updated, err := s.store.SetUserRoles(ctx, user.ID, user.Roles.Remove(role).Labels())
	if err != nil {
		return User{}, err
	}
	s.audit.Record(ctx, audit.Entry{
		Action:      audit.ActionRoleRevoked,
		ActorUserID: actor.UserID,
		Message:     fmt.Sprintf("role %s revoked from user %s", role, user.ID),
	})
	return updated, nil
}

// VerifyAttorney flips a user's license status to verified and grants the
// ATTORNEY role. Admin-only.
func (s *Service) VerifyAttorney(ctx context.Context, actor auth.Principal, userID string) (User, error) {
	if err := RequireAdmin(actor); err != nil {
		return User{}, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return User{}, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return User{}, err
	}
	updated, err := s.store.VerifyAttorney(ctx, user.ID, LicenseVerified, user.Roles.Add(auth.RoleAttorney).Labels())
	if err != nil {
		return User{}, err
	}
	s.audit.Record(ctx, audit.Entry{
		Action:      audit.ActionAttorneyVerified,
		ActorUserID: actor.UserID,
		Message:     fmt.Sprintf("attorney %s verified", user.ID),
	})
	return updated, nil
}

// RegisterFirm creates an organization with the acting user as OWNER.
func (s *Service) RegisterFirm(ctx context.Context, actor auth.Principal, name, slug string) (Organization, error) {
	if actor.Kind != auth.KindUser {
		return Organization{}, auth.ErrUnauthenticated
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Organization{}, fmt.Errorf("%w: organization name is required", ErrInvalidInput)
	}
	slug = strings.TrimSpace(strings.ToLower(slug))
	if !slugPattern.MatchString(slug) {
		return Organization{}, fmt.Errorf("%w: slug must be URL-safe", ErrInvalidInput)
	}

	now := s.now().UTC()
	org, err := s.store.CreateOrganization(ctx, Organization{
		ID:        ids.New(),
		Name:      name,
		Slug:      slug,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Organization{}, err
	}
	if _, err := s.store.AddMember(ctx, OrgMembership{
		UserID:         actor.UserID,
		OrganizationID: org.ID,
		Role:           MemberOwner,
		CreatedAt:      now,
	}); err != nil {
		return Organization{}, err
	}
	s.audit.Record(ctx, audit.Entry{
		Action:      audit.ActionOrgCreated,
		ActorUserID: actor.UserID,
		OrgID:       org.ID,
		Message:     fmt.Sprintf("organization %s created", org.Slug),
	})
	return org, nil
}

// AddMember adds a user to an organization. Only an OWNER of that org (or
// an admin) may add OWNER/ATTORNEY/STAFF members.
func (s *Service) AddMember(ctx context.Context, actor auth.Principal, orgID, userID string, role MemberRole) (OrgMembership, error) {
	if actor.Kind == "" {
		return OrgMembership{}, auth.ErrUnauthenticated
	}
	switch role {
	case MemberOwner, MemberAttorney, MemberStaff:
	default:
		return OrgMembership{}, fmt.Errorf("%w: unsupported member role %q", ErrInvalidInput, role)
	}
	orgID = strings.TrimSpace(orgID)
	userID = strings.TrimSpace(userID)
	if orgID == "" || userID == "" {
		return OrgMembership{}, fmt.Errorf("%w: organization_id and user_id are required", ErrInvalidInput)
	}
	if err := s.requireOwnerOrAdmin(ctx, actor, orgID); err != nil {
		return OrgMembership{}, err
	}

	member, err := s.store.AddMember(ctx, OrgMembership{
		UserID:         userID,
		OrganizationID: orgID,
		Role:           role,
		CreatedAt:      s.now().UTC(),
	})
	if err != nil {
		return OrgMembership{}, err
	}
	s.audit.Record(ctx, audit.Entry{
		Action:      audit.ActionMemberAdded,
		ActorUserID: actor.UserID,
		OrgID:       orgID,
		Message:     fmt.Sprintf("user %s added as %s", userID, role),
	})
	return member, nil
}

// requireOwnerOrAdmin is the shared write-side predicate for intra-firm
// administration.
func (s *Service) requireOwnerOrAdmin(ctx context.Context, actor auth.Principal, orgID string) error {
	if actor.HasRole(auth.RoleAdmin) {
		return nil
	}
	if actor.Kind != auth.KindUser {
		return auth.ErrForbidden
	}
	membership, err := s.store.GetMembership(ctx, actor.UserID, orgID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return auth.ErrForbidden
		}
		return err
	}
	if membership.Role != MemberOwner {
		return auth.ErrForbidden
	}
	return nil
}

// GetClient returns a client record subject to read scoping: admins and
// verified attorneys read globally, a client reads only their own record,
// an invite bearer reads only the resolved client. Denial and absence are
// indistinguishable.
func (s *Service) GetClient(ctx context.Context, actor auth.Principal, clientID string) (Client, error) {
	if actor.Kind == "" {
		return Client{}, auth.ErrUnauthenticated
	}
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return Client{}, ErrNotFound
	}
	client, err := s.store.GetClient(ctx, clientID)
	if err != nil {
		return Client{}, err
	}
	if actor.HasRole(auth.RoleAdmin) || actor.HasRole(auth.RoleAttorney) {
		return client, nil
	}
	if err := AssertClientSelfAccess(actor, client); err != nil {
		// Collapse to not-found so reads cannot enumerate client ids.
		return Client{}, ErrNotFound
	}
	return client, nil
}

// GlobalSearch performs the cross-organization client search open to any
// verified attorney. Every invocation is purpose-logged.
func (s *Service) GlobalSearch(ctx context.Context, actor auth.Principal, query string, limit int) ([]Client, error) {
	if actor.Kind == "" {
		return nil, auth.ErrUnauthenticated
	}
	if !CanSearch(actor) {
		return nil, auth.ErrForbidden
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	s.audit.Record(ctx, audit.Entry{
		Action:      audit.ActionGlobalSearch,
		ActorUserID: actor.UserID,
		Message:     fmt.Sprintf("global search (%d char query)", len(query)),
	})
	return s.store.SearchClients(ctx, query, limit)
}

// Trail returns a client's audit trail with tamper-evidence hashes. Gated
// like other high-sensitivity per-client operations.
func (s *Service) Trail(ctx context.Context, actor auth.Principal, clientID string) ([]audit.TrailEntry, error) {
	if !CanViewAudit(actor) {
		if actor.Kind == "" {
			return nil, auth.ErrUnauthenticated
		}
		return nil, auth.ErrForbidden
	}
	if err := s.AssertAttorneyCanAccessClient(ctx, actor, clientID); err != nil {
		return nil, err
	}
	return s.audit.Trail(ctx, clientID)
}
