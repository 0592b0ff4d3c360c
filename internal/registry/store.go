package registry

import (
	"context"
	"time"

	"lexvault.org/internal/audit"
)

// Store describes persistence operations required by the registry. All
// scoping predicates live behind this interface so that no endpoint
// re-derives them ad hoc.
type Store interface {
	CreateOrganization(ctx context.Context, org Organization) (Organization, error)
	GetOrganization(ctx context.Context, id string) (Organization, error)
	GetOrganizationBySlug(ctx context.Context, slug string) (Organization, error)
	ListOrganizations(ctx context.Context, limit int) ([]Organization, error)

	CreateUser(ctx context.Context, u User) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	// FindUserByEmail matches case-insensitively; emails are stored as
	// given but compared lowered for account linking.
	FindUserByEmail(ctx context.Context, email string) (User, error)
	SetUserRoles(ctx context.Context, userID string, roles []string) (User, error)
	// VerifyAttorney stamps the license status and replaces the role set in
	// one write, so a failure cannot leave a verified license without the
	// attorney role or the reverse.
	VerifyAttorney(ctx context.Context, userID, status string, roles []string) (User, error)

	AddMember(ctx context.Context, m OrgMembership) (OrgMembership, error)
	GetMembership(ctx context.Context, userID, orgID string) (OrgMembership, error)
	// FirstMembership returns the user's earliest membership; used to
	// resolve the inviting attorney's organization of record.
	FirstMembership(ctx context.Context, userID string) (OrgMembership, error)

	CreateClient(ctx context.Context, c Client) (Client, error)
	GetClient(ctx context.Context, id string) (Client, error)
	FindClientByFingerprint(ctx context.Context, orgID, fingerprint string) (Client, error)
	SearchClients(ctx context.Context, query string, limit int) ([]Client, error)

	// UpsertAccess creates or reactivates the (attorney, client) grant.
	// The unique constraint is the concurrency guard: a duplicate insert
	// reactivates the existing row instead of erroring.
	UpsertAccess(ctx context.Context, attorneyID, clientID, orgID string) (AttorneyClientAccess, error)
	RevokeAccess(ctx context.Context, attorneyID, clientID string) (AttorneyClientAccess, error)
	GetAccess(ctx context.Context, attorneyID, clientID string) (AttorneyClientAccess, error)

	CreateInvite(ctx context.Context, inv ClientInvite) (ClientInvite, error)
	GetInvite(ctx context.Context, id string) (ClientInvite, error)
	GetInviteByToken(ctx context.Context, token string) (ClientInvite, error)
	// AcceptInvite applies the acceptance atomically: link the client to
	// the user, stamp UsedAt (conditional update; zero rows affected means
	// already used), reactivate the inviting attorney's grant, and append
	// the prepared audit entry, all in one transaction.
	AcceptInvite(ctx context.Context, token, userID string, now time.Time, entry audit.Entry) (AcceptResult, error)
	// ReactivateInvite clears UsedAt and pushes ExpiresAt forward. Admin
	// override; callers must gate and audit it.
	ReactivateInvite(ctx context.Context, id string, expiresAt time.Time) (ClientInvite, error)
}
