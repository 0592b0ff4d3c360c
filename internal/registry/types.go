package registry

import (
	"time"

	"lexvault.org/internal/auth"
)

// Organization is a law firm tenant. Never deleted in normal operation.
type Organization struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	BillingPlan   string    `json:"billing_plan,omitempty"`
	BillingStatus string    `json:"billing_status,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// MemberRole is a user's role within one organization. Distinct from the
// global auth.Role set: membership roles gate intra-firm administration,
// global roles gate registry-wide capabilities.
type MemberRole string

const (
	MemberOwner    MemberRole = "OWNER"
	MemberAttorney MemberRole = "ATTORNEY"
	MemberStaff    MemberRole = "STAFF"
)

// OrgMembership relates a user to an organization. At most one row per
// (user, org) pair.
type OrgMembership struct {
	UserID         string     `json:"user_id"`
	OrganizationID string     `json:"organization_id"`
	Role           MemberRole `json:"role"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Attorney license statuses.
const (
	LicensePending  = "pending"
	LicenseVerified = "verified"
)

// User is an account that can sign in.
type User struct {
	ID            string       `json:"id"`
	Email         string       `json:"email"`
	PasswordHash  string       `json:"-"`
	Roles         auth.RoleSet `json:"-"`
	LicenseStatus string       `json:"license_status,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// RoleLabels returns the user's roles in stored form.
func (u User) RoleLabels() []string { return u.Roles.Labels() }

// Client is a registry subject (the policyholder). Email is not globally
// unique; dedup is via Fingerprint. UserID is set once the client
// authenticates and accepts an invite.
type Client struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Fingerprint string    `json:"-"`
	UserID      string    `json:"user_id,omitempty"`
	OrgID       string    `json:"org_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AttorneyClientAccess grants a specific attorney write-level access to a
// specific client within an organization. Unique on (attorney, client);
// re-granting toggles IsActive rather than duplicating rows, and
// revocation stamps RevokedAt but keeps the row for audit continuity.
type AttorneyClientAccess struct {
	AttorneyID     string     `json:"attorney_id"`
	ClientID       string     `json:"client_id"`
	OrganizationID string     `json:"organization_id"`
	IsActive       bool       `json:"is_active"`
	GrantedAt      time.Time  `json:"granted_at"`
	RevokedAt      *time.Time `json:"revoked_at,omitempty"`
}

// ClientInvite is a single-use, time-limited credential substituting for
// login. UsedAt nil means still valid or unused; stamping it is the
// single-use serialization point.
type ClientInvite struct {
	ID              string     `json:"id"`
	Token           string     `json:"-"`
	ClientID        string     `json:"client_id"`
	Email           string     `json:"email"`
	ExpiresAt       time.Time  `json:"expires_at"`
	UsedAt          *time.Time `json:"used_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	InvitedByUserID string     `json:"invited_by_user_id,omitempty"`
}

// AcceptResult reports the state after a successful invite acceptance.
type AcceptResult struct {
	Invite ClientInvite          `json:"invite"`
	Client Client                `json:"client"`
	Access *AttorneyClientAccess `json:"access,omitempty"`
}
