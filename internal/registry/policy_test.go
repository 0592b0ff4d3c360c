package registry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"lexvault.org/internal/auth"
)

func TestRequireAdmin(t *testing.T) {
	require.ErrorIs(t, RequireAdmin(auth.Principal{}), auth.ErrUnauthenticated)

	attorney := auth.UserPrincipal("u1", "a@b.com", auth.NewRoleSet(auth.RoleAttorney))
	require.ErrorIs(t, RequireAdmin(attorney), auth.ErrForbidden)

	admin := auth.UserPrincipal("u2", "root@b.com", auth.NewRoleSet(auth.RoleAdmin))
	require.NoError(t, RequireAdmin(admin))

	// API tokens never satisfy role checks, whatever their scopes.
	apiToken := auth.APITokenPrincipal("svc", []string{auth.ScopeConsole})
	require.ErrorIs(t, RequireAdmin(apiToken), auth.ErrForbidden)
}

func TestRequireAttorney(t *testing.T) {
	require.ErrorIs(t, RequireAttorney(auth.Principal{}), auth.ErrUnauthenticated)

	client := auth.UserPrincipal("u1", "c@b.com", auth.NewRoleSet(auth.RoleClient))
	require.ErrorIs(t, RequireAttorney(client), auth.ErrForbidden)

	attorney := auth.UserPrincipal("u2", "a@b.com", auth.NewRoleSet(auth.RoleAttorney))
	require.NoError(t, RequireAttorney(attorney))
}

func TestAssertClientSelfAccess(t *testing.T) {
	client := Client{ID: "cl1", UserID: "u1"}

	self := auth.UserPrincipal("u1", "a@b.com", auth.NewRoleSet(auth.RoleClient))
	require.NoError(t, AssertClientSelfAccess(self, client))

	other := auth.UserPrincipal("u2", "x@b.com", auth.NewRoleSet(auth.RoleClient))
	require.ErrorIs(t, AssertClientSelfAccess(other, client), auth.ErrForbidden)

	// An unlinked client record is reachable by nobody through self access.
	unlinked := Client{ID: "cl2"}
	require.ErrorIs(t, AssertClientSelfAccess(self, unlinked), auth.ErrForbidden)

	bearer := auth.InviteBearer("cl1")
	require.NoError(t, AssertClientSelfAccess(bearer, client))
	require.ErrorIs(t, AssertClientSelfAccess(auth.InviteBearer("cl9"), client), auth.ErrForbidden)
}

func TestCapabilityChecks(t *testing.T) {
	admin := auth.UserPrincipal("u1", "", auth.NewRoleSet(auth.RoleAdmin))
	attorney := auth.UserPrincipal("u2", "", auth.NewRoleSet(auth.RoleAttorney))
	client := auth.UserPrincipal("u3", "", auth.NewRoleSet(auth.RoleClient))
	searchToken := auth.APITokenPrincipal("svc", []string{auth.ScopeSearch})

	require.True(t, CanAccessRegistry(admin))
	require.True(t, CanAccessRegistry(auth.InviteBearer("cl1")))
	require.False(t, CanAccessRegistry(auth.Principal{}))

	require.True(t, CanSearch(admin))
	require.True(t, CanSearch(attorney))
	require.True(t, CanSearch(searchToken))
	require.False(t, CanSearch(client))

	require.True(t, CanViewAudit(admin))
	require.True(t, CanViewAudit(attorney))
	require.False(t, CanViewAudit(client))
	require.False(t, CanViewAudit(searchToken))
}

func TestClientFingerprintNormalizes(t *testing.T) {
	a := ClientFingerprint("Ada  Policyholder", "A@B.com ")
	b := ClientFingerprint("ada policyholder", "a@b.com")
	require.Equal(t, a, b)
	require.NotEqual(t, a, ClientFingerprint("ada policyholder", "a@c.com"))
}

func TestNewInviteTokenShape(t *testing.T) {
	tok, err := NewInviteToken()
	require.NoError(t, err)
	require.Len(t, tok, 64)
	other, err := NewInviteToken()
	require.NoError(t, err)
	require.NotEqual(t, tok, other)
}
