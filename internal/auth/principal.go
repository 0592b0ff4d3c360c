package auth

// PrincipalKind discriminates the principal variants. Exactly one variant
// is active per request.
type PrincipalKind string

const (
	// KindUser is an authenticated session-backed user.
	KindUser PrincipalKind = "user"
	// KindInviteBearer is an unauthenticated party holding a valid invite
	// token; it is scoped to the single resolved client.
	KindInviteBearer PrincipalKind = "invite_bearer"
	// KindAPIToken is a scoped bearer token used by the admin console and
	// cross-service calls.
	KindAPIToken PrincipalKind = "api_token"
)

// Principal is the actor making a request after the route guard resolved it.
type Principal struct {
	Kind   PrincipalKind
	UserID string
	Email  string
	Roles  RoleSet

	// ClientID is set only for invite-token bearers.
	ClientID string

	// Scopes is set only for API-token principals.
	Scopes map[string]struct{}
}

// UserPrincipal constructs a session-backed principal.
func UserPrincipal(userID, email string, roles RoleSet) Principal {
	return Principal{Kind: KindUser, UserID: userID, Email: email, Roles: roles}
}

// InviteBearer constructs a principal for an invite-token holder. It carries
// no roles; policy checks must key on the resolved client id alone.
func InviteBearer(clientID string) Principal {
	return Principal{Kind: KindInviteBearer, ClientID: clientID}
}

// APITokenPrincipal constructs a principal for a scoped API token.
func APITokenPrincipal(subject string, scopes []string) Principal {
	set := make(map[string]struct{}, len(scopes))
	for _, s := range scopes {
		set[s] = struct{}{}
	}
	return Principal{Kind: KindAPIToken, UserID: subject, Scopes: set}
}

// HasRole reports whether a user principal carries the role. Non-user
// principals never carry roles.
func (p Principal) HasRole(role Role) bool {
	return p.Kind == KindUser && p.Roles.Has(role)
}

// HasScope reports whether an API-token principal carries the scope.
func (p Principal) HasScope(scope string) bool {
	if p.Kind != KindAPIToken {
		return false
	}
	_, ok := p.Scopes[scope]
	return ok
}
