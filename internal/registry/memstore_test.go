package registry

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"lexvault.org/internal/audit"
	"lexvault.org/internal/auth"
)

// memStore is an in-memory Store used by service tests. It mirrors the
// postgres store's semantics, including the conditional single-use stamp
// and the idempotent access upsert.
type memStore struct {
	mu             sync.Mutex
	orgs           map[string]Organization
	users          map[string]User
	members        map[string]OrgMembership
	clients        map[string]Client
	access         map[string]AttorneyClientAccess
	invites        map[string]ClientInvite
	invitesByToken map[string]string
	auditEntries   []audit.Entry
}

func newMemStore() *memStore {
	return &memStore{
		orgs:           map[string]Organization{},
		users:          map[string]User{},
		members:        map[string]OrgMembership{},
		clients:        map[string]Client{},
		access:         map[string]AttorneyClientAccess{},
		invites:        map[string]ClientInvite{},
		invitesByToken: map[string]string{},
	}
}

func memberKey(userID, orgID string) string { return userID + "|" + orgID }
func accessKey(attorney, client string) string { return attorney + "|" + client }

func (m *memStore) CreateOrganization(_ context.Context, org Organization) (Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.orgs {
		if existing.Slug == org.Slug {
			return Organization{}, ErrConflict
		}
	}
	m.orgs[org.ID] = org
	return org, nil
}

func (m *memStore) GetOrganization(_ context.Context, id string) (Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	org, ok := m.orgs[id]
	if !ok {
		return Organization{}, ErrNotFound
	}
	return org, nil
}

func (m *memStore) GetOrganizationBySlug(_ context.Context, slug string) (Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, org := range m.orgs {
		if org.Slug == slug {
			return org, nil
		}
	}
	return Organization{}, ErrNotFound
}

func (m *memStore) ListOrganizations(_ context.Context, limit int) ([]Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Organization
	for _, org := range m.orgs {
		out = append(out, org)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) CreateUser(_ context.Context, u User) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return User{}, ErrConflict
		}
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *memStore) GetUser(_ context.Context, id string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *memStore) FindUserByEmail(_ context.Context, email string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *memStore) SetUserRoles(_ context.Context, userID string, roles []string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return User{}, ErrNotFound
	}
	set, err := auth.ParseRoleSet(roles)
	if err != nil {
		return User{}, err
	}
	u.Roles = set
	m.users[userID] = u
	return u, nil
}

func (m *memStore) VerifyAttorney(_ context.Context, userID, status string, roles []string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return User{}, ErrNotFound
	}
	set, err := auth.ParseRoleSet(roles)
	if err != nil {
		return User{}, err
	}
	u.LicenseStatus = status
	u.Roles = set
	m.users[userID] = u
	return u, nil
}

func (m *memStore) AddMember(_ context.Context, member OrgMembership) (OrgMembership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := memberKey(member.UserID, member.OrganizationID)
	if _, ok := m.members[key]; ok {
		return OrgMembership{}, ErrConflict
	}
	m.members[key] = member
	return member, nil
}

func (m *memStore) GetMembership(_ context.Context, userID, orgID string) (OrgMembership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	member, ok := m.members[memberKey(userID, orgID)]
	if !ok {
		return OrgMembership{}, ErrNotFound
	}
	return member, nil
}

func (m *memStore) FirstMembership(_ context.Context, userID string) (OrgMembership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found []OrgMembership
	for _, member := range m.members {
		if member.UserID == userID {
			found = append(found, member)
		}
	}
	if len(found) == 0 {
		return OrgMembership{}, ErrNotFound
	}
	sort.Slice(found, func(i, j int) bool { return found[i].CreatedAt.Before(found[j].CreatedAt) })
	return found[0], nil
}

func (m *memStore) CreateClient(_ context.Context, c Client) (Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[c.ID] = c
	return c, nil
}

func (m *memStore) GetClient(_ context.Context, id string) (Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	if !ok {
		return Client{}, ErrNotFound
	}
	return c, nil
}

func (m *memStore) FindClientByFingerprint(_ context.Context, orgID, fingerprint string) (Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.clients {
		if c.OrgID == orgID && c.Fingerprint == fingerprint {
			return c, nil
		}
	}
	return Client{}, ErrNotFound
}

func (m *memStore) SearchClients(_ context.Context, query string, limit int) ([]Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	query = strings.ToLower(query)
	var out []Client
	for _, c := range m.clients {
		if strings.Contains(strings.ToLower(c.Name), query) || strings.Contains(strings.ToLower(c.Email), query) {
			out = append(out, c)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memStore) UpsertAccess(_ context.Context, attorneyID, clientID, orgID string) (AttorneyClientAccess, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upsertAccessLocked(attorneyID, clientID, orgID), nil
}

func (m *memStore) upsertAccessLocked(attorneyID, clientID, orgID string) AttorneyClientAccess {
	key := accessKey(attorneyID, clientID)
	access, ok := m.access[key]
	if !ok {
		access = AttorneyClientAccess{
			AttorneyID:     attorneyID,
			ClientID:       clientID,
			OrganizationID: orgID,
			GrantedAt:      time.Now().UTC(),
		}
	}
	access.IsActive = true
	access.RevokedAt = nil
	m.access[key] = access
	return access
}

func (m *memStore) RevokeAccess(_ context.Context, attorneyID, clientID string) (AttorneyClientAccess, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := accessKey(attorneyID, clientID)
	access, ok := m.access[key]
	if !ok {
		return AttorneyClientAccess{}, ErrNotFound
	}
	now := time.Now().UTC()
	access.IsActive = false
	access.RevokedAt = &now
	m.access[key] = access
	return access, nil
}

func (m *memStore) GetAccess(_ context.Context, attorneyID, clientID string) (AttorneyClientAccess, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	access, ok := m.access[accessKey(attorneyID, clientID)]
	if !ok {
		return AttorneyClientAccess{}, ErrNotFound
	}
	return access, nil
}

func (m *memStore) CreateInvite(_ context.Context, inv ClientInvite) (ClientInvite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invites[inv.ID] = inv
	m.invitesByToken[inv.Token] = inv.ID
	return inv, nil
}

func (m *memStore) GetInvite(_ context.Context, id string) (ClientInvite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invites[id]
	if !ok {
		return ClientInvite{}, ErrNotFound
	}
	return inv, nil
}

func (m *memStore) GetInviteByToken(_ context.Context, token string) (ClientInvite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.invitesByToken[token]
	if !ok {
		return ClientInvite{}, ErrNotFound
	}
	return m.invites[id], nil
}

func (m *memStore) AcceptInvite(_ context.Context, token, userID string, now time.Time, entry audit.Entry) (AcceptResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.invitesByToken[token]
	if !ok {
		return AcceptResult{}, ErrNotFound
	}
	inv := m.invites[id]
	if inv.UsedAt != nil {
		return AcceptResult{}, ErrInviteUsed
	}
	if !inv.ExpiresAt.After(now) {
		return AcceptResult{}, ErrInviteExpired
	}

	client := m.clients[inv.ClientID]
	if client.UserID != "" && client.UserID != userID {
		return AcceptResult{}, ErrConflict
	}
	client.UserID = userID
	client.UpdatedAt = now
	m.clients[client.ID] = client

	used := now
	inv.UsedAt = &used
	m.invites[id] = inv

	var accessPtr *AttorneyClientAccess
	if inv.InvitedByUserID != "" {
		for _, member := range m.members {
			if member.UserID == inv.InvitedByUserID {
				access := m.upsertAccessLocked(inv.InvitedByUserID, client.ID, member.OrganizationID)
				accessPtr = &access
				break
			}
		}
	}

	entry.ClientID = client.ID
	entry.OrgID = client.OrgID
	m.auditEntries = append(m.auditEntries, entry)

	return AcceptResult{Invite: inv, Client: client, Access: accessPtr}, nil
}

func (m *memStore) ReactivateInvite(_ context.Context, id string, expiresAt time.Time) (ClientInvite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invites[id]
	if !ok {
		return ClientInvite{}, ErrNotFound
	}
	inv.UsedAt = nil
	inv.ExpiresAt = expiresAt
	m.invites[id] = inv
	return inv, nil
}

func (m *memStore) AppendAudit(_ context.Context, entry audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auditEntries = append(m.auditEntries, entry)
	return nil
}

func (m *memStore) ListAuditByClient(_ context.Context, clientID string) ([]audit.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []audit.Entry
	for _, e := range m.auditEntries {
		if e.ClientID == clientID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) countAudit(action audit.Action) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.auditEntries {
		if e.Action == action {
			n++
		}
	}
	return n
}
