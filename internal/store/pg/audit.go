package pg

import (
	"context"
	"database/sql"

	"lexvault.org/internal/audit"
)

// Audit rows are append-only; there is no update or delete path.

func (s *Store) AppendAudit(ctx context.Context, entry audit.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		insert into audit_logs (id, action, actor_user_id, client_id, org_id, policy_id, message, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
	`, entry.ID, string(entry.Action), nullableString(entry.ActorUserID), nullableString(entry.ClientID),
		nullableString(entry.OrgID), nullableString(entry.PolicyID), entry.Message, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditByClient(ctx context.Context, clientID string) ([]audit.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, action, actor_user_id, client_id, org_id, policy_id, message, created_at
		from audit_logs
		where client_id = $1
		order by created_at asc, id asc
	`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []audit.Entry
	for rows.Next() {
		var (
			e                      audit.Entry
			action                 string
			actor, client, org, pl sql.NullString
		)
		if err := rows.Scan(&e.ID, &action, &actor, &client, &org, &pl, &e.Message, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Action = audit.Action(action)
		e.ActorUserID = actor.String
		e.ClientID = client.String
		e.OrgID = org.String
		e.PolicyID = pl.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
