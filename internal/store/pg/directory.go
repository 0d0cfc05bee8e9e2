package pg

import (
	"context"
	"database/sql"
	"errors"

	"langhub.io/internal/auth"
)

// recordColumns selects a membership joined with its workspace and, when
// present, the workspace billing settings. Scan with scanRecord.
const recordColumns = `
	m.id, m.workspace_id, m.role, coalesce(m.user_id, ''), coalesce(m.service_id, ''),
	m.blocked_at, m.created_at,
	w.id, w.key, w.name,
	b.workspace_id, b.plan, b.status`

const recordJoins = `
	from memberships m
	join workspaces w on w.id = m.workspace_id
	left join billing_settings b on b.workspace_id = w.id`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (auth.MembershipRecord, error) {
	var (
		rec                     auth.MembershipRecord
		role                    string
		blockedAt               sql.NullTime
		billingWS, plan, status sql.NullString
	)
	m := &rec.Membership
	if err := row.Scan(
		&m.ID, &m.WorkspaceID, &role, &m.UserID, &m.ServiceID,
		&blockedAt, &m.CreatedAt,
		&rec.Workspace.ID, &rec.Workspace.Key, &rec.Workspace.Name,
		&billingWS, &plan, &status,
	); err != nil {
		return auth.MembershipRecord{}, err
	}
	// Roles are stored as text; unknown values reach the access core as is.
	m.Role = auth.Role(role)
	m.BlockedAt = timePtr(blockedAt)
	if billingWS.Valid {
		rec.Billing = &auth.BillingSettings{
			WorkspaceID: billingWS.String,
			Plan:        auth.Plan(plan.String).Normalize(),
			Status:      auth.SubscriptionStatus(status.String),
		}
	}
	return rec, nil
}

func (s *Store) FindUser(ctx context.Context, userID string) (auth.User, error) {
	if s.db == nil {
		return auth.User{}, errNoDB
	}
	var u auth.User
	err := s.db.QueryRowContext(ctx, `
		select id, email, created_at
		from users
		where id = $1 and deleted_at is null
	`, userID).Scan(&u.ID, &u.Email, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.User{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.User{}, err
	}
	return u, nil
}

// UserMemberships returns the user's non-blocked memberships in the order
// they were created. The first entry is the user's default workspace.
func (s *Store) UserMemberships(ctx context.Context, userID string) ([]auth.MembershipRecord, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `select`+recordColumns+recordJoins+`
		where m.user_id = $1 and m.blocked_at is null
		order by m.created_at, m.id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []auth.MembershipRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) FindServiceKey(ctx context.Context, keyID string) (auth.ServiceKey, error) {
	if s.db == nil {
		return auth.ServiceKey{}, errNoDB
	}
	row := s.db.QueryRowContext(ctx, `
		select k.id, k.secret_hash, k.created_at,`+recordColumns+`
		from service_keys k
		join memberships m on m.id = k.membership_id
		join workspaces w on w.id = m.workspace_id
		left join billing_settings b on b.workspace_id = w.id
		where k.id = $1 and m.blocked_at is null
	`, keyID)

	var key auth.ServiceKey
	rec, err := scanRecord(prefixScanner{row: row, prefix: []any{&key.ID, &key.SecretHash, &key.CreatedAt}})
	if errors.Is(err, sql.ErrNoRows) {
		return auth.ServiceKey{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.ServiceKey{}, err
	}
	key.Record = rec
	return key, nil
}

// prefixScanner feeds leading columns into extra destinations before the
// membership record columns.
type prefixScanner struct {
	row    scanner
	prefix []any
}

func (p prefixScanner) Scan(dest ...any) error {
	return p.row.Scan(append(append([]any{}, p.prefix...), dest...)...)
}
