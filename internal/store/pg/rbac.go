package pg

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"langhub.io/internal/auth"
	"langhub.io/internal/ids"
)

const membershipColumns = `
	id, workspace_id, role, coalesce(user_id, ''), coalesce(service_id, ''), blocked_at, created_at`

func scanMembership(row scanner) (auth.Membership, error) {
	var (
		m         auth.Membership
		role      string
		blockedAt sql.NullTime
	)
	if err := row.Scan(&m.ID, &m.WorkspaceID, &role, &m.UserID, &m.ServiceID, &blockedAt, &m.CreatedAt); err != nil {
		return auth.Membership{}, err
	}
	m.Role = auth.Role(role)
	m.BlockedAt = timePtr(blockedAt)
	return m, nil
}

func (s *Store) CreateUser(ctx context.Context, email string) (auth.User, error) {
	if s.db == nil {
		return auth.User{}, errNoDB
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return auth.User{}, auth.ErrInvalidInput
	}
	var u auth.User
	err := s.db.QueryRowContext(ctx, `
		insert into users (id, email)
		values ($1, $2)
		returning id, email, created_at
	`, ids.New(), email).Scan(&u.ID, &u.Email, &u.CreatedAt)
	if err != nil {
		return auth.User{}, mapWriteError(err)
	}
	return u, nil
}

// CreateWorkspace inserts the workspace, its default billing settings and
// the owner membership in one transaction.
func (s *Store) CreateWorkspace(ctx context.Context, key, name, ownerUserID string) (auth.MembershipRecord, error) {
	if s.db == nil {
		return auth.MembershipRecord{}, errNoDB
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return auth.MembershipRecord{}, err
	}
	defer func() { _ = tx.Rollback() }()

	ws := auth.Workspace{ID: ids.New(), Key: key, Name: name}
	if _, err := tx.ExecContext(ctx, `
		insert into workspaces (id, key, name) values ($1, $2, $3)
	`, ws.ID, ws.Key, ws.Name); err != nil {
		return auth.MembershipRecord{}, mapWriteError(err)
	}

	billing := auth.DefaultBillingSettings(ws.ID)
	if _, err := tx.ExecContext(ctx, `
		insert into billing_settings (workspace_id, plan, status) values ($1, $2, $3)
	`, billing.WorkspaceID, string(billing.Plan), string(billing.Status)); err != nil {
		return auth.MembershipRecord{}, mapWriteError(err)
	}

	owner, err := scanMembership(tx.QueryRowContext(ctx, `
		insert into memberships (id, workspace_id, role, user_id)
		values ($1, $2, $3, $4)
		returning`+membershipColumns,
		ids.New(), ws.ID, string(auth.RoleOwner), ownerUserID))
	if err != nil {
		return auth.MembershipRecord{}, mapWriteError(err)
	}

	if err := tx.Commit(); err != nil {
		return auth.MembershipRecord{}, err
	}
	return auth.MembershipRecord{Membership: owner, Workspace: ws, Billing: &billing}, nil
}

// ListMemberships returns every membership of the workspace, blocked ones
// included, in creation order.
func (s *Store) ListMemberships(ctx context.Context, workspaceID string) ([]auth.Membership, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `
		select`+membershipColumns+`
		from memberships
		where workspace_id = $1
		order by created_at, id
	`, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []auth.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ChangeRole updates the role of an active membership.
func (s *Store) ChangeRole(ctx context.Context, workspaceID, membershipID string, role auth.Role) (auth.Membership, error) {
	if s.db == nil {
		return auth.Membership{}, errNoDB
	}
	m, err := scanMembership(s.db.QueryRowContext(ctx, `
		update memberships set role = $3
		where workspace_id = $1 and id = $2 and blocked_at is null
		returning`+membershipColumns,
		workspaceID, membershipID, string(role)))
	if err != nil {
		return auth.Membership{}, mapWriteError(err)
	}
	return m, nil
}

// BlockMembership sets blocked_at once. Blocking an already blocked or
// missing membership reports ErrNotFound.
func (s *Store) BlockMembership(ctx context.Context, workspaceID, membershipID string, at time.Time) (auth.Membership, error) {
	if s.db == nil {
		return auth.Membership{}, errNoDB
	}
	if at.IsZero() {
		at = s.now()
	}
	m, err := scanMembership(s.db.QueryRowContext(ctx, `
		update memberships set blocked_at = $3
		where workspace_id = $1 and id = $2 and blocked_at is null
		returning`+membershipColumns,
		workspaceID, membershipID, at))
	if err != nil {
		return auth.Membership{}, mapWriteError(err)
	}
	return m, nil
}

// CreateServiceKey creates a service membership and stores the hashed key
// bound to it.
func (s *Store) CreateServiceKey(ctx context.Context, workspaceID string, role auth.Role, keyID, secretHash string) (auth.Membership, error) {
	if s.db == nil {
		return auth.Membership{}, errNoDB
	}
	if strings.TrimSpace(keyID) == "" || strings.TrimSpace(secretHash) == "" {
		return auth.Membership{}, errors.New("service key id and hash are required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return auth.Membership{}, err
	}
	defer func() { _ = tx.Rollback() }()

	m, err := scanMembership(tx.QueryRowContext(ctx, `
		insert into memberships (id, workspace_id, role, service_id)
		values ($1, $2, $3, $4)
		returning`+membershipColumns,
		ids.New(), workspaceID, string(role), ids.Prefixed("svc")))
	if err != nil {
		return auth.Membership{}, mapWriteError(err)
	}
	if _, err := tx.ExecContext(ctx, `
		insert into service_keys (id, membership_id, secret_hash) values ($1, $2, $3)
	`, keyID, m.ID, secretHash); err != nil {
		return auth.Membership{}, mapWriteError(err)
	}
	if err := tx.Commit(); err != nil {
		return auth.Membership{}, err
	}
	return m, nil
}
