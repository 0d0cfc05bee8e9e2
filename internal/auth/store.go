package auth

import (
	"context"
	"time"
)

// Directory is the read side principal resolution needs. Implementations
// return ErrNotFound for missing rows.
type Directory interface {
	// FindUser loads a non-deleted user.
	FindUser(ctx context.Context, userID string) (User, error)
	// UserMemberships lists the user's non-blocked memberships in insertion order.
	UserMemberships(ctx context.Context, userID string) ([]MembershipRecord, error)
	// FindServiceKey loads a key together with its service membership.
	FindServiceKey(ctx context.Context, keyID string) (ServiceKey, error)
}

// MemberStore mutates memberships on behalf of member management.
type MemberStore interface {
	CreateUser(ctx context.Context, email string) (User, error)
	CreateWorkspace(ctx context.Context, key, name, ownerUserID string) (MembershipRecord, error)
	ListMemberships(ctx context.Context, workspaceID string) ([]Membership, error)
	ChangeRole(ctx context.Context, workspaceID, membershipID string, role Role) (Membership, error)
	BlockMembership(ctx context.Context, workspaceID, membershipID string, at time.Time) (Membership, error)
	CreateServiceKey(ctx context.Context, workspaceID string, role Role, keyID, secretHash string) (Membership, error)
}
