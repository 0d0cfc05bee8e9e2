package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// MemberService manages workspaces and memberships. Every operation is gated by
// the caller's Requester or WorkspaceAccess.
type MemberService struct {
	store MemberStore
	now   func() time.Time
}

func NewMemberService(store MemberStore) (*MemberService, error) {
	if store == nil {
		return nil, errors.New("member store is required")
	}
	return &MemberService{store: store, now: time.Now}, nil
}

// CreateWorkspace creates a workspace owned by a human requester. The workspace
// starts on the free plan.
func (s *MemberService) CreateWorkspace(ctx context.Context, r *Requester, key, name string) (MembershipRecord, error) {
	userID, err := r.UserID()
	if err != nil {
		return MembershipRecord{}, err
	}
	key = strings.TrimSpace(strings.ToLower(key))
	if key == "" {
		return MembershipRecord{}, fmt.Errorf("%w: workspace key is required", ErrInvalidInput)
	}
	if strings.ContainsAny(key, " /") {
		return MembershipRecord{}, fmt.Errorf("%w: workspace key %q must be a slug", ErrInvalidInput, key)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return MembershipRecord{}, fmt.Errorf("%w: workspace name is required", ErrInvalidInput)
	}
	return s.store.CreateWorkspace(ctx, key, name, userID)
}

func (s *MemberService) ListMembers(ctx context.Context, access *WorkspaceAccess) ([]Membership, error) {
	if err := access.RequireAbility(AbilityWorkspaceRead); err != nil {
		return nil, err
	}
	return s.store.ListMemberships(ctx, access.WorkspaceID())
}

// ChangeRole moves a membership to another known role. A member cannot change
// its own role.
func (s *MemberService) ChangeRole(ctx context.Context, access *WorkspaceAccess, membershipID, role string) (Membership, error) {
	if err := access.RequireAbility(AbilityMembersManage); err != nil {
		return Membership{}, err
	}
	membershipID = strings.TrimSpace(membershipID)
	if membershipID == "" {
		return Membership{}, fmt.Errorf("%w: membership_id is required", ErrInvalidInput)
	}
	if membershipID == access.AccountID() {
		return Membership{}, fmt.Errorf("%w: cannot change own role", ErrInvalidInput)
	}
	parsed, err := ParseRole(role)
	if err != nil {
		return Membership{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return s.store.ChangeRole(ctx, access.WorkspaceID(), membershipID, parsed)
}

// BlockMember soft-deletes a membership. Blocking is irreversible.
func (s *MemberService) BlockMember(ctx context.Context, access *WorkspaceAccess, membershipID string) (Membership, error) {
	if err := access.RequireAbility(AbilityMembersManage); err != nil {
		return Membership{}, err
	}
	membershipID = strings.TrimSpace(membershipID)
	if membershipID == "" {
		return Membership{}, fmt.Errorf("%w: membership_id is required", ErrInvalidInput)
	}
	if membershipID == access.AccountID() {
		return Membership{}, fmt.Errorf("%w: cannot block own membership", ErrInvalidInput)
	}
	return s.store.BlockMembership(ctx, access.WorkspaceID(), membershipID, s.now().UTC())
}

// IssueServiceKey creates a service membership with the given role and returns
// its API key. The plaintext key is only available in the returned value.
func (s *MemberService) IssueServiceKey(ctx context.Context, access *WorkspaceAccess, role string) (Membership, IssuedServiceKey, error) {
	if err := access.RequireAbility(AbilityAPIKeysManage); err != nil {
		return Membership{}, IssuedServiceKey{}, err
	}
	if strings.TrimSpace(role) == "" {
		role = string(RoleMember)
	}
	parsed, err := ParseRole(role)
	if err != nil {
		return Membership{}, IssuedServiceKey{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	key, err := GenerateServiceKey()
	if err != nil {
		return Membership{}, IssuedServiceKey{}, fmt.Errorf("generate service key: %w", err)
	}
	m, err := s.store.CreateServiceKey(ctx, access.WorkspaceID(), parsed, key.KeyID, key.SecretHash)
	if err != nil {
		return Membership{}, IssuedServiceKey{}, err
	}
	return m, key, nil
}
