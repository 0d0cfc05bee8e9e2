package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubMemberStore struct {
	created     []string
	roleChanges map[string]Role
	blocked     map[string]time.Time
	keys        map[string]string
}

func newStubMemberStore() *stubMemberStore {
	return &stubMemberStore{
		roleChanges: map[string]Role{},
		blocked:     map[string]time.Time{},
		keys:        map[string]string{},
	}
}

func (s *stubMemberStore) CreateUser(_ context.Context, email string) (User, error) {
	return User{ID: "user-" + email, Email: email}, nil
}

func (s *stubMemberStore) CreateWorkspace(_ context.Context, key, name, ownerUserID string) (MembershipRecord, error) {
	s.created = append(s.created, key)
	rec := record("ws-"+key, RoleOwner, MembershipHuman, PlanFree)
	rec.Membership.UserID = ownerUserID
	rec.Workspace.Name = name
	return rec, nil
}

func (s *stubMemberStore) ListMemberships(_ context.Context, workspaceID string) ([]Membership, error) {
	return []Membership{membership("m-1", workspaceID, RoleOwner, MembershipHuman)}, nil
}

func (s *stubMemberStore) ChangeRole(_ context.Context, workspaceID, membershipID string, role Role) (Membership, error) {
	s.roleChanges[membershipID] = role
	return membership(membershipID, workspaceID, role, MembershipHuman), nil
}

func (s *stubMemberStore) BlockMembership(_ context.Context, workspaceID, membershipID string, at time.Time) (Membership, error) {
	if _, ok := s.blocked[membershipID]; ok {
		return Membership{}, ErrNotFound
	}
	s.blocked[membershipID] = at
	m := membership(membershipID, workspaceID, RoleMember, MembershipHuman)
	m.BlockedAt = &at
	return m, nil
}

func (s *stubMemberStore) CreateServiceKey(_ context.Context, workspaceID string, role Role, keyID, secretHash string) (Membership, error) {
	s.keys[keyID] = secretHash
	return membership("svc-"+keyID, workspaceID, role, MembershipService), nil
}

func accessFor(t *testing.T, role Role) *WorkspaceAccess {
	t.Helper()
	access, err := NewWorkspaceAccess(cloud, record("ws-1", role, MembershipHuman, PlanFree))
	if err != nil {
		t.Fatalf("NewWorkspaceAccess: %v", err)
	}
	return access
}

func TestMemberServiceRequiresAbilities(t *testing.T) {
	store := newStubMemberStore()
	svc, err := NewMemberService(store)
	if err != nil {
		t.Fatalf("NewMemberService: %v", err)
	}
	member := accessFor(t, RoleMember)
	ctx := context.Background()

	if _, err := svc.ListMembers(ctx, member); err != nil {
		t.Fatalf("members can list: %v", err)
	}
	if _, err := svc.ChangeRole(ctx, member, "m-2", "admin"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := svc.BlockMember(ctx, member, "m-2"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, _, err := svc.IssueServiceKey(ctx, member, ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if len(store.roleChanges) != 0 || len(store.blocked) != 0 || len(store.keys) != 0 {
		t.Fatalf("store must not be touched on denial")
	}
}

func TestMemberServiceOwnerOperations(t *testing.T) {
	store := newStubMemberStore()
	svc, _ := NewMemberService(store)
	owner := accessFor(t, RoleOwner)
	ctx := context.Background()

	m, err := svc.ChangeRole(ctx, owner, "m-2", " Admin ")
	if err != nil {
		t.Fatalf("ChangeRole: %v", err)
	}
	if m.Role != RoleAdmin || store.roleChanges["m-2"] != RoleAdmin {
		t.Fatalf("role not changed: %+v", m)
	}
	if _, err := svc.ChangeRole(ctx, owner, "m-2", "translator"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown role, got %v", err)
	}
	if _, err := svc.ChangeRole(ctx, owner, owner.AccountID(), "member"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected self role change to be rejected, got %v", err)
	}

	blocked, err := svc.BlockMember(ctx, owner, "m-3")
	if err != nil {
		t.Fatalf("BlockMember: %v", err)
	}
	if !blocked.Blocked() {
		t.Fatalf("expected blocked membership")
	}
	if _, err := svc.BlockMember(ctx, owner, "m-3"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected second block to report ErrNotFound, got %v", err)
	}
	if _, err := svc.BlockMember(ctx, owner, owner.AccountID()); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected self block to be rejected, got %v", err)
	}

	sm, key, err := svc.IssueServiceKey(ctx, owner, "")
	if err != nil {
		t.Fatalf("IssueServiceKey: %v", err)
	}
	if sm.Role != RoleMember {
		t.Fatalf("expected default member role, got %s", sm.Role)
	}
	if store.keys[key.KeyID] != key.SecretHash {
		t.Fatalf("stored hash mismatch")
	}
	if _, secret, err := ParseServiceKey(key.Plaintext); err != nil || !VerifyServiceKeySecret(key.SecretHash, secret) {
		t.Fatalf("issued key does not verify: %v", err)
	}
}

func TestMemberServiceCreateWorkspace(t *testing.T) {
	store := newStubMemberStore()
	svc, _ := NewMemberService(store)
	ctx := context.Background()

	human, _ := humanRequester(t, cloud)
	rec, err := svc.CreateWorkspace(ctx, human, " Acme ", "Acme Inc")
	if err != nil {
		t.Fatalf("CreateWorkspace: %v", err)
	}
	if rec.Membership.UserID != "user-1" || store.created[0] != "acme" {
		t.Fatalf("unexpected record: %+v (%v)", rec, store.created)
	}
	if _, err := svc.CreateWorkspace(ctx, human, "a b", "x"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected slug validation, got %v", err)
	}

	p, _ := NewServicePrincipal(record("ws-1", RoleOwner, MembershipService, PlanFree))
	service, _ := NewRequester(p, cloud)
	if _, err := svc.CreateWorkspace(ctx, service, "svc", "Service"); !errors.Is(err, ErrNotApplicable) {
		t.Fatalf("expected ErrNotApplicable for service requester, got %v", err)
	}
}
