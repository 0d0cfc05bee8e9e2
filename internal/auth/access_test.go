package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestNewWorkspaceAccess(t *testing.T) {
	access, err := NewWorkspaceAccess(cloudProvider, record("ws-1", RoleBiller, MembershipHuman, PlanPro))
	if err != nil {
		t.Fatalf("NewWorkspaceAccess: %v", err)
	}
	if access.WorkspaceID() != "ws-1" || access.AccountID() != "m-ws-1" {
		t.Fatalf("unexpected identity: %s/%s", access.WorkspaceID(), access.AccountID())
	}
	if got := access.WorkspaceDetails(); got.Key != "key-ws-1" || got.Name != "Workspace ws-1" {
		t.Fatalf("unexpected details: %+v", got)
	}
	if !access.HasAbility(AbilityAutoTranslationUse) || !access.HasAbility(AbilityBillingManage) {
		t.Fatalf("expected billing and auto-translation, got %v", access.Abilities().Strings())
	}
	if access.Limits().ProjectsCount.Bounded() {
		t.Fatalf("pro plan should be unlimited, got %v", access.Limits())
	}
	if !access.RoleRecognized() || access.Role() != RoleBiller {
		t.Fatalf("unexpected role state: %s %v", access.Role(), access.RoleRecognized())
	}
}

func TestRequireAbility(t *testing.T) {
	access, err := NewWorkspaceAccess(cloud, record("ws-1", RoleMember, MembershipHuman, PlanFree))
	if err != nil {
		t.Fatalf("NewWorkspaceAccess: %v", err)
	}
	if err := access.RequireAbility(AbilityWorkspaceWrite); err != nil {
		t.Fatalf("expected write ability: %v", err)
	}
	err = access.RequireAbility(AbilityMembersManage)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	var accessErr *AccessError
	if !errors.As(err, &accessErr) || accessErr.Ability != AbilityMembersManage || accessErr.WorkspaceID != "ws-1" {
		t.Fatalf("expected AccessError naming the ability, got %#v", err)
	}
	if !strings.Contains(err.Error(), `"members:manage"`) {
		t.Fatalf("error should name the ability: %v", err)
	}
}

func TestNewWorkspaceAccessInvalidState(t *testing.T) {
	missingBilling := record("ws-1", RoleOwner, MembershipHuman, PlanFree)
	missingBilling.Billing = nil

	mismatched := record("ws-1", RoleOwner, MembershipHuman, PlanFree)
	mismatched.Membership.WorkspaceID = "ws-2"

	unbound := record("ws-1", RoleOwner, MembershipHuman, PlanFree)
	unbound.Membership.UserID = ""

	both := record("ws-1", RoleOwner, MembershipHuman, PlanFree)
	both.Membership.ServiceID = "svc_1"

	cases := []struct {
		name string
		sys  SystemConfiguration
		rec  MembershipRecord
		want error
	}{
		{"missing billing", cloud, missingBilling, ErrMissingBillingSettings},
		{"missing billing self-hosted", selfHosted, missingBilling, ErrInvalidState},
		{"workspace mismatch", cloud, mismatched, ErrInvalidState},
		{"unbound membership", cloud, unbound, ErrInvalidPrincipal},
		{"doubly bound membership", cloud, both, ErrInvalidPrincipal},
		{"invalid configuration", SystemConfiguration{Distribution: "on-prem"}, record("ws-1", RoleOwner, MembershipHuman, PlanFree), ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewWorkspaceAccess(tc.sys, tc.rec)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestWorkspaceAccessUnknownRole(t *testing.T) {
	access, err := NewWorkspaceAccess(cloudProvider, record("ws-1", Role("translator"), MembershipHuman, PlanPro))
	if err != nil {
		t.Fatalf("NewWorkspaceAccess: %v", err)
	}
	if access.RoleRecognized() {
		t.Fatalf("expected unknown role to be flagged")
	}
	if access.Abilities().Len() != 2 {
		t.Fatalf("expected baseline abilities, got %v", access.Abilities().Strings())
	}
}
