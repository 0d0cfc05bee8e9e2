package auth

import "fmt"

// WorkspaceAccess is what one membership may do inside one workspace.
// Abilities and limits are computed once by NewWorkspaceAccess; every getter
// is a plain read.
type WorkspaceAccess struct {
	membership Membership
	workspace  Workspace
	billing    BillingSettings
	abilities  AbilitySet
	limits     Limits
	roleKnown  bool
}

// NewWorkspaceAccess builds the access for a membership record. The record
// must carry billing settings and a membership bound to exactly one of a user
// or a service.
func NewWorkspaceAccess(sys SystemConfiguration, rec MembershipRecord) (*WorkspaceAccess, error) {
	if err := sys.Validate(); err != nil {
		return nil, err
	}
	if _, err := rec.Membership.Kind(); err != nil {
		return nil, err
	}
	if rec.Membership.WorkspaceID != rec.Workspace.ID {
		return nil, fmt.Errorf("%w: membership %s points at workspace %s, record holds %s",
			ErrInvalidState, rec.Membership.ID, rec.Membership.WorkspaceID, rec.Workspace.ID)
	}
	if rec.Billing == nil {
		return nil, missingBilling(rec.Workspace.ID)
	}
	billing := *rec.Billing
	abilities, roleKnown := ResolveAbilities(sys, rec.Membership, billing)
	return &WorkspaceAccess{
		membership: rec.Membership,
		workspace:  rec.Workspace,
		billing:    billing,
		abilities:  abilities,
		limits:     ResolveLimits(sys, billing),
		roleKnown:  roleKnown,
	}, nil
}

func (a *WorkspaceAccess) Abilities() AbilitySet { return a.abilities }

func (a *WorkspaceAccess) HasAbility(ability Ability) bool {
	return a.abilities.Has(ability)
}

// RequireAbility returns a Forbidden error naming the ability when it is missing.
func (a *WorkspaceAccess) RequireAbility(ability Ability) error {
	if a.abilities.Has(ability) {
		return nil
	}
	return forbiddenAbility(a.workspace.ID, ability)
}

func (a *WorkspaceAccess) Limits() Limits { return a.limits }

// AccountID is the id of the membership the access was built from.
func (a *WorkspaceAccess) AccountID() string { return a.membership.ID }

func (a *WorkspaceAccess) WorkspaceID() string { return a.workspace.ID }

func (a *WorkspaceAccess) WorkspaceDetails() WorkspaceDetails {
	return WorkspaceDetails{ID: a.workspace.ID, Key: a.workspace.Key, Name: a.workspace.Name}
}

func (a *WorkspaceAccess) Role() Role { return a.membership.Role }

// Billing returns the billing snapshot the access was computed from.
func (a *WorkspaceAccess) Billing() BillingSettings { return a.billing }

// RoleRecognized is false when the membership role fell outside the known set
// and only baseline abilities were granted.
func (a *WorkspaceAccess) RoleRecognized() bool { return a.roleKnown }
