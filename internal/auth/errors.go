package auth

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound      = errors.New("auth: not found")
	ErrConflict      = errors.New("auth: resource conflict")
	ErrInvalidInput  = errors.New("auth: invalid input")
	ErrInvalidToken  = errors.New("auth: invalid token")
	ErrNotConfigured = errors.New("auth: not configured")

	// ErrNotAuthenticated means no identity could be resolved.
	ErrNotAuthenticated = errors.New("auth: not authenticated")
	// ErrForbidden means the identity lacks access to a workspace or an ability.
	ErrForbidden = errors.New("auth: forbidden")
	// ErrNoWorkspaceAccess means a human principal has no membership at all.
	ErrNoWorkspaceAccess = errors.New("auth: no workspace access")
	// ErrNotApplicable means the operation does not exist for this principal kind.
	ErrNotApplicable = errors.New("auth: not applicable to principal")
	// ErrInvalidState flags stored data that violates an invariant.
	ErrInvalidState = errors.New("auth: invalid state")
	// ErrMissingBillingSettings is the invalid state of a workspace without billing settings.
	ErrMissingBillingSettings = fmt.Errorf("%w: missing billing settings", ErrInvalidState)
	// ErrInvalidPrincipal flags a membership bound to neither (or both) a user and a service.
	ErrInvalidPrincipal = errors.New("auth: invalid principal")
	// ErrUnknownRole flags a role outside the closed set.
	ErrUnknownRole = errors.New("auth: unknown role")
)

// AccessError describes a denied or failed access check. Kind is one of the
// sentinel errors above, so errors.Is works against it.
type AccessError struct {
	Kind        error
	WorkspaceID string
	Ability     Ability
}

func (e *AccessError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Ability != "" {
		fmt.Fprintf(&b, ": missing ability %q", string(e.Ability))
	}
	switch {
	case e.WorkspaceID == "":
	case e.Ability == "" && errors.Is(e.Kind, ErrForbidden):
		fmt.Fprintf(&b, ": no access to workspace %s", e.WorkspaceID)
	default:
		fmt.Fprintf(&b, " (workspace %s)", e.WorkspaceID)
	}
	return b.String()
}

func (e *AccessError) Unwrap() error { return e.Kind }

func forbiddenWorkspace(workspaceID string) error {
	return &AccessError{Kind: ErrForbidden, WorkspaceID: workspaceID}
}

func forbiddenAbility(workspaceID string, ability Ability) error {
	return &AccessError{Kind: ErrForbidden, WorkspaceID: workspaceID, Ability: ability}
}

func missingBilling(workspaceID string) error {
	return &AccessError{Kind: ErrMissingBillingSettings, WorkspaceID: workspaceID}
}
