package auth

import (
	"fmt"
	"strings"
)

// PrincipalKind discriminates the two principal variants.
type PrincipalKind string

const (
	PrincipalHuman   PrincipalKind = "human"
	PrincipalService PrincipalKind = "service"
)

// Principal is the authenticated actor of one request. A human principal has
// a user and zero or more memberships in storage order; a service principal
// has exactly one service membership and no user.
type Principal struct {
	kind        PrincipalKind
	user        User
	memberships []MembershipRecord
	service     MembershipRecord
}

// NewHumanPrincipal builds a human principal. Blocked memberships are dropped;
// a membership that is not bound to the user fails with ErrInvalidPrincipal.
func NewHumanPrincipal(user User, memberships []MembershipRecord) (Principal, error) {
	if strings.TrimSpace(user.ID) == "" {
		return Principal{}, fmt.Errorf("%w: user id is required", ErrNotAuthenticated)
	}
	active := make([]MembershipRecord, 0, len(memberships))
	for _, rec := range memberships {
		if rec.Membership.Blocked() {
			continue
		}
		kind, err := rec.Membership.Kind()
		if err != nil {
			return Principal{}, err
		}
		if kind != MembershipHuman || rec.Membership.UserID != user.ID {
			return Principal{}, fmt.Errorf("%w: membership %s is not bound to user %s", ErrInvalidPrincipal, rec.Membership.ID, user.ID)
		}
		active = append(active, rec)
	}
	return Principal{kind: PrincipalHuman, user: user, memberships: active}, nil
}

// NewServicePrincipal builds a service principal from its single membership.
func NewServicePrincipal(rec MembershipRecord) (Principal, error) {
	if rec.Membership.Blocked() {
		return Principal{}, fmt.Errorf("%w: membership %s is blocked", ErrNotAuthenticated, rec.Membership.ID)
	}
	kind, err := rec.Membership.Kind()
	if err != nil {
		return Principal{}, err
	}
	if kind != MembershipService {
		return Principal{}, fmt.Errorf("%w: membership %s is not a service membership", ErrInvalidPrincipal, rec.Membership.ID)
	}
	return Principal{kind: PrincipalService, service: rec}, nil
}

func (p Principal) Kind() PrincipalKind { return p.kind }
