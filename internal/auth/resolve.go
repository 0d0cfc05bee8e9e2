package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"langhub.io/internal/obs"
)

// Resolver turns verified credentials into Requesters. It is the only part of
// the access subsystem that performs I/O, through its Directory.
type Resolver struct {
	dir    Directory
	tokens *TokenIssuer
	system SystemConfiguration
	logger logrus.FieldLogger
}

// NewResolver wires a resolver. tokens may be nil when bearer tokens are disabled.
func NewResolver(dir Directory, tokens *TokenIssuer, sys SystemConfiguration, logger logrus.FieldLogger) (*Resolver, error) {
	if dir == nil {
		return nil, errors.New("auth: directory is required")
	}
	if err := sys.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = obs.Logger()
	}
	return &Resolver{dir: dir, tokens: tokens, system: sys, logger: logger}, nil
}

// System returns the configuration snapshot handed to every Requester.
func (r *Resolver) System() SystemConfiguration { return r.system }

// ResolveHuman loads the user and its non-blocked memberships.
func (r *Resolver) ResolveHuman(ctx context.Context, userID string) (Principal, error) {
	user, err := r.dir.FindUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			obs.ObservePrincipalResolution(string(PrincipalHuman), obs.ResolutionRejected)
			return Principal{}, fmt.Errorf("%w: unknown user %s", ErrNotAuthenticated, userID)
		}
		obs.ObservePrincipalResolution(string(PrincipalHuman), obs.ResolutionError)
		return Principal{}, fmt.Errorf("load user: %w", err)
	}
	memberships, err := r.dir.UserMemberships(ctx, user.ID)
	if err != nil {
		obs.ObservePrincipalResolution(string(PrincipalHuman), obs.ResolutionError)
		return Principal{}, fmt.Errorf("load memberships: %w", err)
	}
	p, err := NewHumanPrincipal(user, memberships)
	if err != nil {
		obs.ObservePrincipalResolution(string(PrincipalHuman), obs.ResolutionError)
		return Principal{}, err
	}
	obs.ObservePrincipalResolution(string(PrincipalHuman), obs.ResolutionOK)
	return p, nil
}

// ResolveService verifies a raw API key and loads its service membership.
func (r *Resolver) ResolveService(ctx context.Context, apiKey string) (Principal, error) {
	keyID, secret, err := ParseServiceKey(apiKey)
	if err != nil {
		obs.ObservePrincipalResolution(string(PrincipalService), obs.ResolutionRejected)
		return Principal{}, fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
	}
	key, err := r.dir.FindServiceKey(ctx, keyID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			obs.ObservePrincipalResolution(string(PrincipalService), obs.ResolutionRejected)
			return Principal{}, fmt.Errorf("%w: unknown service key", ErrNotAuthenticated)
		}
		obs.ObservePrincipalResolution(string(PrincipalService), obs.ResolutionError)
		return Principal{}, fmt.Errorf("load service key: %w", err)
	}
	if !VerifyServiceKeySecret(key.SecretHash, secret) {
		obs.ObservePrincipalResolution(string(PrincipalService), obs.ResolutionRejected)
		return Principal{}, fmt.Errorf("%w: service key mismatch", ErrNotAuthenticated)
	}
	p, err := NewServicePrincipal(key.Record)
	if err != nil {
		result := obs.ResolutionError
		if errors.Is(err, ErrNotAuthenticated) {
			result = obs.ResolutionRejected
		}
		obs.ObservePrincipalResolution(string(PrincipalService), result)
		return Principal{}, err
	}
	obs.ObservePrincipalResolution(string(PrincipalService), obs.ResolutionOK)
	return p, nil
}

// AuthenticateBearer verifies a bearer token and resolves its human requester.
func (r *Resolver) AuthenticateBearer(ctx context.Context, token string) (*Requester, error) {
	if r.tokens == nil {
		return nil, fmt.Errorf("%w: bearer tokens are disabled", ErrNotAuthenticated)
	}
	claims, err := r.tokens.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
	}
	p, err := r.ResolveHuman(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	return NewRequester(p, r.system, WithLogger(r.logger))
}

// AuthenticateAPIKey resolves the service requester owning apiKey.
func (r *Resolver) AuthenticateAPIKey(ctx context.Context, apiKey string) (*Requester, error) {
	p, err := r.ResolveService(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	return NewRequester(p, r.system, WithLogger(r.logger))
}
