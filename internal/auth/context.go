package auth

import "context"

type requesterContextKey struct{}

// ContextWithRequester attaches the authenticated requester to the context.
func ContextWithRequester(ctx context.Context, r *Requester) context.Context {
	if r == nil {
		return ctx
	}
	return context.WithValue(ctx, requesterContextKey{}, r)
}

// RequesterFromContext extracts the authenticated requester from the context.
func RequesterFromContext(ctx context.Context) (*Requester, bool) {
	if ctx == nil {
		return nil, false
	}
	r, ok := ctx.Value(requesterContextKey{}).(*Requester)
	if !ok || r == nil {
		return nil, false
	}
	return r, true
}
