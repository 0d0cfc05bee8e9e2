package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"langhub.io/internal/auth"
)

const (
	authHeader   = "Authorization"
	apiKeyHeader = "X-API-Key"
	bearer       = "Bearer "
)

// withAuth resolves the request credentials into a Requester and stores it
// in the request context. An X-API-Key header takes precedence over a
// bearer token.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if a.authn == nil {
			writeError(w, r, http.StatusServiceUnavailable, "authentication unavailable")
			return
		}

		var (
			requester *auth.Requester
			err       error
		)
		if key := strings.TrimSpace(r.Header.Get(apiKeyHeader)); key != "" {
			requester, err = a.authn.AuthenticateAPIKey(r.Context(), key)
		} else {
			var token string
			token, err = extractBearerToken(r.Header.Get(authHeader))
			if err == nil {
				requester, err = a.authn.AuthenticateBearer(r.Context(), token)
			}
		}
		if err != nil {
			a.writeAccessError(w, r, err)
			return
		}

		markRequester(r.Context(), requester)
		ctx := auth.ContextWithRequester(r.Context(), requester)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requesterFrom(r *http.Request) (*auth.Requester, error) {
	req, ok := auth.RequesterFromContext(r.Context())
	if !ok {
		return nil, auth.ErrNotAuthenticated
	}
	return req, nil
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", fmt.Errorf("%w: missing bearer token", auth.ErrNotAuthenticated)
	}
	if len(header) < len(bearer) || !strings.EqualFold(header[:len(bearer)], bearer) {
		return "", fmt.Errorf("%w: invalid authorization scheme", auth.ErrNotAuthenticated)
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", fmt.Errorf("%w: missing bearer token", auth.ErrNotAuthenticated)
	}
	return token, nil
}
