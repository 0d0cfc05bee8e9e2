package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"langhub.io/internal/audit"
	"langhub.io/internal/auth"
	"langhub.io/internal/obs"
)

const serviceName = "langhub-api"

type readinessChecker interface {
	Check(ctx context.Context) error
}

// ReadyProbe is a simple readiness check (e.g. database ping).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Authenticator resolves request credentials into a Requester.
type Authenticator interface {
	AuthenticateBearer(ctx context.Context, token string) (*auth.Requester, error)
	AuthenticateAPIKey(ctx context.Context, apiKey string) (*auth.Requester, error)
}

// Options tune the middleware chain. Zero values fall back to defaults.
type Options struct {
	RateBurst     int
	RatePerSecond float64
	MaxBodyBytes  int64
	CORSOrigins   []string
	// TrustProxy keys rate limiting on X-Forwarded-For. Enable only when a
	// reverse proxy overwrites the header.
	TrustProxy bool
	Logger     logrus.FieldLogger
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe readinessChecker
	version    string
	authn      Authenticator
	members    *auth.MemberService
	opts       Options
	logger     logrus.FieldLogger
}

// New builds the API. members may be nil, in which case member management
// endpoints answer 503.
func New(rp readinessChecker, version string, authn Authenticator, members *auth.MemberService, opts Options) *API {
	if opts.RateBurst <= 0 {
		opts.RateBurst = 40
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 20
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	logger := opts.Logger
	if logger == nil {
		logger = obs.Logger()
	}
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		authn:      authn,
		members:    members,
		opts:       opts,
		logger:     logger,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// access
	a.mux.Handle("/v1/me", a.withAuth(http.HandlerFunc(a.handleMe)))
	a.mux.Handle("/v1/workspaces", a.withAuth(http.HandlerFunc(a.handleWorkspaces)))
	a.mux.Handle("/v1/workspaces/", a.withAuth(http.HandlerFunc(a.handleWorkspaceScoped)))

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "resource not found")
	})

	return a
}

// Handler returns the fully wrapped handler for the HTTP server.
func (a *API) Handler() http.Handler {
	var h http.Handler = obs.Instrument(a.mux)
	h = MaxBodyBytes(h, a.opts.MaxBodyBytes)
	h = RateLimit(h, a.opts.RateBurst, a.opts.RatePerSecond, a.opts.TrustProxy)
	h = CORS(h, a.opts.CORSOrigins...)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	return RequestID(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// writeAccessError maps access and storage errors onto HTTP responses.
// Denials carry a generic message; invalid state is logged and hidden.
func (a *API) writeAccessError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrNotAuthenticated):
		w.Header().Set("WWW-Authenticate", `Bearer realm="langhub"`)
		writeError(w, r, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, auth.ErrForbidden), errors.Is(err, auth.ErrNoWorkspaceAccess):
		writeError(w, r, http.StatusForbidden, "forbidden")
	case errors.Is(err, auth.ErrNotApplicable):
		writeError(w, r, http.StatusConflict, "operation not applicable to this principal")
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrConflict):
		writeError(w, r, http.StatusConflict, "resource already exists")
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "resource not found")
	default:
		entry := a.logger.WithError(err).WithField("request_id", RequestIDFromContext(r.Context()))
		if req, ok := auth.RequesterFromContext(r.Context()); ok {
			entry = entry.WithFields(req.LoggingAttributes())
		}
		entry.Error("request failed")
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func (a *API) audit(ctx context.Context, event string, fields map[string]any) {
	if err := audit.LogEvent(ctx, event, fields); err != nil {
		a.logger.WithError(err).WithField("event", event).Warn("audit log failed")
	}
}
