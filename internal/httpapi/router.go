package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/breeze-rmm/breeze/internal/agentgw"
	"github.com/breeze-rmm/breeze/internal/audit"
	"github.com/breeze-rmm/breeze/internal/auth"
	"github.com/breeze-rmm/breeze/internal/cache"
	"github.com/breeze-rmm/breeze/internal/cryptoutil"
	"github.com/breeze-rmm/breeze/internal/logging"
	"github.com/breeze-rmm/breeze/internal/metrics"
	"github.com/breeze-rmm/breeze/internal/store"
)

// routeParam reads a chi URL parameter by name.
func routeParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

// Dependencies bundles every collaborator NewRouter needs to wire the
// full REST surface; Server owns constructing these from config.
type Dependencies struct {
	Store           *store.Store
	Cache           *cache.Cache
	Tokens          *auth.TokenManager
	AuthService     *auth.Service
	Gateway         *agentgw.Gateway
	AuditWriter     *audit.Writer
	MFAEncryptor    *cryptoutil.Encryptor
	MFAIssuer       string
	MFARecoveryPepper string
	APITimeout      time.Duration
	MetricsToken    string
	ShutdownCh      <-chan struct{}
	CORSOrigins     []string
}

// NewRouter builds the chi router serving spec.md §6's REST surface:
// agent-facing endpoints under /api/v1/agents (no user auth), and
// operator-facing endpoints under /api/v1 guarded by Authenticate.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestID)
	r.Use(logging.HTTPMiddleware)
	r.Use(metrics.HTTPMiddleware)
	if deps.ShutdownCh != nil {
		r.Use(ShutdownGate(deps.ShutdownCh))
	}
	if deps.APITimeout > 0 {
		r.Use(DefaultTimeout(deps.APITimeout))
	}
	if len(deps.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   deps.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/metrics", MetricsHandler(deps.MetricsToken).ServeHTTP)

	agentHandlers := NewAgentHandlers(deps.Gateway)
	r.Route("/api/v1/agents", func(r chi.Router) {
		r.Post("/enroll", agentHandlers.Enroll)
		r.Post("/heartbeat", agentHandlers.Heartbeat)
		r.Post("/commands/result", agentHandlers.PostResult)
		r.Post("/cert/renew", agentHandlers.RenewCert)
	})

	authHandlers := NewAuthHandlers(deps.AuthService, deps.Store, deps.MFAEncryptor, deps.MFAIssuer, deps.MFARecoveryPepper)
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/login", authHandlers.Login)
		r.Post("/refresh", authHandlers.Refresh)
		r.Group(func(r chi.Router) {
			r.Use(Authenticate(deps.Tokens, deps.AuthService, deps.Cache, deps.Store))
			r.Post("/logout", authHandlers.Logout)
			r.Post("/mfa/setup", authHandlers.MFASetup)
			r.Post("/mfa/verify", authHandlers.MFAVerify)
		})
	})

	deviceHandlers := NewDeviceHandlers(deps.Store)
	auditHandlers := NewAuditHandlers(deps.Store)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Authenticate(deps.Tokens, deps.AuthService, deps.Cache, deps.Store))

		r.Get("/devices", deviceHandlers.List)
		r.Get("/devices/{deviceId}", deviceHandlers.Get)
		r.Patch("/devices/{deviceId}", deviceHandlers.Patch)
		r.Delete("/devices/{deviceId}", deviceHandlers.Delete)
		r.Post("/devices/{deviceId}/commands", deviceHandlers.IssueCommand)
		r.Get("/devices/{deviceId}/commands/{commandId}", deviceHandlers.GetCommand)

		r.Get("/organizations/{orgId}/audit-log", auditHandlers.List)
		r.Get("/organizations/{orgId}/audit-log/verify", auditHandlers.Verify)
	})

	return r
}
