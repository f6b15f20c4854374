package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/breeze-rmm/breeze/internal/apperr"
	"github.com/breeze-rmm/breeze/internal/auth"
	"github.com/breeze-rmm/breeze/internal/model"
)

type ctxKey int

const requestIDKey ctxKey = iota

// RequestID stamps every request with an id used in logs and returned
// as the X-Request-Id response header, so an operator can correlate a
// client-reported error with the structured log line that produced it.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get("X-Request-Id")
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", rid)
		ctx := context.WithValue(r.Context(), requestIDKey, rid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFromContext returns the request id stamped by RequestID, or
// "" if none is present (e.g. in a unit test calling a handler directly).
func RequestIDFromContext(ctx context.Context) string {
	rid, _ := ctx.Value(requestIDKey).(string)
	return rid
}

// ShutdownGate rejects new requests with 503 once shutdownCh is
// closed, mirroring the teacher's connect-rpc shutdownInterceptor:
// in-flight requests already past this middleware are allowed to
// finish; only requests arriving after shutdown begins are refused.
func ShutdownGate(shutdownCh <-chan struct{}) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-shutdownCh:
				JSON(w, http.StatusServiceUnavailable, errorBody{Error: "server is shutting down"})
				return
			default:
			}
			next.ServeHTTP(w, r)
		})
	}
}

// DefaultTimeout applies d as a request deadline unless the request
// already carries one, mirroring the teacher's timeoutInterceptor for
// unary RPCs without a client deadline.
func DefaultTimeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := r.Context().Deadline(); ok {
				next.ServeHTTP(w, r)
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// sessionChecker is the subset of cache.Cache Authenticate needs,
// narrowed so middleware tests can fake it without a real Redis client.
type sessionChecker interface {
	IsRevoked(ctx context.Context, userID, sessionID string) (bool, error)
}

// roleAndMembership is the subset of store.Store Authenticate needs to
// re-derive permissions and, for a partner actor, accessibleOrgIds on
// every request — a token's claims are never trusted for authorization
// decisions beyond which scope/org/role to re-check, per spec.md §4.1.
type roleAndMembership interface {
	GetRole(ctx context.Context, id string) (*model.Role, error)
	GetPartnerUser(ctx context.Context, partnerID, userID string) (*model.PartnerUser, error)
	ListOrganizationsByPartner(ctx context.Context, partnerID string) ([]*model.Organization, error)
}

// Authenticate accepts either a "Bearer <jwt>" or an API key presented
// as "Bearer bz_live_..." (disambiguated by prefix), verifies it, and
// stores the resolved auth.AuthContext on the request context. Missing
// or invalid credentials yield apperr.Unauthenticated.
func Authenticate(tokens *auth.TokenManager, svc *auth.Service, cache sessionChecker, roles roleAndMembership) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenStr, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokenStr == "" {
				Error(w, r, apperr.Unauthenticated("missing bearer token"))
				return
			}

			if strings.HasPrefix(tokenStr, "bz_live_") {
				ac, _, err := svc.AuthenticateAPIKey(r.Context(), tokenStr)
				if err != nil {
					Error(w, r, err)
					return
				}
				next.ServeHTTP(w, r.WithContext(auth.WithAuthContext(r.Context(), ac)))
				return
			}

			claims, err := tokens.Verify(tokenStr)
			if err != nil {
				Error(w, r, err)
				return
			}
			revoked, err := cache.IsRevoked(r.Context(), claims.Subject, claims.SessionID)
			if err != nil {
				Error(w, r, apperr.TransientStoreFailure("check session revocation", err))
				return
			}
			if revoked {
				Error(w, r, apperr.Unauthenticated("session revoked"))
				return
			}

			ac, err := resolveAuthContext(r.Context(), roles, claims)
			if err != nil {
				Error(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithAuthContext(r.Context(), ac)))
		})
	}
}

// resolveAuthContext re-derives permissions (and, for a partner actor,
// accessibleOrgIds) fresh from the role/membership tables on every
// request, so a permission or org-access change takes effect on the
// very next call instead of waiting for the access token to expire.
func resolveAuthContext(ctx context.Context, roles roleAndMembership, claims *auth.Claims) (*auth.AuthContext, error) {
	switch claims.Scope {
	case model.ScopeSystem:
		role, err := roles.GetRole(ctx, claims.RoleID)
		if err != nil {
			return nil, err
		}
		return auth.NewSystemAuthContext(claims.Subject, role.Permissions), nil

	case model.ScopePartner:
		role, err := roles.GetRole(ctx, claims.RoleID)
		if err != nil {
			return nil, err
		}
		pu, err := roles.GetPartnerUser(ctx, claims.PartnerID, claims.Subject)
		if err != nil {
			return nil, err
		}
		var orgIDs []string
		switch pu.OrgAccess {
		case model.OrgAccessAll:
			list, err := roles.ListOrganizationsByPartner(ctx, claims.PartnerID)
			if err != nil {
				return nil, err
			}
			for _, o := range list {
				orgIDs = append(orgIDs, o.ID)
			}
		case model.OrgAccessSelected:
			list, err := roles.ListOrganizationsByPartner(ctx, claims.PartnerID)
			if err != nil {
				return nil, err
			}
			allowed := make(map[string]bool, len(list))
			for _, o := range list {
				allowed[o.ID] = true
			}
			for _, orgID := range pu.OrgIDs {
				if allowed[orgID] {
					orgIDs = append(orgIDs, orgID)
				}
			}
		}
		return auth.NewPartnerAuthContext(claims.Subject, claims.PartnerID, claims.RoleID, role.Permissions, orgIDs, false), nil

	default:
		role, err := roles.GetRole(ctx, claims.RoleID)
		if err != nil {
			return nil, err
		}
		return auth.NewOrganizationAuthContext(claims.Subject, claims.OrgID, claims.RoleID, role.Permissions), nil
	}
}

// RequirePermission is a route-level guard wrapping
// auth.AuthContext.RequirePermission for handlers that need it before
// doing any work.
func RequirePermission(resource, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, err := auth.MustFromContext(r.Context())
			if err != nil {
				Error(w, r, err)
				return
			}
			if err := ac.RequirePermission(resource, action); err != nil {
				Error(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
