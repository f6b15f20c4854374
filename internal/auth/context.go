// Package auth implements the authentication & tenancy core from
// spec.md §4.1: AuthContext resolution, accessibleOrgIds derivation,
// token issuance/verification, and MFA/API-key credential checks.
package auth

import (
	"context"
	"strconv"

	"github.com/breeze-rmm/breeze/internal/apperr"
	"github.com/breeze-rmm/breeze/internal/model"
)

type ctxKey int

const authCtxKey ctxKey = iota

// ActorKind distinguishes a human user from a programmatic API key,
// mirroring model.ActorType's user/api_key split for audit purposes.
type ActorKind string

const (
	ActorKindUser   ActorKind = "user"
	ActorKindAPIKey ActorKind = "api_key"
)

// AuthContext is the resolved identity spec.md §4.1 requires every
// domain handler to consume uniformly.
type AuthContext struct {
	ActorKind        ActorKind
	ActorID          string // userId or apiKeyId
	ActorEmail       string
	Scope            model.Scope
	PartnerID        string
	OrgID            string
	RoleID           string
	Permissions      []model.Permission
	APIKeyScopes     []string // non-nil only for ActorKindAPIKey
	accessibleOrgIDs []string // nil means "all" (system scope)
	allOrgs          bool
}

// WithAuthContext stores ac in ctx for downstream handlers.
func WithAuthContext(ctx context.Context, ac *AuthContext) context.Context {
	return context.WithValue(ctx, authCtxKey, ac)
}

// FromContext retrieves the AuthContext, or nil if unauthenticated.
func FromContext(ctx context.Context) *AuthContext {
	ac, _ := ctx.Value(authCtxKey).(*AuthContext)
	return ac
}

// MustFromContext retrieves the AuthContext or fails with Unauthenticated.
func MustFromContext(ctx context.Context) (*AuthContext, error) {
	ac := FromContext(ctx)
	if ac == nil {
		return nil, apperr.Unauthenticated("no authenticated identity on request context")
	}
	return ac, nil
}

// NewSystemAuthContext builds the "all orgs" scope, accessibleOrgIds=null.
func NewSystemAuthContext(actorID string, perms []model.Permission) *AuthContext {
	return &AuthContext{ActorKind: ActorKindUser, ActorID: actorID, Scope: model.ScopeSystem, allOrgs: true, Permissions: perms}
}

// NewOrganizationAuthContext builds the organization-scope case:
// accessibleOrgIds = [orgId].
func NewOrganizationAuthContext(actorID, orgID, roleID string, perms []model.Permission) *AuthContext {
	return &AuthContext{
		ActorKind: ActorKindUser, ActorID: actorID, Scope: model.ScopeOrganization,
		OrgID: orgID, RoleID: roleID, Permissions: perms, accessibleOrgIDs: []string{orgID},
	}
}

// NewPartnerAuthContext builds the partner-scope case. orgIDs must
// already reflect the orgAccess resolution (all/selected/none) done by
// the caller against live membership data, per spec.md §4.1.
func NewPartnerAuthContext(actorID, partnerID, roleID string, perms []model.Permission, orgIDs []string, allOrgs bool) *AuthContext {
	return &AuthContext{
		ActorKind: ActorKindUser, ActorID: actorID, Scope: model.ScopePartner,
		PartnerID: partnerID, RoleID: roleID, Permissions: perms,
		accessibleOrgIDs: orgIDs, allOrgs: allOrgs,
	}
}

// AccessibleOrgIDs returns (ids, allOrgs): allOrgs=true means "all
// orgs" (the system scope) and ids is then not consulted. A partner
// with orgAccess=all gets allOrgs=false and the explicit list of its
// own organizations.
func (ac *AuthContext) AccessibleOrgIDs() (ids []string, allOrgs bool) {
	return ac.accessibleOrgIDs, ac.allOrgs
}

// CanAccessOrg reports whether ac may address orgID.
func (ac *AuthContext) CanAccessOrg(orgID string) bool {
	if ac.allOrgs {
		return true
	}
	for _, id := range ac.accessibleOrgIDs {
		if id == orgID {
			return true
		}
	}
	return false
}

// OrgFilterSQL returns a SQL predicate fragment (and its positional
// args starting at argIndex) that filters column to the actor's
// accessible orgs: "true" for system scope, "false" for an empty set,
// or "column = ANY($n)" otherwise.
func (ac *AuthContext) OrgFilterSQL(column string, argIndex int) (string, []any) {
	if ac.allOrgs {
		return "true", nil
	}
	if len(ac.accessibleOrgIDs) == 0 {
		return "false", nil
	}
	return column + " = ANY($" + strconv.Itoa(argIndex) + ")", []any{ac.accessibleOrgIDs}
}

// RequireScope short-circuits with Forbidden unless ac's scope is one
// of allowed.
func (ac *AuthContext) RequireScope(allowed ...model.Scope) error {
	for _, s := range allowed {
		if ac.Scope == s {
			return nil
		}
	}
	return apperr.Forbidden("actor scope " + string(ac.Scope) + " not permitted for this operation")
}

// RequirePermission short-circuits with Forbidden unless ac holds
// (resource, action), honoring the "*:*" wildcard. For an API-key
// actor this also requires the key carry a matching scope string
// ("resource:action" or "resource:*"), since a key's Permissions are
// never populated from a Role.
func (ac *AuthContext) RequirePermission(resource, action string) error {
	if ac.ActorKind == ActorKindAPIKey {
		if !ac.hasAPIKeyScope(resource, action) {
			return apperr.Forbidden("api key missing scope " + resource + ":" + action)
		}
		return nil
	}
	for _, p := range ac.Permissions {
		if p.Matches(resource, action) {
			return nil
		}
	}
	return apperr.Forbidden("missing permission " + resource + ":" + action)
}

func (ac *AuthContext) hasAPIKeyScope(resource, action string) bool {
	want := resource + ":" + action
	wantWildcard := resource + ":*"
	for _, sc := range ac.APIKeyScopes {
		if sc == "*:*" || sc == want || sc == wantWildcard {
			return true
		}
	}
	return false
}
