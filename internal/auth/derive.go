package auth

import (
	"context"

	"github.com/breeze-rmm/breeze/internal/apperr"
	"github.com/breeze-rmm/breeze/internal/model"
	"github.com/breeze-rmm/breeze/internal/store"
)

func apperrForbiddenNoMembership() error {
	return apperr.Forbidden("user has no system, organization, or partner membership")
}

// orgLister is the subset of Store derivation needs, so tests can fake
// it without a real database.
type orgLister interface {
	ListOrganizationsByPartner(ctx context.Context, partnerID string) ([]*model.Organization, error)
}

// ResolveForUser builds an AuthContext from live membership rows,
// implementing spec.md §4.1's derivation rules exactly. Exactly one of
// partnerUser/orgUser is expected to be non-nil for a non-system actor.
func ResolveForUser(ctx context.Context, orgs orgLister, user *model.User, role *model.Role, partnerUser *model.PartnerUser, orgUser *model.OrganizationUser) (*AuthContext, error) {
	if role.Scope == model.ScopeSystem {
		return NewSystemAuthContext(user.ID, role.Permissions), nil
	}

	if orgUser != nil {
		ac := NewOrganizationAuthContext(user.ID, orgUser.OrgID, orgUser.RoleID, role.Permissions)
		ac.ActorEmail = user.Email
		return ac, nil
	}

	if partnerUser != nil {
		var orgIDs []string
		allOrgs := false
		switch partnerUser.OrgAccess {
		case model.OrgAccessAll:
			list, err := orgs.ListOrganizationsByPartner(ctx, partnerUser.PartnerID)
			if err != nil {
				return nil, err
			}
			for _, o := range list {
				orgIDs = append(orgIDs, o.ID)
			}
			allOrgs = false // partner is still bounded to its own orgs, never system-wide
		case model.OrgAccessSelected:
			allowed, err := orgs.ListOrganizationsByPartner(ctx, partnerUser.PartnerID)
			if err != nil {
				return nil, err
			}
			allowedSet := make(map[string]bool, len(allowed))
			for _, o := range allowed {
				allowedSet[o.ID] = true
			}
			for _, id := range partnerUser.OrgIDs {
				if allowedSet[id] {
					orgIDs = append(orgIDs, id)
				}
			}
		case model.OrgAccessNone:
			orgIDs = []string{}
		}
		ac := NewPartnerAuthContext(user.ID, partnerUser.PartnerID, partnerUser.RoleID, role.Permissions, orgIDs, allOrgs)
		ac.ActorEmail = user.Email
		return ac, nil
	}

	return NewPartnerAuthContext(user.ID, "", "", role.Permissions, []string{}, false), nil
}

var _ orgLister = (*store.Store)(nil)
var _ membershipSource = (*store.Store)(nil)

// membershipSource is the subset of Store that resolveScope needs to
// pick a user's effective scope on login/refresh.
type membershipSource interface {
	orgLister
	GetSystemRole(ctx context.Context, userID string) (*model.Role, error)
	ListOrganizationUsersByUser(ctx context.Context, userID string) ([]*model.OrganizationUser, error)
	ListPartnerUsersByUser(ctx context.Context, userID string) ([]*model.PartnerUser, error)
	GetRole(ctx context.Context, id string) (*model.Role, error)
}

// resolveScope picks a user's effective membership with priority
// system > organization > partner (first of each, ordered by whichever
// the store returns first), and builds the matching AuthContext. This
// is the single source of truth both Login and Refresh call so a
// privilege change is always re-derived the same way.
func resolveScope(ctx context.Context, ms membershipSource, user *model.User) (*AuthContext, *model.Role, error) {
	if role, err := ms.GetSystemRole(ctx, user.ID); err == nil {
		return NewSystemAuthContext(user.ID, role.Permissions), role, nil
	}

	if orgUsers, err := ms.ListOrganizationUsersByUser(ctx, user.ID); err == nil && len(orgUsers) > 0 {
		ou := orgUsers[0]
		role, err := ms.GetRole(ctx, ou.RoleID)
		if err != nil {
			return nil, nil, err
		}
		ac, err := ResolveForUser(ctx, ms, user, role, nil, ou)
		if err != nil {
			return nil, nil, err
		}
		return ac, role, nil
	}

	if partnerUsers, err := ms.ListPartnerUsersByUser(ctx, user.ID); err == nil && len(partnerUsers) > 0 {
		pu := partnerUsers[0]
		role, err := ms.GetRole(ctx, pu.RoleID)
		if err != nil {
			return nil, nil, err
		}
		ac, err := ResolveForUser(ctx, ms, user, role, pu, nil)
		if err != nil {
			return nil, nil, err
		}
		return ac, role, nil
	}

	return nil, nil, apperrForbiddenNoMembership()
}
