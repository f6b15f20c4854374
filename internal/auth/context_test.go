package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/breeze-rmm/breeze/internal/auth"
	"github.com/breeze-rmm/breeze/internal/model"
)

func TestAuthContext_SystemScopeCanAccessAnyOrg(t *testing.T) {
	ac := auth.NewSystemAuthContext("user-1", []model.Permission{{Resource: "*", Action: "*"}})
	assert.True(t, ac.CanAccessOrg("org-anything"))
	ids, allOrgs := ac.AccessibleOrgIDs()
	assert.True(t, allOrgs)
	assert.Nil(t, ids)

	sql, args := ac.OrgFilterSQL("org_id", 1)
	assert.Equal(t, "true", sql)
	assert.Nil(t, args)
}

func TestAuthContext_OrganizationScopeRestrictsToOwnOrg(t *testing.T) {
	ac := auth.NewOrganizationAuthContext("user-1", "org-1", "role-1", nil)
	assert.True(t, ac.CanAccessOrg("org-1"))
	assert.False(t, ac.CanAccessOrg("org-2"))

	sql, args := ac.OrgFilterSQL("org_id", 3)
	assert.Equal(t, "org_id = ANY($3)", sql)
	assert.Equal(t, []any{[]string{"org-1"}}, args)
}

func TestAuthContext_PartnerScopeWithNoOrgsDeniesEverything(t *testing.T) {
	ac := auth.NewPartnerAuthContext("user-1", "partner-1", "role-1", nil, []string{}, false)
	assert.False(t, ac.CanAccessOrg("org-1"))

	sql, _ := ac.OrgFilterSQL("org_id", 1)
	assert.Equal(t, "false", sql)
}

func TestAuthContext_RequirePermission_WildcardMatches(t *testing.T) {
	ac := auth.NewOrganizationAuthContext("user-1", "org-1", "role-1", []model.Permission{{Resource: "device", Action: "*"}})
	assert.NoError(t, ac.RequirePermission("device", "update_status"))
	assert.Error(t, ac.RequirePermission("alert", "acknowledge"))
}

func TestAuthContext_RequireScope(t *testing.T) {
	ac := auth.NewPartnerAuthContext("user-1", "partner-1", "role-1", nil, nil, true)
	assert.NoError(t, ac.RequireScope(model.ScopePartner, model.ScopeSystem))
	assert.Error(t, ac.RequireScope(model.ScopeOrganization))
}
