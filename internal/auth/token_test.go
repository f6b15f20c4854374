package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breeze-rmm/breeze/internal/auth"
	"github.com/breeze-rmm/breeze/internal/model"
)

func TestTokenManager_IssueAndVerify(t *testing.T) {
	tm := auth.NewTokenManager([]byte("current-secret"), nil, "breeze")

	token, err := tm.IssueAccessToken("user-1", "sess-1", model.ScopeOrganization, "", "org-1", "role-1")
	require.NoError(t, err)

	claims, err := tm.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "sess-1", claims.SessionID)
	assert.Equal(t, model.ScopeOrganization, claims.Scope)
	assert.Equal(t, "org-1", claims.OrgID)
}

func TestTokenManager_VerifyDuringRotationWindow(t *testing.T) {
	old := auth.NewTokenManager([]byte("old-secret"), nil, "breeze")
	token, err := old.IssueAccessToken("user-2", "sess-2", model.ScopePartner, "partner-1", "", "role-2")
	require.NoError(t, err)

	rotated := auth.NewTokenManager([]byte("new-secret"), []byte("old-secret"), "breeze")
	claims, err := rotated.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-2", claims.Subject)
}

func TestTokenManager_RejectsWrongSecret(t *testing.T) {
	tm := auth.NewTokenManager([]byte("secret-a"), nil, "breeze")
	token, err := tm.IssueAccessToken("user-3", "sess-3", model.ScopeSystem, "", "", "role-3")
	require.NoError(t, err)

	other := auth.NewTokenManager([]byte("secret-b"), nil, "breeze")
	_, err = other.Verify(token)
	assert.Error(t, err)
}
