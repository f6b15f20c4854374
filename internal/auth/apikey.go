package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/breeze-rmm/breeze/internal/apperr"
	"github.com/breeze-rmm/breeze/internal/cryptoutil"
	"github.com/breeze-rmm/breeze/internal/id"
	"github.com/breeze-rmm/breeze/internal/model"
)

// apiKeyPrefixLen is how many characters of the plaintext key are kept
// unhashed (as ApiKey.KeyPrefix) purely for display in the UI — "the
// key starting with bz_live_4f2a..." — never enough to brute-force.
const apiKeyPrefixLen = 12

// IssueAPIKey mints a new API key for an org- or partner-scoped
// principal and returns the plaintext exactly once; only its hash and
// prefix are persisted.
func (s *Service) IssueAPIKey(ctx context.Context, userID string, orgID, partnerID *string, name string, scopes []string, rateLimit int, ttl *time.Duration) (plaintext string, key *model.ApiKey, err error) {
	secret, err := cryptoutil.RandomToken(24)
	if err != nil {
		return "", nil, apperr.Fatal("generate api key", err)
	}
	plaintext = "bz_live_" + secret
	prefix := plaintext
	if len(prefix) > apiKeyPrefixLen {
		prefix = prefix[:apiKeyPrefixLen]
	}

	var expiresAt *time.Time
	if ttl != nil {
		t := time.Now().Add(*ttl)
		expiresAt = &t
	}
	if rateLimit <= 0 {
		rateLimit = defaultAPIKeyRateLimit
	}

	key = &model.ApiKey{
		ID:        id.New(),
		OrgID:     orgID,
		PartnerID: partnerID,
		UserID:    userID,
		Name:      name,
		KeyPrefix: prefix,
		KeyHash:   cryptoutil.SHA256Hex(plaintext),
		Scopes:    scopes,
		RateLimit: rateLimit,
		ExpiresAt: expiresAt,
		Status:    model.ApiKeyActive,
	}
	if err := s.store.CreateAPIKey(ctx, key); err != nil {
		return "", nil, err
	}
	return plaintext, key, nil
}

// defaultAPIKeyRateLimit is the rate limit a new key gets when none is
// supplied. It is separate from the agent heartbeat limit in agentgw.
const defaultAPIKeyRateLimit = 120

// AuthenticateAPIKey validates a presented key: looks it up by hash,
// checks status/expiry, enforces its token-bucket rate limit, and
// returns the resolved AuthContext alongside the key row (touched for
// last-used bookkeeping).
func (s *Service) AuthenticateAPIKey(ctx context.Context, plaintext string) (*AuthContext, *model.ApiKey, error) {
	if !strings.HasPrefix(plaintext, "bz_live_") {
		return nil, nil, apperr.Unauthenticated("invalid api key")
	}
	key, err := s.store.GetAPIKeyByHash(ctx, cryptoutil.SHA256Hex(plaintext))
	if err != nil {
		return nil, nil, apperr.Unauthenticated("invalid api key")
	}
	if key.Status != model.ApiKeyActive {
		return nil, nil, apperr.Unauthenticated("invalid api key")
	}
	if key.ExpiresAt != nil && key.ExpiresAt.Before(time.Now()) {
		return nil, nil, apperr.Unauthenticated("invalid api key")
	}

	allowed, err := s.cache.Allow(ctx, fmt.Sprintf("apikey:%s", key.ID), key.RateLimit, key.RateLimit, 1)
	if err != nil {
		return nil, nil, apperr.TransientStoreFailure("check api key rate limit", err)
	}
	if !allowed {
		return nil, nil, apperr.RateLimited("api key rate limit exceeded", 60*time.Second)
	}

	_ = s.store.TouchAPIKeyUsage(ctx, key.ID)

	var ac *AuthContext
	switch {
	case key.OrgID != nil:
		ac = NewOrganizationAuthContext(key.ID, *key.OrgID, "", nil)
	case key.PartnerID != nil:
		list, err := s.store.ListOrganizationsByPartner(ctx, *key.PartnerID)
		if err != nil {
			return nil, nil, err
		}
		ids := make([]string, 0, len(list))
		for _, o := range list {
			ids = append(ids, o.ID)
		}
		ac = NewPartnerAuthContext(key.ID, *key.PartnerID, "", nil, ids, false)
	default:
		return nil, nil, apperr.Forbidden("api key has no partner or organization scope")
	}
	ac.ActorKind = ActorKindAPIKey
	ac.APIKeyScopes = key.Scopes
	return ac, key, nil
}
