package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/breeze-rmm/breeze/internal/apperr"
	"github.com/breeze-rmm/breeze/internal/model"
)

const (
	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// Claims is the access token payload. Scope/role/org/partner are
// re-derived from live membership on every refresh (spec.md §4.1), so
// they are never trusted blindly across a token's lifetime without a
// freshness check at sensitive call sites.
type Claims struct {
	jwt.RegisteredClaims
	SessionID string      `json:"sid"`
	Scope     model.Scope `json:"scope"`
	PartnerID string      `json:"pid,omitempty"`
	OrgID     string      `json:"oid,omitempty"`
	RoleID    string      `json:"rid,omitempty"`
}

// TokenManager signs and verifies access tokens with HMAC-SHA256.
// It supports a dual-secret verification window: CurrentSecret signs
// new tokens; PreviousSecret (optional) still verifies tokens minted
// before a key rotation, so rotating the signing key doesn't
// invalidate every live session at once.
type TokenManager struct {
	currentSecret  []byte
	previousSecret []byte
	issuer         string
}

func NewTokenManager(currentSecret, previousSecret []byte, issuer string) *TokenManager {
	return &TokenManager{currentSecret: currentSecret, previousSecret: previousSecret, issuer: issuer}
}

// IssueAccessToken mints a short-lived access token for userID/sessionID
// carrying the actor's currently-resolved scope/org/role.
func (tm *TokenManager) IssueAccessToken(userID, sessionID string, scope model.Scope, partnerID, orgID, roleID string) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTokenTTL)),
			Issuer:    tm.issuer,
		},
		SessionID: sessionID,
		Scope:     scope,
		PartnerID: partnerID,
		OrgID:     orgID,
		RoleID:    roleID,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(tm.currentSecret)
}

// Verify parses and validates an access token, trying the current
// secret first and falling back to the previous one during a rotation
// window.
func (tm *TokenManager) Verify(tokenString string) (*Claims, error) {
	claims, err := tm.verifyWithSecret(tokenString, tm.currentSecret)
	if err == nil {
		return claims, nil
	}
	if len(tm.previousSecret) > 0 {
		if claims, err2 := tm.verifyWithSecret(tokenString, tm.previousSecret); err2 == nil {
			return claims, nil
		}
	}
	return nil, apperr.Unauthenticated("invalid or expired access token")
}

func (tm *TokenManager) verifyWithSecret(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
