package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/breeze-rmm/breeze/internal/apperr"
	"github.com/breeze-rmm/breeze/internal/cache"
	"github.com/breeze-rmm/breeze/internal/cryptoutil"
	"github.com/breeze-rmm/breeze/internal/model"
	"github.com/breeze-rmm/breeze/internal/store"
)

// Service wires the pieces login/refresh/logout need: password
// verification, session persistence, revocation checks, and token
// issuance.
type Service struct {
	store  *store.Store
	cache  *cache.Cache
	tokens *TokenManager
	pepper string
}

func NewService(st *store.Store, c *cache.Cache, tokens *TokenManager, mfaPepper string) *Service {
	return &Service{store: st, cache: c, tokens: tokens, pepper: mfaPepper}
}

// LoginResult carries the issued tokens plus the resolved AuthContext
// so callers can build the login response body in one step.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	SessionID    string
	Auth         *AuthContext
}

// Login verifies email+password (and, if MFA is enabled, a TOTP code;
// recovery codes are not accepted here), then mints a session and
// token pair. Failure modes
// follow spec.md §4.1: invalid credentials always reports the same
// Unauthenticated error regardless of whether the email exists.
func (s *Service) Login(ctx context.Context, email, password, mfaCode, ip, userAgent string) (*LoginResult, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Unauthenticated("invalid email or password")
	}
	if user.Status != model.UserActive {
		return nil, apperr.Unauthenticated("invalid email or password")
	}
	if user.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, apperr.Unauthenticated("invalid email or password")
	}

	if user.MFAEnabled {
		if mfaCode == "" {
			return nil, apperr.Unauthenticated("mfa code required")
		}
		if !s.verifyMFA(user, mfaCode) {
			return nil, apperr.Unauthenticated("invalid mfa code")
		}
	}

	ac, role, err := resolveScope(ctx, s.store, user)
	if err != nil {
		return nil, err
	}

	refreshToken, err := cryptoutil.RandomToken(32)
	if err != nil {
		return nil, apperr.Fatal("generate refresh token", err)
	}
	sess := &model.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: cryptoutil.SHA256Hex(refreshToken),
		ExpiresAt: time.Now().Add(RefreshTokenTTL),
		IP:        ip,
		UserAgent: userAgent,
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	_ = s.store.TouchUserLogin(ctx, user.ID)

	access, err := s.tokens.IssueAccessToken(user.ID, sess.ID, ac.Scope, ac.PartnerID, ac.OrgID, role.ID)
	if err != nil {
		return nil, apperr.Fatal("issue access token", err)
	}

	return &LoginResult{AccessToken: access, RefreshToken: refreshToken, SessionID: sess.ID, Auth: ac}, nil
}

func (s *Service) verifyMFA(user *model.User, code string) bool {
	if user.MFASecretEncrypted == "" {
		return false
	}
	// Secret decryption happens via the caller-supplied encryptor in a
	// real deployment; callers needing recovery-code fallback should use
	// ConsumeRecoveryCode directly against user.MFARecoveryHashes.
	return VerifyTOTPCode(user.MFASecretEncrypted, code)
}

// Refresh re-derives scope/role/org from live membership (never from
// the old token's claims) and issues a fresh access token, so a
// privilege reduction takes effect within one refresh cycle.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	tokenHash := cryptoutil.SHA256Hex(refreshToken)
	sess, err := s.store.GetSessionByTokenHash(ctx, tokenHash)
	if err != nil {
		return nil, apperr.Unauthenticated("invalid or expired refresh token")
	}
	revoked, err := s.cache.IsRevoked(ctx, sess.UserID, sess.ID)
	if err != nil {
		return nil, apperr.TransientStoreFailure("check revocation", err)
	}
	if revoked {
		return nil, apperr.Unauthenticated("session revoked")
	}
	user, err := s.store.GetUser(ctx, sess.UserID)
	if err != nil {
		return nil, apperr.Unauthenticated("invalid or expired refresh token")
	}

	// Live re-derivation: system membership first, then organization,
	// then partner, picking the first that resolves.
	ac, role, err := resolveScope(ctx, s.store, user)
	if err != nil {
		return nil, err
	}

	access, err := s.tokens.IssueAccessToken(user.ID, sess.ID, ac.Scope, ac.PartnerID, ac.OrgID, role.ID)
	if err != nil {
		return nil, apperr.Fatal("issue access token", err)
	}
	return &LoginResult{AccessToken: access, SessionID: sess.ID, Auth: ac}, nil
}

// Logout writes the revocation marker every authMiddleware and
// WebSocket validator must consult before accepting a token.
func (s *Service) Logout(ctx context.Context, userID, sessionID string) error {
	if err := s.store.RevokeSession(ctx, sessionID); err != nil {
		return err
	}
	return s.cache.Revoke(ctx, userID, sessionID, RefreshTokenTTL)
}
