package httpapi

import (
	"net/http"
	"strings"

	"github.com/breeze-rmm/breeze/internal/apperr"
	"github.com/breeze-rmm/breeze/internal/auth"
	"github.com/breeze-rmm/breeze/internal/cryptoutil"
	"github.com/breeze-rmm/breeze/internal/store"
)

// AuthHandlers implements spec.md §4.1's login/refresh/logout/MFA
// endpoints on top of auth.Service.
type AuthHandlers struct {
	svc         *auth.Service
	store       *store.Store
	mfaEnc      *cryptoutil.Encryptor
	mfaIssuer   string
	mfaPepper   string
}

func NewAuthHandlers(svc *auth.Service, st *store.Store, mfaEnc *cryptoutil.Encryptor, mfaIssuer, mfaPepper string) *AuthHandlers {
	return &AuthHandlers{svc: svc, store: st, mfaEnc: mfaEnc, mfaIssuer: mfaIssuer, mfaPepper: mfaPepper}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	MFACode  string `json:"mfaCode,omitempty"`
}

type loginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	Scope        string `json:"scope"`
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := Decode(r, &req); err != nil {
		Error(w, r, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		Error(w, r, apperr.Validation("email and password are required", nil))
		return
	}
	res, err := h.svc.Login(r.Context(), req.Email, req.Password, req.MFACode, clientIP(r), r.UserAgent())
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, http.StatusOK, loginResponse{AccessToken: res.AccessToken, RefreshToken: res.RefreshToken, Scope: string(res.Auth.Scope)})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh handles POST /api/v1/auth/refresh.
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := Decode(r, &req); err != nil {
		Error(w, r, err)
		return
	}
	res, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, http.StatusOK, loginResponse{AccessToken: res.AccessToken, Scope: string(res.Auth.Scope)})
}

// Logout handles POST /api/v1/auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	ac, err := auth.MustFromContext(r.Context())
	if err != nil {
		Error(w, r, err)
		return
	}
	claims, err := sessionClaimsFromRequest(r)
	if err != nil {
		Error(w, r, err)
		return
	}
	if err := h.svc.Logout(r.Context(), ac.ActorID, claims); err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, http.StatusNoContent, nil)
}

// sessionClaimsFromRequest reads the session id query param a client
// supplies on logout, since the access token itself carries it but
// httpapi deliberately avoids re-parsing the bearer token twice per
// request.
func sessionClaimsFromRequest(r *http.Request) (string, error) {
	sid := r.URL.Query().Get("sessionId")
	if sid == "" {
		return "", apperr.Validation("sessionId query parameter is required", nil)
	}
	return sid, nil
}

type mfaSetupResponse struct {
	Secret string `json:"secret"`
	URL    string `json:"url"`
}

// MFASetup handles POST /api/v1/auth/mfa/setup: provisions a new TOTP
// seed and returns it (plus QR-renderable URL) for the client to
// confirm via MFAVerify before it is persisted.
func (h *AuthHandlers) MFASetup(w http.ResponseWriter, r *http.Request) {
	ac, err := auth.MustFromContext(r.Context())
	if err != nil {
		Error(w, r, err)
		return
	}
	key, err := auth.GenerateTOTPSecret(h.mfaIssuer, ac.ActorEmail)
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, http.StatusOK, mfaSetupResponse{Secret: key.Secret(), URL: key.URL()})
}

type mfaVerifyRequest struct {
	Secret string `json:"secret"`
	Code   string `json:"code"`
}

type mfaVerifyResponse struct {
	RecoveryCodes []string `json:"recoveryCodes"`
}

// MFAVerify handles POST /api/v1/auth/mfa/verify: confirms the secret
// generated by MFASetup with one live code, then enables MFA and
// issues one-time recovery codes.
func (h *AuthHandlers) MFAVerify(w http.ResponseWriter, r *http.Request) {
	ac, err := auth.MustFromContext(r.Context())
	if err != nil {
		Error(w, r, err)
		return
	}
	var req mfaVerifyRequest
	if err := Decode(r, &req); err != nil {
		Error(w, r, err)
		return
	}
	if !auth.VerifyTOTPCode(req.Secret, req.Code) {
		Error(w, r, apperr.Validation("invalid mfa code", nil))
		return
	}

	encrypted, err := h.mfaEnc.Encrypt([]byte(req.Secret))
	if err != nil {
		Error(w, r, apperr.Fatal("encrypt mfa secret", err))
		return
	}
	codes, hashes, err := auth.GenerateRecoveryCodes(h.mfaPepper, 10)
	if err != nil {
		Error(w, r, apperr.Fatal("generate recovery codes", err))
		return
	}
	if err := h.store.SetUserMFA(r.Context(), ac.ActorID, encrypted, true, hashes); err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, http.StatusOK, mfaVerifyResponse{RecoveryCodes: codes})
}

// clientIP returns the first hop's address, preferring X-Forwarded-For
// (set by the load balancer spec.md §2 assumes sits in front of the
// control plane) and falling back to RemoteAddr.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	return r.RemoteAddr
}
