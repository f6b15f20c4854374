package httpapi

import (
	"net/http"

	"github.com/breeze-rmm/breeze/internal/agentgw"
	"github.com/breeze-rmm/breeze/internal/apperr"
	"github.com/breeze-rmm/breeze/internal/model"
)

// AgentHandlers wires spec.md §4.2's agent-facing endpoints onto
// agentgw.Gateway. These routes authenticate with the device's own
// bearer token (set on EnrollResult), never a user JWT or API key.
// Agents present agentId and token as explicit body fields rather than
// an Authorization header, which keeps agent auth decoupled from the
// user-facing JWT/API-key Authenticate middleware.
type AgentHandlers struct {
	gw *agentgw.Gateway
}

func NewAgentHandlers(gw *agentgw.Gateway) *AgentHandlers {
	return &AgentHandlers{gw: gw}
}

type enrollRequest struct {
	EnrollmentKey       string        `json:"enrollmentKey"`
	Hostname            string        `json:"hostname"`
	OSType              model.OSType  `json:"osType"`
	OSVersion           string        `json:"osVersion"`
	Architecture        string        `json:"architecture"`
	HardwareFingerprint string        `json:"hardwareFingerprint"`
}

type enrollResponse struct {
	AgentID   string `json:"agentId"`
	AuthToken string `json:"authToken"`
	DeviceID  string `json:"deviceId"`
	OrgID     string `json:"orgId"`
	SiteID    string `json:"siteId"`
}

// Enroll handles POST /api/v1/agents/enroll.
func (h *AgentHandlers) Enroll(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	if err := Decode(r, &req); err != nil {
		Error(w, r, err)
		return
	}
	if req.EnrollmentKey == "" || req.Hostname == "" {
		Error(w, r, apperr.Validation("enrollmentKey and hostname are required", nil))
		return
	}
	res, err := h.gw.Enroll(r.Context(), req.EnrollmentKey, req.Hostname, req.OSType, req.OSVersion, req.Architecture, req.HardwareFingerprint)
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, enrollResponse{
		AgentID: res.AgentID, AuthToken: res.AuthToken, DeviceID: res.DeviceID, OrgID: res.OrgID, SiteID: res.SiteID,
	})
}

type heartbeatRequest struct {
	AgentID       string `json:"agentId"`
	AuthToken     string `json:"authToken"`
	AgentVersion  string `json:"agentVersion"`
	StatusSummary string `json:"statusSummary"`
	PendingReboot bool   `json:"pendingReboot"`
}

type heartbeatResponse struct {
	Commands  []*model.DeviceCommand `json:"commands,omitempty"`
	UpgradeTo string                 `json:"upgradeTo,omitempty"`
	RenewCert bool                   `json:"renewCert"`
}

// Heartbeat handles POST /api/v1/agents/heartbeat.
func (h *AgentHandlers) Heartbeat(w http.ResponseWriter, r *http.Request) {
	var req heartbeatRequest
	if err := Decode(r, &req); err != nil {
		Error(w, r, err)
		return
	}
	resp, err := h.gw.Heartbeat(r.Context(), agentgw.HeartbeatRequest{
		AgentID: req.AgentID, AuthToken: req.AuthToken, AgentVersion: req.AgentVersion,
		StatusSummary: req.StatusSummary, PendingReboot: req.PendingReboot,
	})
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, http.StatusOK, heartbeatResponse{Commands: resp.Commands, UpgradeTo: resp.UpgradeTo, RenewCert: resp.RenewCert})
}

type postResultRequest struct {
	AgentID   string `json:"agentId"`
	AuthToken string `json:"authToken"`
	CommandID string `json:"commandId"`
	Attempt   int    `json:"attempt"`
	ExitCode  int    `json:"exitCode"`
	Stdout    string `json:"stdout"`
	Stderr    string `json:"stderr"`
}

// PostResult handles POST /api/v1/agents/commands/result.
func (h *AgentHandlers) PostResult(w http.ResponseWriter, r *http.Request) {
	var req postResultRequest
	if err := Decode(r, &req); err != nil {
		Error(w, r, err)
		return
	}
	if err := h.gw.PostResult(r.Context(), req.AgentID, req.AuthToken, req.CommandID, req.Attempt, req.ExitCode, req.Stdout, req.Stderr); err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, http.StatusNoContent, nil)
}

type renewCertRequest struct {
	AgentID   string `json:"agentId"`
	AuthToken string `json:"authToken"`
}

type renewCertResponse struct {
	Serial         string `json:"serial"`
	ExternalCertID string `json:"externalCertId"`
}

// RenewCert handles POST /api/v1/agents/cert/renew.
func (h *AgentHandlers) RenewCert(w http.ResponseWriter, r *http.Request) {
	var req renewCertRequest
	if err := Decode(r, &req); err != nil {
		Error(w, r, err)
		return
	}
	issued, err := h.gw.RenewCert(r.Context(), req.AgentID, req.AuthToken)
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, http.StatusOK, renewCertResponse{Serial: issued.Serial, ExternalCertID: issued.ExternalCertID})
}
