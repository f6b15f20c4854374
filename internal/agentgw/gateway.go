// Package agentgw implements spec.md §4.2: agent enrollment, heartbeat
// processing, command delivery/result application, and mTLS
// certificate lifecycle.
package agentgw

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/breeze-rmm/breeze/internal/apperr"
	"github.com/breeze-rmm/breeze/internal/audit"
	"github.com/breeze-rmm/breeze/internal/cache"
	"github.com/breeze-rmm/breeze/internal/cryptoutil"
	"github.com/breeze-rmm/breeze/internal/id"
	"github.com/breeze-rmm/breeze/internal/model"
	"github.com/breeze-rmm/breeze/internal/store"
)

// CertPolicy governs what happens when a device's mTLS certificate has
// already expired by the time it calls renew-cert.
type CertPolicy string

const (
	CertPolicyReissue    CertPolicy = "reissue"
	CertPolicyQuarantine CertPolicy = "quarantine"
)

// Gateway wires together the store, cache, CA client, and audit writer
// the agent-facing endpoints need.
type Gateway struct {
	store                       *store.Store
	cache                       *cache.Cache
	audit                       *audit.Writer
	certs                       *CertIssuer // nil when mTLS issuance is not configured
	enrollmentPepper            string
	defaultCommandTTL           time.Duration
	certPolicy                  CertPolicy
	heartbeatRateLimitPerMinute int
}

func NewGateway(st *store.Store, c *cache.Cache, w *audit.Writer, certs *CertIssuer, enrollmentPepper string, certPolicy CertPolicy) *Gateway {
	return &Gateway{
		store:             st,
		cache:             c,
		audit:             w,
		certs:             certs,
		enrollmentPepper:  enrollmentPepper,
		defaultCommandTTL: 15 * time.Minute,
		certPolicy:        certPolicy,
		heartbeatRateLimitPerMinute: 6, // one heartbeat every ~10s, generous burst
	}
}

// EnrollResult carries everything an agent needs to start operating,
// including the one-time bearer token and (if configured) the private
// key of a freshly issued client certificate.
type EnrollResult struct {
	AgentID   string
	AuthToken string
	OrgID     string
	SiteID    string
	Cert      *IssuedCert
	DeviceID  string
}

// Enroll implements spec.md §4.2's enrollment sequence: validate the
// key, resolve the deterministic org/site target, create or resume a
// Device row, mint credentials, optionally issue an mTLS cert.
func (g *Gateway) Enroll(ctx context.Context, enrollmentKey string, hostname string, osType model.OSType, osVersion, architecture string, hardwareFingerprint string) (*EnrollResult, error) {
	keyHash := cryptoutil.PepperedHash(g.enrollmentPepper, enrollmentKey)
	key, err := g.store.GetEnrollmentKeyByHash(ctx, keyHash)
	if err != nil {
		return nil, apperr.Forbidden("invalid enrollment key")
	}
	if !key.Usable(time.Now()) {
		return nil, apperr.Forbidden("enrollment key is expired, revoked, or exhausted")
	}
	consumed, err := g.store.ConsumeEnrollmentKey(ctx, key.ID)
	if err != nil {
		return nil, err
	}
	if !consumed {
		return nil, apperr.Forbidden("enrollment key is expired, revoked, or exhausted")
	}

	agentID, err := id.NewAgentID()
	if err != nil {
		return nil, apperr.Fatal("generate agent id", err)
	}
	authToken, err := cryptoutil.RandomToken(32)
	if err != nil {
		return nil, apperr.Fatal("generate agent auth token", err)
	}
	tokenHash := cryptoutil.SHA256Hex(authToken)

	var deviceID string
	if hardwareFingerprint != "" {
		if prior, err := g.store.GetDecommissionedDeviceByFingerprint(ctx, key.OrgID, hardwareFingerprint); err == nil {
			if err := g.store.ResumeDevice(ctx, prior.ID, agentID, tokenHash, key.SiteID); err != nil {
				return nil, err
			}
			deviceID = prior.ID
		}
	}

	if deviceID == "" {
		device := &model.Device{
			ID:                  id.New(),
			OrgID:               key.OrgID,
			SiteID:              key.SiteID,
			AgentID:             agentID,
			AgentTokenHash:      tokenHash,
			HardwareFingerprint: hardwareFingerprint,
			Hostname:            hostname,
			OSType:              osType,
			OSVersion:           osVersion,
			Architecture:        architecture,
			Status:              model.DeviceOffline,
			EnrolledAt:          time.Now().UTC(),
		}
		if err := g.store.CreateDevice(ctx, device); err != nil {
			return nil, err
		}
		deviceID = device.ID
	}

	result := &EnrollResult{AgentID: agentID, AuthToken: authToken, OrgID: key.OrgID, SiteID: key.SiteID, DeviceID: deviceID}

	if g.certs != nil {
		issued, err := g.certs.Issue(ctx, deviceID)
		if err != nil {
			return nil, err
		}
		if err := g.store.UpsertMTLSCert(ctx, deviceID, &model.MTLSCert{
			Serial: issued.Serial, ExternalCertID: issued.ExternalCertID,
			IssuedAt: issued.IssuedAt, ExpiresAt: issued.ExpiresAt,
		}); err != nil {
			return nil, err
		}
		result.Cert = issued
	}

	if g.audit != nil {
		orgID := key.OrgID
		auditDeviceID := deviceID
		_, _ = g.audit.Append(ctx, audit.Entry{
			OrgID: &orgID, ActorType: model.ActorAgent, ActorID: agentID,
			Action: "device.enrolled", ResourceType: "device", ResourceID: &auditDeviceID,
			Result: model.AuditSuccess,
		})
	}

	return result, nil
}

// authenticateAgent resolves the device owning agentID and checks its
// bearer token hash, returning NotFound (never Forbidden) on any
// mismatch so a probing caller can't distinguish "wrong token" from
// "no such agent".
func (g *Gateway) authenticateAgent(ctx context.Context, agentID, authToken string) (*model.Device, error) {
	device, err := g.store.GetDeviceByAgentID(ctx, agentID)
	if err != nil {
		return nil, apperr.NotFound("agent not found")
	}
	if device.AgentTokenHash != cryptoutil.SHA256Hex(authToken) {
		return nil, apperr.NotFound("agent not found")
	}
	return device, nil
}

// HeartbeatRequest is the agent's periodic check-in payload.
type HeartbeatRequest struct {
	AgentID       string
	AuthToken     string
	AgentVersion  string
	StatusSummary string
	PendingReboot bool
}

// HeartbeatResponse tells the agent what to do next.
type HeartbeatResponse struct {
	Commands  []*model.DeviceCommand
	UpgradeTo string
	RenewCert bool
}

// Heartbeat implements spec.md §4.2: rate-limited per agent, marks the
// device online, and returns any pending commands marked sent in the
// same transaction they're handed out in (at-least-once: a crash
// between marking sent and the agent receiving the response just
// means the agent re-polls and gets it again next heartbeat).
func (g *Gateway) Heartbeat(ctx context.Context, req HeartbeatRequest) (*HeartbeatResponse, error) {
	device, err := g.authenticateAgent(ctx, req.AgentID, req.AuthToken)
	if err != nil {
		return nil, err
	}

	allowed, err := g.cache.Allow(ctx, "heartbeat:"+device.ID, g.heartbeatRateLimitPerMinute, g.heartbeatRateLimitPerMinute, 1)
	if err != nil {
		return nil, apperr.TransientStoreFailure("check heartbeat rate limit", err)
	}
	if !allowed {
		return nil, apperr.RateLimited("heartbeat rate limit exceeded", 10*time.Second)
	}

	if err := g.store.TouchDeviceHeartbeat(ctx, device.ID, time.Now().UTC(), req.AgentVersion); err != nil {
		return nil, err
	}

	pending, err := g.store.ListPendingCommandsForDevice(ctx, device.ID)
	if err != nil {
		return nil, err
	}

	resp := &HeartbeatResponse{}
	err = g.store.WithTx(ctx, func(tx pgx.Tx) error {
		for _, c := range pending {
			if err := g.store.MarkCommandSent(ctx, tx, c.ID); err != nil {
				return err
			}
			c.Status = model.CommandSent
			resp.Commands = append(resp.Commands, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if device.Cert != nil && device.Cert.ShouldRenew(time.Now()) {
		resp.RenewCert = true
	}

	return resp, nil
}

// PostResult implements spec.md §4.2's idempotent result application,
// enforcing that only the command's own owning agent can post it.
func (g *Gateway) PostResult(ctx context.Context, agentID, authToken, commandID string, attempt, exitCode int, stdout, stderr string) error {
	device, err := g.authenticateAgent(ctx, agentID, authToken)
	if err != nil {
		return err
	}
	cmd, err := g.store.GetCommand(ctx, commandID)
	if err != nil {
		return apperr.NotFound("command not found")
	}
	if cmd.DeviceID != device.ID {
		return apperr.NotFound("command not found")
	}
	return g.store.ApplyCommandResult(ctx, commandID, attempt, exitCode, stdout, stderr)
}

// RenewCert implements the bearer-only renew-cert endpoint: if the
// current cert has already expired and policy is quarantine, the
// device is quarantined instead of renewed.
func (g *Gateway) RenewCert(ctx context.Context, agentID, authToken string) (*IssuedCert, error) {
	device, err := g.authenticateAgent(ctx, agentID, authToken)
	if err != nil {
		return nil, err
	}
	if g.certs == nil {
		return nil, apperr.Fatal("certificate authority not configured", nil)
	}

	if device.Cert != nil && device.Cert.Expired(time.Now()) && g.certPolicy == CertPolicyQuarantine {
		if err := g.store.UpdateDeviceStatus(ctx, nil, device.ID, model.DeviceQuarantined); err != nil {
			return nil, err
		}
		return nil, apperr.Forbidden("certificate expired; device quarantined pending operator review")
	}

	issued, err := g.certs.Issue(ctx, device.ID)
	if err != nil {
		return nil, err
	}
	if device.Cert != nil {
		_ = g.certs.Revoke(ctx, device.Cert.ExternalCertID)
	}
	if err := g.store.UpsertMTLSCert(ctx, device.ID, &model.MTLSCert{
		Serial: issued.Serial, ExternalCertID: issued.ExternalCertID,
		IssuedAt: issued.IssuedAt, ExpiresAt: issued.ExpiresAt,
	}); err != nil {
		return nil, err
	}
	return issued, nil
}
