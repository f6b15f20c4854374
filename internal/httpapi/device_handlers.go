package httpapi

import (
	"net/http"
	"time"

	"github.com/breeze-rmm/breeze/internal/apperr"
	"github.com/breeze-rmm/breeze/internal/auth"
	"github.com/breeze-rmm/breeze/internal/id"
	"github.com/breeze-rmm/breeze/internal/model"
	"github.com/breeze-rmm/breeze/internal/store"
)

// DeviceHandlers implements spec.md §4.2/§4.3's operator-facing device
// surface: list/get/patch/delete and command dispatch. Every list/get
// is filtered through auth.AuthContext.OrgFilterSQL or CanAccessOrg so
// a handler can never leak a row across tenants.
type DeviceHandlers struct {
	store             *store.Store
	defaultCommandTTL time.Duration
}

func NewDeviceHandlers(st *store.Store) *DeviceHandlers {
	return &DeviceHandlers{store: st, defaultCommandTTL: 15 * time.Minute}
}

// List handles GET /api/v1/devices.
func (h *DeviceHandlers) List(w http.ResponseWriter, r *http.Request) {
	ac, err := auth.MustFromContext(r.Context())
	if err != nil {
		Error(w, r, err)
		return
	}
	if err := ac.RequirePermission("device", "read"); err != nil {
		Error(w, r, err)
		return
	}
	filterSQL, args := ac.OrgFilterSQL("org_id", 1)
	devices, err := h.store.ListDevicesByOrgFilter(r.Context(), filterSQL, args)
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"devices": devices})
}

// Get handles GET /api/v1/devices/{deviceId}.
func (h *DeviceHandlers) Get(w http.ResponseWriter, r *http.Request) {
	ac, err := auth.MustFromContext(r.Context())
	if err != nil {
		Error(w, r, err)
		return
	}
	if err := ac.RequirePermission("device", "read"); err != nil {
		Error(w, r, err)
		return
	}
	device, err := h.store.GetDevice(r.Context(), routeParam(r, "deviceId"))
	if err != nil {
		Error(w, r, err)
		return
	}
	if !ac.CanAccessOrg(device.OrgID) {
		Error(w, r, apperr.NotFound("device not found"))
		return
	}
	JSON(w, http.StatusOK, device)
}

type patchDeviceRequest struct {
	DisplayName string   `json:"displayName"`
	Tags        []string `json:"tags"`
}

// Patch handles PATCH /api/v1/devices/{deviceId}.
func (h *DeviceHandlers) Patch(w http.ResponseWriter, r *http.Request) {
	ac, err := auth.MustFromContext(r.Context())
	if err != nil {
		Error(w, r, err)
		return
	}
	if err := ac.RequirePermission("device", "write"); err != nil {
		Error(w, r, err)
		return
	}
	deviceID := routeParam(r, "deviceId")
	device, err := h.store.GetDevice(r.Context(), deviceID)
	if err != nil {
		Error(w, r, err)
		return
	}
	if !ac.CanAccessOrg(device.OrgID) {
		Error(w, r, apperr.NotFound("device not found"))
		return
	}
	var req patchDeviceRequest
	if err := Decode(r, &req); err != nil {
		Error(w, r, err)
		return
	}
	if err := h.store.UpdateDeviceDetails(r.Context(), deviceID, req.DisplayName, req.Tags); err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, http.StatusNoContent, nil)
}

// Delete handles DELETE /api/v1/devices/{deviceId}.
func (h *DeviceHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	ac, err := auth.MustFromContext(r.Context())
	if err != nil {
		Error(w, r, err)
		return
	}
	if err := ac.RequirePermission("device", "delete"); err != nil {
		Error(w, r, err)
		return
	}
	deviceID := routeParam(r, "deviceId")
	device, err := h.store.GetDevice(r.Context(), deviceID)
	if err != nil {
		Error(w, r, err)
		return
	}
	if !ac.CanAccessOrg(device.OrgID) {
		Error(w, r, apperr.NotFound("device not found"))
		return
	}
	if err := h.store.SoftDeleteDevice(r.Context(), deviceID); err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, http.StatusNoContent, nil)
}

type issueCommandRequest struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

// IssueCommand handles POST /api/v1/devices/{deviceId}/commands,
// spec.md §4.3's single-device dispatch path.
func (h *DeviceHandlers) IssueCommand(w http.ResponseWriter, r *http.Request) {
	ac, err := auth.MustFromContext(r.Context())
	if err != nil {
		Error(w, r, err)
		return
	}
	if err := ac.RequirePermission("device", "command"); err != nil {
		Error(w, r, err)
		return
	}
	deviceID := routeParam(r, "deviceId")
	device, err := h.store.GetDevice(r.Context(), deviceID)
	if err != nil {
		Error(w, r, err)
		return
	}
	if !ac.CanAccessOrg(device.OrgID) {
		Error(w, r, apperr.NotFound("device not found"))
		return
	}
	var req issueCommandRequest
	if err := Decode(r, &req); err != nil {
		Error(w, r, err)
		return
	}
	if req.Type == "" {
		Error(w, r, apperr.Validation("type is required", nil))
		return
	}

	cmd := &model.DeviceCommand{
		ID:        id.New(),
		DeviceID:  deviceID,
		OrgID:     device.OrgID,
		Type:      req.Type,
		Payload:   req.Payload,
		Status:    model.CommandPending,
		IssuedBy:  ac.ActorID,
		IssuedAt:  time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(h.defaultCommandTTL),
	}
	if err := h.store.CreateCommand(r.Context(), cmd); err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, cmd)
}

// GetCommand handles GET /api/v1/devices/{deviceId}/commands/{commandId}.
func (h *DeviceHandlers) GetCommand(w http.ResponseWriter, r *http.Request) {
	ac, err := auth.MustFromContext(r.Context())
	if err != nil {
		Error(w, r, err)
		return
	}
	if err := ac.RequirePermission("device", "read"); err != nil {
		Error(w, r, err)
		return
	}
	cmd, err := h.store.GetCommand(r.Context(), routeParam(r, "commandId"))
	if err != nil {
		Error(w, r, err)
		return
	}
	if cmd.DeviceID != routeParam(r, "deviceId") || !ac.CanAccessOrg(cmd.OrgID) {
		Error(w, r, apperr.NotFound("command not found"))
		return
	}
	JSON(w, http.StatusOK, cmd)
}
