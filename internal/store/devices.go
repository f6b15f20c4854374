package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/breeze-rmm/breeze/internal/apperr"
	"github.com/breeze-rmm/breeze/internal/model"
)

func (s *Store) CreateDevice(ctx context.Context, d *model.Device) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO devices (id, org_id, site_id, agent_id, agent_token_hash, hardware_fingerprint, hostname, display_name,
			os_type, os_version, architecture, agent_version, status, enrolled_at, tags)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		d.ID, d.OrgID, d.SiteID, d.AgentID, d.AgentTokenHash, d.HardwareFingerprint, d.Hostname, d.DisplayName,
		d.OSType, d.OSVersion, d.Architecture, d.AgentVersion, d.Status, d.EnrolledAt, d.Tags)
	return mapErr(err)
}

const deviceColumns = `id, org_id, site_id, agent_id, agent_token_hash, hardware_fingerprint, hostname, display_name,
	os_type, os_version, architecture, agent_version, status, last_seen_at, enrolled_at, tags,
	created_at, updated_at, deleted_at`

func scanDevice(row rowScanner) (*model.Device, error) {
	var d model.Device
	err := row.Scan(&d.ID, &d.OrgID, &d.SiteID, &d.AgentID, &d.AgentTokenHash, &d.HardwareFingerprint, &d.Hostname, &d.DisplayName,
		&d.OSType, &d.OSVersion, &d.Architecture, &d.AgentVersion, &d.Status, &d.LastSeenAt, &d.EnrolledAt, &d.Tags,
		&d.CreatedAt, &d.UpdatedAt, &d.DeletedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &d, nil
}

func (s *Store) GetDevice(ctx context.Context, id string) (*model.Device, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+deviceColumns+` FROM devices WHERE id = $1 AND deleted_at IS NULL`, id)
	return scanDevice(row)
}

// GetDeviceByAgentID looks a device up by its opaque agentId, the
// identity agents authenticate as on every heartbeat/result call.
func (s *Store) GetDeviceByAgentID(ctx context.Context, agentID string) (*model.Device, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+deviceColumns+` FROM devices WHERE agent_id = $1 AND deleted_at IS NULL`, agentID)
	return scanDevice(row)
}

func (s *Store) ListDevicesByOrg(ctx context.Context, orgID string) ([]*model.Device, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+deviceColumns+` FROM devices WHERE org_id = $1 AND deleted_at IS NULL`, orgID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []*model.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, mapErr(rows.Err())
}

// ListDevicesByOrgFilter returns devices matching orgFilterSQL (a
// fragment produced by auth.AuthContext.OrgFilterSQL, e.g. "org_id =
// ANY($1)"), so handlers never hand-rolled tenancy filtering leaks a
// cross-tenant row. args supplies the values for orgFilterSQL's
// placeholders, in order from $1.
func (s *Store) ListDevicesByOrgFilter(ctx context.Context, orgFilterSQL string, args []any) ([]*model.Device, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+deviceColumns+` FROM devices WHERE deleted_at IS NULL AND (`+orgFilterSQL+`) ORDER BY hostname`, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []*model.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, mapErr(rows.Err())
}

// ListStaleDevices returns online devices that haven't reported a
// heartbeat since cutoff, for the offline-timeout sweep.
func (s *Store) ListStaleDevices(ctx context.Context, cutoff any) ([]*model.Device, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+deviceColumns+` FROM devices
		WHERE status = 'online' AND (last_seen_at IS NULL OR last_seen_at < $1) AND deleted_at IS NULL`, cutoff)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []*model.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, mapErr(rows.Err())
}

// UpdateDeviceStatus enforces the state-machine transition table
// (model.CanTransitionTo) before writing; callers that already checked
// the transition still go through here so the column always reflects
// a legal edge even under concurrent writers racing on the same row.
func (s *Store) UpdateDeviceStatus(ctx context.Context, tx pgx.Tx, deviceID string, to model.DeviceStatus) error {
	var querier interface {
		QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
		Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	} = s.pool
	if tx != nil {
		querier = tx
	}
	var cur model.DeviceStatus
	if err := querier.QueryRow(ctx, `SELECT status FROM devices WHERE id = $1 FOR UPDATE`, deviceID).Scan(&cur); err != nil {
		return mapErr(err)
	}
	if !model.CanTransitionTo(cur, to) {
		return apperr.Conflict("illegal device status transition: " + string(cur) + " -> " + string(to))
	}
	_, err := querier.Exec(ctx, `UPDATE devices SET status = $2, updated_at = now() WHERE id = $1`, deviceID, to)
	return mapErr(err)
}

// UpdateDeviceDetails patches the operator-editable fields of a
// device: display name and tags.
func (s *Store) UpdateDeviceDetails(ctx context.Context, deviceID, displayName string, tags []string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE devices SET display_name = $2, tags = $3, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`, deviceID, displayName, tags)
	return mapErr(err)
}

// SoftDeleteDevice marks a device deleted without losing its audit
// history, per spec.md §3's soft-delete convention for tenant entities.
func (s *Store) SoftDeleteDevice(ctx context.Context, deviceID string) error {
	_, err := s.pool.Exec(ctx, `UPDATE devices SET deleted_at = now() WHERE id = $1 AND deleted_at IS NULL`, deviceID)
	return mapErr(err)
}

// GetDecommissionedDeviceByFingerprint looks for a prior device row to
// resume on re-enrollment, per spec.md §4.2 ("resume if fingerprint
// matches a prior decommission"). Only decommissioned rows are
// eligible so a live device can never be silently hijacked by a
// spoofed fingerprint.
func (s *Store) GetDecommissionedDeviceByFingerprint(ctx context.Context, orgID, fingerprint string) (*model.Device, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+deviceColumns+` FROM devices
		WHERE org_id = $1 AND hardware_fingerprint = $2 AND status = 'decommissioned' AND deleted_at IS NULL
		ORDER BY updated_at DESC LIMIT 1`, orgID, fingerprint)
	return scanDevice(row)
}

// ResumeDevice reactivates a previously decommissioned row in place
// with fresh enrollment credentials, instead of creating a new id.
func (s *Store) ResumeDevice(ctx context.Context, deviceID, agentID, agentTokenHash, siteID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE devices SET agent_id = $2, agent_token_hash = $3, site_id = $4,
			status = 'offline', enrolled_at = now(), updated_at = now()
		WHERE id = $1`, deviceID, agentID, agentTokenHash, siteID)
	return mapErr(err)
}

func (s *Store) TouchDeviceHeartbeat(ctx context.Context, deviceID string, seenAt any, agentVersion string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE devices SET last_seen_at = $2, agent_version = $3, status = 'online', updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`, deviceID, seenAt, agentVersion)
	return mapErr(err)
}

func (s *Store) UpsertMTLSCert(ctx context.Context, deviceID string, cert *model.MTLSCert) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO mtls_certs (device_id, serial, external_cert_id, issued_at, expires_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (device_id) DO UPDATE SET serial = $2, external_cert_id = $3, issued_at = $4, expires_at = $5`,
		deviceID, cert.Serial, cert.ExternalCertID, cert.IssuedAt, cert.ExpiresAt)
	return mapErr(err)
}

func (s *Store) GetMTLSCert(ctx context.Context, deviceID string) (*model.MTLSCert, error) {
	row := s.pool.QueryRow(ctx, `SELECT serial, external_cert_id, issued_at, expires_at FROM mtls_certs WHERE device_id = $1`, deviceID)
	var c model.MTLSCert
	if err := row.Scan(&c.Serial, &c.ExternalCertID, &c.IssuedAt, &c.ExpiresAt); err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

func (s *Store) UpsertHardwareInventory(ctx context.Context, hw *model.HardwareInventory) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO hardware_inventory (device_id, cpu_model, cpu_cores, memory_bytes, disk_bytes, collected_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (device_id) DO UPDATE SET cpu_model=$2, cpu_cores=$3, memory_bytes=$4, disk_bytes=$5, collected_at=$6`,
		hw.DeviceID, hw.CPUModel, hw.CPUCores, hw.MemoryBytes, hw.DiskBytes, hw.CollectedAt)
	return mapErr(err)
}

// ReplaceSoftwareInventory swaps a device's full software_entries set
// inside tx: it deletes the existing rows and inserts entries. It
// computes no diff against the previous snapshot.
func (s *Store) ReplaceSoftwareInventory(ctx context.Context, tx pgx.Tx, deviceID string, entries []model.SoftwareEntry) error {
	if _, err := tx.Exec(ctx, `DELETE FROM software_entries WHERE device_id = $1`, deviceID); err != nil {
		return mapErr(err)
	}
	for _, e := range entries {
		if _, err := tx.Exec(ctx, `
			INSERT INTO software_entries (device_id, name, version, installed_at) VALUES ($1,$2,$3,$4)`,
			deviceID, e.Name, e.Version, e.InstalledAt); err != nil {
			return mapErr(err)
		}
	}
	return nil
}

func (s *Store) ListSoftwareInventory(ctx context.Context, deviceID string) ([]model.SoftwareEntry, error) {
	rows, err := s.pool.Query(ctx, `SELECT device_id, name, version, installed_at FROM software_entries WHERE device_id = $1`, deviceID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []model.SoftwareEntry
	for rows.Next() {
		var e model.SoftwareEntry
		if err := rows.Scan(&e.DeviceID, &e.Name, &e.Version, &e.InstalledAt); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, e)
	}
	return out, mapErr(rows.Err())
}
