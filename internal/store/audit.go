package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/breeze-rmm/breeze/internal/model"
)

// AppendAuditLog inserts a row; it never updates or deletes, matching
// the append-only invariant spec.md §3 requires of the audit trail.
func (s *Store) AppendAuditLog(ctx context.Context, e *model.AuditLog) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_log (id, org_id, timestamp, actor_type, actor_id, actor_email, action,
			resource_type, resource_id, resource_name, details, ip, user_agent, result, prev_checksum, checksum)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		e.ID, e.OrgID, e.Timestamp, e.ActorType, e.ActorID, e.ActorEmail, e.Action,
		e.ResourceType, e.ResourceID, e.ResourceName, e.Details, e.IP, e.UserAgent, e.Result, e.PrevChecksum, e.Checksum)
	return mapErr(err)
}

// LastAuditChecksum returns the checksum of the most recent entry
// globally, the hash-chain anchor the next entry must reference. An
// empty chain (no prior entries) returns "" with a nil error.
func (s *Store) LastAuditChecksum(ctx context.Context) (string, error) {
	var checksum string
	err := s.pool.QueryRow(ctx, `SELECT checksum FROM audit_log ORDER BY timestamp DESC, id DESC LIMIT 1`).Scan(&checksum)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", nil
		}
		return "", mapErr(err)
	}
	return checksum, nil
}

func (s *Store) ListAuditLogByOrg(ctx context.Context, orgID string, limit int) ([]*model.AuditLog, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, org_id, timestamp, actor_type, actor_id, actor_email, action, resource_type,
			resource_id, resource_name, details, ip, user_agent, result, prev_checksum, checksum
		FROM audit_log WHERE org_id = $1 ORDER BY timestamp DESC LIMIT $2`, orgID, limit)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []*model.AuditLog
	for rows.Next() {
		var e model.AuditLog
		err := rows.Scan(&e.ID, &e.OrgID, &e.Timestamp, &e.ActorType, &e.ActorID, &e.ActorEmail, &e.Action, &e.ResourceType,
			&e.ResourceID, &e.ResourceName, &e.Details, &e.IP, &e.UserAgent, &e.Result, &e.PrevChecksum, &e.Checksum)
		if err != nil {
			return nil, mapErr(err)
		}
		out = append(out, &e)
	}
	return out, mapErr(rows.Err())
}
