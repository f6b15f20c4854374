package store

import (
	"context"

	"github.com/breeze-rmm/breeze/internal/model"
)

func (s *Store) CreateRemoteSession(ctx context.Context, sess *model.RemoteSession) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO remote_sessions (id, device_id, user_id, org_id, type, status, started_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		sess.ID, sess.DeviceID, sess.UserID, sess.OrgID, sess.Type, sess.Status, sess.StartedAt)
	return mapErr(err)
}

const remoteSessionColumns = `id, device_id, user_id, org_id, type, status, offer, answer,
	ice_candidates, started_at, ended_at, bytes_transferred`

func scanRemoteSession(row rowScanner) (*model.RemoteSession, error) {
	var rs model.RemoteSession
	err := row.Scan(&rs.ID, &rs.DeviceID, &rs.UserID, &rs.OrgID, &rs.Type, &rs.Status, &rs.Offer, &rs.Answer,
		&rs.ICECandidates, &rs.StartedAt, &rs.EndedAt, &rs.BytesTransferred)
	if err != nil {
		return nil, mapErr(err)
	}
	return &rs, nil
}

func (s *Store) GetRemoteSession(ctx context.Context, id string) (*model.RemoteSession, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+remoteSessionColumns+` FROM remote_sessions WHERE id = $1`, id)
	return scanRemoteSession(row)
}

// ListStaleRemoteSessions finds sessions in a non-terminal state whose
// StartedAt predates cutoff, for the idle-timeout sweep; callers may
// further filter by partner/org scope before acting.
func (s *Store) ListStaleRemoteSessions(ctx context.Context, cutoff any) ([]*model.RemoteSession, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+remoteSessionColumns+` FROM remote_sessions
		WHERE status IN ('pending','connecting','active') AND started_at < $1`, cutoff)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []*model.RemoteSession
	for rows.Next() {
		rs, err := scanRemoteSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rs)
	}
	return out, mapErr(rows.Err())
}

func (s *Store) UpdateRemoteSessionSignal(ctx context.Context, id string, offer, answer *string, candidates []model.ICECandidate, status model.RemoteSessionStatus) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE remote_sessions SET offer = COALESCE($2, offer), answer = COALESCE($3, answer),
			ice_candidates = $4, status = $5 WHERE id = $1`,
		id, offer, answer, candidates, status)
	return mapErr(err)
}

func (s *Store) EndRemoteSession(ctx context.Context, id string, bytesTransferred int64) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE remote_sessions SET status = 'disconnected', ended_at = now(), bytes_transferred = $2
		WHERE id = $1`, id, bytesTransferred)
	return mapErr(err)
}

func (s *Store) CreateFileTransfer(ctx context.Context, ft *model.FileTransfer) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO file_transfers (id, session_id, device_id, user_id, direction, remote_path, size, status, progress_percent)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		ft.ID, ft.SessionID, ft.DeviceID, ft.UserID, ft.Direction, ft.RemotePath, ft.Size, ft.Status, ft.ProgressPercent)
	return mapErr(err)
}

func (s *Store) UpdateFileTransferProgress(ctx context.Context, id string, progressPercent int, status string) error {
	_, err := s.pool.Exec(ctx, `UPDATE file_transfers SET progress_percent = $2, status = $3 WHERE id = $1`, id, progressPercent, status)
	return mapErr(err)
}
