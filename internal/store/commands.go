package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/breeze-rmm/breeze/internal/model"
)

func msToDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

const deviceCommandColumns = `id, device_id, org_id, type, payload, status, exit_code, stdout, stderr,
	issued_by, issued_at, started_at, completed_at, expires_at, attempt`

func scanDeviceCommand(row rowScanner) (*model.DeviceCommand, error) {
	var c model.DeviceCommand
	err := row.Scan(&c.ID, &c.DeviceID, &c.OrgID, &c.Type, &c.Payload, &c.Status, &c.ExitCode, &c.Stdout, &c.Stderr,
		&c.IssuedBy, &c.IssuedAt, &c.StartedAt, &c.CompletedAt, &c.ExpiresAt, &c.Attempt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

func (s *Store) CreateCommand(ctx context.Context, c *model.DeviceCommand) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO device_commands (id, device_id, org_id, type, payload, status, issued_by, issued_at, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		c.ID, c.DeviceID, c.OrgID, c.Type, c.Payload, c.Status, c.IssuedBy, c.IssuedAt, c.ExpiresAt)
	return mapErr(err)
}

func (s *Store) GetCommand(ctx context.Context, id string) (*model.DeviceCommand, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+deviceCommandColumns+` FROM device_commands WHERE id = $1`, id)
	return scanDeviceCommand(row)
}

// ListPendingCommandsForDevice returns commands still owed to a device,
// marking none of them sent -- the caller (agentgw) does that as part
// of building the heartbeat response in the same transaction.
func (s *Store) ListPendingCommandsForDevice(ctx context.Context, deviceID string) ([]*model.DeviceCommand, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+deviceCommandColumns+` FROM device_commands
		WHERE device_id = $1 AND status IN ('pending','queued') ORDER BY issued_at ASC`, deviceID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []*model.DeviceCommand
	for rows.Next() {
		c, err := scanDeviceCommand(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, mapErr(rows.Err())
}

func (s *Store) MarkCommandSent(ctx context.Context, tx pgx.Tx, id string) error {
	_, err := tx.Exec(ctx, `UPDATE device_commands SET status = 'sent' WHERE id = $1 AND status IN ('pending','queued')`, id)
	return mapErr(err)
}

// ApplyCommandResult is idempotent on (id, attempt): a retransmitted
// result for an already-completed attempt is a no-op, not an error, so
// at-least-once agent delivery never double-applies a result.
func (s *Store) ApplyCommandResult(ctx context.Context, id string, attempt int, exitCode int, stdout, stderr string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE device_commands SET
			status = CASE WHEN $2 = 0 THEN 'completed' ELSE 'failed' END,
			exit_code = $2, stdout = $3, stderr = $4, completed_at = now()
		WHERE id = $1 AND status NOT IN ('completed','failed','timeout','cancelled') AND attempt <= $5`,
		id, exitCode, stdout, stderr, attempt)
	return mapErr(err)
}

// ExpireTimedOutCommands transitions commands whose expiresAt has
// passed without a result to 'timeout'. Returns the number of commands
// transitioned.
func (s *Store) ExpireTimedOutCommands(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE device_commands SET status = 'timeout', completed_at = now()
		WHERE status IN ('pending','queued','sent','running') AND expires_at < now()`)
	if err != nil {
		return 0, mapErr(err)
	}
	return tag.RowsAffected(), nil
}

// --- job_runs ---

func scanJobRun(row rowScanner) (*model.JobRun, error) {
	var j model.JobRun
	err := row.Scan(&j.ID, &j.Kind, &j.Payload, &j.Status, &j.Attempts, &j.NextRetryAt, &j.LastError, &j.ScheduledFor, &j.CreatedAt, &j.CompletedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &j, nil
}

const jobRunColumns = `id, kind, payload, status, attempts, next_retry_at, last_error, scheduled_for, created_at, completed_at`

// EnqueueJob inserts a job, ignoring duplicates of the same (kind,
// eventId) so retriggered enqueue calls stay idempotent.
func (s *Store) EnqueueJob(ctx context.Context, j *model.JobRun, eventID string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO job_runs (id, kind, event_id, payload, status, scheduled_for)
		VALUES ($1,$2,$3,$4,'pending',$5)
		ON CONFLICT (kind, event_id) DO NOTHING`,
		j.ID, j.Kind, eventID, j.Payload, j.ScheduledFor)
	return mapErr(err)
}

// LeaseNextJob atomically claims one due job of kind for processing,
// using SKIP LOCKED so concurrent workers never block on each other.
func (s *Store) LeaseNextJob(ctx context.Context, kind string) (*model.JobRun, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE job_runs SET status = 'running'
		WHERE id = (
			SELECT id FROM job_runs
			WHERE kind = $1 AND status = 'pending' AND scheduled_for <= now()
				AND (next_retry_at IS NULL OR next_retry_at <= now())
			ORDER BY scheduled_for ASC
			FOR UPDATE SKIP LOCKED LIMIT 1
		)
		RETURNING `+jobRunColumns, kind)
	var j model.JobRun
	err := row.Scan(&j.ID, &j.Kind, &j.Payload, &j.Status, &j.Attempts, &j.NextRetryAt, &j.LastError, &j.ScheduledFor, &j.CreatedAt, &j.CompletedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, mapErr(err)
	}
	return &j, nil
}

func (s *Store) CompleteJob(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `UPDATE job_runs SET status = 'completed', completed_at = now() WHERE id = $1`, id)
	return mapErr(err)
}

// RetryJob records a failed attempt and schedules the next one, or
// dead-letters the job once maxAttempts is exceeded.
func (s *Store) RetryJob(ctx context.Context, id string, nextRetryAt any, lastError string, maxAttempts int) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE job_runs SET
			attempts = attempts + 1,
			last_error = $3,
			status = CASE WHEN attempts + 1 > $4 THEN 'dead_letter' ELSE 'pending' END,
			next_retry_at = CASE WHEN attempts + 1 > $4 THEN NULL ELSE $2 END
		WHERE id = $1`, id, nextRetryAt, lastError, maxAttempts)
	return mapErr(err)
}

// --- webhooks ---

func (s *Store) CreateWebhook(ctx context.Context, w *model.Webhook) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO webhooks (id, org_id, url, secret, events, headers, status,
			max_retries, backoff_multiplier, initial_delay_ms, max_delay_ms)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		w.ID, w.OrgID, w.URL, w.Secret, w.Events, w.Headers, w.Status,
		w.RetryPolicy.MaxRetries, w.RetryPolicy.BackoffMultiplier,
		w.RetryPolicy.InitialDelay.Milliseconds(), w.RetryPolicy.MaxDelay.Milliseconds())
	return mapErr(err)
}

func (s *Store) ListWebhooksByOrgAndEvent(ctx context.Context, orgID, event string) ([]*model.Webhook, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, org_id, url, secret, events, headers, status, max_retries, backoff_multiplier,
			initial_delay_ms, max_delay_ms, success_count, failure_count, last_delivery_at, created_at, updated_at
		FROM webhooks WHERE org_id = $1 AND status = 'active' AND $2 = ANY(events)`, orgID, event)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []*model.Webhook
	for rows.Next() {
		w, err := scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, mapErr(rows.Err())
}

func scanWebhook(row rowScanner) (*model.Webhook, error) {
	var w model.Webhook
	var initMs, maxMs int64
	err := row.Scan(&w.ID, &w.OrgID, &w.URL, &w.Secret, &w.Events, &w.Headers, &w.Status,
		&w.RetryPolicy.MaxRetries, &w.RetryPolicy.BackoffMultiplier, &initMs, &maxMs,
		&w.SuccessCount, &w.FailureCount, &w.LastDeliveryAt, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	w.RetryPolicy.InitialDelay = msToDuration(initMs)
	w.RetryPolicy.MaxDelay = msToDuration(maxMs)
	return &w, nil
}

func (s *Store) RecordWebhookDeliveryOutcome(ctx context.Context, webhookID string, success bool) error {
	col := "failure_count"
	if success {
		col = "success_count"
	}
	_, err := s.pool.Exec(ctx, `UPDATE webhooks SET `+col+` = `+col+` + 1, last_delivery_at = now() WHERE id = $1`, webhookID)
	return mapErr(err)
}

// --- webhook_deliveries ---

func (s *Store) CreateWebhookDelivery(ctx context.Context, d *model.WebhookDelivery) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO webhook_deliveries (id, webhook_id, event_type, event_id, payload, status)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (webhook_id, event_id) DO NOTHING`,
		d.ID, d.WebhookID, d.EventType, d.EventID, d.Payload, d.Status)
	return mapErr(err)
}

func (s *Store) UpdateWebhookDeliveryOutcome(ctx context.Context, d *model.WebhookDelivery) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE webhook_deliveries SET status=$2, attempts=$3, next_retry_at=$4,
			response_status=$5, response_body=$6, response_time_ms=$7, error=$8
		WHERE id = $1`,
		d.ID, d.Status, d.Attempts, d.NextRetryAt, d.ResponseStatus, d.ResponseBody, d.ResponseTimeMs, d.Error)
	return mapErr(err)
}
