package store

import (
	"context"

	"github.com/breeze-rmm/breeze/internal/model"
)

func (s *Store) CreateAlertRule(ctx context.Context, r *model.AlertRule) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO alert_rules (id, org_id, name, severity, enabled, targets, conditions,
			cooldown_minutes, escalation_policy_id, notification_channel_ids, auto_resolve)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		r.ID, r.OrgID, r.Name, r.Severity, r.Enabled, r.Targets, r.Conditions,
		r.CooldownMinutes, r.EscalationPolicyID, r.NotificationChannelIDs, r.AutoResolve)
	return mapErr(err)
}

func scanAlertRule(row rowScanner) (*model.AlertRule, error) {
	var r model.AlertRule
	err := row.Scan(&r.ID, &r.OrgID, &r.Name, &r.Severity, &r.Enabled, &r.Targets, &r.Conditions,
		&r.CooldownMinutes, &r.EscalationPolicyID, &r.NotificationChannelIDs, &r.AutoResolve,
		&r.CreatedAt, &r.UpdatedAt, &r.DeletedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &r, nil
}

const alertRuleColumns = `id, org_id, name, severity, enabled, targets, conditions, cooldown_minutes,
	escalation_policy_id, notification_channel_ids, auto_resolve, created_at, updated_at, deleted_at`

func (s *Store) ListEnabledAlertRulesByOrg(ctx context.Context, orgID string) ([]*model.AlertRule, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+alertRuleColumns+` FROM alert_rules WHERE org_id = $1 AND enabled AND deleted_at IS NULL`, orgID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []*model.AlertRule
	for rows.Next() {
		r, err := scanAlertRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, mapErr(rows.Err())
}

func (s *Store) CreateAlert(ctx context.Context, a *model.Alert) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO alerts (id, rule_id, org_id, device_id, severity, status, title, message, context, triggered_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		a.ID, a.RuleID, a.OrgID, a.DeviceID, a.Severity, a.Status, a.Title, a.Message, a.Context, a.TriggeredAt)
	return mapErr(err)
}

// GetActiveAlert backs the dedup/cooldown check: is there already an
// active alert for this (ruleId, deviceId) pair.
func (s *Store) GetActiveAlert(ctx context.Context, ruleID, deviceID string) (*model.Alert, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, rule_id, org_id, device_id, severity, status, title, message, context,
			triggered_at, acknowledged_at, acknowledged_by, resolved_at, resolved_by
		FROM alerts WHERE rule_id = $1 AND device_id = $2 AND status IN ('active','acknowledged')
		ORDER BY triggered_at DESC LIMIT 1`, ruleID, deviceID)
	return scanAlert(row)
}

func scanAlert(row rowScanner) (*model.Alert, error) {
	var a model.Alert
	err := row.Scan(&a.ID, &a.RuleID, &a.OrgID, &a.DeviceID, &a.Severity, &a.Status, &a.Title, &a.Message, &a.Context,
		&a.TriggeredAt, &a.AcknowledgedAt, &a.AcknowledgedBy, &a.ResolvedAt, &a.ResolvedBy)
	if err != nil {
		return nil, mapErr(err)
	}
	return &a, nil
}

func (s *Store) AcknowledgeAlert(ctx context.Context, id, userID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE alerts SET status = 'acknowledged', acknowledged_at = now(), acknowledged_by = $2
		WHERE id = $1 AND status = 'active'`, id, userID)
	return mapErr(err)
}

func (s *Store) ResolveAlert(ctx context.Context, id string, userID *string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE alerts SET status = 'resolved', resolved_at = now(), resolved_by = $2
		WHERE id = $1 AND status IN ('active','acknowledged')`, id, userID)
	return mapErr(err)
}

// AutoResolveAlerts resolves every active/acknowledged alert for
// ruleID+deviceID, used when a rule's AutoResolve condition clears.
func (s *Store) AutoResolveAlerts(ctx context.Context, ruleID, deviceID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE alerts SET status = 'resolved', resolved_at = now()
		WHERE rule_id = $1 AND device_id = $2 AND status IN ('active','acknowledged')`, ruleID, deviceID)
	return mapErr(err)
}

func (s *Store) CreateNotificationChannel(ctx context.Context, c *model.NotificationChannel) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notification_channels (id, org_id, type, config, enabled) VALUES ($1,$2,$3,$4,$5)`,
		c.ID, c.OrgID, c.Type, c.Config, c.Enabled)
	return mapErr(err)
}

func (s *Store) GetNotificationChannel(ctx context.Context, id string) (*model.NotificationChannel, error) {
	row := s.pool.QueryRow(ctx, `SELECT id, org_id, type, config, enabled FROM notification_channels WHERE id = $1`, id)
	var c model.NotificationChannel
	if err := row.Scan(&c.ID, &c.OrgID, &c.Type, &c.Config, &c.Enabled); err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

func (s *Store) ListNotificationChannelsByIDs(ctx context.Context, ids []string) ([]*model.NotificationChannel, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, org_id, type, config, enabled FROM notification_channels WHERE id = ANY($1) AND enabled`, ids)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []*model.NotificationChannel
	for rows.Next() {
		var c model.NotificationChannel
		if err := rows.Scan(&c.ID, &c.OrgID, &c.Type, &c.Config, &c.Enabled); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, &c)
	}
	return out, mapErr(rows.Err())
}

func (s *Store) GetEscalationPolicy(ctx context.Context, id string) (*model.EscalationPolicy, error) {
	row := s.pool.QueryRow(ctx, `SELECT id, org_id, name, steps FROM escalation_policies WHERE id = $1`, id)
	var p model.EscalationPolicy
	if err := row.Scan(&p.ID, &p.OrgID, &p.Name, &p.Steps); err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}
