package model

import "time"

// NotificationChannelType enumerates spec.md's NotificationChannel.type values.
type NotificationChannelType string

const (
	ChannelEmail    NotificationChannelType = "email"
	ChannelSlack    NotificationChannelType = "slack"
	ChannelTeams    NotificationChannelType = "teams"
	ChannelWebhook  NotificationChannelType = "webhook"
	ChannelPagerDuty NotificationChannelType = "pagerduty"
	ChannelSMS      NotificationChannelType = "sms"
	ChannelInApp    NotificationChannelType = "inapp"
)

// AlertRule describes when to trigger alerts and how to notify.
type AlertRule struct {
	ID                     string
	OrgID                  string
	Name                   string
	Severity               string
	Enabled                bool
	Targets                AlertTargets
	Conditions             []AlertCondition
	CooldownMinutes        int
	EscalationPolicyID     *string
	NotificationChannelIDs []string
	AutoResolve            bool
	CreatedAt              time.Time
	UpdatedAt              time.Time
	DeletedAt              *time.Time
}

// AlertTargets scopes a rule to a subset of devices.
type AlertTargets struct {
	DeviceIDs      []string
	DeviceGroupIDs []string
	SiteIDs        []string
	AllDevices     bool
}

// AlertCondition is one clause of a rule's matching expression,
// optionally duration-qualified ("for N minutes").
type AlertCondition struct {
	Metric        string
	Operator      string // one of: gt, gte, lt, lte, eq, neq
	Threshold     float64
	ForMinutes    int // 0 means "instantaneous, no sliding window"
}

// AlertStatus enumerates spec.md's Alert.status values.
type AlertStatus string

const (
	AlertActive       AlertStatus = "active"
	AlertAcknowledged AlertStatus = "acknowledged"
	AlertResolved     AlertStatus = "resolved"
	AlertSuppressed   AlertStatus = "suppressed"
)

// Alert is a single firing (or historical) instance of an AlertRule
// against a Device.
type Alert struct {
	ID             string
	RuleID         string
	OrgID          string
	DeviceID       string
	Severity       string
	Status         AlertStatus
	Title          string
	Message        string
	Context        map[string]any
	TriggeredAt    time.Time
	AcknowledgedAt *time.Time
	AcknowledgedBy *string
	ResolvedAt     *time.Time
	ResolvedBy     *string
}

// NotificationChannel is an org-scoped destination for alert/event
// notifications. Config is validated per Type by the notify package.
type NotificationChannel struct {
	ID      string
	OrgID   string
	Type    NotificationChannelType
	Config  map[string]any
	Enabled bool
}

// EscalationStep is one tier of an EscalationPolicy: after DelayMinutes
// without acknowledgement, notify ChannelIDs.
type EscalationStep struct {
	DelayMinutes int
	ChannelIDs   []string
}

// EscalationPolicy is an ordered sequence of steps applied to
// unacknowledged alerts.
type EscalationPolicy struct {
	ID    string
	OrgID string
	Name  string
	Steps []EscalationStep
}
