package model

import "time"

// CommandStatus enumerates spec.md's DeviceCommand.status values.
type CommandStatus string

const (
	CommandPending   CommandStatus = "pending"
	CommandQueued    CommandStatus = "queued"
	CommandSent      CommandStatus = "sent"
	CommandRunning   CommandStatus = "running"
	CommandCompleted CommandStatus = "completed"
	CommandFailed    CommandStatus = "failed"
	CommandTimeout   CommandStatus = "timeout"
	CommandCancelled CommandStatus = "cancelled"
)

// DeviceCommand is a unit of work dispatched to a single device.
type DeviceCommand struct {
	ID          string
	DeviceID    string
	OrgID       string
	Type        string
	Payload     map[string]any
	Status      CommandStatus
	ExitCode    *int
	Stdout      *string
	Stderr      *string
	IssuedBy    string
	IssuedAt    time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	ExpiresAt   time.Time
	Attempt     int
}

// Succeeded reports the "exitCode==0" success rule spec.md §4.2 spells
// out explicitly: there is no separate success:boolean field, callers
// must not invent one.
func (c DeviceCommand) Succeeded() bool {
	return c.ExitCode != nil && *c.ExitCode == 0
}

// TimedOut reports whether a pending/sent command has outlived its
// ExpiresAt without a result.
func (c DeviceCommand) TimedOut(now time.Time) bool {
	switch c.Status {
	case CommandPending, CommandQueued, CommandSent, CommandRunning:
		return now.After(c.ExpiresAt)
	default:
		return false
	}
}

// JobRun is a durable background task row (deployment, patch, webhook,
// notification dispatch).
type JobRun struct {
	ID           string
	Kind         string
	Payload      map[string]any
	Status       string
	Attempts     int
	NextRetryAt  *time.Time
	LastError    *string
	ScheduledFor time.Time
	CreatedAt    time.Time
	CompletedAt  *time.Time
}

// RetryPolicy is a Webhook's backoff configuration.
type RetryPolicy struct {
	MaxRetries       int
	BackoffMultiplier float64
	InitialDelay     time.Duration
	MaxDelay         time.Duration
}

// NextDelay computes the delay before attempt number `attempt` (0-based),
// per spec.md §4.3: nextRetryAt = now + min(maxDelay, initialDelay *
// backoffMultiplier^attempts).
func (p RetryPolicy) NextDelay(attempt int) time.Duration {
	delay := float64(p.InitialDelay)
	for i := 0; i < attempt; i++ {
		delay *= p.BackoffMultiplier
	}
	if time.Duration(delay) > p.MaxDelay {
		return p.MaxDelay
	}
	return time.Duration(delay)
}

// Webhook is an org-scoped outbound delivery target.
type Webhook struct {
	ID             string
	OrgID          string
	URL            string
	Secret         string
	Events         []string
	Headers        map[string]string
	Status         string
	RetryPolicy    RetryPolicy
	SuccessCount   int64
	FailureCount   int64
	LastDeliveryAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// WebhookDeliveryStatus enumerates a delivery attempt's lifecycle.
type WebhookDeliveryStatus string

const (
	DeliveryPending   WebhookDeliveryStatus = "pending"
	DeliveryDelivered WebhookDeliveryStatus = "delivered"
	DeliveryFailed    WebhookDeliveryStatus = "failed"
	DeliveryRetrying  WebhookDeliveryStatus = "retrying"
)

// WebhookDelivery is one attempt (and its retries) to deliver an event
// to a Webhook.
type WebhookDelivery struct {
	ID             string
	WebhookID      string
	EventType      string
	EventID        string
	Payload        map[string]any
	Status         WebhookDeliveryStatus
	Attempts       int
	NextRetryAt    *time.Time
	ResponseStatus *int
	ResponseBody   *string
	ResponseTimeMs *int
	Error          *string
	CreatedAt      time.Time
}
