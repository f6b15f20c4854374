// Package queue implements the durable job queue from spec.md §4.3:
// Postgres job_runs rows are the source of truth; Redis is used only
// for lease-kind backpressure, never as the system of record.
package queue

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/breeze-rmm/breeze/internal/apperr"
	"github.com/breeze-rmm/breeze/internal/cache"
	"github.com/breeze-rmm/breeze/internal/model"
	"github.com/breeze-rmm/breeze/internal/store"
)

// Job kinds this queue dispatches; handlers register by kind.
const (
	KindWebhookDelivery     = "webhook_delivery"
	KindNotificationDispatch = "notification_dispatch"
	KindDeploymentJob       = "deployment_job"
	KindPatchJob            = "patch_job"
	KindSecretReencrypt     = "secret_reencrypt"
)

// Handler processes one job's payload. Returning an apperr with
// Retryable()==false dead-letters the job immediately regardless of
// remaining attempts (validation/forbidden errors are poison pills).
type Handler func(ctx context.Context, job *model.JobRun) error

// Queue pulls due jobs per-kind and runs them through their Handler,
// scheduling retries per spec.md's backoff formula on failure.
type Queue struct {
	store *store.Store
	cache *cache.Cache
}

func New(st *store.Store, c *cache.Cache) *Queue {
	return &Queue{store: st, cache: c}
}

// Enqueue schedules a new job, deduplicated by (kind, eventID).
func (q *Queue) Enqueue(ctx context.Context, kind, eventID string, payload map[string]any, scheduledFor time.Time) error {
	job := &model.JobRun{
		ID:           uuid.NewString(),
		Kind:         kind,
		Payload:      payload,
		Status:       "pending",
		ScheduledFor: scheduledFor,
	}
	return q.store.EnqueueJob(ctx, job, eventID)
}

// defaultPolicy mirrors the Webhook RetryPolicy shape for non-webhook
// job kinds that don't carry their own policy row.
var defaultPolicy = model.RetryPolicy{
	MaxRetries:        8,
	BackoffMultiplier: 2.0,
	InitialDelay:      time.Second,
	MaxDelay:          time.Hour,
}

// RunOnce leases and processes at most one due job of kind, returning
// false if none was available. Intended to be called in a polling loop
// by each worker goroutine.
func (q *Queue) RunOnce(ctx context.Context, kind string, policy model.RetryPolicy, handler Handler) (bool, error) {
	job, err := q.store.LeaseNextJob(ctx, kind)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}

	if err := handler(ctx, job); err != nil {
		if !apperr.Retryable(apperr.KindOf(err)) {
			_ = q.store.RetryJob(ctx, job.ID, nil, err.Error(), 0) // attempts+1 > 0 always dead-letters
			return true, nil
		}
		delay := policy.NextDelay(job.Attempts)
		next := time.Now().Add(delay)
		if rerr := q.store.RetryJob(ctx, job.ID, next, err.Error(), policy.MaxRetries); rerr != nil {
			return true, rerr
		}
		return true, nil
	}
	return true, q.store.CompleteJob(ctx, job.ID)
}

// backoffForAttempt computes a one-off randomized exponential delay
// outside the job_runs retry bookkeeping, using cenkalti/backoff. It is
// unexported and has no caller; RunOnce uses RetryPolicy.NextDelay.
func backoffForAttempt(attempt int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = time.Minute
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.2
	var d time.Duration
	for i := 0; i <= attempt; i++ {
		d = b.NextBackOff()
	}
	return d
}

// DefaultPolicy returns the retry policy non-webhook job kinds use.
func DefaultPolicy() model.RetryPolicy { return defaultPolicy }
