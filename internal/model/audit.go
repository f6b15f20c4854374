package model

import "time"

// ActorType enumerates spec.md's AuditLog.actorType values.
type ActorType string

const (
	ActorUser   ActorType = "user"
	ActorAPIKey ActorType = "api_key"
	ActorAgent  ActorType = "agent"
	ActorSystem ActorType = "system"
)

// AuditResult enumerates spec.md's AuditLog.result values.
type AuditResult string

const (
	AuditSuccess AuditResult = "success"
	AuditFailure AuditResult = "failure"
	AuditDenied  AuditResult = "denied"
)

// AuditLog is one append-only entry in the hash-chained audit trail.
// Checksum covers this entry's fields plus the previous entry's
// checksum, so tampering with any historical row breaks the chain
// from that point forward.
type AuditLog struct {
	ID           string
	OrgID        *string
	Timestamp    time.Time
	ActorType    ActorType
	ActorID      string
	ActorEmail   *string
	Action       string
	ResourceType string
	ResourceID   *string
	ResourceName *string
	Details      map[string]any
	IP           string
	UserAgent    string
	Result       AuditResult
	PrevChecksum string
	Checksum     string
}
