// Package audit computes and appends hash-chained audit log entries.
// Each entry's checksum is HMAC-SHA256 keyed by the previous entry's
// checksum over a canonicalized encoding of the entry, so altering any
// historical row breaks verification from that point forward.
package audit

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/breeze-rmm/breeze/internal/apperr"
	"github.com/breeze-rmm/breeze/internal/id"
	"github.com/breeze-rmm/breeze/internal/model"
)

// genesisKey is the HMAC key used for the very first entry in the
// chain, when there is no previous checksum to key off of.
const genesisKey = "breeze-audit-genesis"

// Store is the subset of store.Store audit.Writer needs.
type Store interface {
	LastAuditChecksum(ctx context.Context) (string, error)
	AppendAuditLog(ctx context.Context, e *model.AuditLog) error
}

// Writer appends entries to the audit trail, computing each entry's
// checksum from the live chain tail.
type Writer struct {
	store Store
}

func NewWriter(store Store) *Writer {
	return &Writer{store: store}
}

// Entry carries the fields a caller supplies for one audit record;
// ID, Timestamp, PrevChecksum and Checksum are computed by Append.
type Entry struct {
	OrgID        *string
	ActorType    model.ActorType
	ActorID      string
	ActorEmail   *string
	Action       string
	ResourceType string
	ResourceID   *string
	ResourceName *string
	Details      map[string]any
	IP           string
	UserAgent    string
	Result       model.AuditResult
}

// Append writes e to the trail, chaining it onto the current tail
// checksum. The database's serializable-enough ordering (timestamp,
// id) is relied on by LastAuditChecksum to find the true tail; a race
// between two concurrent Append calls can interleave entries, which is
// acceptable because each entry still verifies against whichever
// checksum it actually chained onto.
func (w *Writer) Append(ctx context.Context, e Entry) (*model.AuditLog, error) {
	prev, err := w.store.LastAuditChecksum(ctx)
	if err != nil {
		return nil, err
	}

	log := &model.AuditLog{
		ID:           id.New(),
		OrgID:        e.OrgID,
		Timestamp:    time.Now().UTC(),
		ActorType:    e.ActorType,
		ActorID:      e.ActorID,
		ActorEmail:   e.ActorEmail,
		Action:       e.Action,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		ResourceName: e.ResourceName,
		Details:      e.Details,
		IP:           e.IP,
		UserAgent:    e.UserAgent,
		Result:       e.Result,
		PrevChecksum: prev,
	}

	checksum, err := computeChecksum(prev, log)
	if err != nil {
		return nil, err
	}
	log.Checksum = checksum

	if err := w.store.AppendAuditLog(ctx, log); err != nil {
		return nil, err
	}
	return log, nil
}

// canonicalEntry is the stable, field-ordered projection of an
// AuditLog that gets signed; json.Marshal on a struct (rather than a
// map) guarantees field order independent of Go map iteration.
type canonicalEntry struct {
	ID           string          `json:"id"`
	OrgID        *string         `json:"orgId"`
	Timestamp    string          `json:"timestamp"`
	ActorType    model.ActorType `json:"actorType"`
	ActorID      string          `json:"actorId"`
	Action       string          `json:"action"`
	ResourceType string          `json:"resourceType"`
	ResourceID   *string         `json:"resourceId"`
	Result       model.AuditResult `json:"result"`
	Details      map[string]any  `json:"details"`
	PrevChecksum string          `json:"prevChecksum"`
}

func computeChecksum(prev string, e *model.AuditLog) (string, error) {
	canon := canonicalEntry{
		ID:           e.ID,
		OrgID:        e.OrgID,
		Timestamp:    e.Timestamp.Format(time.RFC3339Nano),
		ActorType:    e.ActorType,
		ActorID:      e.ActorID,
		Action:       e.Action,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		Result:       e.Result,
		Details:      e.Details,
		PrevChecksum: prev,
	}
	body, err := json.Marshal(canon)
	if err != nil {
		return "", apperr.Fatal("marshal audit entry for checksum", err)
	}

	key := []byte(prev)
	if prev == "" {
		key = []byte(genesisKey)
	}
	mac := hmac.New(sha256.New, key)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify recomputes and checks the checksum chain across entries,
// which must already be ordered oldest-first. It reports the index of
// the first entry that fails to verify, or -1 if the whole chain is
// intact.
func Verify(entries []*model.AuditLog) int {
	prev := ""
	for i, e := range entries {
		if e.PrevChecksum != prev {
			return i
		}
		checksum, err := computeChecksum(prev, e)
		if err != nil || checksum != e.Checksum {
			return i
		}
		prev = e.Checksum
	}
	return -1
}
