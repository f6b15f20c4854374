package model

import "time"

// EnrollmentKey binds a pre-shared enrollment secret to a target
// org/site, so a new agent's enrollment destination is always
// deterministic from the key itself rather than guessed.
type EnrollmentKey struct {
	ID        string
	OrgID     string
	SiteID    string
	KeyHash   string // peppered hash of the plaintext key
	MaxUses   int    // 0 means unlimited
	UseCount  int
	ExpiresAt *time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// Usable reports whether the key can still be consumed at instant now.
func (k EnrollmentKey) Usable(now time.Time) bool {
	if k.RevokedAt != nil {
		return false
	}
	if k.ExpiresAt != nil && now.After(*k.ExpiresAt) {
		return false
	}
	if k.MaxUses > 0 && k.UseCount >= k.MaxUses {
		return false
	}
	return true
}
