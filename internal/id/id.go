// Package id generates the opaque 128-bit identifiers used for every
// entity in the data model (spec.md §3: "Identifiers are opaque
// 128-bit values"). A single entry point keeps generation consistent
// instead of ad hoc random bytes sprinkled across packages.
package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// New returns a new random (v4) identifier as its canonical string form.
func New() string {
	return uuid.New().String()
}

// NewUUID returns a new random (v4) identifier as a uuid.UUID.
func NewUUID() uuid.UUID {
	return uuid.New()
}

// Valid reports whether s parses as a well-formed identifier.
func Valid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// NewAgentID returns a 32-byte random hex token for a device's agentId,
// per spec.md §4.2 ("mint agentId (random, 32-byte hex)"). Unlike
// entity ids this is not a UUID: agents present it on every request, so
// it is generated directly from a CSPRNG rather than derived from the
// UUID encoding.
func NewAgentID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate agent id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
