package model

import "time"

// OSType enumerates spec.md's device.osType values.
type OSType string

const (
	OSWindows OSType = "windows"
	OSDarwin  OSType = "darwin"
	OSLinux   OSType = "linux"
)

// DeviceStatus is the device lifecycle state (spec.md §4.2 state machine).
type DeviceStatus string

const (
	DeviceOffline       DeviceStatus = "offline"
	DeviceOnline        DeviceStatus = "online"
	DeviceMaintenance   DeviceStatus = "maintenance"
	DeviceDecommissioned DeviceStatus = "decommissioned"
	DeviceQuarantined   DeviceStatus = "quarantined"
)

// validDeviceTransitions enumerates the edges of the device state
// machine diagram in spec.md §4.2. Transitions not listed here are
// rejected by Device.CanTransitionTo.
var validDeviceTransitions = map[DeviceStatus]map[DeviceStatus]bool{
	DeviceOffline: {
		DeviceOnline: true,
		DeviceQuarantined: true, // cert expiry
	},
	DeviceOnline: {
		DeviceOffline:     true, // heartbeat timeout
		DeviceMaintenance: true, // operator
		DeviceDecommissioned: true,
		DeviceQuarantined: true, // cert expiry
	},
	DeviceMaintenance: {
		DeviceOnline:  true,
		DeviceOffline: true,
		DeviceQuarantined: true, // cert expiry
	},
	DeviceQuarantined: {
		DeviceOnline:         true, // operator approves
		DeviceDecommissioned: true, // operator denies -> decommission is also allowed
	},
}

// CanTransitionTo reports whether moving from 'from' to 'to' is a
// legal edge of the device state machine. Quarantined is only
// reachable from the cert-expiry path (enforced by the caller, not
// here, since that path is conditional on org policy) and Decommissioned
// is terminal except for re-enrollment, which resumes the same row via
// store.ResumeDevice without going through this table.
func CanTransitionTo(from, to DeviceStatus) bool {
	if from == to {
		return true
	}
	edges, ok := validDeviceTransitions[from]
	if !ok {
		return false
	}
	return edges[to]
}

// MTLSCert is the per-device client certificate record.
type MTLSCert struct {
	Serial         string
	ExternalCertID string
	IssuedAt       time.Time
	ExpiresAt      time.Time
}

// RenewAt returns the instant renewal should be offered, per spec.md
// §4.2: "now >= issuedAt + 2/3*(expiresAt-issuedAt)".
func (c MTLSCert) RenewAt() time.Time {
	lifetime := c.ExpiresAt.Sub(c.IssuedAt)
	return c.IssuedAt.Add(lifetime * 2 / 3)
}

// ShouldRenew reports whether, at instant now, the agent should be
// told to renew its certificate.
func (c MTLSCert) ShouldRenew(now time.Time) bool {
	return !now.Before(c.RenewAt())
}

// Expired reports whether the certificate's validity window has passed.
func (c MTLSCert) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Device is an enrolled endpoint, identified by its opaque agentId.
type Device struct {
	ID           string
	OrgID        string
	SiteID       string
	AgentID      string // globally unique opaque agent identifier
	AgentTokenHash string // SHA-256 of the long-lived bearer token
	HardwareFingerprint string // stable hardware id; lets a re-enrolling device resume a decommissioned row
	Hostname     string
	DisplayName  string
	OSType       OSType
	OSVersion    string
	Architecture string
	AgentVersion string
	Status       DeviceStatus
	LastSeenAt   *time.Time
	EnrolledAt   time.Time
	Tags         []string
	Cert         *MTLSCert
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// HardwareInventory is a per-device hardware snapshot row.
type HardwareInventory struct {
	DeviceID    string
	CPUModel    string
	CPUCores    int
	MemoryBytes int64
	DiskBytes   int64
	CollectedAt time.Time
}

// NetworkInterface is a per-device NIC row.
type NetworkInterface struct {
	DeviceID   string
	Name       string
	MACAddress string
	IPv4       []string
	IPv6       []string
}

// SoftwareEntry is one installed-software row in a device's inventory.
type SoftwareEntry struct {
	DeviceID    string
	Name        string
	Version     string
	InstalledAt *time.Time
}
