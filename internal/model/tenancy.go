// Package model holds the domain types from spec.md §3. Types here
// carry no behavior beyond small invariant helpers; business logic
// lives in the packages that operate on them (auth, agentgw, store,
// httpapi).
package model

import "time"

// PartnerType enumerates spec.md's partner.type values.
type PartnerType string

const (
	PartnerTypeMSP        PartnerType = "msp"
	PartnerTypeEnterprise PartnerType = "enterprise"
	PartnerTypeInternal   PartnerType = "internal"
)

// Partner is the top-level tenant (MSP/reseller).
type Partner struct {
	ID              string
	Name            string
	Slug            string // globally unique
	Type            PartnerType
	Plan            string
	MaxOrganizations *int
	MaxDevices      *int
	Settings        map[string]any
	Status          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       *time.Time
}

// OrgStatus enumerates spec.md's organization.status values.
type OrgStatus string

const (
	OrgStatusActive    OrgStatus = "active"
	OrgStatusTrial     OrgStatus = "trial"
	OrgStatusSuspended OrgStatus = "suspended"
	OrgStatusChurned   OrgStatus = "churned"
)

// ExpiredCertPolicy controls what happens when a device's mTLS cert
// expires without being renewed in time (spec.md §4.2/§9).
type ExpiredCertPolicy string

const (
	ExpiredCertPolicyQuarantine ExpiredCertPolicy = "quarantine"
	ExpiredCertPolicyAllow      ExpiredCertPolicy = "allow"
)

// Organization belongs to exactly one Partner.
type Organization struct {
	ID                string
	PartnerID         string
	Name              string
	Slug              string // unique within partner
	Status            OrgStatus
	MaxDevices        *int
	ContractStart     *time.Time
	ContractEnd       *time.Time
	ExpiredCertPolicy ExpiredCertPolicy
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DeletedAt         *time.Time
}

// Site belongs to exactly one Organization.
type Site struct {
	ID        string
	OrgID     string
	Name      string
	Timezone  string
	Address   *string
	Contact   *string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// DeviceGroupType enumerates spec.md's device group types.
type DeviceGroupType string

const (
	DeviceGroupStatic  DeviceGroupType = "static"
	DeviceGroupDynamic DeviceGroupType = "dynamic"
)

// DeviceGroup belongs to an Organization, optionally scoped to a Site.
type DeviceGroup struct {
	ID         string
	OrgID      string
	SiteID     *string
	Name       string
	Type       DeviceGroupType
	RuleExpr   *string // for dynamic groups: a rule expression over device attributes
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  *time.Time
}
