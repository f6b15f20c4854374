package model

import "time"

// UserStatus enumerates spec.md's user.status values.
type UserStatus string

const (
	UserActive   UserStatus = "active"
	UserInvited  UserStatus = "invited"
	UserDisabled UserStatus = "disabled"
)

// User is a global identity (not scoped to a tenant by itself; scope
// comes from its PartnerUser/OrganizationUser memberships).
type User struct {
	ID                 string
	Email              string // unique, case-insensitive
	Name               string
	PasswordHash       string
	MFASecretEncrypted string // "enc:v1:..." wrapped TOTP seed
	MFAEnabled         bool
	MFARecoveryHashes  []string // peppered hashes of one-time recovery codes
	Status             UserStatus
	LastLoginAt        *time.Time
	PasswordChangedAt  time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Scope is the coarse authorization tier from spec.md §4.1/glossary.
type Scope string

const (
	ScopeSystem       Scope = "system"
	ScopePartner      Scope = "partner"
	ScopeOrganization Scope = "organization"
)

// Permission is a (resource, action) pair, or the wildcard "*:*".
type Permission struct {
	Resource string
	Action   string
}

// Matches reports whether p grants access to (resource, action),
// honoring the "*:*" wildcard and per-field "*" wildcards.
func (p Permission) Matches(resource, action string) bool {
	resOK := p.Resource == "*" || p.Resource == resource
	actOK := p.Action == "*" || p.Action == action
	return resOK && actOK
}

// Role is scoped at system/partner/organization.
type Role struct {
	ID          string
	PartnerID   *string
	OrgID       *string
	Scope       Scope
	Name        string
	IsSystem    bool
	Permissions []Permission
}

// HasPermission reports whether any of the role's permissions grants
// (resource, action).
func (r Role) HasPermission(resource, action string) bool {
	for _, p := range r.Permissions {
		if p.Matches(resource, action) {
			return true
		}
	}
	return false
}

// OrgAccess enumerates spec.md's PartnerUser.orgAccess values.
type OrgAccess string

const (
	OrgAccessAll      OrgAccess = "all"
	OrgAccessSelected OrgAccess = "selected"
	OrgAccessNone     OrgAccess = "none"
)

// PartnerUser is a user's membership and role within a Partner.
type PartnerUser struct {
	PartnerID string
	UserID    string
	RoleID    string
	OrgAccess OrgAccess
	OrgIDs    []string // only meaningful when OrgAccess == selected
}

// OrganizationUser is a user's membership and role within an Organization.
type OrganizationUser struct {
	OrgID         string
	UserID        string
	RoleID        string
	SiteIDs       []string
	DeviceGroupIDs []string
}

// Session is a refresh-token-backed login session.
type Session struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	IP        string
	UserAgent string
	CreatedAt time.Time
	RevokedAt *time.Time
}

// ApiKeyStatus enumerates spec.md's ApiKey.status values.
type ApiKeyStatus string

const (
	ApiKeyActive  ApiKeyStatus = "active"
	ApiKeyRevoked ApiKeyStatus = "revoked"
	ApiKeyExpired ApiKeyStatus = "expired"
)

// ApiKey is a programmatic-access credential.
type ApiKey struct {
	ID         string
	OrgID      *string
	PartnerID  *string
	UserID     string
	Name       string
	KeyPrefix  string
	KeyHash    string
	Scopes     []string
	RateLimit  int // requests per minute
	ExpiresAt  *time.Time
	LastUsedAt *time.Time
	UsageCount int64
	Status     ApiKeyStatus
	CreatedAt  time.Time
}
