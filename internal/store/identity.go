package store

import (
	"context"

	"github.com/breeze-rmm/breeze/internal/model"
)

const userColumns = `id, email, name, password_hash, mfa_secret_encrypted, mfa_enabled, mfa_recovery_hashes,
	status, last_login_at, password_changed_at, created_at, updated_at`

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.MFASecretEncrypted, &u.MFAEnabled, &u.MFARecoveryHashes,
		&u.Status, &u.LastLoginAt, &u.PasswordChangedAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, email, name, password_hash, status)
		VALUES ($1,$2,$3,$4,$5)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.Status)
	return mapErr(err)
}

func (s *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetUserByEmail matches case-insensitively via the citext column type.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (s *Store) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	_, err := s.pool.Exec(ctx, `UPDATE users SET password_hash = $2, password_changed_at = now(), updated_at = now() WHERE id = $1`, userID, passwordHash)
	return mapErr(err)
}

func (s *Store) SetUserMFA(ctx context.Context, userID, secretEncrypted string, enabled bool, recoveryHashes []string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE users SET mfa_secret_encrypted = $2, mfa_enabled = $3, mfa_recovery_hashes = $4, updated_at = now()
		WHERE id = $1`, userID, secretEncrypted, enabled, recoveryHashes)
	return mapErr(err)
}

func (s *Store) TouchUserLogin(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx, `UPDATE users SET last_login_at = now() WHERE id = $1`, userID)
	return mapErr(err)
}

func (s *Store) GetRole(ctx context.Context, id string) (*model.Role, error) {
	row := s.pool.QueryRow(ctx, `SELECT id, partner_id, org_id, scope, name, is_system, permissions FROM roles WHERE id = $1`, id)
	var r model.Role
	var perms []model.Permission
	if err := row.Scan(&r.ID, &r.PartnerID, &r.OrgID, &r.Scope, &r.Name, &r.IsSystem, &perms); err != nil {
		return nil, mapErr(err)
	}
	r.Permissions = perms
	return &r, nil
}

func (s *Store) CreateRole(ctx context.Context, r *model.Role) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO roles (id, partner_id, org_id, scope, name, is_system, permissions)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		r.ID, r.PartnerID, r.OrgID, r.Scope, r.Name, r.IsSystem, r.Permissions)
	return mapErr(err)
}

// GetPartnerUser is the membership row accessibleOrgIds derivation
// reads live (never cached) for partner-scope actors.
func (s *Store) GetPartnerUser(ctx context.Context, partnerID, userID string) (*model.PartnerUser, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT partner_id, user_id, role_id, org_access, org_ids FROM partner_users WHERE partner_id = $1 AND user_id = $2`,
		partnerID, userID)
	var pu model.PartnerUser
	if err := row.Scan(&pu.PartnerID, &pu.UserID, &pu.RoleID, &pu.OrgAccess, &pu.OrgIDs); err != nil {
		return nil, mapErr(err)
	}
	return &pu, nil
}

func (s *Store) UpsertPartnerUser(ctx context.Context, pu *model.PartnerUser) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO partner_users (partner_id, user_id, role_id, org_access, org_ids)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (partner_id, user_id) DO UPDATE SET role_id=$3, org_access=$4, org_ids=$5`,
		pu.PartnerID, pu.UserID, pu.RoleID, pu.OrgAccess, pu.OrgIDs)
	return mapErr(err)
}

func (s *Store) GetOrganizationUser(ctx context.Context, orgID, userID string) (*model.OrganizationUser, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT org_id, user_id, role_id, site_ids, device_group_ids FROM organization_users WHERE org_id = $1 AND user_id = $2`,
		orgID, userID)
	var ou model.OrganizationUser
	if err := row.Scan(&ou.OrgID, &ou.UserID, &ou.RoleID, &ou.SiteIDs, &ou.DeviceGroupIDs); err != nil {
		return nil, mapErr(err)
	}
	return &ou, nil
}

func (s *Store) UpsertOrganizationUser(ctx context.Context, ou *model.OrganizationUser) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO organization_users (org_id, user_id, role_id, site_ids, device_group_ids)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (org_id, user_id) DO UPDATE SET role_id=$3, site_ids=$4, device_group_ids=$5`,
		ou.OrgID, ou.UserID, ou.RoleID, ou.SiteIDs, ou.DeviceGroupIDs)
	return mapErr(err)
}

func (s *Store) CreateSession(ctx context.Context, sess *model.Session) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (id, user_id, token_hash, expires_at, ip, user_agent)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		sess.ID, sess.UserID, sess.TokenHash, sess.ExpiresAt, sess.IP, sess.UserAgent)
	return mapErr(err)
}

func (s *Store) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*model.Session, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, token_hash, expires_at, ip, user_agent, created_at, revoked_at
		FROM sessions WHERE token_hash = $1 AND revoked_at IS NULL AND expires_at > now()`, tokenHash)
	var sess model.Session
	if err := row.Scan(&sess.ID, &sess.UserID, &sess.TokenHash, &sess.ExpiresAt, &sess.IP, &sess.UserAgent, &sess.CreatedAt, &sess.RevokedAt); err != nil {
		return nil, mapErr(err)
	}
	return &sess, nil
}

func (s *Store) RevokeSession(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `UPDATE sessions SET revoked_at = now() WHERE id = $1 AND revoked_at IS NULL`, id)
	return mapErr(err)
}

// GetSystemRole returns the role a user holds via direct system-scope
// grant, or apperr.NotFound if the user has none.
func (s *Store) GetSystemRole(ctx context.Context, userID string) (*model.Role, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT r.id, r.partner_id, r.org_id, r.scope, r.name, r.is_system, r.permissions
		FROM system_users su JOIN roles r ON r.id = su.role_id WHERE su.user_id = $1`, userID)
	var r model.Role
	var perms []model.Permission
	if err := row.Scan(&r.ID, &r.PartnerID, &r.OrgID, &r.Scope, &r.Name, &r.IsSystem, &perms); err != nil {
		return nil, mapErr(err)
	}
	r.Permissions = perms
	return &r, nil
}

// CreateSystemUser grants userID system-scope access via roleID, the
// highest tier in spec.md §4.1's scope hierarchy. Used by the bootstrap
// admin path to seed the very first operator.
func (s *Store) CreateSystemUser(ctx context.Context, userID, roleID string) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO system_users (user_id, role_id) VALUES ($1,$2)`, userID, roleID)
	return mapErr(err)
}

// CountSystemUsers reports how many system-scope grants exist, so
// bootstrap can skip seeding an admin once one already exists.
func (s *Store) CountSystemUsers(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM system_users`).Scan(&n)
	if err != nil {
		return 0, mapErr(err)
	}
	return n, nil
}

// ListOrganizationUsersByUser returns every org membership a user
// holds, used to pick the first available scope on login/refresh.
func (s *Store) ListOrganizationUsersByUser(ctx context.Context, userID string) ([]*model.OrganizationUser, error) {
	rows, err := s.pool.Query(ctx, `SELECT org_id, user_id, role_id, site_ids, device_group_ids FROM organization_users WHERE user_id = $1`, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []*model.OrganizationUser
	for rows.Next() {
		var ou model.OrganizationUser
		if err := rows.Scan(&ou.OrgID, &ou.UserID, &ou.RoleID, &ou.SiteIDs, &ou.DeviceGroupIDs); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, &ou)
	}
	return out, mapErr(rows.Err())
}

// ListPartnerUsersByUser returns every partner membership a user holds.
func (s *Store) ListPartnerUsersByUser(ctx context.Context, userID string) ([]*model.PartnerUser, error) {
	rows, err := s.pool.Query(ctx, `SELECT partner_id, user_id, role_id, org_access, org_ids FROM partner_users WHERE user_id = $1`, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []*model.PartnerUser
	for rows.Next() {
		var pu model.PartnerUser
		if err := rows.Scan(&pu.PartnerID, &pu.UserID, &pu.RoleID, &pu.OrgAccess, &pu.OrgIDs); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, &pu)
	}
	return out, mapErr(rows.Err())
}

func (s *Store) CreateAPIKey(ctx context.Context, k *model.ApiKey) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO api_keys (id, org_id, partner_id, user_id, name, key_prefix, key_hash, scopes, rate_limit, expires_at, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		k.ID, k.OrgID, k.PartnerID, k.UserID, k.Name, k.KeyPrefix, k.KeyHash, k.Scopes, k.RateLimit, k.ExpiresAt, k.Status)
	return mapErr(err)
}

func (s *Store) GetAPIKeyByHash(ctx context.Context, keyHash string) (*model.ApiKey, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, org_id, partner_id, user_id, name, key_prefix, key_hash, scopes, rate_limit, expires_at, last_used_at, usage_count, status, created_at
		FROM api_keys WHERE key_hash = $1 AND status = 'active'`, keyHash)
	var k model.ApiKey
	err := row.Scan(&k.ID, &k.OrgID, &k.PartnerID, &k.UserID, &k.Name, &k.KeyPrefix, &k.KeyHash, &k.Scopes, &k.RateLimit,
		&k.ExpiresAt, &k.LastUsedAt, &k.UsageCount, &k.Status, &k.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &k, nil
}

func (s *Store) TouchAPIKeyUsage(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `UPDATE api_keys SET last_used_at = now(), usage_count = usage_count + 1 WHERE id = $1`, id)
	return mapErr(err)
}

func (s *Store) RevokeAPIKey(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `UPDATE api_keys SET status = 'revoked' WHERE id = $1`, id)
	return mapErr(err)
}
