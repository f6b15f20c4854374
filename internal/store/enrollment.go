package store

import (
	"context"

	"github.com/breeze-rmm/breeze/internal/model"
)

func (s *Store) CreateEnrollmentKey(ctx context.Context, k *model.EnrollmentKey) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO enrollment_keys (id, org_id, site_id, key_hash, max_uses, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		k.ID, k.OrgID, k.SiteID, k.KeyHash, k.MaxUses, k.ExpiresAt)
	return mapErr(err)
}

func (s *Store) GetEnrollmentKeyByHash(ctx context.Context, keyHash string) (*model.EnrollmentKey, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, org_id, site_id, key_hash, max_uses, use_count, expires_at, revoked_at, created_at
		FROM enrollment_keys WHERE key_hash = $1`, keyHash)
	var k model.EnrollmentKey
	err := row.Scan(&k.ID, &k.OrgID, &k.SiteID, &k.KeyHash, &k.MaxUses, &k.UseCount, &k.ExpiresAt, &k.RevokedAt, &k.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &k, nil
}

// ConsumeEnrollmentKey atomically increments use_count only if the key
// is still usable (not revoked, not expired, under max_uses), so two
// concurrent enrollments against a single-use key can't both succeed.
func (s *Store) ConsumeEnrollmentKey(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE enrollment_keys
		SET use_count = use_count + 1
		WHERE id = $1
		  AND revoked_at IS NULL
		  AND (expires_at IS NULL OR expires_at > now())
		  AND (max_uses = 0 OR use_count < max_uses)`, id)
	if err != nil {
		return false, mapErr(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) RevokeEnrollmentKey(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `UPDATE enrollment_keys SET revoked_at = now() WHERE id = $1 AND revoked_at IS NULL`, id)
	return mapErr(err)
}
