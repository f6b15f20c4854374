package store

import (
	"context"

	"github.com/breeze-rmm/breeze/internal/model"
)

func (s *Store) CreatePartner(ctx context.Context, p *model.Partner) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO partners (id, name, slug, type, plan, max_organizations, max_devices, settings, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		p.ID, p.Name, p.Slug, p.Type, p.Plan, p.MaxOrganizations, p.MaxDevices, p.Settings, p.Status)
	return mapErr(err)
}

func (s *Store) GetPartner(ctx context.Context, id string) (*model.Partner, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, slug, type, plan, max_organizations, max_devices, settings, status, created_at, updated_at, deleted_at
		FROM partners WHERE id = $1 AND deleted_at IS NULL`, id)
	var p model.Partner
	err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Type, &p.Plan, &p.MaxOrganizations, &p.MaxDevices, &p.Settings, &p.Status, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (s *Store) GetPartnerBySlug(ctx context.Context, slug string) (*model.Partner, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, slug, type, plan, max_organizations, max_devices, settings, status, created_at, updated_at, deleted_at
		FROM partners WHERE slug = $1 AND deleted_at IS NULL`, slug)
	var p model.Partner
	err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Type, &p.Plan, &p.MaxOrganizations, &p.MaxDevices, &p.Settings, &p.Status, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (s *Store) CreateOrganization(ctx context.Context, o *model.Organization) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO organizations (id, partner_id, name, slug, status, max_devices, contract_start, contract_end, expired_cert_policy)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		o.ID, o.PartnerID, o.Name, o.Slug, o.Status, o.MaxDevices, o.ContractStart, o.ContractEnd, o.ExpiredCertPolicy)
	return mapErr(err)
}

func (s *Store) GetOrganization(ctx context.Context, id string) (*model.Organization, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, partner_id, name, slug, status, max_devices, contract_start, contract_end, expired_cert_policy, created_at, updated_at, deleted_at
		FROM organizations WHERE id = $1 AND deleted_at IS NULL`, id)
	return scanOrganization(row)
}

// ListOrganizationsByPartner returns every non-deleted org under partnerID.
// Used by accessibleOrgIds derivation for orgAccess=all partner users, so it
// must always read live rows rather than any cached membership list.
func (s *Store) ListOrganizationsByPartner(ctx context.Context, partnerID string) ([]*model.Organization, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, partner_id, name, slug, status, max_devices, contract_start, contract_end, expired_cert_policy, created_at, updated_at, deleted_at
		FROM organizations WHERE partner_id = $1 AND deleted_at IS NULL`, partnerID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []*model.Organization
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, mapErr(rows.Err())
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrganization(row rowScanner) (*model.Organization, error) {
	var o model.Organization
	err := row.Scan(&o.ID, &o.PartnerID, &o.Name, &o.Slug, &o.Status, &o.MaxDevices, &o.ContractStart, &o.ContractEnd, &o.ExpiredCertPolicy, &o.CreatedAt, &o.UpdatedAt, &o.DeletedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &o, nil
}

func (s *Store) CreateSite(ctx context.Context, site *model.Site) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sites (id, org_id, name, timezone, address, contact)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		site.ID, site.OrgID, site.Name, site.Timezone, site.Address, site.Contact)
	return mapErr(err)
}

func (s *Store) GetSite(ctx context.Context, id string) (*model.Site, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, org_id, name, timezone, address, contact, created_at, updated_at, deleted_at
		FROM sites WHERE id = $1 AND deleted_at IS NULL`, id)
	var site model.Site
	err := row.Scan(&site.ID, &site.OrgID, &site.Name, &site.Timezone, &site.Address, &site.Contact, &site.CreatedAt, &site.UpdatedAt, &site.DeletedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &site, nil
}

func (s *Store) ListSitesByOrg(ctx context.Context, orgID string) ([]*model.Site, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, org_id, name, timezone, address, contact, created_at, updated_at, deleted_at
		FROM sites WHERE org_id = $1 AND deleted_at IS NULL`, orgID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []*model.Site
	for rows.Next() {
		var site model.Site
		if err := rows.Scan(&site.ID, &site.OrgID, &site.Name, &site.Timezone, &site.Address, &site.Contact, &site.CreatedAt, &site.UpdatedAt, &site.DeletedAt); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, &site)
	}
	return out, mapErr(rows.Err())
}

// SiteBelongsToOrg backs the invariant that a Device's siteId must
// reference a Site under its orgId.
func (s *Store) SiteBelongsToOrg(ctx context.Context, siteID, orgID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM sites WHERE id = $1 AND org_id = $2 AND deleted_at IS NULL)`, siteID, orgID).Scan(&exists)
	if err != nil {
		return false, mapErr(err)
	}
	return exists, nil
}

func (s *Store) CreateDeviceGroup(ctx context.Context, g *model.DeviceGroup) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO device_groups (id, org_id, site_id, name, type, rule_expr)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		g.ID, g.OrgID, g.SiteID, g.Name, g.Type, g.RuleExpr)
	return mapErr(err)
}

func (s *Store) ListDeviceGroupsByOrg(ctx context.Context, orgID string) ([]*model.DeviceGroup, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, org_id, site_id, name, type, rule_expr, created_at, updated_at, deleted_at
		FROM device_groups WHERE org_id = $1 AND deleted_at IS NULL`, orgID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []*model.DeviceGroup
	for rows.Next() {
		var g model.DeviceGroup
		if err := rows.Scan(&g.ID, &g.OrgID, &g.SiteID, &g.Name, &g.Type, &g.RuleExpr, &g.CreatedAt, &g.UpdatedAt, &g.DeletedAt); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, &g)
	}
	return out, mapErr(rows.Err())
}
