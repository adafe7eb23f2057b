package repository

import (
	"context"
	"database/sql"

	"github.com/kapehi/insights/internal/model"
)

// TenantRepo reads tenant rows. The resolver uses it for platform-admin
// step-in lookups and for expanding an agency's active children.
type TenantRepo struct{ DB *sql.DB }

func NewTenantRepo(db *sql.DB) *TenantRepo { return &TenantRepo{DB: db} }

const tenantCols = "id,name,category,parent_tenant_id,shopify_connected,status,created_at,updated_at"

func scanTenant(row interface{ Scan(...any) error }) (model.Tenant, error) {
	var (
		t      model.Tenant
		parent sql.NullInt64
	)
	err := row.Scan(&t.ID, &t.Name, &t.Category, &parent, &t.ShopifyConnected, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return model.Tenant{}, err
	}
	if parent.Valid {
		p := uint64(parent.Int64)
		t.ParentTenantID = &p
	}
	return t, nil
}

// GetByID fetches a tenant by id. Returns sql.ErrNoRows when missing.
func (r *TenantRepo) GetByID(ctx context.Context, id uint64) (model.Tenant, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+tenantCols+" FROM tenants WHERE id=? LIMIT 1", id)
	return scanTenant(row)
}

// ActiveChildren lists the active tenants whose parent_tenant_id is the
// given agency tenant. Order is stable by creation time so switcher
// lists do not shuffle between requests.
func (r *TenantRepo) ActiveChildren(ctx context.Context, agencyID uint64) ([]model.Tenant, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+tenantCols+" FROM tenants WHERE parent_tenant_id=? AND status=? ORDER BY created_at, id",
		agencyID, model.TenantStatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
