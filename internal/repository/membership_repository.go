package repository

import (
	"context"
	"database/sql"

	"github.com/kapehi/insights/internal/model"
)

// MembershipRepo reads and writes (user, tenant, role) authorization
// records from the `tenants_users` table.
type MembershipRepo struct{ DB *sql.DB }

func NewMembershipRepo(db *sql.DB) *MembershipRepo { return &MembershipRepo{DB: db} }

// ActiveForUser loads every active membership of the user joined with
// its tenant row, ordered by creation time. Creation order is the
// tie-break when picking a default tenant among equal-priority roles.
func (r *MembershipRepo) ActiveForUser(ctx context.Context, userID uint64) ([]model.MembershipTenant, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT tu.user_id, tu.tenant_id, tu.role, tu.status, tu.allowed_pages, tu.created_at,
		       t.id, t.name, t.category, t.parent_tenant_id, t.shopify_connected, t.status, t.created_at, t.updated_at
		FROM tenants_users tu
		JOIN tenants t ON t.id = tu.tenant_id
		WHERE tu.user_id=? AND tu.status=?
		ORDER BY tu.created_at, tu.tenant_id`,
		userID, model.MembershipStatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.MembershipTenant
	for rows.Next() {
		var (
			m      model.Membership
			t      model.Tenant
			role   string
			pages  sql.NullString
			parent sql.NullInt64
		)
		if err := rows.Scan(
			&m.UserID, &m.TenantID, &role, &m.Status, &pages, &m.CreatedAt,
			&t.ID, &t.Name, &t.Category, &parent, &t.ShopifyConnected, &t.Status, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, err
		}
		m.Role = model.Role(role)
		if pages.Valid {
			m.AllowedPages = model.ParsePages(pages.String)
		}
		if parent.Valid {
			p := uint64(parent.Int64)
			t.ParentTenantID = &p
		}
		out = append(out, model.MembershipTenant{Membership: m, Tenant: t})
	}
	return out, rows.Err()
}

// Create inserts a membership row. Used by registration to attach new
// signups to the demo tenant as prospects.
func (r *MembershipRepo) Create(ctx context.Context, userID, tenantID uint64, role model.Role, pages string) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO tenants_users (user_id, tenant_id, role, status, allowed_pages) VALUES (?,?,?,?,?)",
		userID, tenantID, string(role), model.MembershipStatusActive, pages)
	return err
}
