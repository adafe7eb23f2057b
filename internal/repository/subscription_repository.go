package repository

import (
	"context"
	"database/sql"

	"github.com/kapehi/insights/internal/model"
)

// SubscriptionRepo reads per-tenant subscription state. The mode
// computer treats a missing row the same as an inactive one, so
// GetByTenant passes sql.ErrNoRows through unchanged.
type SubscriptionRepo struct{ DB *sql.DB }

func NewSubscriptionRepo(db *sql.DB) *SubscriptionRepo { return &SubscriptionRepo{DB: db} }

// GetByTenant fetches the newest subscription for a tenant.
func (r *SubscriptionRepo) GetByTenant(ctx context.Context, tenantID uint64) (model.Subscription, error) {
	var s model.Subscription
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, tenant_id, status, plan, max_clients, sync_minutes, created_at, updated_at
		FROM subscriptions WHERE tenant_id=? ORDER BY created_at DESC LIMIT 1`,
		tenantID).Scan(&s.ID, &s.TenantID, &s.Status, &s.Plan, &s.MaxClients, &s.SyncMinutes, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}
