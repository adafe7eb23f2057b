package model

import "time"

// Subscription statuses stored in subscriptions.status. Anything other
// than active degrades the tenant to DEMO mode.
const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusCanceled = "canceled"
)

// Subscription represents a row in the `subscriptions` table. Plan
// limits ride along so the mode computer can expose them as features
// without a second lookup.
//
// Fields:
//  ID          – primary key identifier.
//  TenantID    – subscribed tenant.
//  Status      – active, past_due or canceled.
//  Plan        – plan code (e.g. "starter", "agency").
//  MaxClients  – plan limit on child tenants, 0 = unlimited.
//  SyncMinutes – plan-level sync cadence in minutes.
//  CreatedAt   – timestamp of creation.
//  UpdatedAt   – timestamp of last update.
type Subscription struct {
	ID          uint64    // subscriptions.id
	TenantID    uint64    // subscriptions.tenant_id
	Status      string    // subscriptions.status
	Plan        string    // subscriptions.plan
	MaxClients  int       // subscriptions.max_clients
	SyncMinutes int       // subscriptions.sync_minutes
	CreatedAt   time.Time // subscriptions.created_at
	UpdatedAt   time.Time // subscriptions.updated_at
}

// Active reports whether the subscription currently grants paid access.
func (s Subscription) Active() bool {
	return s.Status == SubscriptionStatusActive
}
