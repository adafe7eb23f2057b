package model

import "time"

// Tenant categories. A demo tenant hosts prospect accounts, a customer
// tenant is a single shop, and an agency tenant owns customer tenants
// through parent_tenant_id.
const (
	TenantCategoryDemo     = "demo"
	TenantCategoryCustomer = "customer"
	TenantCategoryAgency   = "agency"
)

// Tenant statuses stored in tenants.status.
const (
	TenantStatusActive   = "active"
	TenantStatusInactive = "inactive"
)

// Tenant represents a logical account boundary as stored in the
// `tenants` table. ParentTenantID is set only on customer tenants that
// belong to an agency; it must reference a tenant with category
// "agency".
//
// Fields:
//  ID               – primary key identifier.
//  Name             – display name shown in the context switcher.
//  Category         – demo, customer or agency.
//  ParentTenantID   – owning agency tenant (nullable).
//  ShopifyConnected – whether the shop integration has been completed.
//  Status           – active or inactive.
//  CreatedAt        – timestamp of creation.
//  UpdatedAt        – timestamp of last update.
type Tenant struct {
	ID               uint64    // tenants.id
	Name             string    // tenants.name
	Category         string    // tenants.category
	ParentTenantID   *uint64   // tenants.parent_tenant_id (nullable)
	ShopifyConnected bool      // tenants.shopify_connected
	Status           string    // tenants.status
	CreatedAt        time.Time // tenants.created_at
	UpdatedAt        time.Time // tenants.updated_at
}

// Type returns the UI-facing two-valued view of the category: agencies
// are "agency", everything else renders as "customer".
func (t Tenant) Type() string {
	if t.Category == TenantCategoryAgency {
		return "agency"
	}
	return "customer"
}

// TenantOption is one entry of the context-switcher list returned to
// privileged callers.
type TenantOption struct {
	ID               uint64  `json:"id"`
	Label            string  `json:"label"`
	Type             string  `json:"type"`
	Category         string  `json:"category"`
	ShopifyConnected bool    `json:"shopify_connected"`
	ParentTenantID   *uint64 `json:"parent_tenant_id,omitempty"`
}
