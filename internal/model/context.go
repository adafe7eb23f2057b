package model

// ResolvedContext is the server-side answer to "which tenant is this
// user operating as, and with what role". It is ephemeral: recomputed
// on every tenant switch and on session restore, never persisted.
// Role is the effective role, which may differ from the stored
// membership role (an agency_admin resolving into one of its own
// customer children acts as tenant_admin there).
type ResolvedContext struct {
	TenantID         uint64         `json:"tenant_id"`
	Role             Role           `json:"role"`
	TenantCategory   string         `json:"tenant_category"`
	ParentTenantID   *uint64        `json:"parent_tenant_id,omitempty"`
	ShopifyConnected bool           `json:"shopify_connected"`
	AllowedPages     []string       `json:"allowed_pages"`
	CanSwitchContext bool           `json:"can_switch_context"`
	AvailableTenants []TenantOption `json:"available_tenants,omitempty"`
}
