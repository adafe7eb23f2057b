package model

// Operating modes derived from role + subscription + integration state.
const (
	ModeDemo       = "DEMO"
	ModeOnboarding = "ONBOARDING"
	ModeProduction = "PRODUCTION"
)

// Capabilities is the coarse-grained action gate attached to a mode.
// The zero value is the safe value: everything off.
type Capabilities struct {
	CanWrite  bool `json:"canWrite"`
	CanExport bool `json:"canExport"`
	CanSync   bool `json:"canSync"`
}

// AppMode is the renderable mode payload returned by GET /v1/mode.
// TraceID is a fresh correlation id per computation and carries no
// authorization weight. Warnings and Error let a caller distinguish
// "genuinely a demo user" from "failed to resolve, defaulted to demo";
// both render identically to the end user.
type AppMode struct {
	OK             bool         `json:"ok"`
	Mode           string       `json:"mode"`
	Role           Role         `json:"role"`
	TenantID       *uint64      `json:"tenant_id,omitempty"`
	TenantCategory string       `json:"tenant_category,omitempty"`
	ParentTenantID *uint64      `json:"parent_tenant_id,omitempty"`
	Capabilities   Capabilities `json:"capabilities"`
	AllowedPages   []string     `json:"allowed_pages"`
	Badges         []string     `json:"badges"`
	Warnings       []string     `json:"warnings,omitempty"`
	Error          string       `json:"error,omitempty"`
	TraceID        string       `json:"traceId"`
}
