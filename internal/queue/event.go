// Package queue defines message payloads exchanged over the message broker.
package queue

// Session actions carried in ViewAsSessionEvent.Action.
const (
	ViewAsActionStart = "start"
	ViewAsActionStop  = "stop"
)

// ViewAsSessionEvent is published when a platform admin starts or stops
// a View-As simulation session. It contains enough information for
// downstream consumers to audit who simulated which role without
// querying the primary database.
type ViewAsSessionEvent struct {
	Action     string  `json:"action"`
	UserID     uint64  `json:"user_id"`
	UserEmail  string  `json:"user_email,omitempty"`
	RealRole   string  `json:"real_role"`
	UIRole     string  `json:"ui_role"`
	UITenantID *uint64 `json:"ui_tenant_id,omitempty"`
	Reason     string  `json:"reason,omitempty"`
	StartedAt  string  `json:"started_at"`
	EndedAt    string  `json:"ended_at,omitempty"`
	DurationMS int64   `json:"duration_ms,omitempty"`
}
