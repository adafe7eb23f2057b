package model

import "time"

// ViewAsState is the client-scoped role-simulation blob. It is a UI
// affordance only: nothing in the resolver or mode computer reads it,
// so it is structurally incapable of widening authorization. Losing the
// stored blob silently reverts the display to the real role.
//
// Fields:
//  IsActive   – whether a simulation session is running.
//  UIRole     – the role being displayed instead of the real one.
//  UITenantID – optional tenant the simulation is scoped to.
//  Reason     – free-text note supplied at start, for telemetry.
//  StartedAt  – session start, used to compute duration on stop.
type ViewAsState struct {
	IsActive   bool      `json:"is_active"`
	UIRole     Role      `json:"ui_role"`
	UITenantID *uint64   `json:"ui_tenant_id,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	StartedAt  time.Time `json:"started_at,omitempty"`
}

// InactiveViewAs returns the reset state: no session, display role
// back to platform_admin.
func InactiveViewAs() ViewAsState {
	return ViewAsState{IsActive: false, UIRole: RolePlatformAdmin}
}
