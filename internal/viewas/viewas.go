// Package viewas implements the role-simulation overlay a platform
// admin can toggle to preview the UI as a lower-privileged role.
//
// The overlay is presentation only. It decorates the displayed role and
// forces the displayed capabilities off; the resolver and mode computer
// never read it, so it cannot widen (or narrow) real authorization.
package viewas

import (
	"context"
	"log"
	"time"

	"github.com/kapehi/insights/internal/model"
	"github.com/kapehi/insights/internal/queue"
)

// StateStore persists the per-user View-As blob and invalidates
// role-sensitive cached responses. Implemented by contextstore.Store.
type StateStore interface {
	ViewAs(ctx context.Context, userID uint64) (model.ViewAsState, error)
	SetViewAs(ctx context.Context, userID uint64, st model.ViewAsState) error
	InvalidateRoleSensitive(ctx context.Context, userID uint64) error
}

// Telemetry publishes session start/stop events. Implemented by the
// RabbitMQ queue publisher.
type Telemetry interface {
	PublishViewAsSession(ctx context.Context, ev queue.ViewAsSessionEvent) error
}

// Actor identifies the real principal operating the overlay.
type Actor struct {
	UserID   uint64
	Email    string
	RealRole model.Role
}

// Manager is the View-As state machine: Inactive → Active(uiRole,
// uiTenantID?) → Inactive. Enabled mirrors the FEATURE_VIEW_AS flag;
// when it is off, Start is inert and any persisted session is
// force-stopped on the next state check.
type Manager struct {
	Enabled   bool
	Store     StateStore
	Telemetry Telemetry
	now       func() time.Time
}

func NewManager(enabled bool, store StateStore, telemetry Telemetry) *Manager {
	return &Manager{Enabled: enabled, Store: store, Telemetry: telemetry, now: time.Now}
}

// simulatable reports whether a role may be simulated: the four
// non-prospect, non-tenant_admin roles.
func simulatable(r model.Role) bool {
	switch r {
	case model.RolePro, model.RoleAgencyAdmin, model.RoleClientViewer, model.RolePlatformAdmin:
		return true
	}
	return false
}

// State returns the current overlay state for the actor, enforcing the
// safety invariant first: if the feature flag is off or the real role
// is no longer platform_admin, an active session is forced to Inactive
// immediately.
func (m *Manager) State(ctx context.Context, actor Actor) (model.ViewAsState, error) {
	st, err := m.Store.ViewAs(ctx, actor.UserID)
	if err != nil {
		// Unreadable state reverts to the real role; that is the
		// fail-safe, not an error worth surfacing.
		log.Printf("viewas: state load failed for user=%d: %v", actor.UserID, err)
		return model.InactiveViewAs(), nil
	}
	if st.IsActive && (!m.Enabled || actor.RealRole != model.RolePlatformAdmin) {
		return m.forceStop(ctx, actor, st)
	}
	return st, nil
}

// Start begins a simulation session. Permitted only when the real role
// is platform_admin and the feature flag is on; otherwise it is a no-op
// with a logged warning. On success it invalidates role-sensitive
// caches and emits a telemetry start event.
func (m *Manager) Start(ctx context.Context, actor Actor, uiRole model.Role, uiTenantID *uint64, reason string) (model.ViewAsState, error) {
	if !m.Enabled || actor.RealRole != model.RolePlatformAdmin {
		log.Printf("viewas: start denied for user=%d (enabled=%v role=%s)", actor.UserID, m.Enabled, actor.RealRole)
		return m.State(ctx, actor)
	}
	if !simulatable(uiRole) {
		log.Printf("viewas: start denied for user=%d: role %q cannot be simulated", actor.UserID, uiRole)
		return m.State(ctx, actor)
	}

	st := model.ViewAsState{
		IsActive:   true,
		UIRole:     uiRole,
		UITenantID: uiTenantID,
		Reason:     reason,
		StartedAt:  m.now().UTC(),
	}
	if err := m.Store.SetViewAs(ctx, actor.UserID, st); err != nil {
		return model.InactiveViewAs(), err
	}
	if err := m.Store.InvalidateRoleSensitive(ctx, actor.UserID); err != nil {
		log.Printf("viewas: cache invalidation failed for user=%d: %v", actor.UserID, err)
	}
	m.publish(ctx, queue.ViewAsSessionEvent{
		Action:     queue.ViewAsActionStart,
		UserID:     actor.UserID,
		UserEmail:  actor.Email,
		RealRole:   string(actor.RealRole),
		UIRole:     string(uiRole),
		UITenantID: uiTenantID,
		Reason:     reason,
		StartedAt:  st.StartedAt.Format(time.RFC3339),
	})
	return st, nil
}

// Stop ends the session and restores true-role rendering. A no-op when
// already inactive.
func (m *Manager) Stop(ctx context.Context, actor Actor) (model.ViewAsState, error) {
	st, err := m.Store.ViewAs(ctx, actor.UserID)
	if err != nil || !st.IsActive {
		return model.InactiveViewAs(), nil
	}
	return m.stop(ctx, actor, st, "")
}

// forceStop is the safety transition: flag disabled or real role lost.
func (m *Manager) forceStop(ctx context.Context, actor Actor, st model.ViewAsState) (model.ViewAsState, error) {
	log.Printf("viewas: forcing stop for user=%d (enabled=%v role=%s)", actor.UserID, m.Enabled, actor.RealRole)
	return m.stop(ctx, actor, st, "forced: feature disabled or role changed")
}

func (m *Manager) stop(ctx context.Context, actor Actor, st model.ViewAsState, forcedReason string) (model.ViewAsState, error) {
	ended := m.now().UTC()
	reason := st.Reason
	if forcedReason != "" {
		reason = forcedReason
	}
	ev := queue.ViewAsSessionEvent{
		Action:     queue.ViewAsActionStop,
		UserID:     actor.UserID,
		UserEmail:  actor.Email,
		RealRole:   string(actor.RealRole),
		UIRole:     string(st.UIRole),
		UITenantID: st.UITenantID,
		Reason:     reason,
		StartedAt:  st.StartedAt.Format(time.RFC3339),
		EndedAt:    ended.Format(time.RFC3339),
	}
	if !st.StartedAt.IsZero() {
		ev.DurationMS = ended.Sub(st.StartedAt).Milliseconds()
	}

	inactive := model.InactiveViewAs()
	if err := m.Store.SetViewAs(ctx, actor.UserID, inactive); err != nil {
		return inactive, err
	}
	if err := m.Store.InvalidateRoleSensitive(ctx, actor.UserID); err != nil {
		log.Printf("viewas: cache invalidation failed for user=%d: %v", actor.UserID, err)
	}
	m.publish(ctx, ev)
	return inactive, nil
}

// publish emits telemetry without ever interrupting the main flow.
func (m *Manager) publish(ctx context.Context, ev queue.ViewAsSessionEvent) {
	if m.Telemetry == nil {
		return
	}
	if err := m.Telemetry.PublishViewAsSession(ctx, ev); err != nil {
		log.Printf("viewas: telemetry publish failed: %v", err)
	}
}

// EffectiveRole is the role the UI should display: the simulated role
// while a session is active and its preconditions hold, else the real
// role.
func (m *Manager) EffectiveRole(st model.ViewAsState, realRole model.Role) model.Role {
	if m.Enabled && realRole == model.RolePlatformAdmin && st.IsActive {
		return st.UIRole
	}
	return realRole
}

// DisplayCapabilities decorates the real capability triple for
// rendering: forced off while simulating any role other than
// platform_admin (simulating yourself is a capability no-op). This is
// a UI affordance only and carries no authorization weight.
func (m *Manager) DisplayCapabilities(st model.ViewAsState, real model.Capabilities) model.Capabilities {
	if st.IsActive && st.UIRole != model.RolePlatformAdmin {
		return model.Capabilities{}
	}
	return real
}
