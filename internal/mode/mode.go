// Package mode derives the operating mode (DEMO / ONBOARDING /
// PRODUCTION) and capability gates from a resolved tenant context and
// subscription state.
//
// The policy here is deliberately asymmetric: visibility fails open
// (demo visitors can browse every page) while mutation fails closed
// (no capability is ever granted on a failure path). Unlike the
// resolver, mode computation never raises: any upstream failure it
// cannot resolve becomes a safe DEMO fallback carrying diagnostic
// warnings, because the UI must always have some renderable mode.
package mode

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/google/uuid"

	"github.com/kapehi/insights/internal/model"
	"github.com/kapehi/insights/internal/repository"
)

// SubscriptionStore loads per-tenant subscription state.
type SubscriptionStore interface {
	GetByTenant(ctx context.Context, tenantID uint64) (model.Subscription, error)
}

// ContextResolver is the slice of the resolver the computer consumes.
type ContextResolver interface {
	Resolve(ctx context.Context, userID uint64, requestedTenantID *uint64) (model.ResolvedContext, error)
}

// Computer turns resolved contexts into renderable AppModes.
type Computer struct {
	Resolver      ContextResolver
	Subscriptions SubscriptionStore
}

func NewComputer(r ContextResolver, s SubscriptionStore) *Computer {
	return &Computer{Resolver: r, Subscriptions: s}
}

// ModeFor computes the mode for a user, optionally scoped to a
// requested tenant. It never returns an error: resolution failures
// degrade to the DEMO fallback. Callers that need loud scope errors
// (403 on an explicit tenant switch) go through the resolver directly.
func (c *Computer) ModeFor(ctx context.Context, userID uint64, requestedTenantID *uint64) model.AppMode {
	resolved, err := c.Resolver.Resolve(ctx, userID, requestedTenantID)
	if err != nil {
		log.Printf("mode: resolution failed for user=%d: %v", userID, err)
		switch {
		case errors.Is(err, repository.ErrNoTenant):
			return Fallback("user has no active tenant membership")
		default:
			return Fallback("mode detection failed, defaulting to demo")
		}
	}
	return c.ModeForResolved(ctx, resolved)
}

// ModeForResolved computes the mode for an already-resolved context.
// A missing subscription row counts as no active subscription; a
// subscription lookup failure degrades to the DEMO fallback.
func (c *Computer) ModeForResolved(ctx context.Context, resolved model.ResolvedContext) model.AppMode {
	sub, err := c.Subscriptions.GetByTenant(ctx, resolved.TenantID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		log.Printf("mode: subscription lookup failed for tenant=%d: %v", resolved.TenantID, err)
		return Fallback("subscription lookup failed, defaulting to demo")
	}
	subscribed := err == nil && sub.Active()
	return Compute(resolved, subscribed)
}

// Compute is the pure decision table. First matching rule wins:
//
//  1. prospect            → DEMO, nothing writable, every page visible
//  2. no active sub       → DEMO, nothing writable, every page visible
//  3. shop not connected  → ONBOARDING, write+sync on, export off,
//                           stored allow-list (not wildcarded)
//  4. otherwise           → PRODUCTION, everything on, stored allow-list
func Compute(resolved model.ResolvedContext, subscribed bool) model.AppMode {
	m := model.AppMode{
		OK:             true,
		Role:           resolved.Role,
		TenantID:       &resolved.TenantID,
		TenantCategory: resolved.TenantCategory,
		ParentTenantID: resolved.ParentTenantID,
		TraceID:        uuid.NewString(),
	}

	switch {
	case resolved.Role == model.RoleProspect:
		m.Mode = model.ModeDemo
		m.AllowedPages = []string{model.PageWildcard}
		m.Badges = []string{"Demo", "Simulated data", "Limited access"}
		m.Warnings = []string{"Displayed data is simulated"}

	case !subscribed:
		m.Mode = model.ModeDemo
		m.AllowedPages = []string{model.PageWildcard}
		m.Badges = []string{"Demo", "Simulated data"}
		m.Warnings = []string{"Displayed data is simulated"}

	case !resolved.ShopifyConnected:
		m.Mode = model.ModeOnboarding
		m.Capabilities = model.Capabilities{CanWrite: true, CanExport: false, CanSync: true}
		m.AllowedPages = resolved.AllowedPages
		m.Badges = []string{"Setup", "Connect your store"}
		if resolved.Role == model.RoleAgencyAdmin {
			m.Badges = append(m.Badges, "Multi-client management")
		}

	default:
		m.Mode = model.ModeProduction
		m.Capabilities = model.Capabilities{CanWrite: true, CanExport: true, CanSync: true}
		m.AllowedPages = resolved.AllowedPages
		m.Badges = []string{"Connected", "Live data"}
		switch resolved.Role {
		case model.RoleAgencyAdmin:
			m.Badges = append(m.Badges, "Agency view")
		case model.RoleClientViewer:
			m.Badges = append(m.Badges, "Client view")
		case model.RolePlatformAdmin:
			m.Badges = append(m.Badges, "Platform admin")
		}
	}
	return m
}

// Fallback is the safe DEMO mode returned when computation failed.
// Warnings and Error are both populated so callers can tell "genuinely
// a demo user" apart from "failed to resolve" without string-matching;
// both render the same surface.
func Fallback(warnings ...string) model.AppMode {
	if len(warnings) == 0 {
		warnings = []string{"mode detection failed, defaulting to demo"}
	}
	return model.AppMode{
		OK:             true,
		Mode:           model.ModeDemo,
		Role:           model.RoleProspect,
		TenantCategory: model.TenantCategoryDemo,
		AllowedPages:   []string{model.PageWildcard},
		Badges:         []string{"Demo", "Default mode", "Contact support"},
		Warnings:       warnings,
		Error:          warnings[0],
		TraceID:        uuid.NewString(),
	}
}

// Guest is the synthetic mode for unauthenticated callers. It is
// computed without touching the resolver since there is no user id to
// resolve.
func Guest() model.AppMode {
	return model.AppMode{
		OK:             true,
		Mode:           model.ModeDemo,
		Role:           model.RoleProspect,
		TenantCategory: model.TenantCategoryDemo,
		AllowedPages:   []string{model.PageWildcard},
		Badges:         []string{"Demo", "Sign in to access your data", "Limited access"},
		Warnings:       []string{"Sign in to access all features"},
		TraceID:        uuid.NewString(),
	}
}

// Unauthorized is the mode returned alongside a 401 when a bearer token
// is present but invalid. Page visibility collapses to the dashboard.
func Unauthorized() model.AppMode {
	return model.AppMode{
		OK:             false,
		Mode:           model.ModeDemo,
		Role:           model.RoleProspect,
		TenantCategory: model.TenantCategoryDemo,
		AllowedPages:   []string{"dashboard"},
		Badges:         []string{"Authentication error", "Sign in again"},
		Error:          "invalid authentication token",
		TraceID:        uuid.NewString(),
	}
}
