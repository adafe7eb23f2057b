// Package resolver implements server-side tenant context resolution.
// It is the sole authority on which tenant a user may operate as and
// with what effective role; nothing client-supplied (including the
// View-As overlay) feeds into it.
package resolver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/kapehi/insights/internal/model"
	"github.com/kapehi/insights/internal/repository"
)

// MembershipStore loads the active memberships of a user joined with
// their tenant rows.
type MembershipStore interface {
	ActiveForUser(ctx context.Context, userID uint64) ([]model.MembershipTenant, error)
}

// TenantStore looks up tenant rows the membership query does not cover:
// agency children and platform-admin step-in targets.
type TenantStore interface {
	GetByID(ctx context.Context, id uint64) (model.Tenant, error)
	ActiveChildren(ctx context.Context, agencyID uint64) ([]model.Tenant, error)
}

// Resolver computes the authorized tenant context for a user.
type Resolver struct {
	Memberships MembershipStore
	Tenants     TenantStore
}

func New(m MembershipStore, t TenantStore) *Resolver {
	return &Resolver{Memberships: m, Tenants: t}
}

// Resolve determines the tenant the user operates as, the effective
// role there, and the switchable tenant list for privileged callers.
//
// Scope set = own active membership tenants
//           + active children of every agency the user administers
//           + (platform_admin only) any explicitly requested tenant.
//
// Errors: repository.ErrNoTenant when the user has zero active
// memberships, repository.ErrTenantOutOfScope when the requested tenant
// is outside the scope set, repository.ErrTenantNotFound on a missing
// tenant row, and repository.ErrMembershipLookup wrapping transient
// store failures. Scope errors are never downgraded into a different
// tenant.
func (r *Resolver) Resolve(ctx context.Context, userID uint64, requestedTenantID *uint64) (model.ResolvedContext, error) {
	memberships, err := r.Memberships.ActiveForUser(ctx, userID)
	if err != nil {
		return model.ResolvedContext{}, fmt.Errorf("%w: %v", repository.ErrMembershipLookup, err)
	}
	if len(memberships) == 0 {
		return model.ResolvedContext{}, repository.ErrNoTenant
	}

	scope := make(map[uint64]bool, len(memberships))
	isAgencyAdmin := false
	isPlatformAdmin := false
	var agencyIDs []uint64
	for _, mt := range memberships {
		scope[mt.Membership.TenantID] = true
		switch mt.Membership.Role {
		case model.RoleAgencyAdmin:
			isAgencyAdmin = true
			agencyIDs = append(agencyIDs, mt.Membership.TenantID)
		case model.RolePlatformAdmin:
			isPlatformAdmin = true
		}
	}

	// Agency admins see every active child of their agencies. The
	// children are kept around for the switcher list below.
	childrenByAgency := make(map[uint64][]model.Tenant)
	for _, agencyID := range agencyIDs {
		children, err := r.Tenants.ActiveChildren(ctx, agencyID)
		if err != nil {
			return model.ResolvedContext{}, fmt.Errorf("%w: %v", repository.ErrMembershipLookup, err)
		}
		childrenByAgency[agencyID] = children
		for _, c := range children {
			scope[c.ID] = true
		}
	}

	// Platform admins can step into any existing tenant when one is
	// explicitly requested (support access). A missing row falls through
	// to the out-of-scope check; a transient lookup failure propagates
	// so it is not misreported as a scope denial.
	if isPlatformAdmin && requestedTenantID != nil && !scope[*requestedTenantID] {
		switch _, err := r.Tenants.GetByID(ctx, *requestedTenantID); {
		case err == nil:
			scope[*requestedTenantID] = true
			log.Printf("resolver: platform admin user=%d stepping into tenant=%d", userID, *requestedTenantID)
		case !errors.Is(err, sql.ErrNoRows):
			return model.ResolvedContext{}, fmt.Errorf("%w: %v", repository.ErrMembershipLookup, err)
		}
	}

	target := defaultTenant(memberships)
	if requestedTenantID != nil {
		target = *requestedTenantID
	}
	if !scope[target] {
		return model.ResolvedContext{}, repository.ErrTenantOutOfScope
	}

	// Locate the direct membership for the target, if any. Agency
	// children and platform step-ins have no direct row.
	var direct *model.MembershipTenant
	for i := range memberships {
		if memberships[i].Membership.TenantID == target {
			direct = &memberships[i]
			break
		}
	}

	var tenant model.Tenant
	var pages []string
	if direct != nil {
		tenant = direct.Tenant
		pages = direct.Membership.AllowedPages
	} else {
		tenant, err = r.Tenants.GetByID(ctx, target)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return model.ResolvedContext{}, repository.ErrTenantNotFound
			}
			return model.ResolvedContext{}, fmt.Errorf("%w: %v", repository.ErrMembershipLookup, err)
		}
	}

	role := effectiveRole(direct, tenant, agencyIDs, isPlatformAdmin)
	if direct == nil && pages == nil {
		// Indirect access inherits the allow-list of the membership
		// that granted it (the agency or platform_admin row).
		pages = grantingPages(memberships, tenant, agencyIDs)
	}

	out := model.ResolvedContext{
		TenantID:         target,
		Role:             role,
		TenantCategory:   tenant.Category,
		ParentTenantID:   tenant.ParentTenantID,
		ShopifyConnected: tenant.ShopifyConnected,
		AllowedPages:     pages,
		CanSwitchContext: isAgencyAdmin || isPlatformAdmin,
	}
	if out.CanSwitchContext {
		out.AvailableTenants = switcherOptions(memberships, childrenByAgency)
	}
	return out, nil
}

// defaultTenant picks the tenant of the highest-priority membership.
// Memberships arrive in creation order, which is the tie-break.
func defaultTenant(memberships []model.MembershipTenant) uint64 {
	best := memberships[0]
	for _, mt := range memberships[1:] {
		if mt.Membership.Role.Priority() > best.Membership.Role.Priority() {
			best = mt
		}
	}
	return best.Membership.TenantID
}

// effectiveRole applies the elevation rule: an agency_admin resolving
// into a customer tenant owned by their own agency acts as tenant_admin
// there. The rule fires only for the agency's own children and never
// downgrades a platform_admin.
func effectiveRole(direct *model.MembershipTenant, tenant model.Tenant, agencyIDs []uint64, isPlatformAdmin bool) model.Role {
	if direct != nil {
		stored := direct.Membership.Role
		if stored == model.RoleAgencyAdmin &&
			tenant.Category == model.TenantCategoryCustomer &&
			ownChild(tenant, agencyIDs) {
			return model.RoleTenantAdmin
		}
		return stored
	}
	if ownChild(tenant, agencyIDs) {
		return model.RoleTenantAdmin
	}
	if isPlatformAdmin {
		return model.RolePlatformAdmin
	}
	// Unreachable while scope construction and effectiveRole agree on
	// what grants indirect access.
	return model.RoleClientViewer
}

func ownChild(tenant model.Tenant, agencyIDs []uint64) bool {
	if tenant.ParentTenantID == nil {
		return false
	}
	for _, id := range agencyIDs {
		if *tenant.ParentTenantID == id {
			return true
		}
	}
	return false
}

// grantingPages returns the allow-list of the membership that grants
// indirect access to the tenant.
func grantingPages(memberships []model.MembershipTenant, tenant model.Tenant, agencyIDs []uint64) []string {
	if ownChild(tenant, agencyIDs) {
		for _, mt := range memberships {
			if mt.Membership.Role == model.RoleAgencyAdmin && tenant.ParentTenantID != nil &&
				mt.Membership.TenantID == *tenant.ParentTenantID {
				return mt.Membership.AllowedPages
			}
		}
	}
	for _, mt := range memberships {
		if mt.Membership.Role == model.RolePlatformAdmin {
			return mt.Membership.AllowedPages
		}
	}
	return nil
}

// switcherOptions builds the tenant switcher list: each agency the
// caller administers, followed by that agency's active customer
// children.
func switcherOptions(memberships []model.MembershipTenant, childrenByAgency map[uint64][]model.Tenant) []model.TenantOption {
	var options []model.TenantOption
	for _, mt := range memberships {
		if mt.Membership.Role != model.RoleAgencyAdmin || mt.Tenant.Category != model.TenantCategoryAgency {
			continue
		}
		options = append(options, model.TenantOption{
			ID:               mt.Tenant.ID,
			Label:            mt.Tenant.Name,
			Type:             "agency",
			Category:         mt.Tenant.Category,
			ShopifyConnected: mt.Tenant.ShopifyConnected,
		})
		for _, c := range childrenByAgency[mt.Tenant.ID] {
			options = append(options, model.TenantOption{
				ID:               c.ID,
				Label:            c.Name,
				Type:             "customer",
				Category:         c.Category,
				ShopifyConnected: c.ShopifyConnected,
				ParentTenantID:   c.ParentTenantID,
			})
		}
	}
	return options
}

// TenantOptions returns the switcher list for the user's default
// context. Callers who cannot switch get an empty list.
func (r *Resolver) TenantOptions(ctx context.Context, userID uint64) ([]model.TenantOption, error) {
	resolved, err := r.Resolve(ctx, userID, nil)
	if err != nil {
		return nil, err
	}
	return resolved.AvailableTenants, nil
}

// ValidateTenant is the cheap boolean recheck used before committing a
// client-side switch. Scope and consistency errors map to false;
// transient lookup failures propagate so callers do not cache a
// spurious denial.
func (r *Resolver) ValidateTenant(ctx context.Context, userID, tenantID uint64) (bool, error) {
	_, err := r.Resolve(ctx, userID, &tenantID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, repository.ErrNoTenant),
		errors.Is(err, repository.ErrTenantOutOfScope),
		errors.Is(err, repository.ErrTenantNotFound):
		return false, nil
	default:
		return false, err
	}
}
