package model

import (
	"strings"
	"time"
)

// Membership statuses stored in tenants_users.status. Only active rows
// count toward scope resolution.
const (
	MembershipStatusActive   = "active"
	MembershipStatusInactive = "inactive"
)

// PageWildcard in an allow-list grants unconditional access to every
// page. Page checks must special-case it before any per-page test.
const PageWildcard = "*"

// Membership represents one (user, tenant, role) authorization record
// from the `tenants_users` table. AllowedPages is the parsed form of
// the comma-separated allowed_pages column.
//
// Fields:
//  UserID       – member user.
//  TenantID     – tenant the membership belongs to.
//  Role         – stored role; the effective role for a resolved
//                 context may differ (agency_admin elevation).
//  Status       – active or inactive.
//  AllowedPages – per-user page allow-list, may contain "*".
//  CreatedAt    – timestamp of creation, used as the priority tie-break.
type Membership struct {
	UserID       uint64    // tenants_users.user_id
	TenantID     uint64    // tenants_users.tenant_id
	Role         Role      // tenants_users.role
	Status       string    // tenants_users.status
	AllowedPages []string  // tenants_users.allowed_pages (CSV)
	CreatedAt    time.Time // tenants_users.created_at
}

// ParsePages splits a stored allowed_pages column value into a clean
// slice, dropping empty segments.
func ParsePages(csv string) []string {
	var pages []string
	for _, p := range strings.Split(csv, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			pages = append(pages, p)
		}
	}
	return pages
}

// PageAllowed reports whether page is granted by the allow-list,
// honoring the wildcard sentinel first.
func PageAllowed(allowed []string, page string) bool {
	for _, p := range allowed {
		if p == PageWildcard {
			return true
		}
	}
	for _, p := range allowed {
		if p == page {
			return true
		}
	}
	return false
}

// MembershipTenant pairs a membership with its tenant row as returned
// by the joined scope query.
type MembershipTenant struct {
	Membership Membership
	Tenant     Tenant
}
