// Package repository defines error types that are reused across multiple
// repositories and by the context resolver. These sentinel values allow
// higher layers such as handlers to distinguish between different
// failure scenarios: ErrTenantOutOfScope must surface as a 403 and is
// never silently widened, while ErrMembershipLookup is a transient
// data-access failure that the mode computer degrades to DEMO.
package repository

import "errors"

// ErrNoTenant is returned when a user holds no active membership in any
// tenant. Terminal for context resolution; handlers surface it as
// "no access / contact support".
var ErrNoTenant = errors.New("no active tenant membership")

// ErrTenantOutOfScope is returned when a requested tenant is not in the
// caller's authorized scope set. Handlers should translate this into an
// HTTP 403 response.
var ErrTenantOutOfScope = errors.New("tenant out of scope")

// ErrTenantNotFound is returned when a tenant row is missing despite a
// matching membership. This is a data-consistency failure and is
// treated as an internal error.
var ErrTenantNotFound = errors.New("tenant not found")

// ErrMembershipLookup wraps transient failures while loading
// memberships. Mode computation degrades to DEMO with a warning instead
// of propagating it to the client.
var ErrMembershipLookup = errors.New("membership lookup failed")
