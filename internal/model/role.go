package model

// Role is the single role type used across the application. Every
// hierarchy decision goes through Satisfies or Priority; no handler or
// middleware keeps its own role list. The values mirror the `role`
// column of the tenants_users table.
type Role string

const (
	RoleProspect      Role = "prospect"
	RolePro           Role = "pro"
	RoleClientViewer  Role = "client_viewer"
	RoleTenantAdmin   Role = "tenant_admin"
	RoleAgencyAdmin   Role = "agency_admin"
	RolePlatformAdmin Role = "platform_admin"
)

// rolePriority orders roles for default-tenant selection. Higher wins.
// platform_admin > agency_admin > tenant_admin > all others; the tail
// roles share a rank and are separated only by membership creation
// order upstream.
var rolePriority = map[Role]int{
	RolePlatformAdmin: 4,
	RoleAgencyAdmin:   3,
	RoleTenantAdmin:   2,
	RoleClientViewer:  1,
	RolePro:           1,
	RoleProspect:      0,
}

// Priority returns the selection rank of r. Unknown roles rank below
// prospect so malformed rows never win a tie.
func (r Role) Priority() int {
	if p, ok := rolePriority[r]; ok {
		return p
	}
	return -1
}

// Satisfies reports whether the actual role meets or exceeds the
// required role in the hierarchy.
func (r Role) Satisfies(required Role) bool {
	return r.Priority() >= required.Priority()
}

// Valid reports whether r is one of the six known roles.
func (r Role) Valid() bool {
	_, ok := rolePriority[r]
	return ok
}

// ParseRole converts a stored or client-supplied string into a Role.
// The boolean is false for anything outside the known set.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.Valid()
}
