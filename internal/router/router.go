package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/kapehi/insights/internal/handler"    // import the handlers that implement business logic
	"github.com/kapehi/insights/internal/middleware" // import middleware for JWT authentication and role enforcement
	"github.com/kapehi/insights/internal/model"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication‑related routes and applies the
// necessary middleware.  Unauthenticated operations live under /v1/auth,
// while protected endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	// Create a route group under the /v1/auth prefix for operations that do
	// not require an existing session (register, login, refresh).  Each of
	// these handlers is responsible for generating or exchanging tokens.
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Refresh rotates the refresh token; refresh-access issues a new access
	// token without rotating.
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout accepts either a bearer token (revoking every session) or a
	// JSON body carrying a refresh_token (revoking that session only), so
	// it lives outside the protected group.
	g.POST("/logout", a.Logout)
	e.POST("/v1/logout", a.Logout)

	// Protected group: every handler registered here runs JWTAuth first.
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}

// RegisterMode registers the mode endpoint.  It is intentionally NOT in
// the JWT-protected group: the handler inspects the Authorization header
// itself so that anonymous visitors receive a guest demo mode instead
// of a 401.  The response must never be served from the shared response
// cache because it is per-user.
func RegisterMode(e *echo.Echo, m *handler.ModeHandler) {
	e.GET("/v1/mode", m.Mode)
}

// RegisterContext registers the tenant-context endpoints.  All of them
// require a valid access token; per-tenant authorization is enforced by
// the resolver inside the handlers, not by a role middleware, because
// the role depends on which tenant is being resolved.
// The tenant-options list is the one cache-friendly read here; it is
// cached per user via the response cache middleware passed in.
func RegisterContext(e *echo.Echo, h *handler.ContextHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	g := e.Group("/v1/context", middleware.JWTAuth(jwtSecret))
	g.GET("/tenant-options", h.TenantOptions, cache)
	g.POST("/resolve", h.Resolve)
	g.POST("/validate", h.Validate)
	g.GET("/current", h.Current)
	g.PUT("/current", h.SetCurrent)
}

// RegisterViewAs registers the role-simulation endpoints.  Start and
// stop carry a RequireRole pre-filter on the token's role snapshot; the
// authoritative platform_admin gate lives in the manager, which
// re-resolves the real role on every call.  The state read stays open
// to any authenticated user, who simply sees an inactive session.
func RegisterViewAs(e *echo.Echo, h *handler.ViewAsHandler, jwtSecret string) {
	g := e.Group("/v1/viewas", middleware.JWTAuth(jwtSecret))
	g.GET("", h.State)
	admin := middleware.RequireRole(model.RolePlatformAdmin)
	g.POST("/start", h.Start, admin)
	g.POST("/stop", h.Stop, admin)
}
