package middleware // middleware provides shared request processing for handlers

import (
	"net/http" // http package defines standard HTTP status codes

	"github.com/labstack/echo/v4" // echo provides middleware chaining and context

	"github.com/kapehi/insights/internal/model"
)

// RequireRole returns a middleware function that enforces that the
// authenticated user's role claim satisfies the required role in the
// role hierarchy via model.Role.Satisfies, the single source of truth
// for hierarchy checks. The claim is the default-context role snapshot
// embedded in the JWT at login; endpoints whose authorization depends
// on the tenant being operated on must go through the context resolver
// instead, which re-derives the effective role per request. It assumes
// a previous middleware has extracted the role into the context under
// the key "role".
func RequireRole(required model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Retrieve the role from context. It should have been
			// stored by JWTAuth middleware as a string. If not
			// present or of wrong type, treat as missing.
			v := c.Get("role")
			s, ok := v.(string)
			if !ok {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			role, ok := model.ParseRole(s)
			if !ok || !role.Satisfies(required) {
				// If role is missing, unknown or below the bar, return 403
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			// Otherwise call the next handler in the chain
			return next(c)
		}
	}
}
