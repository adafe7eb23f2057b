package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/kapehi/insights/internal/model"
	"github.com/kapehi/insights/internal/repository"
)

// ContextResolver is the resolver surface the context-facing handlers
// consume. Implemented by resolver.Resolver.
type ContextResolver interface {
	Resolve(ctx context.Context, userID uint64, requestedTenantID *uint64) (model.ResolvedContext, error)
	TenantOptions(ctx context.Context, userID uint64) ([]model.TenantOption, error)
	ValidateTenant(ctx context.Context, userID, tenantID uint64) (bool, error)
}

// ModeComputer is the mode surface the mode handler consumes.
// Implemented by mode.Computer.
type ModeComputer interface {
	ModeFor(ctx context.Context, userID uint64, requestedTenantID *uint64) model.AppMode
	ModeForResolved(ctx context.Context, resolved model.ResolvedContext) model.AppMode
}

// requesterID extracts the authenticated user id stored by the JWTAuth
// middleware. JWT numeric claims decode as float64.
func requesterID(c echo.Context) (uint64, bool) {
	switch v := c.Get("user_id").(type) {
	case float64:
		return uint64(v), true
	case uint64:
		return v, true
	case string:
		if id, err := strconv.ParseUint(v, 10, 64); err == nil {
			return id, true
		}
	}
	return 0, false
}

// contextErrorResponse maps resolver errors onto the HTTP surface:
// NoTenant → 404, TenantOutOfScope → 403, everything else → 500.
// Scope errors are never widened into a different tenant.
func contextErrorResponse(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrNoTenant):
		return c.JSON(http.StatusNotFound, echo.Map{"ok": false, "error": "no active tenant membership", "code": "NO_TENANT"})
	case errors.Is(err, repository.ErrTenantOutOfScope):
		return c.JSON(http.StatusForbidden, echo.Map{"ok": false, "error": "tenant out of scope", "code": "TENANT_OUT_OF_SCOPE"})
	case errors.Is(err, repository.ErrTenantNotFound):
		return c.JSON(http.StatusInternalServerError, echo.Map{"ok": false, "error": "tenant not found", "code": "TENANT_NOT_FOUND"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"ok": false, "error": "context resolution failed", "code": "MEMBERSHIP_ERROR"})
	}
}
