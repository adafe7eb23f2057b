package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
)

// TenantMemory persists the last tenant a user switched to. Implemented
// by contextstore.Store.
type TenantMemory interface {
	LastTenant(ctx context.Context, userID uint64) (uint64, bool, error)
	SetLastTenant(ctx context.Context, userID, tenantID uint64) error
}

// ContextHandler serves the tenant-context endpoints under /v1/context.
// All routes sit behind JWTAuth.
type ContextHandler struct {
	Resolver ContextResolver
	Memory   TenantMemory
}

func NewContextHandler(resolver ContextResolver, memory TenantMemory) *ContextHandler {
	return &ContextHandler{Resolver: resolver, Memory: memory}
}

// resolveReq selects a tenant explicitly; a nil TenantID asks for the
// default context.
type resolveReq struct {
	TenantID *uint64 `json:"tenant_id"`
}

type validateReq struct {
	TenantID uint64 `json:"tenant_id"`
}

// TenantOptions handles GET /v1/context/tenant-options. It returns the
// switcher list for the authenticated user: the user's own memberships,
// with an agency's active children listed right after the agency.
func (h *ContextHandler) TenantOptions(c echo.Context) error {
	uid, ok := requesterID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	opts, err := h.Resolver.TenantOptions(c.Request().Context(), uid)
	if err != nil {
		return contextErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"tenants": opts})
}

// Resolve handles POST /v1/context/resolve. It runs full context
// resolution for the authenticated user against an optional requested
// tenant and returns the resolved context.
func (h *ContextHandler) Resolve(c echo.Context) error {
	uid, ok := requesterID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req resolveReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	resolved, err := h.Resolver.Resolve(c.Request().Context(), uid, req.TenantID)
	if err != nil {
		return contextErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, resolved)
}

// Validate handles POST /v1/context/validate. It reports whether the
// tenant is still reachable for the user without resolving a full
// context. Scope denials come back as valid=false, not as errors.
func (h *ContextHandler) Validate(c echo.Context) error {
	uid, ok := requesterID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req validateReq
	if err := c.Bind(&req); err != nil || req.TenantID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant_id is required"})
	}
	valid, err := h.Resolver.ValidateTenant(c.Request().Context(), uid, req.TenantID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "validation failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"valid": valid})
}

// Current handles GET /v1/context/current. The remembered tenant is
// revalidated before it is returned; a stale or out-of-scope memory
// falls back to the default context.
func (h *ContextHandler) Current(c echo.Context) error {
	uid, ok := requesterID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()

	var requested *uint64
	if tid, found, err := h.Memory.LastTenant(ctx, uid); err == nil && found {
		if valid, verr := h.Resolver.ValidateTenant(ctx, uid, tid); verr == nil && valid {
			requested = &tid
		}
	} else if err != nil {
		log.Printf("context: last-tenant load failed for user=%d: %v", uid, err)
	}

	resolved, err := h.Resolver.Resolve(ctx, uid, requested)
	if err != nil {
		return contextErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, resolved)
}

// SetCurrent handles PUT /v1/context/current. The switch is committed
// to memory only after the resolver accepts the tenant, and the
// resolved context for the new tenant is returned.
func (h *ContextHandler) SetCurrent(c echo.Context) error {
	uid, ok := requesterID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req validateReq
	if err := c.Bind(&req); err != nil || req.TenantID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant_id is required"})
	}
	ctx := c.Request().Context()
	resolved, err := h.Resolver.Resolve(ctx, uid, &req.TenantID)
	if err != nil {
		return contextErrorResponse(c, err)
	}
	if err := h.Memory.SetLastTenant(ctx, uid, req.TenantID); err != nil {
		log.Printf("context: last-tenant persist failed for user=%d: %v", uid, err)
	}
	return c.JSON(http.StatusOK, resolved)
}
