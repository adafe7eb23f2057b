package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kapehi/insights/internal/model"
	"github.com/kapehi/insights/internal/viewas"
)

// UserDirectory looks up account records for telemetry attribution.
// Implemented by repository.UserRepo.
type UserDirectory interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// ViewAsHandler serves the role-simulation endpoints under /v1/viewas.
// The real role comes from a fresh context resolution, never from the
// token's role snapshot, so a demoted admin cannot keep simulating.
type ViewAsHandler struct {
	Manager  *viewas.Manager
	Resolver ContextResolver
	Users    UserDirectory
}

func NewViewAsHandler(m *viewas.Manager, resolver ContextResolver, users UserDirectory) *ViewAsHandler {
	return &ViewAsHandler{Manager: m, Resolver: resolver, Users: users}
}

type viewAsStartReq struct {
	Role     string  `json:"role"`
	TenantID *uint64 `json:"tenant_id"`
	Reason   string  `json:"reason"`
}

// actor builds the acting principal from a fresh resolution. A user
// with no resolvable context acts as a prospect, which every gate in
// the manager rejects.
func (h *ViewAsHandler) actor(ctx context.Context, uid uint64) viewas.Actor {
	a := viewas.Actor{UserID: uid, RealRole: model.RoleProspect}
	if resolved, err := h.Resolver.Resolve(ctx, uid, nil); err == nil {
		a.RealRole = resolved.Role
	}
	if u, err := h.Users.GetByID(ctx, uid); err == nil {
		a.Email = u.Email
	}
	return a
}

// State handles GET /v1/viewas.
func (h *ViewAsHandler) State(c echo.Context) error {
	uid, ok := requesterID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()
	st, err := h.Manager.State(ctx, h.actor(ctx, uid))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "view-as state unavailable"})
	}
	return c.JSON(http.StatusOK, st)
}

// Start handles POST /v1/viewas/start.
func (h *ViewAsHandler) Start(c echo.Context) error {
	uid, ok := requesterID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req viewAsStartReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	uiRole, ok := model.ParseRole(req.Role)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown role"})
	}

	ctx := c.Request().Context()
	actor := h.actor(ctx, uid)
	if !h.Manager.Enabled || actor.RealRole != model.RolePlatformAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "view-as is not available"})
	}
	st, err := h.Manager.Start(ctx, actor, uiRole, req.TenantID, req.Reason)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not start view-as session"})
	}
	if !st.IsActive {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "role cannot be simulated"})
	}
	return c.JSON(http.StatusOK, st)
}

// Stop handles POST /v1/viewas/stop. Stopping an inactive session is
// fine and returns the inactive state.
func (h *ViewAsHandler) Stop(c echo.Context) error {
	uid, ok := requesterID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()
	st, err := h.Manager.Stop(ctx, h.actor(ctx, uid))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not stop view-as session"})
	}
	return c.JSON(http.StatusOK, st)
}
