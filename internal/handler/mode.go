package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/kapehi/insights/internal/mode"
	"github.com/kapehi/insights/internal/model"
	"github.com/kapehi/insights/internal/repository"
	"github.com/kapehi/insights/internal/viewas"
)

// ModeHandler serves GET /v1/mode. The route is registered outside the
// auth group: unauthenticated visitors get a guest demo mode with 200,
// a present-but-invalid token gets 401, and a valid token gets the
// computed mode for the caller's (optionally requested) tenant.
type ModeHandler struct {
	Secret   string
	Computer ModeComputer
	Resolver ContextResolver
	ViewAs   *viewas.Manager
}

func NewModeHandler(secret string, computer ModeComputer, resolver ContextResolver, va *viewas.Manager) *ModeHandler {
	return &ModeHandler{Secret: secret, Computer: computer, Resolver: resolver, ViewAs: va}
}

// Mode handles GET /v1/mode?tenant=<id>.
func (h *ModeHandler) Mode(c echo.Context) error {
	ctx := c.Request().Context()

	raw, present := bearerToken(c)
	if !present {
		return writeMode(c, http.StatusOK, mode.Guest())
	}
	userID, role, ok := h.parseToken(raw)
	if !ok {
		return writeMode(c, http.StatusUnauthorized, mode.Unauthorized())
	}

	var requested *uint64
	if q := c.QueryParam("tenant"); q != "" {
		id, err := strconv.ParseUint(q, 10, 64)
		if err != nil {
			return writeMode(c, http.StatusBadRequest, deniedMode("invalid tenant parameter"))
		}
		requested = &id
	}

	// An explicit tenant switch fails loudly with 403 so the UI can
	// surface the denial instead of silently landing in demo.
	if requested != nil {
		resolved, err := h.Resolver.Resolve(ctx, userID, requested)
		if err != nil {
			if errors.Is(err, repository.ErrTenantOutOfScope) {
				return writeMode(c, http.StatusForbidden, deniedMode("tenant out of scope"))
			}
			return writeMode(c, http.StatusOK, mode.Fallback("mode detection failed, defaulting to demo"))
		}
		return writeMode(c, http.StatusOK, h.decorate(ctx, userID, role, h.Computer.ModeForResolved(ctx, resolved)))
	}

	return writeMode(c, http.StatusOK, h.decorate(ctx, userID, role, h.Computer.ModeFor(ctx, userID, nil)))
}

// decorate overlays the View-As simulation onto the displayed role and
// capabilities. Real authorization was already computed; this only
// changes what renders.
func (h *ModeHandler) decorate(ctx context.Context, userID uint64, realRole model.Role, m model.AppMode) model.AppMode {
	if h.ViewAs == nil {
		return m
	}
	st, err := h.ViewAs.State(ctx, viewas.Actor{UserID: userID, RealRole: realRole})
	if err != nil || !st.IsActive {
		return m
	}
	m.Role = h.ViewAs.EffectiveRole(st, m.Role)
	m.Capabilities = h.ViewAs.DisplayCapabilities(st, m.Capabilities)
	return m
}

// deniedMode is the demo-shaped error body attached to 4xx responses on
// an explicit tenant request.
func deniedMode(msg string) model.AppMode {
	m := mode.Fallback(msg)
	m.OK = false
	m.Error = msg
	return m
}

// writeMode emits the mode body plus the diagnostic response headers.
func writeMode(c echo.Context, status int, m model.AppMode) error {
	h := c.Response().Header()
	h.Set("X-App-Mode", string(m.Mode))
	h.Set("X-App-Role", string(m.Role))
	h.Set("X-Trace-Id", m.TraceID)
	return c.JSON(status, m)
}

// bearerToken pulls the raw token out of the Authorization header.
func bearerToken(c echo.Context) (string, bool) {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if auth == "" {
		return "", false
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// parseToken validates an HS256 access token and returns the subject
// and the role snapshot claim.
func (h *ModeHandler) parseToken(raw string) (uint64, model.Role, bool) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(h.Secret), nil
	})
	if err != nil || !tok.Valid {
		return 0, "", false
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", false
	}
	sub, ok := claims["sub"].(float64)
	if !ok {
		return 0, "", false
	}
	role := model.RoleProspect
	if s, ok := claims["role"].(string); ok {
		if r, ok := model.ParseRole(s); ok {
			role = r
		}
	}
	return uint64(sub), role, true
}
