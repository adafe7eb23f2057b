package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/kapehi/insights/internal/model"
	"github.com/kapehi/insights/internal/queue"
	"github.com/kapehi/insights/internal/repository"
	"github.com/kapehi/insights/internal/utils"
	"github.com/kapehi/insights/internal/viewas"
)

const testSecret = "test-secret"

type stubResolver struct {
	resolved     model.ResolvedContext
	err          error
	options      []model.TenantOption
	optionsErr   error
	valid        bool
	validErr     error
	gotRequested *uint64
}

func (s *stubResolver) Resolve(_ context.Context, _ uint64, requested *uint64) (model.ResolvedContext, error) {
	s.gotRequested = requested
	return s.resolved, s.err
}

func (s *stubResolver) TenantOptions(_ context.Context, _ uint64) ([]model.TenantOption, error) {
	return s.options, s.optionsErr
}

func (s *stubResolver) ValidateTenant(_ context.Context, _, _ uint64) (bool, error) {
	return s.valid, s.validErr
}

type stubComputer struct {
	mode         model.AppMode
	resolvedMode model.AppMode
	forCalls     int
	resolvedWith *model.ResolvedContext
}

func (s *stubComputer) ModeFor(_ context.Context, _ uint64, _ *uint64) model.AppMode {
	s.forCalls++
	return s.mode
}

func (s *stubComputer) ModeForResolved(_ context.Context, resolved model.ResolvedContext) model.AppMode {
	s.resolvedWith = &resolved
	return s.resolvedMode
}

type stubViewAsStore struct{ st model.ViewAsState }

func (s *stubViewAsStore) ViewAs(context.Context, uint64) (model.ViewAsState, error) {
	return s.st, nil
}
func (s *stubViewAsStore) SetViewAs(_ context.Context, _ uint64, st model.ViewAsState) error {
	s.st = st
	return nil
}
func (s *stubViewAsStore) InvalidateRoleSensitive(context.Context, uint64) error { return nil }

type nopTelemetry struct{}

func (nopTelemetry) PublishViewAsSession(context.Context, queue.ViewAsSessionEvent) error { return nil }

func modeRequest(t *testing.T, h *ModeHandler, target, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	if err := h.Mode(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

func signToken(t *testing.T, userID uint64, role model.Role) string {
	t.Helper()
	tok, err := utils.NewAccessToken(testSecret, userID, string(role), 5)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok.Token
}

func TestMode_GuestWithoutToken(t *testing.T) {
	h := NewModeHandler(testSecret, &stubComputer{}, &stubResolver{}, nil)
	rec := modeRequest(t, h, "/v1/mode", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("X-App-Mode"); got != string(model.ModeDemo) {
		t.Errorf("X-App-Mode = %q, want %q", got, model.ModeDemo)
	}
	if got := rec.Header().Get("X-App-Role"); got != string(model.RoleProspect) {
		t.Errorf("X-App-Role = %q, want %q", got, model.RoleProspect)
	}
	if rec.Header().Get("X-Trace-Id") == "" {
		t.Error("X-Trace-Id header missing")
	}
	if !strings.Contains(rec.Body.String(), `"ok":true`) {
		t.Errorf("body = %s, want ok:true", rec.Body.String())
	}
}

func TestMode_InvalidTokenIs401(t *testing.T) {
	h := NewModeHandler(testSecret, &stubComputer{}, &stubResolver{}, nil)
	rec := modeRequest(t, h, "/v1/mode", "not-a-jwt")

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"ok":false`) {
		t.Errorf("body = %s, want ok:false", body)
	}
	if !strings.Contains(body, `"dashboard"`) {
		t.Errorf("body = %s, want pages collapsed to dashboard", body)
	}
}

func TestMode_WrongSecretIs401(t *testing.T) {
	other, err := utils.NewAccessToken("other-secret", 1, string(model.RolePro), 5)
	if err != nil {
		t.Fatal(err)
	}
	h := NewModeHandler(testSecret, &stubComputer{}, &stubResolver{}, nil)
	rec := modeRequest(t, h, "/v1/mode", other.Token)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestMode_AuthenticatedDefaultContext(t *testing.T) {
	comp := &stubComputer{mode: model.AppMode{
		OK: true, Mode: model.ModeProduction, Role: model.RolePro, TraceID: "trace-1",
	}}
	h := NewModeHandler(testSecret, comp, &stubResolver{}, nil)
	rec := modeRequest(t, h, "/v1/mode", signToken(t, 42, model.RolePro))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if comp.forCalls != 1 {
		t.Fatalf("ModeFor calls = %d, want 1", comp.forCalls)
	}
	if got := rec.Header().Get("X-App-Mode"); got != string(model.ModeProduction) {
		t.Errorf("X-App-Mode = %q, want PRODUCTION", got)
	}
	if got := rec.Header().Get("X-Trace-Id"); got != "trace-1" {
		t.Errorf("X-Trace-Id = %q, want trace-1", got)
	}
}

func TestMode_ExplicitTenantOutOfScopeIs403(t *testing.T) {
	res := &stubResolver{err: repository.ErrTenantOutOfScope}
	h := NewModeHandler(testSecret, &stubComputer{}, res, nil)
	rec := modeRequest(t, h, "/v1/mode?tenant=99", signToken(t, 42, model.RolePro))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if res.gotRequested == nil || *res.gotRequested != 99 {
		t.Fatalf("requested tenant = %v, want 99", res.gotRequested)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"ok":false`) {
		t.Errorf("body = %s, want ok:false", body)
	}
	if !strings.Contains(body, string(model.ModeDemo)) {
		t.Errorf("body = %s, want demo-shaped denial", body)
	}
}

func TestMode_ExplicitTenantResolved(t *testing.T) {
	res := &stubResolver{resolved: model.ResolvedContext{TenantID: 7, Role: model.RoleTenantAdmin}}
	comp := &stubComputer{resolvedMode: model.AppMode{
		OK: true, Mode: model.ModeOnboarding, Role: model.RoleTenantAdmin, TraceID: "t",
	}}
	h := NewModeHandler(testSecret, comp, res, nil)
	rec := modeRequest(t, h, "/v1/mode?tenant=7", signToken(t, 42, model.RoleTenantAdmin))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if comp.resolvedWith == nil || comp.resolvedWith.TenantID != 7 {
		t.Fatalf("ModeForResolved context = %+v, want tenant 7", comp.resolvedWith)
	}
	if got := rec.Header().Get("X-App-Mode"); got != string(model.ModeOnboarding) {
		t.Errorf("X-App-Mode = %q, want ONBOARDING", got)
	}
}

func TestMode_BadTenantParamIs400(t *testing.T) {
	h := NewModeHandler(testSecret, &stubComputer{}, &stubResolver{}, nil)
	rec := modeRequest(t, h, "/v1/mode?tenant=abc", signToken(t, 42, model.RolePro))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestMode_ViewAsOverlaysDisplayedRole(t *testing.T) {
	store := &stubViewAsStore{st: model.ViewAsState{IsActive: true, UIRole: model.RoleClientViewer}}
	manager := viewas.NewManager(true, store, nopTelemetry{})
	comp := &stubComputer{mode: model.AppMode{
		OK:           true,
		Mode:         model.ModeProduction,
		Role:         model.RolePlatformAdmin,
		Capabilities: model.Capabilities{CanWrite: true, CanExport: true, CanSync: true},
		TraceID:      "t",
	}}
	h := NewModeHandler(testSecret, comp, &stubResolver{}, manager)
	rec := modeRequest(t, h, "/v1/mode", signToken(t, 1, model.RolePlatformAdmin))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("X-App-Role"); got != string(model.RoleClientViewer) {
		t.Errorf("X-App-Role = %q, want simulated client_viewer", got)
	}
	if strings.Contains(rec.Body.String(), `"canWrite":true`) {
		t.Errorf("body = %s, want displayed capabilities off while simulating", rec.Body.String())
	}
}

func TestMode_ViewAsIgnoredForNonAdmins(t *testing.T) {
	store := &stubViewAsStore{st: model.ViewAsState{IsActive: true, UIRole: model.RoleClientViewer}}
	manager := viewas.NewManager(true, store, nopTelemetry{})
	comp := &stubComputer{mode: model.AppMode{
		OK: true, Mode: model.ModeProduction, Role: model.RolePro, TraceID: "t",
	}}
	h := NewModeHandler(testSecret, comp, &stubResolver{}, manager)
	rec := modeRequest(t, h, "/v1/mode", signToken(t, 2, model.RolePro))

	// The stale active blob is force-stopped on the state check, so the
	// real role renders.
	if got := rec.Header().Get("X-App-Role"); got != string(model.RolePro) {
		t.Errorf("X-App-Role = %q, want pro", got)
	}
	if store.st.IsActive {
		t.Error("session still active after state check by non-admin")
	}
}
