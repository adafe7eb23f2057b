package handler

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/kapehi/insights/internal/model"
	"github.com/kapehi/insights/internal/viewas"
)

type stubDirectory struct{ email string }

func (s *stubDirectory) GetByID(_ context.Context, id uint64) (model.User, error) {
	return model.User{ID: id, Email: s.email}, nil
}

func adminViewAsHandler(store *stubViewAsStore, enabled bool, realRole model.Role) *ViewAsHandler {
	res := &stubResolver{resolved: model.ResolvedContext{TenantID: 1, Role: realRole}}
	m := viewas.NewManager(enabled, store, nopTelemetry{})
	return NewViewAsHandler(m, res, &stubDirectory{email: "admin@example.com"})
}

func TestViewAsStart_ActivatesSimulation(t *testing.T) {
	store := &stubViewAsStore{st: model.InactiveViewAs()}
	h := adminViewAsHandler(store, true, model.RolePlatformAdmin)
	rec := contextRequest(t, http.MethodPost, "/v1/viewas/start",
		`{"role":"client_viewer","reason":"support ticket"}`, 1, h.Start)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if !store.st.IsActive || store.st.UIRole != model.RoleClientViewer {
		t.Fatalf("persisted state = %+v, want active client_viewer", store.st)
	}
}

func TestViewAsStart_ForbiddenForNonAdmins(t *testing.T) {
	store := &stubViewAsStore{st: model.InactiveViewAs()}
	h := adminViewAsHandler(store, true, model.RoleAgencyAdmin)
	rec := contextRequest(t, http.MethodPost, "/v1/viewas/start",
		`{"role":"client_viewer"}`, 1, h.Start)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if store.st.IsActive {
		t.Fatal("session started despite missing privilege")
	}
}

func TestViewAsStart_ForbiddenWhenFeatureOff(t *testing.T) {
	store := &stubViewAsStore{st: model.InactiveViewAs()}
	h := adminViewAsHandler(store, false, model.RolePlatformAdmin)
	rec := contextRequest(t, http.MethodPost, "/v1/viewas/start",
		`{"role":"client_viewer"}`, 1, h.Start)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestViewAsStart_RejectsUnsimulatableRole(t *testing.T) {
	store := &stubViewAsStore{st: model.InactiveViewAs()}
	h := adminViewAsHandler(store, true, model.RolePlatformAdmin)
	rec := contextRequest(t, http.MethodPost, "/v1/viewas/start",
		`{"role":"tenant_admin"}`, 1, h.Start)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestViewAsStart_UnknownRoleIs400(t *testing.T) {
	store := &stubViewAsStore{st: model.InactiveViewAs()}
	h := adminViewAsHandler(store, true, model.RolePlatformAdmin)
	rec := contextRequest(t, http.MethodPost, "/v1/viewas/start",
		`{"role":"superuser"}`, 1, h.Start)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestViewAsStop_ReturnsInactiveState(t *testing.T) {
	store := &stubViewAsStore{st: model.ViewAsState{IsActive: true, UIRole: model.RolePro}}
	h := adminViewAsHandler(store, true, model.RolePlatformAdmin)
	rec := contextRequest(t, http.MethodPost, "/v1/viewas/stop", "", 1, h.Stop)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if store.st.IsActive {
		t.Fatal("session still active after stop")
	}
	if !strings.Contains(rec.Body.String(), `"is_active":false`) {
		t.Errorf("body = %s, want inactive state", rec.Body.String())
	}
}

func TestViewAsState_ForceStopsWhenRoleLost(t *testing.T) {
	store := &stubViewAsStore{st: model.ViewAsState{IsActive: true, UIRole: model.RolePro}}
	h := adminViewAsHandler(store, true, model.RoleClientViewer)
	rec := contextRequest(t, http.MethodGet, "/v1/viewas", "", 1, h.State)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if store.st.IsActive {
		t.Fatal("session survived role loss")
	}
}
