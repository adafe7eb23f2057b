package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kapehi/insights/internal/config"
	"github.com/kapehi/insights/internal/model"
	"github.com/kapehi/insights/internal/utils"
	"github.com/kapehi/insights/internal/viewas"
)

func newJSONRequest(method, target, body string) (*echo.Echo, *http.Request, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	return e, req, httptest.NewRecorder()
}

type fakeTokenStore struct {
	validUserID   uint64
	validErr      error
	revokedAll    []uint64
	revokedHashes []string
}

func (f *fakeTokenStore) StoreRefresh(_ context.Context, _ uint64, _ string, _ time.Time) error {
	return nil
}

func (f *fakeTokenStore) ValidateRefresh(_ context.Context, _ string) (uint64, error) {
	return f.validUserID, f.validErr
}

func (f *fakeTokenStore) RevokeByHash(_ context.Context, hash string) error {
	f.revokedHashes = append(f.revokedHashes, hash)
	return nil
}

func (f *fakeTokenStore) RevokeAllForUser(_ context.Context, userID uint64) error {
	f.revokedAll = append(f.revokedAll, userID)
	return nil
}

func logoutHandler(tokens *fakeTokenStore, store *stubViewAsStore) *AuthHandler {
	return &AuthHandler{
		Cfg:    config.Config{JWTSecret: testSecret},
		Tokens: tokens,
		ViewAs: viewas.NewManager(true, store, nopTelemetry{}),
	}
}

func TestLogout_BearerDestroysViewAsSession(t *testing.T) {
	tokens := &fakeTokenStore{}
	store := &stubViewAsStore{st: model.ViewAsState{
		IsActive: true, UIRole: model.RoleClientViewer, StartedAt: time.Now().UTC(),
	}}
	h := logoutHandler(tokens, store)

	e, req, rec := newJSONRequest(http.MethodPost, "/v1/auth/logout", "")
	req.Header.Set("Authorization", "Bearer "+signToken(t, 9, model.RolePlatformAdmin))
	if err := h.Logout(e.NewContext(req, rec)); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if len(tokens.revokedAll) != 1 || tokens.revokedAll[0] != 9 {
		t.Fatalf("revoked users = %v, want [9]", tokens.revokedAll)
	}
	if store.st.IsActive {
		t.Fatal("view-as session survived logout")
	}
}

func TestLogout_RefreshTokenDestroysViewAsSession(t *testing.T) {
	tokens := &fakeTokenStore{validUserID: 9}
	store := &stubViewAsStore{st: model.ViewAsState{
		IsActive: true, UIRole: model.RolePro, StartedAt: time.Now().UTC(),
	}}
	h := logoutHandler(tokens, store)

	e, req, rec := newJSONRequest(http.MethodPost, "/v1/auth/logout", `{"refresh_token":"raw-token"}`)
	if err := h.Logout(e.NewContext(req, rec)); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if want := utils.HashRefreshRaw("raw-token"); len(tokens.revokedHashes) != 1 || tokens.revokedHashes[0] != want {
		t.Fatalf("revoked hashes = %v, want [%s]", tokens.revokedHashes, want)
	}
	if store.st.IsActive {
		t.Fatal("view-as session survived refresh-token logout")
	}
}

func TestLogout_InactiveViewAsIsNoop(t *testing.T) {
	tokens := &fakeTokenStore{}
	store := &stubViewAsStore{st: model.InactiveViewAs()}
	h := logoutHandler(tokens, store)

	e, req, rec := newJSONRequest(http.MethodPost, "/v1/auth/logout", "")
	req.Header.Set("Authorization", "Bearer "+signToken(t, 9, model.RolePro))
	if err := h.Logout(e.NewContext(req, rec)); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if store.st.IsActive {
		t.Fatal("state should stay inactive")
	}
}

func TestLogout_NoCredentialsIs400(t *testing.T) {
	h := logoutHandler(&fakeTokenStore{}, &stubViewAsStore{st: model.InactiveViewAs()})
	e, req, rec := newJSONRequest(http.MethodPost, "/v1/auth/logout", "")
	if err := h.Logout(e.NewContext(req, rec)); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
