package resolver

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/kapehi/insights/internal/model"
	"github.com/kapehi/insights/internal/repository"
)

// --- fakes ---

type fakeMembershipStore struct {
	rows []model.MembershipTenant
	err  error
}

func (f *fakeMembershipStore) ActiveForUser(ctx context.Context, userID uint64) ([]model.MembershipTenant, error) {
	return f.rows, f.err
}

type fakeTenantStore struct {
	tenants  map[uint64]model.Tenant
	children map[uint64][]model.Tenant
	err      error
}

func (f *fakeTenantStore) GetByID(ctx context.Context, id uint64) (model.Tenant, error) {
	if f.err != nil {
		return model.Tenant{}, f.err
	}
	t, ok := f.tenants[id]
	if !ok {
		return model.Tenant{}, sql.ErrNoRows
	}
	return t, nil
}

func (f *fakeTenantStore) ActiveChildren(ctx context.Context, agencyID uint64) ([]model.Tenant, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.children[agencyID], nil
}

func tenant(id uint64, category string, parent *uint64, connected bool) model.Tenant {
	return model.Tenant{
		ID: id, Name: "t", Category: category, ParentTenantID: parent,
		ShopifyConnected: connected, Status: model.TenantStatusActive,
	}
}

func membership(userID, tenantID uint64, role model.Role, t model.Tenant, createdAt time.Time) model.MembershipTenant {
	return model.MembershipTenant{
		Membership: model.Membership{
			UserID: userID, TenantID: tenantID, Role: role,
			Status: model.MembershipStatusActive, AllowedPages: []string{"dashboard"},
			CreatedAt: createdAt,
		},
		Tenant: t,
	}
}

func uptr(v uint64) *uint64 { return &v }

// --- tests ---

func TestResolve_NoMemberships(t *testing.T) {
	r := New(&fakeMembershipStore{}, &fakeTenantStore{})
	_, err := r.Resolve(context.Background(), 1, nil)
	if !errors.Is(err, repository.ErrNoTenant) {
		t.Fatalf("expected ErrNoTenant, got %v", err)
	}
}

func TestResolve_MembershipLookupFailure(t *testing.T) {
	r := New(&fakeMembershipStore{err: errors.New("db down")}, &fakeTenantStore{})
	_, err := r.Resolve(context.Background(), 1, nil)
	if !errors.Is(err, repository.ErrMembershipLookup) {
		t.Fatalf("expected ErrMembershipLookup, got %v", err)
	}
}

func TestResolve_OutOfScope(t *testing.T) {
	own := tenant(10, model.TenantCategoryCustomer, nil, true)
	ms := &fakeMembershipStore{rows: []model.MembershipTenant{
		membership(1, 10, model.RolePro, own, time.Now()),
	}}
	r := New(ms, &fakeTenantStore{tenants: map[uint64]model.Tenant{
		99: tenant(99, model.TenantCategoryCustomer, nil, true),
	}})
	_, err := r.Resolve(context.Background(), 1, uptr(99))
	if !errors.Is(err, repository.ErrTenantOutOfScope) {
		t.Fatalf("expected ErrTenantOutOfScope, got %v", err)
	}
}

func TestResolve_DefaultPicksHighestPriorityMembership(t *testing.T) {
	base := time.Now()
	customer := tenant(10, model.TenantCategoryCustomer, nil, true)
	agency := tenant(20, model.TenantCategoryAgency, nil, false)
	ms := &fakeMembershipStore{rows: []model.MembershipTenant{
		membership(1, 10, model.RolePro, customer, base),
		membership(1, 20, model.RoleAgencyAdmin, agency, base.Add(time.Minute)),
	}}
	r := New(ms, &fakeTenantStore{})
	got, err := r.Resolve(context.Background(), 1, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.TenantID != 20 || got.Role != model.RoleAgencyAdmin {
		t.Fatalf("expected agency tenant 20 as agency_admin, got tenant=%d role=%s", got.TenantID, got.Role)
	}
	if !got.CanSwitchContext {
		t.Fatalf("agency admin must be able to switch context")
	}
}

func TestResolve_AgencyAdminElevatedOnOwnChild(t *testing.T) {
	agency := tenant(20, model.TenantCategoryAgency, nil, false)
	child := tenant(30, model.TenantCategoryCustomer, uptr(20), true)
	ms := &fakeMembershipStore{rows: []model.MembershipTenant{
		membership(1, 20, model.RoleAgencyAdmin, agency, time.Now()),
	}}
	ts := &fakeTenantStore{
		tenants:  map[uint64]model.Tenant{20: agency, 30: child},
		children: map[uint64][]model.Tenant{20: {child}},
	}
	r := New(ms, ts)

	got, err := r.Resolve(context.Background(), 1, uptr(30))
	if err != nil {
		t.Fatalf("resolve child: %v", err)
	}
	if got.Role != model.RoleTenantAdmin {
		t.Fatalf("expected tenant_admin on own child, got %s", got.Role)
	}
	if got.TenantCategory != model.TenantCategoryCustomer || got.ParentTenantID == nil || *got.ParentTenantID != 20 {
		t.Fatalf("unexpected child context: %+v", got)
	}

	// Resolving into the agency tenant itself keeps agency_admin.
	got, err = r.Resolve(context.Background(), 1, uptr(20))
	if err != nil {
		t.Fatalf("resolve agency: %v", err)
	}
	if got.Role != model.RoleAgencyAdmin {
		t.Fatalf("expected agency_admin on own agency, got %s", got.Role)
	}
}

func TestResolve_AgencyAdminRejectedOnUnrelatedTenant(t *testing.T) {
	agency := tenant(20, model.TenantCategoryAgency, nil, false)
	other := tenant(40, model.TenantCategoryCustomer, uptr(21), true)
	ms := &fakeMembershipStore{rows: []model.MembershipTenant{
		membership(1, 20, model.RoleAgencyAdmin, agency, time.Now()),
	}}
	ts := &fakeTenantStore{tenants: map[uint64]model.Tenant{20: agency, 40: other}}
	r := New(ms, ts)
	_, err := r.Resolve(context.Background(), 1, uptr(40))
	if !errors.Is(err, repository.ErrTenantOutOfScope) {
		t.Fatalf("expected ErrTenantOutOfScope for unrelated tenant, got %v", err)
	}
}

func TestResolve_PlatformAdminStepsIntoAnyTenant(t *testing.T) {
	home := tenant(50, model.TenantCategoryCustomer, nil, true)
	other := tenant(60, model.TenantCategoryCustomer, nil, false)
	ms := &fakeMembershipStore{rows: []model.MembershipTenant{
		membership(1, 50, model.RolePlatformAdmin, home, time.Now()),
	}}
	ts := &fakeTenantStore{tenants: map[uint64]model.Tenant{50: home, 60: other}}
	r := New(ms, ts)

	got, err := r.Resolve(context.Background(), 1, uptr(60))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Role != model.RolePlatformAdmin {
		t.Fatalf("platform_admin must never be downgraded, got %s", got.Role)
	}
	if got.TenantID != 60 {
		t.Fatalf("expected tenant 60, got %d", got.TenantID)
	}

	// Step-in requires an existing tenant row.
	_, err = r.Resolve(context.Background(), 1, uptr(999))
	if !errors.Is(err, repository.ErrTenantOutOfScope) {
		t.Fatalf("expected ErrTenantOutOfScope for missing step-in target, got %v", err)
	}
}

func TestResolve_StepInLookupFailurePropagates(t *testing.T) {
	home := tenant(50, model.TenantCategoryCustomer, nil, true)
	ms := &fakeMembershipStore{rows: []model.MembershipTenant{
		membership(1, 50, model.RolePlatformAdmin, home, time.Now()),
	}}
	ts := &fakeTenantStore{err: errors.New("connection reset")}
	r := New(ms, ts)

	// A transient tenant lookup failure during step-in must surface as a
	// lookup error, not as a scope denial.
	_, err := r.Resolve(context.Background(), 1, uptr(60))
	if !errors.Is(err, repository.ErrMembershipLookup) {
		t.Fatalf("expected ErrMembershipLookup for transient step-in failure, got %v", err)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	agency := tenant(20, model.TenantCategoryAgency, nil, false)
	child := tenant(30, model.TenantCategoryCustomer, uptr(20), true)
	ms := &fakeMembershipStore{rows: []model.MembershipTenant{
		membership(1, 20, model.RoleAgencyAdmin, agency, time.Now()),
	}}
	ts := &fakeTenantStore{
		tenants:  map[uint64]model.Tenant{20: agency, 30: child},
		children: map[uint64][]model.Tenant{20: {child}},
	}
	r := New(ms, ts)

	first, err := r.Resolve(context.Background(), 1, uptr(30))
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	second, err := r.Resolve(context.Background(), 1, uptr(30))
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("resolve not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestResolve_SwitcherListsAgencyThenChildren(t *testing.T) {
	agency := tenant(20, model.TenantCategoryAgency, nil, false)
	agency.Name = "Agence Nova"
	childA := tenant(30, model.TenantCategoryCustomer, uptr(20), true)
	childB := tenant(31, model.TenantCategoryCustomer, uptr(20), false)
	ms := &fakeMembershipStore{rows: []model.MembershipTenant{
		membership(1, 20, model.RoleAgencyAdmin, agency, time.Now()),
	}}
	ts := &fakeTenantStore{
		tenants:  map[uint64]model.Tenant{20: agency, 30: childA, 31: childB},
		children: map[uint64][]model.Tenant{20: {childA, childB}},
	}
	r := New(ms, ts)

	options, err := r.TenantOptions(context.Background(), 1)
	if err != nil {
		t.Fatalf("tenant options: %v", err)
	}
	if len(options) != 3 {
		t.Fatalf("expected 3 options, got %d", len(options))
	}
	if options[0].ID != 20 || options[0].Type != "agency" || options[0].Label != "Agence Nova" {
		t.Fatalf("unexpected first option: %+v", options[0])
	}
	if options[1].ID != 30 || options[2].ID != 31 {
		t.Fatalf("children out of order: %+v", options)
	}
	if options[1].ParentTenantID == nil || *options[1].ParentTenantID != 20 {
		t.Fatalf("child option missing parent id: %+v", options[1])
	}
}

func TestResolve_NonPrivilegedCannotSwitch(t *testing.T) {
	own := tenant(10, model.TenantCategoryCustomer, nil, true)
	ms := &fakeMembershipStore{rows: []model.MembershipTenant{
		membership(1, 10, model.RolePro, own, time.Now()),
	}}
	r := New(ms, &fakeTenantStore{})
	got, err := r.Resolve(context.Background(), 1, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.CanSwitchContext || got.AvailableTenants != nil {
		t.Fatalf("non-privileged caller must not get a switcher: %+v", got)
	}
}

func TestValidateTenant(t *testing.T) {
	agency := tenant(20, model.TenantCategoryAgency, nil, false)
	child := tenant(30, model.TenantCategoryCustomer, uptr(20), true)
	ms := &fakeMembershipStore{rows: []model.MembershipTenant{
		membership(1, 20, model.RoleAgencyAdmin, agency, time.Now()),
	}}
	ts := &fakeTenantStore{
		tenants:  map[uint64]model.Tenant{20: agency, 30: child},
		children: map[uint64][]model.Tenant{20: {child}},
	}
	r := New(ms, ts)

	ok, err := r.ValidateTenant(context.Background(), 1, 30)
	if err != nil || !ok {
		t.Fatalf("expected child to validate, got ok=%v err=%v", ok, err)
	}
	ok, err = r.ValidateTenant(context.Background(), 1, 999)
	if err != nil || ok {
		t.Fatalf("expected unknown tenant to fail validation, got ok=%v err=%v", ok, err)
	}

	ms.err = errors.New("transient")
	if _, err := r.ValidateTenant(context.Background(), 1, 30); err == nil {
		t.Fatalf("transient failures must propagate")
	}
}
