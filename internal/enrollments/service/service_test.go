package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"leaddesk_backend/internal/enrollments/domain"
	"leaddesk_backend/internal/enrollments/ports"
	"leaddesk_backend/internal/enrollments/repository"
	"leaddesk_backend/internal/enrollments/transport"
	"leaddesk_backend/internal/events"
	"leaddesk_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type fakeRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]repository.Enrollment
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: map[uuid.UUID]repository.Enrollment{}}
}

func (r *fakeRepo) Create(_ context.Context, p repository.CreateParams) (repository.Enrollment, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.rows {
		if e.LeadID == p.LeadID {
			return e, false, nil
		}
	}
	e := repository.Enrollment{
		ID: uuid.New(), LeadID: p.LeadID, PackageID: p.PackageID, CreatedBy: p.CreatedBy, Version: 1,
		Pricing: domain.Negotiation[domain.Pricing]{Live: p.Pricing},
	}
	r.rows[e.ID] = e
	return e, true, nil
}

func (r *fakeRepo) GetByLeadID(_ context.Context, leadID uuid.UUID) (repository.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.rows {
		if e.LeadID == leadID {
			return e, nil
		}
	}
	return repository.Enrollment{}, repository.ErrNotFound
}

func (r *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.rows[id]
	if !ok {
		return repository.Enrollment{}, repository.ErrNotFound
	}
	return e, nil
}

func (r *fakeRepo) List(_ context.Context, pendingOnly bool, limit, offset int) ([]repository.Enrollment, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []repository.Enrollment{}
	for _, e := range r.rows {
		if pendingOnly && e.Pricing.State.Agreed() && e.Final.State.Agreed() {
			continue
		}
		out = append(out, e)
	}
	return out, len(out), nil
}

func (r *fakeRepo) Mutate(_ context.Context, id uuid.UUID, fn func(*repository.Enrollment) error) (repository.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.rows[id]
	if !ok {
		return repository.Enrollment{}, repository.ErrNotFound
	}
	if err := fn(&e); err != nil {
		return repository.Enrollment{}, err
	}
	e.Version++
	r.rows[id] = e
	return e, nil
}

func (r *fakeRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.SearchDocumentChanged
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ev, ok := e.(events.SearchDocumentChanged); ok {
		b.events = append(b.events, ev)
	}
}

func (b *recordingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

type fixedCatalog struct {
	pricing ports.PackagePricing
	at      time.Time
}

func (c *fixedCatalog) PricingFor(_ context.Context, _ uuid.UUID, at time.Time) (ports.PackagePricing, error) {
	c.at = at
	return c.pricing, nil
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func amount(s string) transport.OptionalDecimal {
	return transport.OptionalDecimal{Set: true, Value: dec(s)}
}

func boolPtr(b bool) *bool { return &b }

func newEnrollment(t *testing.T, svc *Service) uuid.UUID {
	t.Helper()
	pkg := uuid.New()
	id, err := svc.CreateFromLead(context.Background(), uuid.New(), &pkg, uuid.New())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return id
}

func newService() (*Service, *fakeRepo, *recordingBus) {
	repo := newFakeRepo()
	bus := &recordingBus{}
	catalog := &fixedCatalog{pricing: ports.PackagePricing{
		EnrollmentCharge:  decimal.NewFromInt(800),
		OfferLetterCharge: decimal.NewFromInt(200),
	}}
	svc := New(repo, catalog, bus)
	svc.now = func() time.Time { return time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC) }
	return svc, repo, bus
}

func TestCreateFromLeadUsesDiscountedPackagePrice(t *testing.T) {
	svc, repo, bus := newService()
	id := newEnrollment(t, svc)

	e := repo.rows[id]
	if !e.Pricing.Live.EnrollmentCharge.Equal(decimal.NewFromInt(800)) {
		t.Fatalf("enrollment charge = %s", e.Pricing.Live.EnrollmentCharge)
	}
	if e.Pricing.State != (domain.ApprovalState{}) {
		t.Fatalf("new enrollment should start unapproved, got %s", e.Pricing.State)
	}
	if len(bus.events) != 1 || bus.events[0].Kind != events.KindEnrolledClient {
		t.Fatalf("expected one enrolled client event, got %+v", bus.events)
	}
}

func TestCreateFromLeadIsIdempotent(t *testing.T) {
	svc, _, bus := newService()
	lead := uuid.New()

	first, err := svc.CreateFromLead(context.Background(), lead, nil, uuid.Nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := svc.CreateFromLead(context.Background(), lead, nil, uuid.Nil)
	if err != nil {
		t.Fatalf("create again: %v", err)
	}
	if first != second {
		t.Fatal("second call must return the existing enrollment")
	}
	if len(bus.events) != 1 {
		t.Fatalf("events = %d, want 1", len(bus.events))
	}
}

func TestEnrollmentForLead(t *testing.T) {
	svc, _, _ := newService()
	lead := uuid.New()

	if _, ok, err := svc.EnrollmentForLead(context.Background(), lead); err != nil || ok {
		t.Fatalf("lead without enrollment: ok=%v err=%v", ok, err)
	}

	id, err := svc.CreateFromLead(context.Background(), lead, nil, uuid.Nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, ok, err := svc.EnrollmentForLead(context.Background(), lead)
	if err != nil || !ok || got != id {
		t.Fatalf("EnrollmentForLead = %s, %v, %v; want %s", got, ok, err, id)
	}
}

func TestSalesEditThenAdminApprovalPromotesValues(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()
	id := newEnrollment(t, svc)

	if _, err := svc.DecidePricing(ctx, id, domain.RoleAdmin, transport.PricingDecisionRequest{Approve: boolPtr(true)}); err != nil {
		t.Fatalf("approve: %v", err)
	}

	edited, err := svc.EditPricing(ctx, id, domain.RoleSales, transport.EditPricingRequest{
		PricingFields: transport.PricingFields{EnrollmentCharge: amount("750")},
	})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if edited.Pricing.ByAdmin || !edited.Pricing.HasUpdate || edited.Pricing.EditedBy != domain.RoleSales {
		t.Fatalf("edit should revoke admin approval, got %s", edited.Pricing.ApprovalState)
	}
	if !edited.Pricing.Live.EnrollmentCharge.Equal(decimal.NewFromInt(800)) {
		t.Fatal("live charge must not change before approval")
	}

	approved, err := svc.DecidePricing(ctx, id, domain.RoleAdmin, transport.PricingDecisionRequest{Approve: boolPtr(true)})
	if err != nil {
		t.Fatalf("approve edit: %v", err)
	}
	if !approved.Pricing.Agreed || approved.Pricing.Proposed != nil {
		t.Fatalf("expected agreement, got %s", approved.Pricing.ApprovalState)
	}
	if !approved.Pricing.Live.EnrollmentCharge.Equal(decimal.NewFromInt(750)) {
		t.Fatalf("live charge = %s, want 750", approved.Pricing.Live.EnrollmentCharge)
	}
}

func TestPricingDecisionLeavesFinalPhaseAlone(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()
	id := newEnrollment(t, svc)

	if _, err := svc.EditFinalTerms(ctx, id, domain.RoleAdmin, transport.EditFinalTermsRequest{
		FinalTermsFields: transport.FinalTermsFields{FirstYearCharge: amount("5000")},
	}); err != nil {
		t.Fatalf("edit final: %v", err)
	}

	res, err := svc.DecidePricing(ctx, id, domain.RoleSales, transport.PricingDecisionRequest{Approve: boolPtr(true)})
	if err != nil {
		t.Fatalf("approve pricing: %v", err)
	}
	if !res.Pricing.Agreed {
		t.Fatalf("pricing = %s", res.Pricing.ApprovalState)
	}
	if !res.Final.HasUpdate || res.Final.BySales || res.Final.Proposed == nil {
		t.Fatalf("final phase changed: %s", res.Final.ApprovalState)
	}
}

func TestEditPricingRejectsInvalidTerms(t *testing.T) {
	svc, repo, _ := newService()
	id := newEnrollment(t, svc)
	before := repo.rows[id]

	_, err := svc.EditPricing(context.Background(), id, domain.RoleSales, transport.EditPricingRequest{
		PricingFields: transport.PricingFields{FirstYearPercentage: amount("12")},
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if repo.rows[id].Version != before.Version {
		t.Fatal("nothing should be written on validation failure")
	}
}

func TestEditPricingEmptyPatch(t *testing.T) {
	svc, _, _ := newService()
	id := newEnrollment(t, svc)

	_, err := svc.EditPricing(context.Background(), id, domain.RoleSales, transport.EditPricingRequest{})
	if !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}
}

func TestStaleVersionConflicts(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()
	id := newEnrollment(t, svc)

	stale := 1
	if _, err := svc.DecidePricing(ctx, id, domain.RoleAdmin, transport.PricingDecisionRequest{
		Approve: boolPtr(true), ExpectedVersion: &stale,
	}); err != nil {
		t.Fatalf("first decision: %v", err)
	}

	_, err := svc.EditPricing(ctx, id, domain.RoleSales, transport.EditPricingRequest{
		PricingFields:   transport.PricingFields{OfferLetterCharge: amount("0")},
		ExpectedVersion: &stale,
	})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRejectionWithChangesIsBadRequest(t *testing.T) {
	svc, _, _ := newService()
	id := newEnrollment(t, svc)

	_, err := svc.DecideFinal(context.Background(), id, domain.RoleAdmin, transport.FinalDecisionRequest{
		Approve:          boolPtr(false),
		FinalTermsFields: transport.FinalTermsFields{FirstYearCharge: amount("10")},
	})
	if !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}
}

func TestFinalTermsInstallmentsFromJSON(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()
	id := newEnrollment(t, svc)

	var req transport.EditFinalTermsRequest
	body := `{"firstYearCharge": 3000, "installments": [
		{"amount": "1500", "dueDate": "2026-05-01"},
		{"amount": 1500, "dueDate": "2026-06-01"}]}`
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("decode: %v", err)
	}

	res, err := svc.EditFinalTerms(ctx, id, domain.RoleSales, req)
	if err != nil {
		t.Fatalf("edit final: %v", err)
	}
	if res.Final.Proposed == nil || len(res.Final.Proposed.Installments) != 2 {
		t.Fatalf("proposal = %+v", res.Final.Proposed)
	}

	res, err = svc.DecideFinal(ctx, id, domain.RoleAdmin, transport.FinalDecisionRequest{Approve: boolPtr(true)})
	if err != nil {
		t.Fatalf("approve final: %v", err)
	}
	if !res.Final.Agreed || len(res.Final.Live.Installments) != 2 {
		t.Fatalf("final = %s %+v", res.Final.ApprovalState, res.Final.Live)
	}
}

func TestDeleteMissingEnrollment(t *testing.T) {
	svc, _, _ := newService()
	if err := svc.Delete(context.Background(), uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
