package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"leaddesk_backend/internal/events"
	"leaddesk_backend/internal/packages/domain"
	"leaddesk_backend/internal/packages/repository"
	"leaddesk_backend/internal/packages/transport"
	"leaddesk_backend/platform/apperr"
	"leaddesk_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	packages map[uuid.UUID]repository.Package
	failOn   map[uuid.UUID]error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{packages: map[uuid.UUID]repository.Package{}, failOn: map[uuid.UUID]error{}}
}

func (r *fakeRepo) Create(_ context.Context, p repository.CreatePackageParams) (repository.Package, error) {
	pkg := repository.Package{
		ID: uuid.New(), Name: p.Name, Description: p.Description,
		EnrollmentCharge: p.EnrollmentCharge, OfferLetterCharge: p.OfferLetterCharge, IsActive: p.IsActive,
		Discounts: []domain.Discount{},
	}
	r.packages[pkg.ID] = pkg
	return pkg, nil
}

func (r *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Package, error) {
	p, ok := r.packages[id]
	if !ok {
		return repository.Package{}, repository.ErrNotFound
	}
	return p, nil
}

func (r *fakeRepo) List(_ context.Context, activeOnly bool) ([]repository.Package, error) {
	out := []repository.Package{}
	for _, p := range r.packages {
		if activeOnly && !p.IsActive {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *fakeRepo) Update(_ context.Context, id uuid.UUID, params repository.UpdatePackageParams) (repository.Package, error) {
	p, ok := r.packages[id]
	if !ok {
		return repository.Package{}, repository.ErrNotFound
	}
	if params.Name != nil {
		p.Name = *params.Name
	}
	if params.EnrollmentCharge != nil {
		p.EnrollmentCharge = *params.EnrollmentCharge
	}
	r.packages[id] = p
	return p, nil
}

func (r *fakeRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.packages[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.packages, id)
	return nil
}

func (r *fakeRepo) MutateDiscounts(_ context.Context, id uuid.UUID, fn func([]domain.Discount) ([]domain.Discount, error)) (repository.Package, error) {
	if err := r.failOn[id]; err != nil {
		return repository.Package{}, err
	}
	p, ok := r.packages[id]
	if !ok {
		return repository.Package{}, repository.ErrNotFound
	}
	current := append([]domain.Discount(nil), p.Discounts...)
	next, err := fn(current)
	if err != nil {
		return repository.Package{}, err
	}
	p.Discounts = next
	r.packages[id] = p
	return p, nil
}

func (r *fakeRepo) ListIDsWithExpiredDiscounts(_ context.Context, now time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id, p := range r.packages {
		if len(domain.ActiveDiscounts(p.Discounts, now)) < len(p.Discounts) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type renameRecorder struct {
	renamed []uuid.UUID
}

func (b *renameRecorder) Publish(_ context.Context, event events.Event) {
	if e, ok := event.(events.PackageRenamed); ok {
		b.renamed = append(b.renamed, e.PackageID)
	}
}

func (b *renameRecorder) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *renameRecorder) Subscribe(string, events.Handler) {}

var clock = time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *fakeRepo) {
	t.Helper()
	repo := newFakeRepo()
	svc := New(repo, time.UTC, logger.Nop())
	svc.now = func() time.Time { return clock }
	return svc, repo
}

func seedPackage(t *testing.T, repo *fakeRepo, charge int64, discounts ...domain.Discount) uuid.UUID {
	t.Helper()
	p := repository.Package{
		ID: uuid.New(), Name: "Gold", EnrollmentCharge: decimal.NewFromInt(charge),
		OfferLetterCharge: decimal.NewFromInt(150), IsActive: true, Discounts: discounts,
	}
	repo.packages[p.ID] = p
	return p.ID
}

func discount(name string, pct int64, end time.Time) domain.Discount {
	return domain.Discount{
		ID: uuid.New(), Name: name, Percentage: decimal.NewFromInt(pct),
		StartDateTime: end.Add(-48 * time.Hour), EndDateTime: end,
	}
}

func TestCleanupKeepsActiveDiscountAndReportsCount(t *testing.T) {
	svc, repo := newTestService(t)
	id := seedPackage(t, repo, 1000,
		discount("A", 20, clock.Add(time.Hour)),
		discount("B", 10, clock.Add(-time.Minute)),
	)

	quote, err := svc.Quote(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, quote.FinalPrice.Equal(decimal.NewFromInt(800)))

	removed, err := svc.CleanupExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	left := repo.packages[id].Discounts
	require.Len(t, left, 1)
	assert.Equal(t, "A", left[0].Name)
}

func TestCleanupContinuesPastFailingPackage(t *testing.T) {
	svc, repo := newTestService(t)
	bad := seedPackage(t, repo, 500, discount("old", 5, clock.Add(-time.Hour)))
	good := seedPackage(t, repo, 500, discount("old", 5, clock.Add(-time.Hour)), discount("older", 5, clock.Add(-2*time.Hour)))
	repo.failOn[bad] = errors.New("connection reset")

	removed, err := svc.CleanupExpired(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), bad.String())
	assert.Equal(t, 2, removed)
	assert.Empty(t, repo.packages[good].Discounts)
	assert.Len(t, repo.packages[bad].Discounts, 1)
}

func TestAddDiscountCombinesDateAndTime(t *testing.T) {
	svc, repo := newTestService(t)
	id := seedPackage(t, repo, 1000)

	res, err := svc.AddDiscount(context.Background(), id, transport.DiscountRequest{
		Name: "Launch", Percentage: decimal.NewFromInt(15),
		StartDate: "2026-05-20", StartTime: "09:00",
		EndDate: "2026-05-21", EndTime: "18:30",
	})
	require.NoError(t, err)
	require.Len(t, res.Discounts, 1)

	d := res.Discounts[0]
	assert.NotEqual(t, uuid.Nil, d.ID)
	assert.Equal(t, time.Date(2026, 5, 21, 18, 30, 0, 0, time.UTC), d.EndDateTime)
	assert.True(t, d.Active)
	assert.True(t, res.Quote.FinalPrice.Equal(decimal.NewFromInt(850)))
}

func TestAddDiscountRejectsInvertedWindow(t *testing.T) {
	svc, repo := newTestService(t)
	id := seedPackage(t, repo, 1000)

	_, err := svc.AddDiscount(context.Background(), id, transport.DiscountRequest{
		Name: "Broken", Percentage: decimal.NewFromInt(120),
		StartDate: "2026-05-22", EndDate: "2026-05-21",
	})
	require.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
	assert.Empty(t, repo.packages[id].Discounts)
}

func TestUpdateAndRemoveDiscount(t *testing.T) {
	svc, repo := newTestService(t)
	existing := discount("Old", 10, clock.Add(time.Hour))
	id := seedPackage(t, repo, 1000, existing)

	res, err := svc.UpdateDiscount(context.Background(), id, existing.ID, transport.DiscountRequest{
		Name: "Renamed", Percentage: decimal.NewFromInt(25),
		StartDate: "2026-05-01", EndDate: "2026-06-01",
	})
	require.NoError(t, err)
	require.Len(t, res.Discounts, 1)
	assert.Equal(t, existing.ID, res.Discounts[0].ID)
	assert.Equal(t, "Renamed", res.Discounts[0].Name)

	_, err = svc.RemoveDiscount(context.Background(), id, uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	res, err = svc.RemoveDiscount(context.Background(), id, existing.ID)
	require.NoError(t, err)
	assert.Empty(t, res.Discounts)
}

func TestQuoteAtUnknownPackage(t *testing.T) {
	svc, _ := newTestService(t)
	_, _, err := svc.QuoteAt(context.Background(), uuid.New(), clock)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestCreateRejectsNegativeCharge(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Create(context.Background(), transport.CreatePackageRequest{
		Name: "Bad", EnrollmentCharge: decimal.NewFromInt(-1),
	})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestUpdatePublishesRenameOnlyWhenNameChanges(t *testing.T) {
	svc, repo := newTestService(t)
	bus := &renameRecorder{}
	svc.SetEventBus(bus)
	id := seedPackage(t, repo, 1000)

	same := "Gold"
	_, err := svc.Update(context.Background(), id, transport.UpdatePackageRequest{Name: &same})
	require.NoError(t, err)
	assert.Empty(t, bus.renamed)

	charge := decimal.NewFromInt(1200)
	_, err = svc.Update(context.Background(), id, transport.UpdatePackageRequest{EnrollmentCharge: &charge})
	require.NoError(t, err)
	assert.Empty(t, bus.renamed)

	renamed := "Platinum"
	resp, err := svc.Update(context.Background(), id, transport.UpdatePackageRequest{Name: &renamed})
	require.NoError(t, err)
	assert.Equal(t, "Platinum", resp.Name)
	assert.Equal(t, []uuid.UUID{id}, bus.renamed)
}

func TestUpdateRenameOfUnknownPackage(t *testing.T) {
	svc, _ := newTestService(t)
	svc.SetEventBus(&renameRecorder{})
	name := "Ghost"
	_, err := svc.Update(context.Background(), uuid.New(), transport.UpdatePackageRequest{Name: &name})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
