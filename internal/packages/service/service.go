// Package service manages packages and their discount windows, and prices
// a package at a given moment.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leaddesk_backend/internal/events"
	"leaddesk_backend/internal/packages/domain"
	"leaddesk_backend/internal/packages/repository"
	"leaddesk_backend/internal/packages/transport"
	"leaddesk_backend/platform/apperr"
	"leaddesk_backend/platform/logger"
	"leaddesk_backend/platform/sanitize"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	msgPackageNotFound  = "package not found"
	msgDiscountNotFound = "discount not found"
)

type Repository interface {
	Create(ctx context.Context, params repository.CreatePackageParams) (repository.Package, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Package, error)
	List(ctx context.Context, activeOnly bool) ([]repository.Package, error)
	Update(ctx context.Context, id uuid.UUID, params repository.UpdatePackageParams) (repository.Package, error)
	Delete(ctx context.Context, id uuid.UUID) error
	MutateDiscounts(ctx context.Context, id uuid.UUID, fn func([]domain.Discount) ([]domain.Discount, error)) (repository.Package, error)
	ListIDsWithExpiredDiscounts(ctx context.Context, now time.Time) ([]uuid.UUID, error)
}

type Service struct {
	repo     Repository
	eventBus events.Bus
	loc      *time.Location
	log      *logger.Logger
	now      func() time.Time
}

// New creates the service. loc is the zone discount dates are entered in;
// nil means UTC.
func New(repo Repository, loc *time.Location, log *logger.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, loc: loc, log: log, now: time.Now}
}

// SetEventBus enables PackageRenamed notifications.
func (s *Service) SetEventBus(bus events.Bus) {
	s.eventBus = bus
}

func (s *Service) Create(ctx context.Context, req transport.CreatePackageRequest) (transport.PackageResponse, error) {
	if errs := validateCharges(&req.EnrollmentCharge, &req.OfferLetterCharge); len(errs) > 0 {
		return transport.PackageResponse{}, apperr.ValidationFields(errs)
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	p, err := s.repo.Create(ctx, repository.CreatePackageParams{
		Name:              sanitize.Text(req.Name),
		Description:       sanitize.TextPtr(req.Description),
		EnrollmentCharge:  req.EnrollmentCharge,
		OfferLetterCharge: req.OfferLetterCharge,
		IsActive:          active,
	})
	if err != nil {
		return transport.PackageResponse{}, err
	}
	return ToPackageResponse(p, s.now()), nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (transport.PackageResponse, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.PackageResponse{}, mapNotFound(err)
	}
	return ToPackageResponse(p, s.now()), nil
}

func (s *Service) List(ctx context.Context, req transport.ListPackagesRequest) (transport.PackageListResponse, error) {
	items, err := s.repo.List(ctx, req.ActiveOnly)
	if err != nil {
		return transport.PackageListResponse{}, err
	}

	now := s.now()
	out := make([]transport.PackageResponse, 0, len(items))
	for _, p := range items {
		out = append(out, ToPackageResponse(p, now))
	}
	return transport.PackageListResponse{Items: out, Total: len(out)}, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdatePackageRequest) (transport.PackageResponse, error) {
	if errs := validateCharges(req.EnrollmentCharge, req.OfferLetterCharge); len(errs) > 0 {
		return transport.PackageResponse{}, apperr.ValidationFields(errs)
	}

	params := repository.UpdatePackageParams{
		Description:       sanitize.TextPtr(req.Description),
		EnrollmentCharge:  req.EnrollmentCharge,
		OfferLetterCharge: req.OfferLetterCharge,
		IsActive:          req.IsActive,
	}
	if req.Name != nil {
		name := sanitize.Text(*req.Name)
		params.Name = &name
	}

	var before repository.Package
	if params.Name != nil && s.eventBus != nil {
		current, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return transport.PackageResponse{}, mapNotFound(err)
		}
		before = current
	}

	p, err := s.repo.Update(ctx, id, params)
	if err != nil {
		return transport.PackageResponse{}, mapNotFound(err)
	}
	if params.Name != nil && s.eventBus != nil && before.Name != p.Name {
		s.eventBus.Publish(ctx, events.NewPackageRenamed(p.ID))
	}
	return ToPackageResponse(p, s.now()), nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return mapNotFound(s.repo.Delete(ctx, id))
}

// Quote prices the package at the current time.
func (s *Service) Quote(ctx context.Context, id uuid.UUID) (domain.Quote, error) {
	_, quote, err := s.QuoteAt(ctx, id, s.now())
	return quote, err
}

// QuoteAt prices the package at a given moment.
func (s *Service) QuoteAt(ctx context.Context, id uuid.UUID, at time.Time) (repository.Package, domain.Quote, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return repository.Package{}, domain.Quote{}, mapNotFound(err)
	}
	return p, domain.QuoteFor(p.EnrollmentCharge, p.Discounts, at), nil
}

func (s *Service) AddDiscount(ctx context.Context, packageID uuid.UUID, req transport.DiscountRequest) (transport.PackageResponse, error) {
	d, err := s.discountFromRequest(req)
	if err != nil {
		return transport.PackageResponse{}, err
	}
	d.ID = uuid.New()

	p, err := s.repo.MutateDiscounts(ctx, packageID, func(list []domain.Discount) ([]domain.Discount, error) {
		return append(list, d), nil
	})
	if err != nil {
		return transport.PackageResponse{}, mapNotFound(err)
	}
	return ToPackageResponse(p, s.now()), nil
}

func (s *Service) UpdateDiscount(ctx context.Context, packageID, discountID uuid.UUID, req transport.DiscountRequest) (transport.PackageResponse, error) {
	d, err := s.discountFromRequest(req)
	if err != nil {
		return transport.PackageResponse{}, err
	}
	d.ID = discountID

	p, err := s.repo.MutateDiscounts(ctx, packageID, func(list []domain.Discount) ([]domain.Discount, error) {
		for i := range list {
			if list[i].ID == discountID {
				list[i] = d
				return list, nil
			}
		}
		return nil, apperr.NotFound(msgDiscountNotFound)
	})
	if err != nil {
		return transport.PackageResponse{}, mapNotFound(err)
	}
	return ToPackageResponse(p, s.now()), nil
}

func (s *Service) RemoveDiscount(ctx context.Context, packageID, discountID uuid.UUID) (transport.PackageResponse, error) {
	p, err := s.repo.MutateDiscounts(ctx, packageID, func(list []domain.Discount) ([]domain.Discount, error) {
		out := make([]domain.Discount, 0, len(list))
		for _, d := range list {
			if d.ID != discountID {
				out = append(out, d)
			}
		}
		if len(out) == len(list) {
			return nil, apperr.NotFound(msgDiscountNotFound)
		}
		return out, nil
	})
	if err != nil {
		return transport.PackageResponse{}, mapNotFound(err)
	}
	return ToPackageResponse(p, s.now()), nil
}

// CleanupExpired drops every discount that has ended from every package and
// returns how many were removed. Each package is purged in its own
// transaction; failures are joined and do not stop the others.
func (s *Service) CleanupExpired(ctx context.Context) (int, error) {
	now := s.now()
	ids, err := s.repo.ListIDsWithExpiredDiscounts(ctx, now)
	if err != nil {
		return 0, err
	}

	removed := 0
	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		var n int
		_, err := s.repo.MutateDiscounts(ctx, id, func(list []domain.Discount) ([]domain.Discount, error) {
			var kept []domain.Discount
			kept, n = domain.PurgeExpired(list, now)
			return kept, nil
		})
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			errs = append(errs, fmt.Errorf("package %s: %w", id, err))
			continue
		}
		removed += n
	}

	if s.log != nil && (removed > 0 || len(errs) > 0) {
		s.log.Info("discount_cleanup_finished", "packages", len(ids), "removed", removed, "failed", len(errs))
	}
	return removed, errors.Join(errs...)
}

func (s *Service) discountFromRequest(req transport.DiscountRequest) (domain.Discount, error) {
	var fieldErrs []apperr.FieldError

	start, err := domain.CombineDateTime(req.StartDate, req.StartTime, s.loc)
	if err != nil {
		fieldErrs = append(fieldErrs, apperr.FieldError{Field: "startTime", Message: "must be HH:MM"})
	}
	end, err := domain.CombineDateTime(req.EndDate, req.EndTime, s.loc)
	if err != nil {
		fieldErrs = append(fieldErrs, apperr.FieldError{Field: "endTime", Message: "must be HH:MM"})
	}
	if len(fieldErrs) > 0 {
		return domain.Discount{}, apperr.ValidationFields(fieldErrs)
	}

	d := domain.Discount{
		Name:          sanitize.Text(req.Name),
		Percentage:    req.Percentage,
		StartDateTime: start.UTC(),
		EndDateTime:   end.UTC(),
	}
	if errs := domain.ValidateDiscount(d); len(errs) > 0 {
		return domain.Discount{}, apperr.ValidationFields(errs)
	}
	return d, nil
}

func validateCharges(enrollment, offer *decimal.Decimal) []apperr.FieldError {
	var errs []apperr.FieldError
	if enrollment != nil && enrollment.IsNegative() {
		errs = append(errs, apperr.FieldError{Field: "enrollmentCharge", Message: "must not be negative"})
	}
	if offer != nil && offer.IsNegative() {
		errs = append(errs, apperr.FieldError{Field: "offerLetterCharge", Message: "must not be negative"})
	}
	return errs
}

func mapNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(msgPackageNotFound)
	}
	return err
}
