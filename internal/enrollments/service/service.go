// Package service runs the enrollment approval workflow. Every transition is
// a pure domain function applied inside Repository.Mutate, so concurrent
// approvals on one enrollment are serialized by the row lock.
package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"leaddesk_backend/internal/enrollments/domain"
	"leaddesk_backend/internal/enrollments/ports"
	"leaddesk_backend/internal/enrollments/repository"
	"leaddesk_backend/internal/enrollments/transport"
	"leaddesk_backend/internal/events"
	"leaddesk_backend/platform/apperr"

	"github.com/google/uuid"
)

const msgEnrollmentNotFound = "enrollment not found"

// Repository is the persistence the service needs.
type Repository interface {
	Create(ctx context.Context, params repository.CreateParams) (repository.Enrollment, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Enrollment, error)
	GetByLeadID(ctx context.Context, leadID uuid.UUID) (repository.Enrollment, error)
	List(ctx context.Context, pendingOnly bool, limit, offset int) ([]repository.Enrollment, int, error)
	Mutate(ctx context.Context, id uuid.UUID, fn func(*repository.Enrollment) error) (repository.Enrollment, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type Service struct {
	repo     Repository
	packages ports.PackageCatalog
	eventBus events.Bus
	now      func() time.Time
}

// New creates the service. packages may be nil, in which case enrollments
// start with empty pricing.
func New(repo Repository, packages ports.PackageCatalog, eventBus events.Bus) *Service {
	return &Service{repo: repo, packages: packages, eventBus: eventBus, now: time.Now}
}

func (s *Service) publish(ctx context.Context, id uuid.UUID, op events.DocumentOp) {
	if s.eventBus == nil {
		return
	}
	s.eventBus.Publish(ctx, events.NewSearchDocumentChanged(events.KindEnrolledClient, id, op))
}

// CreateFromLead opens the enrollment for a lead that just moved to
// Enrolled. Pricing starts from the package price with active discounts
// applied. Calling it again for the same lead returns the existing
// enrollment.
func (s *Service) CreateFromLead(ctx context.Context, leadID uuid.UUID, packageID *uuid.UUID, actorID uuid.UUID) (uuid.UUID, error) {
	params := repository.CreateParams{LeadID: leadID, PackageID: packageID}
	if actorID != uuid.Nil {
		params.CreatedBy = &actorID
	}

	if packageID != nil && s.packages != nil {
		price, err := s.packages.PricingFor(ctx, *packageID, s.now())
		if err != nil {
			return uuid.Nil, err
		}
		charge, offer := price.EnrollmentCharge, price.OfferLetterCharge
		params.Pricing = domain.Pricing{EnrollmentCharge: &charge, OfferLetterCharge: &offer}
	}

	e, created, err := s.repo.Create(ctx, params)
	if err != nil {
		return uuid.Nil, err
	}
	if created {
		s.publish(ctx, e.ID, events.OpUpsert)
	}
	return e.ID, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (transport.EnrollmentResponse, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.EnrollmentResponse{}, mapNotFound(err)
	}
	return ToEnrollmentResponse(e), nil
}

// EnrollmentForLead reports the enrollment opened for leadID, if any.
func (s *Service) EnrollmentForLead(ctx context.Context, leadID uuid.UUID) (uuid.UUID, bool, error) {
	e, err := s.repo.GetByLeadID(ctx, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	return e.ID, true, nil
}

func (s *Service) List(ctx context.Context, req transport.ListEnrollmentsRequest) (transport.EnrollmentListResponse, error) {
	page, pageSize := req.Page, req.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	items, total, err := s.repo.List(ctx, req.PendingOnly, pageSize, (page-1)*pageSize)
	if err != nil {
		return transport.EnrollmentListResponse{}, err
	}

	out := make([]transport.EnrollmentResponse, 0, len(items))
	for _, e := range items {
		out = append(out, ToEnrollmentResponse(e))
	}
	return transport.EnrollmentListResponse{
		Items:      out,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}, nil
}

// EditPricing records role's proposed pricing. The counterparty's approval
// is revoked until they approve the new values.
func (s *Service) EditPricing(ctx context.Context, id uuid.UUID, role domain.Role, req transport.EditPricingRequest) (transport.EnrollmentResponse, error) {
	patch := req.Patch()
	if patch.Empty() {
		return transport.EnrollmentResponse{}, apperr.BadRequest("no pricing fields to change")
	}
	return s.mutate(ctx, id, req.ExpectedVersion, func(e *repository.Enrollment) error {
		return proposePricing(e, role, patch)
	})
}

// DecidePricing applies role's approval or rejection of the pricing phase.
// Fields sent with an approval are proposed first, so the counterparty
// still has to approve them.
func (s *Service) DecidePricing(ctx context.Context, id uuid.UUID, role domain.Role, req transport.PricingDecisionRequest) (transport.EnrollmentResponse, error) {
	approve := req.Approve != nil && *req.Approve
	patch := req.Patch()
	if !approve && !patch.Empty() {
		return transport.EnrollmentResponse{}, apperr.BadRequest("pricing changes can only accompany an approval")
	}
	return s.mutate(ctx, id, req.ExpectedVersion, func(e *repository.Enrollment) error {
		if !patch.Empty() {
			if err := proposePricing(e, role, patch); err != nil {
				return err
			}
		}
		e.Pricing = e.Pricing.Decide(role, approve)
		return nil
	})
}

// EditFinalTerms records role's proposed final terms. The pricing phase is
// not touched.
func (s *Service) EditFinalTerms(ctx context.Context, id uuid.UUID, role domain.Role, req transport.EditFinalTermsRequest) (transport.EnrollmentResponse, error) {
	patch := req.Patch()
	if patch.Empty() {
		return transport.EnrollmentResponse{}, apperr.BadRequest("no final terms to change")
	}
	return s.mutate(ctx, id, req.ExpectedVersion, func(e *repository.Enrollment) error {
		return proposeFinal(e, role, patch)
	})
}

func (s *Service) DecideFinal(ctx context.Context, id uuid.UUID, role domain.Role, req transport.FinalDecisionRequest) (transport.EnrollmentResponse, error) {
	approve := req.Approve != nil && *req.Approve
	patch := req.Patch()
	if !approve && !patch.Empty() {
		return transport.EnrollmentResponse{}, apperr.BadRequest("final term changes can only accompany an approval")
	}
	return s.mutate(ctx, id, req.ExpectedVersion, func(e *repository.Enrollment) error {
		if !patch.Empty() {
			if err := proposeFinal(e, role, patch); err != nil {
				return err
			}
		}
		e.Final = e.Final.Decide(role, approve)
		return nil
	})
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapNotFound(err)
	}
	s.publish(ctx, id, events.OpDelete)
	return nil
}

func (s *Service) mutate(ctx context.Context, id uuid.UUID, expectedVersion *int, fn func(*repository.Enrollment) error) (transport.EnrollmentResponse, error) {
	e, err := s.repo.Mutate(ctx, id, func(e *repository.Enrollment) error {
		if expectedVersion != nil && *expectedVersion != e.Version {
			return apperr.Conflict("enrollment was changed by someone else (version " + strconv.Itoa(e.Version) + ")")
		}
		return fn(e)
	})
	if err != nil {
		return transport.EnrollmentResponse{}, mapNotFound(err)
	}

	s.publish(ctx, e.ID, events.OpUpsert)
	return ToEnrollmentResponse(e), nil
}

func proposePricing(e *repository.Enrollment, role domain.Role, patch domain.PricingPatch) error {
	next := patch.Apply(e.Pricing.Base())
	if errs := domain.ValidatePricing(next); len(errs) > 0 {
		return apperr.ValidationFields(errs)
	}
	e.Pricing = e.Pricing.Propose(role, next)
	return nil
}

func proposeFinal(e *repository.Enrollment, role domain.Role, patch domain.FinalTermsPatch) error {
	next := patch.Apply(e.Final.Base())
	if errs := domain.ValidateFinalTerms(next); len(errs) > 0 {
		return apperr.ValidationFields(errs)
	}
	e.Final = e.Final.Propose(role, next)
	return nil
}

func mapNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(msgEnrollmentNotFound)
	}
	return err
}
