// Package management handles lead CRUD, status changes and archiving.
// Every committed mutation announces itself on the event bus so the search
// mirror can follow.
package management

import (
	"context"
	"errors"
	"strings"
	"time"

	"leaddesk_backend/internal/events"
	"leaddesk_backend/internal/leads/domain"
	"leaddesk_backend/internal/leads/ports"
	"leaddesk_backend/internal/leads/repository"
	"leaddesk_backend/internal/leads/transport"
	"leaddesk_backend/platform/apperr"
	"leaddesk_backend/platform/logger"
	"leaddesk_backend/platform/phone"
	"leaddesk_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	msgLeadNotFound     = "lead not found"
	msgArchivedNotFound = "archived lead not found"
)

// Repository defines the data access interface needed by the management service.
// This is a consumer-driven interface - only what management needs.
type Repository interface {
	repository.LeadReader
	repository.LeadWriter
	repository.ArchiveStore
}

// Service handles lead management operations.
type Service struct {
	repo     Repository
	eventBus events.Bus
	enroller ports.Enroller
	log      *logger.Logger
	now      func() time.Time
}

// New creates a new lead management service. enroller may be nil, in which
// case moving a lead to Enrolled is rejected.
func New(repo Repository, eventBus events.Bus, enroller ports.Enroller, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repo: repo, eventBus: eventBus, enroller: enroller, log: log, now: time.Now}
}

// SetEnroller wires the enrollments adapter after both modules exist.
func (s *Service) SetEnroller(enroller ports.Enroller) {
	s.enroller = enroller
}

func (s *Service) publish(ctx context.Context, kind events.DocumentKind, id uuid.UUID, op events.DocumentOp) {
	if s.eventBus == nil {
		return
	}
	s.eventBus.Publish(ctx, events.NewSearchDocumentChanged(kind, id, op))
}

// publishEnrollment refreshes the enrolled-client document of leadID, which
// carries the lead's contact details and status.
func (s *Service) publishEnrollment(ctx context.Context, leadID uuid.UUID) {
	if s.eventBus == nil || s.enroller == nil {
		return
	}
	enrollmentID, ok, err := s.enroller.EnrollmentForLead(ctx, leadID)
	if err != nil {
		s.log.IndexSkipped(string(events.KindEnrolledClient), leadID.String(), string(events.OpUpsert), err)
		return
	}
	if ok {
		s.publish(ctx, events.KindEnrolledClient, enrollmentID, events.OpUpsert)
	}
}

// Create creates a new lead.
func (s *Service) Create(ctx context.Context, req transport.CreateLeadRequest, actorID uuid.UUID) (transport.LeadResponse, error) {
	numbers := normalizeNumbers(req.ContactNumbers)
	emails := domain.NormalizeEmails(req.Emails)
	if err := checkContacts(numbers, emails); err != nil {
		return transport.LeadResponse{}, err
	}

	status := req.Status
	if status == "" {
		status = domain.StatusOpen
	}
	if status == domain.StatusEnrolled {
		return transport.LeadResponse{}, apperr.ValidationFields([]apperr.FieldError{
			{Field: "status", Message: "a lead is enrolled through a status change"},
		})
	}

	params := repository.CreateLeadParams{
		Name:           sanitize.Text(req.Name),
		ContactNumbers: numbers,
		Emails:         emails,
		PrimaryEmail:   domain.PrimaryEmail(emails),
		Source:         sanitize.TextPtr(req.Source),
		Status:         status,
		FollowUpAt:     req.FollowUpDateTime,
		Remarks:        sanitize.TextPtr(req.Remarks),
		AssignTo:       req.AssignTo,
	}
	if actorID != uuid.Nil {
		params.CreatedBy = &actorID
	}

	lead, err := s.repo.Create(ctx, params)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	s.publish(ctx, events.KindLead, lead.ID, events.OpUpsert)
	return ToLeadResponse(lead, s.now()), nil
}

// GetByID retrieves a lead by ID.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadResponse{}, apperr.NotFound(msgLeadNotFound)
		}
		return transport.LeadResponse{}, err
	}
	return ToLeadResponse(lead, s.now()), nil
}

// Update updates a lead's contact details, remarks, follow-up and assignee.
// primaryEmail is recomputed whenever emails change.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateLeadRequest, actorID uuid.UUID, actorRoles []string) (transport.LeadResponse, error) {
	params := repository.UpdateLeadParams{}

	if req.AssignTo.Set {
		current, err := s.repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return transport.LeadResponse{}, apperr.NotFound(msgLeadNotFound)
			}
			return transport.LeadResponse{}, err
		}
		if !hasRole(actorRoles, "admin") {
			if current.AssignTo == nil || *current.AssignTo != actorID {
				return transport.LeadResponse{}, apperr.Forbidden("only admins can reassign other users' leads")
			}
		}
		params.AssignTo = req.AssignTo.Value
		params.AssignToSet = true
	}

	if req.Name != nil {
		name := sanitize.Text(*req.Name)
		params.Name = &name
	}
	if req.ContactNumbers != nil {
		params.ContactNumbers = normalizeNumbers(req.ContactNumbers)
		if err := checkContacts(params.ContactNumbers, nil); err != nil {
			return transport.LeadResponse{}, err
		}
	}
	if req.Emails != nil {
		params.Emails = domain.NormalizeEmails(req.Emails)
		if err := checkContacts(nil, params.Emails); err != nil {
			return transport.LeadResponse{}, err
		}
		primary := domain.PrimaryEmail(params.Emails)
		params.PrimaryEmail = &primary
	}
	if req.Source != nil {
		params.Source = sanitize.TextPtr(req.Source)
	}
	if req.Remarks != nil {
		params.Remarks = sanitize.TextPtr(req.Remarks)
	}
	if req.FollowUpDateTime.Set {
		params.FollowUpAt = req.FollowUpDateTime.Value
		params.FollowUpAtSet = true
	}

	lead, err := s.repo.Update(ctx, id, params)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadResponse{}, apperr.NotFound(msgLeadNotFound)
		}
		return transport.LeadResponse{}, err
	}

	s.publish(ctx, events.KindLead, lead.ID, events.OpUpsert)
	s.publishEnrollment(ctx, lead.ID)
	return ToLeadResponse(lead, s.now()), nil
}

// ChangeStatus sets the raw status and follow-up time. Moving a lead to
// Enrolled first creates its enrollment, so a failure there leaves the lead
// untouched and the call can be retried.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, req transport.UpdateLeadStatusRequest, actorID uuid.UUID) (transport.StatusChangeResponse, error) {
	if !domain.IsKnownStatus(req.Status) {
		return transport.StatusChangeResponse{}, apperr.ValidationFields([]apperr.FieldError{
			{Field: "status", Message: "unknown status"},
		})
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.StatusChangeResponse{}, apperr.NotFound(msgLeadNotFound)
		}
		return transport.StatusChangeResponse{}, err
	}

	var enrollmentID *uuid.UUID
	if req.Status == domain.StatusEnrolled {
		if s.enroller == nil {
			return transport.StatusChangeResponse{}, apperr.Unavailable("enrollment is not available")
		}
		created, err := s.enroller.CreateFromLead(ctx, current.ID, req.PackageID, actorID)
		if err != nil {
			return transport.StatusChangeResponse{}, err
		}
		enrollmentID = &created
	}

	lead, err := s.repo.UpdateStatus(ctx, id, req.Status, req.FollowUpDateTime)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.StatusChangeResponse{}, apperr.NotFound(msgLeadNotFound)
		}
		return transport.StatusChangeResponse{}, err
	}

	s.publish(ctx, events.KindLead, lead.ID, events.OpUpsert)
	s.publishEnrollment(ctx, lead.ID)
	return transport.StatusChangeResponse{Lead: ToLeadResponse(lead, s.now()), EnrollmentID: enrollmentID}, nil
}

// Delete removes a lead permanently.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound(msgLeadNotFound)
		}
		return err
	}
	s.publish(ctx, events.KindLead, id, events.OpDelete)
	s.publishEnrollment(ctx, id)
	return nil
}

// List retrieves a paginated list of leads for a tab.
func (s *Service) List(ctx context.Context, req transport.ListLeadsRequest) (transport.LeadListResponse, error) {
	req.Page, req.PageSize = clampPage(req.Page, req.PageSize)

	group, filtered, err := domain.ParseGroup(req.Tab)
	if err != nil {
		return transport.LeadListResponse{}, apperr.ValidationFields([]apperr.FieldError{
			{Field: "tab", Message: "must be one of " + strings.Join(domain.TabNames(), " ")},
		})
	}

	now := s.now()
	params := repository.ListParams{
		Search:    strings.TrimSpace(req.Search),
		AssignTo:  req.AssignTo,
		Now:       now,
		Offset:    (req.Page - 1) * req.PageSize,
		Limit:     req.PageSize,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}
	if filtered {
		params.Group = &group
	}

	leads, total, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.LeadListResponse{}, err
	}

	items := make([]transport.LeadResponse, len(leads))
	for i, lead := range leads {
		items[i] = ToLeadResponse(lead, now)
	}

	return transport.LeadListResponse{
		Items:      items,
		Total:      total,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPages: totalPages(total, req.PageSize),
	}, nil
}

// Archive moves a lead to the archive with a reason.
func (s *Service) Archive(ctx context.Context, id uuid.UUID, reason string, actorID uuid.UUID) (transport.ArchivedLeadResponse, error) {
	reason = sanitize.Text(reason)
	if reason == "" {
		return transport.ArchivedLeadResponse{}, apperr.ValidationFields([]apperr.FieldError{
			{Field: "reason", Message: "is required"},
		})
	}

	var archivedBy *uuid.UUID
	if actorID != uuid.Nil {
		archivedBy = &actorID
	}

	archived, err := s.repo.Archive(ctx, id, reason, archivedBy)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.ArchivedLeadResponse{}, apperr.NotFound(msgLeadNotFound)
		}
		return transport.ArchivedLeadResponse{}, err
	}

	s.publish(ctx, events.KindLead, id, events.OpDelete)
	s.publish(ctx, events.KindArchivedLead, id, events.OpUpsert)
	s.publishEnrollment(ctx, id)
	return ToArchivedLeadResponse(archived, s.now()), nil
}

// Restore moves an archived lead back to the live table.
func (s *Service) Restore(ctx context.Context, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.repo.Restore(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrArchivedNotFound) {
			return transport.LeadResponse{}, apperr.NotFound(msgArchivedNotFound)
		}
		return transport.LeadResponse{}, err
	}

	s.publish(ctx, events.KindArchivedLead, id, events.OpDelete)
	s.publish(ctx, events.KindLead, id, events.OpUpsert)
	s.publishEnrollment(ctx, id)
	return ToLeadResponse(lead, s.now()), nil
}

// GetArchived retrieves one archived lead.
func (s *Service) GetArchived(ctx context.Context, id uuid.UUID) (transport.ArchivedLeadResponse, error) {
	a, err := s.repo.GetArchivedByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrArchivedNotFound) {
			return transport.ArchivedLeadResponse{}, apperr.NotFound(msgArchivedNotFound)
		}
		return transport.ArchivedLeadResponse{}, err
	}
	return ToArchivedLeadResponse(a, s.now()), nil
}

// ListArchived retrieves a paginated list of archived leads.
func (s *Service) ListArchived(ctx context.Context, req transport.ListArchivedRequest) (transport.ArchivedLeadListResponse, error) {
	req.Page, req.PageSize = clampPage(req.Page, req.PageSize)

	items, total, err := s.repo.ListArchived(ctx, strings.TrimSpace(req.Search), req.PageSize, (req.Page-1)*req.PageSize)
	if err != nil {
		return transport.ArchivedLeadListResponse{}, err
	}

	now := s.now()
	out := make([]transport.ArchivedLeadResponse, len(items))
	for i, a := range items {
		out[i] = ToArchivedLeadResponse(a, now)
	}

	return transport.ArchivedLeadListResponse{
		Items:      out,
		Total:      total,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPages: totalPages(total, req.PageSize),
	}, nil
}

// DeleteArchived removes an archived lead permanently.
func (s *Service) DeleteArchived(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteArchived(ctx, id); err != nil {
		if errors.Is(err, repository.ErrArchivedNotFound) {
			return apperr.NotFound(msgArchivedNotFound)
		}
		return err
	}
	s.publish(ctx, events.KindArchivedLead, id, events.OpDelete)
	s.publishEnrollment(ctx, id)
	return nil
}

func normalizeNumbers(numbers []string) []string {
	out := make([]string, 0, len(numbers))
	for _, n := range numbers {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		out = append(out, phone.NormalizeE164(n))
	}
	return out
}

// checkContacts enforces 1 to 2 entries for each list it is given; nil
// lists are skipped.
func checkContacts(numbers, emails []string) error {
	var fields []apperr.FieldError
	if numbers != nil && (len(numbers) < 1 || len(numbers) > 2) {
		fields = append(fields, apperr.FieldError{Field: "contactNumbers", Message: "must contain 1 or 2 numbers"})
	}
	if emails != nil && (len(emails) < 1 || len(emails) > 2) {
		fields = append(fields, apperr.FieldError{Field: "emails", Message: "must contain 1 or 2 emails"})
	}
	if len(fields) > 0 {
		return apperr.ValidationFields(fields)
	}
	return nil
}

func clampPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

func hasRole(roles []string, target string) bool {
	for _, role := range roles {
		if role == target {
			return true
		}
	}
	return false
}
