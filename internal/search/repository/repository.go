// Package repository loads search documents from the relational store.
// It joins assignee and creator names so documents are self-contained.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leaddesk_backend/internal/events"
	"leaddesk_backend/internal/search/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound means the record no longer exists and its document should go.
var ErrNotFound = errors.New("search source record not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const personColumns = `
	au.id, au.name, au.email,
	cu.id, cu.name, cu.email`

type personCols struct {
	assignID, createdID       *uuid.UUID
	assignName, assignEmail   *string
	createdName, createdEmail *string
}

func (p *personCols) targets() []any {
	return []any{&p.assignID, &p.assignName, &p.assignEmail, &p.createdID, &p.createdName, &p.createdEmail}
}

func (p personCols) apply(doc *domain.Document) {
	doc.AssignTo = person(p.assignID, p.assignName, p.assignEmail)
	doc.CreatedBy = person(p.createdID, p.createdName, p.createdEmail)
}

func person(id *uuid.UUID, name, email *string) *domain.Person {
	if id == nil {
		return nil
	}
	p := &domain.Person{ID: *id}
	if name != nil {
		p.Name = *name
	}
	if email != nil {
		p.Email = *email
	}
	return p
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Load returns the current document for a record, or ErrNotFound.
func (r *Repository) Load(ctx context.Context, kind events.DocumentKind, id uuid.UUID) (domain.Document, error) {
	var (
		doc domain.Document
		err error
	)
	switch kind {
	case events.KindLead:
		doc, err = r.loadLead(ctx, id)
	case events.KindArchivedLead:
		doc, err = r.loadArchived(ctx, id)
	case events.KindEnrolledClient:
		doc, err = r.loadEnrolled(ctx, id)
	default:
		return domain.Document{}, fmt.Errorf("unknown document kind %q", kind)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Document{}, ErrNotFound
	}
	return doc, err
}

func (r *Repository) loadLead(ctx context.Context, id uuid.UUID) (domain.Document, error) {
	doc := domain.Document{Kind: events.KindLead}
	var (
		people          personCols
		source, remarks *string
	)
	targets := []any{
		&doc.ID, &doc.Name, &doc.ContactNumbers, &doc.Emails, &doc.PrimaryEmail, &source,
		&doc.Status, &doc.FollowUpAt, &remarks, &doc.CreatedAt, &doc.UpdatedAt,
	}
	err := r.pool.QueryRow(ctx, `
		SELECT l.id, l.name, l.contact_numbers, l.emails, l.primary_email, l.source,
			l.status, l.follow_up_at, l.remarks, l.created_at, l.updated_at,`+personColumns+`
		FROM leads l
		LEFT JOIN users au ON au.id = l.assign_to
		LEFT JOIN users cu ON cu.id = l.created_by
		WHERE l.id = $1`, id).Scan(append(targets, people.targets()...)...)
	if err != nil {
		return domain.Document{}, err
	}
	doc.Source, doc.Remarks = deref(source), deref(remarks)
	people.apply(&doc)
	return doc, nil
}

func (r *Repository) loadArchived(ctx context.Context, id uuid.UUID) (domain.Document, error) {
	doc := domain.Document{Kind: events.KindArchivedLead}
	var (
		people          personCols
		source, remarks *string
		archivedAt      time.Time
	)
	targets := []any{
		&doc.ID, &doc.Name, &doc.ContactNumbers, &doc.Emails, &doc.PrimaryEmail, &source,
		&doc.Status, &doc.FollowUpAt, &remarks, &doc.CreatedAt, &doc.UpdatedAt,
		&doc.ArchiveReason, &archivedAt,
	}
	err := r.pool.QueryRow(ctx, `
		SELECT a.id, a.name, a.contact_numbers, a.emails, a.primary_email, a.source,
			a.status, a.follow_up_at, a.remarks, a.created_at, a.updated_at,
			a.archive_reason, a.archived_at,`+personColumns+`
		FROM archived_leads a
		LEFT JOIN users au ON au.id = a.assign_to
		LEFT JOIN users cu ON cu.id = a.created_by
		WHERE a.id = $1`, id).Scan(append(targets, people.targets()...)...)
	if err != nil {
		return domain.Document{}, err
	}
	doc.Source, doc.Remarks = deref(source), deref(remarks)
	doc.ArchivedAt = &archivedAt
	people.apply(&doc)
	return doc, nil
}

// loadEnrolled takes contact details from the lead the client came from,
// which may since have been archived.
func (r *Repository) loadEnrolled(ctx context.Context, id uuid.UUID) (domain.Document, error) {
	doc := domain.Document{Kind: events.KindEnrolledClient}
	var (
		people      personCols
		leadID      uuid.UUID
		name        *string
		numbers     []string
		emails      []string
		primary     *string
		source      *string
		status      *string
		packageName *string
		pricing     domain.Approval
		final       domain.Approval
	)
	targets := []any{
		&doc.ID, &leadID, &name, &numbers, &emails, &primary, &source, &status, &packageName,
		&pricing.BySales, &pricing.ByAdmin, &pricing.HasUpdate,
		&final.BySales, &final.ByAdmin, &final.HasUpdate,
		&doc.CreatedAt, &doc.UpdatedAt,
	}
	err := r.pool.QueryRow(ctx, `
		SELECT e.id, e.lead_id,
			COALESCE(l.name, a.name), COALESCE(l.contact_numbers, a.contact_numbers),
			COALESCE(l.emails, a.emails), COALESCE(l.primary_email, a.primary_email),
			COALESCE(l.source, a.source), COALESCE(l.status, a.status), p.name,
			e.approval_by_sales, e.approval_by_admin, e.has_update,
			e.final_approval_sales, e.final_approval_by_admin, e.has_update_in_final,
			e.created_at, e.updated_at,`+personColumns+`
		FROM enrolled_clients e
		LEFT JOIN leads l ON l.id = e.lead_id
		LEFT JOIN archived_leads a ON a.id = e.lead_id
		LEFT JOIN packages p ON p.id = e.package_id
		LEFT JOIN users au ON au.id = COALESCE(l.assign_to, a.assign_to)
		LEFT JOIN users cu ON cu.id = e.created_by
		WHERE e.id = $1`, id).Scan(append(targets, people.targets()...)...)
	if err != nil {
		return domain.Document{}, err
	}

	doc.LeadID = &leadID
	doc.Name = deref(name)
	doc.ContactNumbers = numbers
	doc.Emails = emails
	doc.PrimaryEmail = deref(primary)
	doc.Source = deref(source)
	doc.Status = deref(status)
	doc.PackageName = deref(packageName)
	doc.Pricing = &pricing
	doc.FinalApproval = &final
	people.apply(&doc)
	return doc, nil
}

// ListIDs returns the id of every record of kind, for a full reindex.
func (r *Repository) ListIDs(ctx context.Context, kind events.DocumentKind) ([]uuid.UUID, error) {
	var table string
	switch kind {
	case events.KindLead:
		table = "leads"
	case events.KindArchivedLead:
		table = "archived_leads"
	case events.KindEnrolledClient:
		table = "enrolled_clients"
	default:
		return nil, fmt.Errorf("unknown document kind %q", kind)
	}

	return r.queryIDs(ctx, `SELECT id FROM `+table+` ORDER BY id`)
}

// EnrolledIDsForPackage returns the enrollments whose documents carry the
// name of packageID.
func (r *Repository) EnrolledIDsForPackage(ctx context.Context, packageID uuid.UUID) ([]uuid.UUID, error) {
	return r.queryIDs(ctx, `SELECT id FROM enrolled_clients WHERE package_id = $1 ORDER BY id`, packageID)
}

func (r *Repository) queryIDs(ctx context.Context, query string, args ...any) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
