package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"leaddesk_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound         = errors.New("lead not found")
	ErrArchivedNotFound = errors.New("archived lead not found")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Lead struct {
	ID             uuid.UUID
	Name           string
	ContactNumbers []string
	Emails         []string
	PrimaryEmail   string
	Source         *string
	Status         string
	FollowUpAt     *time.Time
	Remarks        *string
	AssignTo       *uuid.UUID
	CreatedBy      *uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type ArchivedLead struct {
	Lead
	ArchiveReason string
	ArchivedBy    *uuid.UUID
	ArchivedAt    time.Time
}

type CreateLeadParams struct {
	Name           string
	ContactNumbers []string
	Emails         []string
	PrimaryEmail   string
	Source         *string
	Status         string
	FollowUpAt     *time.Time
	Remarks        *string
	AssignTo       *uuid.UUID
	CreatedBy      *uuid.UUID
}

// UpdateLeadParams holds the columns to change. A nil pointer leaves the
// column alone; the *Set flags allow clearing nullable columns.
type UpdateLeadParams struct {
	Name           *string
	ContactNumbers []string
	Emails         []string
	PrimaryEmail   *string
	Source         *string
	Remarks        *string
	AssignTo       *uuid.UUID
	AssignToSet    bool
	FollowUpAt     *time.Time
	FollowUpAtSet  bool
}

const leadColumns = `id, name, contact_numbers, emails, primary_email, source, status, follow_up_at,
	remarks, assign_to, created_by, created_at, updated_at`

const archivedColumns = leadColumns + `, archive_reason, archived_by, archived_at`

func scanLead(row pgx.Row) (Lead, error) {
	var lead Lead
	err := row.Scan(
		&lead.ID, &lead.Name, &lead.ContactNumbers, &lead.Emails, &lead.PrimaryEmail, &lead.Source,
		&lead.Status, &lead.FollowUpAt, &lead.Remarks, &lead.AssignTo, &lead.CreatedBy,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	return lead, err
}

func scanArchived(row pgx.Row) (ArchivedLead, error) {
	var a ArchivedLead
	err := row.Scan(
		&a.ID, &a.Name, &a.ContactNumbers, &a.Emails, &a.PrimaryEmail, &a.Source,
		&a.Status, &a.FollowUpAt, &a.Remarks, &a.AssignTo, &a.CreatedBy,
		&a.CreatedAt, &a.UpdatedAt, &a.ArchiveReason, &a.ArchivedBy, &a.ArchivedAt,
	)
	return a, err
}

func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (name, contact_numbers, emails, primary_email, source, status, follow_up_at, remarks, assign_to, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+leadColumns,
		params.Name, params.ContactNumbers, params.Emails, params.PrimaryEmail, params.Source,
		params.Status, params.FollowUpAt, params.Remarks, params.AssignTo, params.CreatedBy,
	)
	return scanLead(row)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, params UpdateLeadParams) (Lead, error) {
	setClauses := []string{}
	args := []interface{}{}
	argIdx := 1

	fields := []struct {
		enabled bool
		column  string
		value   interface{}
	}{
		{params.Name != nil, "name", params.Name},
		{params.ContactNumbers != nil, "contact_numbers", params.ContactNumbers},
		{params.Emails != nil, "emails", params.Emails},
		{params.PrimaryEmail != nil, "primary_email", params.PrimaryEmail},
		{params.Source != nil, "source", params.Source},
		{params.Remarks != nil, "remarks", params.Remarks},
		{params.AssignToSet, "assign_to", params.AssignTo},
		{params.FollowUpAtSet, "follow_up_at", params.FollowUpAt},
	}

	for _, field := range fields {
		if !field.enabled {
			continue
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", field.column, argIdx))
		args = append(args, field.value)
		argIdx++
	}

	if len(setClauses) == 0 {
		return r.GetByID(ctx, id)
	}

	setClauses = append(setClauses, "updated_at = now()")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE leads SET %s WHERE id = $%d RETURNING `+leadColumns,
		strings.Join(setClauses, ", "), argIdx)

	lead, err := scanLead(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

// UpdateStatus sets the raw status and the follow-up time together; the
// pair decides the lead's queue.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, followUpAt *time.Time) (Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads SET status = $2, follow_up_at = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns, id, status, followUpAt))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type ListParams struct {
	Search   string
	Group    *domain.StatusGroup
	AssignTo *uuid.UUID
	Now      time.Time
	Offset   int
	Limit    int
	SortBy   string
	// SortOrder is "asc" or "desc".
	SortOrder string
}

func (r *Repository) List(ctx context.Context, params ListParams) ([]Lead, int, error) {
	whereClause, args, argIdx, err := buildLeadListWhere(params)
	if err != nil {
		return nil, 0, err
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM leads l WHERE %s", whereClause)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sortOrder := "DESC"
	if params.SortOrder == "asc" {
		sortOrder = "ASC"
	}
	args = append(args, params.Limit, params.Offset)

	query := fmt.Sprintf(`
		SELECT %s
		FROM leads l
		WHERE %s
		ORDER BY %s %s, l.id
		LIMIT $%d OFFSET $%d
	`, prefixed("l", leadColumns), whereClause, mapLeadSortColumn(params.SortBy), sortOrder, argIdx, argIdx+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, err
		}
		leads = append(leads, lead)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}

	return leads, total, nil
}

func buildLeadListWhere(params ListParams) (string, []interface{}, int, error) {
	whereClauses := []string{"TRUE"}
	args := []interface{}{}
	argIdx := 1

	if params.Group != nil {
		filter, err := domain.FilterFor(*params.Group)
		if err != nil {
			return "", nil, 0, err
		}
		var clauses []string
		clauses, args, argIdx = groupFilterClauses(filter, "l", params.Now, args, argIdx)
		whereClauses = append(whereClauses, clauses...)
	}
	if params.AssignTo != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("l.assign_to = $%d", argIdx))
		args = append(args, *params.AssignTo)
		argIdx++
	}
	if params.Search != "" {
		whereClauses = append(whereClauses, fmt.Sprintf(
			`(l.name ILIKE $%[1]d ESCAPE '\' OR l.primary_email ILIKE $%[1]d ESCAPE '\' OR array_to_string(l.contact_numbers, ' ') ILIKE $%[1]d ESCAPE '\' OR array_to_string(l.emails, ' ') ILIKE $%[1]d ESCAPE '\')`,
			argIdx,
		))
		args = append(args, containsPattern(params.Search))
		argIdx++
	}

	return strings.Join(whereClauses, " AND "), args, argIdx, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern matches term literally anywhere in the column.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

// groupFilterClauses renders a GroupFilter as SQL predicates on alias.
// The follow-up window bounds are bound as parameters so the database and
// the in-memory deriver evaluate the same instant.
func groupFilterClauses(f domain.GroupFilter, alias string, now time.Time, args []interface{}, argIdx int) ([]string, []interface{}, int) {
	clauses := []string{}
	if len(f.Statuses) > 0 {
		clauses = append(clauses, fmt.Sprintf("%s.status = ANY($%d)", alias, argIdx))
		args = append(args, f.Statuses)
		argIdx++
	}
	if len(f.ExcludeStatuses) > 0 {
		clauses = append(clauses, fmt.Sprintf("NOT (%s.status = ANY($%d))", alias, argIdx))
		args = append(args, f.ExcludeStatuses)
		argIdx++
	}

	after, until := domain.FollowUpWindow(now)
	switch f.Window {
	case domain.WindowRequire:
		clauses = append(clauses, fmt.Sprintf("(%[1]s.follow_up_at > $%[2]d AND %[1]s.follow_up_at <= $%[3]d)", alias, argIdx, argIdx+1))
		args = append(args, after, until)
		argIdx += 2
	case domain.WindowExclude:
		clauses = append(clauses, fmt.Sprintf("(%[1]s.follow_up_at IS NULL OR %[1]s.follow_up_at <= $%[2]d OR %[1]s.follow_up_at > $%[3]d)", alias, argIdx, argIdx+1))
		args = append(args, after, until)
		argIdx += 2
	}
	return clauses, args, argIdx
}

func mapLeadSortColumn(sortBy string) string {
	switch sortBy {
	case "name":
		return "l.name"
	case "followUpDateTime":
		return "l.follow_up_at"
	case "status":
		return "l.status"
	case "updatedAt":
		return "l.updated_at"
	default:
		return "l.created_at"
	}
}

func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// Archive moves a lead into archived_leads in one transaction.
func (r *Repository) Archive(ctx context.Context, id uuid.UUID, reason string, archivedBy *uuid.UUID) (ArchivedLead, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return ArchivedLead{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	archived, err := scanArchived(tx.QueryRow(ctx, `
		INSERT INTO archived_leads (id, name, contact_numbers, emails, primary_email, source, status, follow_up_at,
			remarks, assign_to, created_by, created_at, updated_at, archive_reason, archived_by)
		SELECT id, name, contact_numbers, emails, primary_email, source, status, follow_up_at,
			remarks, assign_to, created_by, created_at, now(), $2, $3
		FROM leads WHERE id = $1
		RETURNING `+archivedColumns, id, reason, archivedBy))
	if errors.Is(err, pgx.ErrNoRows) {
		return ArchivedLead{}, ErrNotFound
	}
	if err != nil {
		return ArchivedLead{}, err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id); err != nil {
		return ArchivedLead{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return ArchivedLead{}, err
	}
	return archived, nil
}

// Restore moves an archived lead back into leads in one transaction.
func (r *Repository) Restore(ctx context.Context, id uuid.UUID) (Lead, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Lead{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	lead, err := scanLead(tx.QueryRow(ctx, `
		INSERT INTO leads (id, name, contact_numbers, emails, primary_email, source, status, follow_up_at,
			remarks, assign_to, created_by, created_at, updated_at)
		SELECT id, name, contact_numbers, emails, primary_email, source, status, follow_up_at,
			remarks, assign_to, created_by, created_at, now()
		FROM archived_leads WHERE id = $1
		RETURNING `+leadColumns, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrArchivedNotFound
	}
	if err != nil {
		return Lead{}, err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM archived_leads WHERE id = $1`, id); err != nil {
		return Lead{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Lead{}, err
	}
	return lead, nil
}

func (r *Repository) GetArchivedByID(ctx context.Context, id uuid.UUID) (ArchivedLead, error) {
	a, err := scanArchived(r.pool.QueryRow(ctx, `SELECT `+archivedColumns+` FROM archived_leads WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return ArchivedLead{}, ErrArchivedNotFound
	}
	return a, err
}

func (r *Repository) ListArchived(ctx context.Context, search string, limit, offset int) ([]ArchivedLead, int, error) {
	where := "TRUE"
	args := []interface{}{}
	if search != "" {
		where = `(name ILIKE $1 ESCAPE '\' OR primary_email ILIKE $1 ESCAPE '\' OR array_to_string(contact_numbers, ' ') ILIKE $1 ESCAPE '\')`
		args = append(args, containsPattern(search))
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM archived_leads WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM archived_leads WHERE %s ORDER BY archived_at DESC, id LIMIT $%d OFFSET $%d`,
		archivedColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]ArchivedLead, 0)
	for rows.Next() {
		a, err := scanArchived(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}
	return items, total, nil
}

func (r *Repository) DeleteArchived(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM archived_leads WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrArchivedNotFound
	}
	return nil
}
