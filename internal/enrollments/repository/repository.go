package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"leaddesk_backend/internal/enrollments/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("enrollment not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Enrollment is one enrolled client: the pricing negotiation, the final
// terms negotiation and bookkeeping.
type Enrollment struct {
	ID        uuid.UUID
	LeadID    uuid.UUID
	PackageID *uuid.UUID
	Pricing   domain.Negotiation[domain.Pricing]
	Final     domain.Negotiation[domain.FinalTerms]
	Version   int
	CreatedBy *uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

type CreateParams struct {
	LeadID    uuid.UUID
	PackageID *uuid.UUID
	Pricing   domain.Pricing
	CreatedBy *uuid.UUID
}

const enrollmentColumns = `id, lead_id, package_id,
	enrollment_charge, offer_letter_charge, first_year_percentage, first_year_fixed_charge, first_year_salary,
	edited_enrollment_charge, edited_offer_letter_charge, edited_first_year_percentage, edited_first_year_fixed_charge, edited_first_year_salary,
	approval_by_sales, approval_by_admin, has_update, edited_by,
	final_first_year_charge, installments, edited_final_first_year_charge, edited_installments,
	final_approval_sales, final_approval_by_admin, has_update_in_final, final_edited_by,
	version, created_by, created_at, updated_at`

type pricingCols struct {
	enrollment, offerLetter, percentage, fixed, salary decimal.NullDecimal
}

func (p *pricingCols) targets() []any {
	return []any{&p.enrollment, &p.offerLetter, &p.percentage, &p.fixed, &p.salary}
}

func (p pricingCols) toPricing() domain.Pricing {
	return domain.Pricing{
		EnrollmentCharge:     fromNull(p.enrollment),
		OfferLetterCharge:    fromNull(p.offerLetter),
		FirstYearPercentage:  fromNull(p.percentage),
		FirstYearFixedCharge: fromNull(p.fixed),
		FirstYearSalary:      fromNull(p.salary),
	}
}

func (p pricingCols) empty() bool {
	return !p.enrollment.Valid && !p.offerLetter.Valid && !p.percentage.Valid && !p.fixed.Valid && !p.salary.Valid
}

func pricingArgs(p domain.Pricing) []any {
	return []any{
		toNull(p.EnrollmentCharge), toNull(p.OfferLetterCharge), toNull(p.FirstYearPercentage),
		toNull(p.FirstYearFixedCharge), toNull(p.FirstYearSalary),
	}
}

func fromNull(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

func toNull(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}

func scanEnrollment(row pgx.Row) (Enrollment, error) {
	var (
		e                         Enrollment
		live, edited              pricingCols
		editedBy, finalEditedBy   *string
		finalCharge, editedFinal  decimal.NullDecimal
		installments, editedSched []byte
	)

	targets := []any{&e.ID, &e.LeadID, &e.PackageID}
	targets = append(targets, live.targets()...)
	targets = append(targets, edited.targets()...)
	targets = append(targets,
		&e.Pricing.State.BySales, &e.Pricing.State.ByAdmin, &e.Pricing.State.HasUpdate, &editedBy,
		&finalCharge, &installments, &editedFinal, &editedSched,
		&e.Final.State.BySales, &e.Final.State.ByAdmin, &e.Final.State.HasUpdate, &finalEditedBy,
		&e.Version, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt,
	)
	if err := row.Scan(targets...); err != nil {
		return Enrollment{}, err
	}

	e.Pricing.Live = live.toPricing()
	if e.Pricing.State.HasUpdate && !edited.empty() {
		proposal := edited.toPricing()
		e.Pricing.Proposal = &proposal
	}
	if editedBy != nil {
		e.Pricing.State.EditedBy = domain.Role(*editedBy)
	}

	liveSchedule, err := decodeInstallments(installments)
	if err != nil {
		return Enrollment{}, err
	}
	e.Final.Live = domain.FinalTerms{FirstYearCharge: fromNull(finalCharge), Installments: liveSchedule}
	if e.Final.State.HasUpdate && (editedFinal.Valid || editedSched != nil) {
		schedule := liveSchedule
		if editedSched != nil {
			if schedule, err = decodeInstallments(editedSched); err != nil {
				return Enrollment{}, err
			}
		}
		proposal := domain.FinalTerms{FirstYearCharge: fromNull(editedFinal), Installments: schedule}
		e.Final.Proposal = &proposal
	}
	if finalEditedBy != nil {
		e.Final.State.EditedBy = domain.Role(*finalEditedBy)
	}

	return e, nil
}

func decodeInstallments(raw []byte) ([]domain.Installment, error) {
	out := []domain.Installment{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode installments: %w", err)
	}
	return out, nil
}

func encodeInstallments(list []domain.Installment) ([]byte, error) {
	if list == nil {
		list = []domain.Installment{}
	}
	return json.Marshal(list)
}

// Create inserts an enrollment for a lead. A second call for the same lead
// returns the existing row and created=false.
func (r *Repository) Create(ctx context.Context, params CreateParams) (Enrollment, bool, error) {
	args := []any{params.LeadID, params.PackageID}
	args = append(args, pricingArgs(params.Pricing)...)
	args = append(args, params.CreatedBy)

	e, err := scanEnrollment(r.pool.QueryRow(ctx, `
		INSERT INTO enrolled_clients (lead_id, package_id,
			enrollment_charge, offer_letter_charge, first_year_percentage, first_year_fixed_charge, first_year_salary,
			created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (lead_id) DO NOTHING
		RETURNING `+enrollmentColumns, args...))
	if err == nil {
		return e, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Enrollment{}, false, err
	}

	existing, err := r.GetByLeadID(ctx, params.LeadID)
	return existing, false, err
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Enrollment, error) {
	e, err := scanEnrollment(r.pool.QueryRow(ctx, `SELECT `+enrollmentColumns+` FROM enrolled_clients WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Enrollment{}, ErrNotFound
	}
	return e, err
}

func (r *Repository) GetByLeadID(ctx context.Context, leadID uuid.UUID) (Enrollment, error) {
	e, err := scanEnrollment(r.pool.QueryRow(ctx, `SELECT `+enrollmentColumns+` FROM enrolled_clients WHERE lead_id = $1`, leadID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Enrollment{}, ErrNotFound
	}
	return e, err
}

// List returns enrollments newest first. pendingOnly keeps those still
// waiting on either party in either phase.
func (r *Repository) List(ctx context.Context, pendingOnly bool, limit, offset int) ([]Enrollment, int, error) {
	where := "TRUE"
	if pendingOnly {
		where = `(has_update OR has_update_in_final OR NOT (approval_by_sales AND approval_by_admin)
			OR NOT (final_approval_sales AND final_approval_by_admin))`
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM enrolled_clients WHERE "+where).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM enrolled_clients
		WHERE %s
		ORDER BY updated_at DESC, id
		LIMIT $1 OFFSET $2`, enrollmentColumns, where), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]Enrollment, 0)
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}
	return items, total, nil
}

// Mutate loads the enrollment with a row lock, lets fn change it in memory
// and writes every mutable column back with the version bumped. Nothing is
// written when fn returns an error.
func (r *Repository) Mutate(ctx context.Context, id uuid.UUID, fn func(*Enrollment) error) (Enrollment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Enrollment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	e, err := scanEnrollment(tx.QueryRow(ctx, `SELECT `+enrollmentColumns+` FROM enrolled_clients WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Enrollment{}, ErrNotFound
	}
	if err != nil {
		return Enrollment{}, err
	}

	if err := fn(&e); err != nil {
		return Enrollment{}, err
	}

	args, err := mutableArgs(e)
	if err != nil {
		return Enrollment{}, err
	}
	args = append(args, id)

	updated, err := scanEnrollment(tx.QueryRow(ctx, `
		UPDATE enrolled_clients SET
			enrollment_charge = $1, offer_letter_charge = $2, first_year_percentage = $3,
			first_year_fixed_charge = $4, first_year_salary = $5,
			edited_enrollment_charge = $6, edited_offer_letter_charge = $7, edited_first_year_percentage = $8,
			edited_first_year_fixed_charge = $9, edited_first_year_salary = $10,
			approval_by_sales = $11, approval_by_admin = $12, has_update = $13, edited_by = $14,
			final_first_year_charge = $15, installments = $16, edited_final_first_year_charge = $17, edited_installments = $18,
			final_approval_sales = $19, final_approval_by_admin = $20, has_update_in_final = $21, final_edited_by = $22,
			package_id = $23,
			version = version + 1, updated_at = now()
		WHERE id = $24
		RETURNING `+enrollmentColumns, args...))
	if err != nil {
		return Enrollment{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Enrollment{}, err
	}
	return updated, nil
}

func mutableArgs(e Enrollment) ([]any, error) {
	args := pricingArgs(e.Pricing.Live)

	var proposal domain.Pricing
	if e.Pricing.Proposal != nil {
		proposal = *e.Pricing.Proposal
	}
	args = append(args, pricingArgs(proposal)...)
	args = append(args, e.Pricing.State.BySales, e.Pricing.State.ByAdmin, e.Pricing.State.HasUpdate, roleArg(e.Pricing.State.EditedBy))

	installments, err := encodeInstallments(e.Final.Live.Installments)
	if err != nil {
		return nil, err
	}
	var (
		editedCharge decimal.NullDecimal
		editedSched  []byte
	)
	if e.Final.Proposal != nil {
		editedCharge = toNull(e.Final.Proposal.FirstYearCharge)
		if editedSched, err = encodeInstallments(e.Final.Proposal.Installments); err != nil {
			return nil, err
		}
	}
	args = append(args,
		toNull(e.Final.Live.FirstYearCharge), installments, editedCharge, editedSched,
		e.Final.State.BySales, e.Final.State.ByAdmin, e.Final.State.HasUpdate, roleArg(e.Final.State.EditedBy),
		e.PackageID,
	)
	return args, nil
}

func roleArg(r domain.Role) *string {
	if r == "" {
		return nil
	}
	s := string(r)
	return &s
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM enrolled_clients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
