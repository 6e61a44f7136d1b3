package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"leaddesk_backend/internal/packages/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("package not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Package struct {
	ID                uuid.UUID
	Name              string
	Description       *string
	EnrollmentCharge  decimal.Decimal
	OfferLetterCharge decimal.Decimal
	IsActive          bool
	Discounts         []domain.Discount
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type CreatePackageParams struct {
	Name              string
	Description       *string
	EnrollmentCharge  decimal.Decimal
	OfferLetterCharge decimal.Decimal
	IsActive          bool
}

type UpdatePackageParams struct {
	Name              *string
	Description       *string
	EnrollmentCharge  *decimal.Decimal
	OfferLetterCharge *decimal.Decimal
	IsActive          *bool
}

const packageColumns = `id, name, description, enrollment_charge, offer_letter_charge, is_active, discounts, created_at, updated_at`

func scanPackage(row pgx.Row) (Package, error) {
	var (
		p   Package
		raw []byte
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.EnrollmentCharge, &p.OfferLetterCharge,
		&p.IsActive, &raw, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Package{}, err
	}
	discounts, err := decodeDiscounts(raw)
	if err != nil {
		return Package{}, fmt.Errorf("package %s: %w", p.ID, err)
	}
	p.Discounts = discounts
	return p, nil
}

func decodeDiscounts(raw []byte) ([]domain.Discount, error) {
	out := []domain.Discount{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode discounts: %w", err)
	}
	return out, nil
}

func encodeDiscounts(list []domain.Discount) ([]byte, error) {
	if list == nil {
		list = []domain.Discount{}
	}
	return json.Marshal(list)
}

func (r *Repository) Create(ctx context.Context, params CreatePackageParams) (Package, error) {
	return scanPackage(r.pool.QueryRow(ctx, `
		INSERT INTO packages (name, description, enrollment_charge, offer_letter_charge, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+packageColumns,
		params.Name, params.Description, params.EnrollmentCharge, params.OfferLetterCharge, params.IsActive))
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Package, error) {
	p, err := scanPackage(r.pool.QueryRow(ctx, `SELECT `+packageColumns+` FROM packages WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Package{}, ErrNotFound
	}
	return p, err
}

// List returns packages by name. activeOnly hides retired packages.
func (r *Repository) List(ctx context.Context, activeOnly bool) ([]Package, error) {
	query := `SELECT ` + packageColumns + ` FROM packages`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY name, id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Package, 0)
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, params UpdatePackageParams) (Package, error) {
	setClauses := []string{}
	args := []interface{}{}
	argIdx := 1

	fields := []struct {
		enabled bool
		column  string
		value   interface{}
	}{
		{params.Name != nil, "name", params.Name},
		{params.Description != nil, "description", params.Description},
		{params.EnrollmentCharge != nil, "enrollment_charge", params.EnrollmentCharge},
		{params.OfferLetterCharge != nil, "offer_letter_charge", params.OfferLetterCharge},
		{params.IsActive != nil, "is_active", params.IsActive},
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

	query := fmt.Sprintf(`UPDATE packages SET %s WHERE id = $%d RETURNING `+packageColumns,
		strings.Join(setClauses, ", "), argIdx)

	p, err := scanPackage(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Package{}, ErrNotFound
	}
	return p, err
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM packages WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MutateDiscounts locks the package row, hands its discount list to fn and
// stores the list fn returns. Nothing is written when fn fails.
func (r *Repository) MutateDiscounts(ctx context.Context, id uuid.UUID, fn func([]domain.Discount) ([]domain.Discount, error)) (Package, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Package{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var raw []byte
	err = tx.QueryRow(ctx, `SELECT discounts FROM packages WHERE id = $1 FOR UPDATE`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return Package{}, ErrNotFound
	}
	if err != nil {
		return Package{}, err
	}

	current, err := decodeDiscounts(raw)
	if err != nil {
		return Package{}, err
	}
	next, err := fn(current)
	if err != nil {
		return Package{}, err
	}
	encoded, err := encodeDiscounts(next)
	if err != nil {
		return Package{}, err
	}

	p, err := scanPackage(tx.QueryRow(ctx, `
		UPDATE packages SET discounts = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+packageColumns, id, encoded))
	if err != nil {
		return Package{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Package{}, err
	}
	return p, nil
}

// ListIDsWithExpiredDiscounts returns packages holding at least one discount
// that ended at or before now. Candidates only: the purge re-checks under
// the row lock.
func (r *Repository) ListIDsWithExpiredDiscounts(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id FROM packages p
		WHERE EXISTS (
			SELECT 1 FROM jsonb_array_elements(p.discounts) d
			WHERE (d->>'endDateTime')::timestamptz <= $1
		)
		ORDER BY p.id`, now)
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
