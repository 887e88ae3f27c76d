package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

const benefitColumns = `
	id, name, description, category, coverage_amount, monthly_premium, deductible,
	min_age, max_age, requires_active_duty, plan_code, is_active, effective_date,
	created_at, updated_at`

func scanBenefit(row pgx.Row) (*Benefit, error) {
	var b Benefit
	err := row.Scan(
		&b.ID, &b.Name, &b.Description, &b.Category, &b.CoverageAmount, &b.MonthlyPremium, &b.Deductible,
		&b.MinAge, &b.MaxAge, &b.RequiresActiveDuty, &b.PlanCode, &b.IsActive, &b.EffectiveDate,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// BenefitFilter narrows ListBenefits results
type BenefitFilter struct {
	Category   string
	ActiveOnly bool
}

// ListBenefits returns benefits matching the filter, ordered by category and name
func (s *Store) ListBenefits(ctx context.Context, filter BenefitFilter) ([]Benefit, error) {
	query := `select` + benefitColumns + ` from benefits where 1=1`
	var args []any
	if filter.Category != "" {
		args = append(args, filter.Category)
		query += ` and category=$1`
	}
	if filter.ActiveOnly {
		query += ` and is_active`
	}
	query += ` order by category, name`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Benefit
	for rows.Next() {
		b, err := scanBenefit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// GetBenefit fetches a benefit by ID
func (s *Store) GetBenefit(ctx context.Context, id int64) (*Benefit, error) {
	row := s.pool.QueryRow(ctx,
		`select`+benefitColumns+` from benefits where id=$1`, id)
	return scanBenefit(row)
}

// GetBenefitByPlanCode fetches a benefit by plan code
func (s *Store) GetBenefitByPlanCode(ctx context.Context, code string) (*Benefit, error) {
	row := s.pool.QueryRow(ctx,
		`select`+benefitColumns+` from benefits where plan_code=$1`, code)
	return scanBenefit(row)
}
