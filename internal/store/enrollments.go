package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

const enrollmentColumns = `
	e.id, e.member_id, e.benefit_id,
	e.enrollment_date, e.effective_date, e.termination_date, e.is_active,
	e.coverage_amount, e.monthly_premium,
	e.beneficiary_name, e.beneficiary_relationship,
	e.created_at, e.updated_at`

func scanEnrollmentDetail(row pgx.Row) (*EnrollmentDetail, error) {
	var d EnrollmentDetail
	err := row.Scan(
		&d.ID, &d.MemberID, &d.BenefitID,
		&d.EnrollmentDate, &d.EffectiveDate, &d.TerminationDate, &d.IsActive,
		&d.CoverageAmount, &d.MonthlyPremium,
		&d.BeneficiaryName, &d.BeneficiaryRelationship,
		&d.CreatedAt, &d.UpdatedAt,
		&d.BenefitName, &d.BenefitCategory, &d.PlanCode,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// ListEnrollments returns a member's enrollments joined with benefit details
func (s *Store) ListEnrollments(ctx context.Context, memberID int64, activeOnly bool) ([]EnrollmentDetail, error) {
	query := `select` + enrollmentColumns + `, b.name, b.category, b.plan_code
		from enrollments e
		join benefits b on b.id = e.benefit_id
		where e.member_id=$1`
	if activeOnly {
		query += ` and e.is_active`
	}
	query += ` order by e.enrollment_date desc, e.id desc`

	rows, err := s.pool.Query(ctx, query, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EnrollmentDetail
	for rows.Next() {
		d, err := scanEnrollmentDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// GetEnrollment fetches one enrollment belonging to a member
func (s *Store) GetEnrollment(ctx context.Context, memberID, enrollmentID int64) (*EnrollmentDetail, error) {
	row := s.pool.QueryRow(ctx, `select`+enrollmentColumns+`, b.name, b.category, b.plan_code
		from enrollments e
		join benefits b on b.id = e.benefit_id
		where e.id=$1 and e.member_id=$2`, enrollmentID, memberID)
	return scanEnrollmentDetail(row)
}

// HasActiveEnrollment reports whether the member is actively enrolled in the benefit
func (s *Store) HasActiveEnrollment(ctx context.Context, memberID, benefitID int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		select exists(
			select 1 from enrollments
			where member_id=$1 and benefit_id=$2 and is_active
		)`, memberID, benefitID).Scan(&exists)
	return exists, err
}

// NewEnrollmentParams holds the fields needed to create an enrollment
type NewEnrollmentParams struct {
	MemberID                int64
	BenefitID               int64
	CoverageAmount          float64
	MonthlyPremium          float64
	BeneficiaryName         string
	BeneficiaryRelationship string
}

// CreateEnrollment inserts an enrollment effective the first of next month.
// Returns ErrDuplicate if the member already has an active enrollment in the benefit.
func (s *Store) CreateEnrollment(ctx context.Context, p NewEnrollmentParams) (*EnrollmentDetail, error) {
	effective := NextEffectiveDate(time.Now().UTC())

	var id int64
	err := s.pool.QueryRow(ctx, `
		insert into enrollments (
			member_id, benefit_id, enrollment_date, effective_date, is_active,
			coverage_amount, monthly_premium, beneficiary_name, beneficiary_relationship
		) values ($1, $2, current_date, $3, true, $4, $5, $6, $7)
		returning id`,
		p.MemberID, p.BenefitID, effective,
		p.CoverageAmount, p.MonthlyPremium, p.BeneficiaryName, p.BeneficiaryRelationship,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}

	return s.GetEnrollment(ctx, p.MemberID, id)
}

// CancelEnrollment schedules an enrollment's termination. Coverage runs
// through the end of the current month; the nightly sweep deactivates the
// row once the termination date has passed. Canceling twice is ErrNotFound.
func (s *Store) CancelEnrollment(ctx context.Context, memberID, enrollmentID int64) error {
	termination := TerminationDate(time.Now().UTC())
	tag, err := s.pool.Exec(ctx, `
		update enrollments
		set termination_date=$3, updated_at=now()
		where id=$1 and member_id=$2 and is_active and termination_date is null`,
		enrollmentID, memberID, termination)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetDashboard assembles a member's coverage summary from active enrollments
func (s *Store) GetDashboard(ctx context.Context, memberID int64) (*Dashboard, error) {
	member, err := s.GetMember(ctx, memberID)
	if err != nil {
		return nil, err
	}

	enrollments, err := s.ListEnrollments(ctx, memberID, true)
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		Member:      member,
		Enrollments: enrollments,
	}
	for _, e := range enrollments {
		d.TotalMonthlyPremium += e.MonthlyPremium
		d.TotalCoverage += e.CoverageAmount
	}
	return d, nil
}

// SweepExpiredEnrollments deactivates enrollments whose termination date has
// passed but are still flagged active. Returns the number of rows updated.
func (s *Store) SweepExpiredEnrollments(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		update enrollments
		set is_active=false, updated_at=now()
		where is_active and termination_date is not null and termination_date < current_date`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
