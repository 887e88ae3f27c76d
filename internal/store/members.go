package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

// ErrBadCredentials is returned when login fails
var ErrBadCredentials = errors.New("invalid email or password")

const memberColumns = `
	id, email, password_hash, first_name, last_name, date_of_birth,
	phone, address, city, state, zip_code,
	military_branch, service_start_date, service_end_date, rank, is_active_duty,
	member_number, membership_status, membership_start_date,
	created_at, updated_at`

func scanMember(row pgx.Row) (*Member, error) {
	var m Member
	err := row.Scan(
		&m.ID, &m.Email, &m.PasswordHash, &m.FirstName, &m.LastName, &m.DateOfBirth,
		&m.Phone, &m.Address, &m.City, &m.State, &m.ZipCode,
		&m.MilitaryBranch, &m.ServiceStartDate, &m.ServiceEndDate, &m.Rank, &m.IsActiveDuty,
		&m.MemberNumber, &m.MembershipStatus, &m.MembershipStartDate,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// GetMember fetches a member by ID
func (s *Store) GetMember(ctx context.Context, id int64) (*Member, error) {
	row := s.pool.QueryRow(ctx,
		`select`+memberColumns+` from members where id=$1`, id)
	return scanMember(row)
}

// GetMemberByEmail fetches a member by email
func (s *Store) GetMemberByEmail(ctx context.Context, email string) (*Member, error) {
	row := s.pool.QueryRow(ctx,
		`select`+memberColumns+` from members where lower(email)=lower($1)`, email)
	return scanMember(row)
}

// GetMemberByNumber fetches a member by member number
func (s *Store) GetMemberByNumber(ctx context.Context, number string) (*Member, error) {
	row := s.pool.QueryRow(ctx,
		`select`+memberColumns+` from members where member_number=$1`, number)
	return scanMember(row)
}

// NewMemberParams holds the fields needed to create a member
type NewMemberParams struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	DateOfBirth time.Time
	Phone       string
	Address     string
	City        string
	State       string
	ZipCode     string

	MilitaryBranch   string
	ServiceStartDate *time.Time
	ServiceEndDate   *time.Time
	Rank             string
	IsActiveDuty     bool
}

// CreateMember inserts a new member with a generated member number.
// Returns ErrDuplicate if the email is already registered.
func (s *Store) CreateMember(ctx context.Context, p NewMemberParams) (*Member, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var m *Member
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var count int64
		if err := tx.QueryRow(ctx, `select count(*) from members`).Scan(&count); err != nil {
			return err
		}
		number := FormatMemberNumber(time.Now().UTC(), count+1)

		row := tx.QueryRow(ctx, `
			insert into members (
				email, password_hash, first_name, last_name, date_of_birth,
				phone, address, city, state, zip_code,
				military_branch, service_start_date, service_end_date, rank, is_active_duty,
				member_number, membership_status, membership_start_date
			) values (
				$1, $2, $3, $4, $5,
				$6, $7, $8, $9, $10,
				$11, $12, $13, $14, $15,
				$16, $17, current_date
			)
			returning`+memberColumns,
			p.Email, string(hash), p.FirstName, p.LastName, p.DateOfBirth,
			p.Phone, p.Address, p.City, p.State, p.ZipCode,
			p.MilitaryBranch, p.ServiceStartDate, p.ServiceEndDate, p.Rank, p.IsActiveDuty,
			number, StatusActive,
		)
		var scanErr error
		m, scanErr = scanMember(row)
		return scanErr
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return m, nil
}

// Authenticate verifies email and password, returning the member on success
func (s *Store) Authenticate(ctx context.Context, email, password string) (*Member, error) {
	m, err := s.GetMemberByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrBadCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(m.PasswordHash), []byte(password)) != nil {
		return nil, ErrBadCredentials
	}
	return m, nil
}

// UpdateMembershipStatus sets the membership status for a member
func (s *Store) UpdateMembershipStatus(ctx context.Context, id int64, status string) error {
	tag, err := s.pool.Exec(ctx,
		`update members set membership_status=$2, updated_at=now() where id=$1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// FormatMemberNumber builds a member number like MIL-2024-001234
func FormatMemberNumber(now time.Time, seq int64) string {
	return fmt.Sprintf("MIL-%d-%06d", now.Year(), seq)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "duplicate key")
}
