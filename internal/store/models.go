package store

import "time"

// Membership statuses
const (
	StatusActive    = "Active"
	StatusInactive  = "Inactive"
	StatusPending   = "Pending"
	StatusSuspended = "Suspended"
)

// Benefit categories
const (
	CategoryLifeInsurance   = "Life Insurance"
	CategoryDisability      = "Disability"
	CategoryAccident        = "Accident"
	CategoryCriticalIllness = "Critical Illness"
	CategorySupplemental    = "Supplemental"
)

// MilitaryBranches lists the recognized service branches.
var MilitaryBranches = []string{
	"Army",
	"Navy",
	"Air Force",
	"Marine Corps",
	"Coast Guard",
	"Space Force",
}

// Member is a member center account
type Member struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	DateOfBirth  time.Time `json:"date_of_birth"`
	Phone        string    `json:"phone,omitempty"`
	Address      string    `json:"address,omitempty"`
	City         string    `json:"city,omitempty"`
	State        string    `json:"state,omitempty"`
	ZipCode      string    `json:"zip_code,omitempty"`

	MilitaryBranch   string     `json:"military_branch,omitempty"`
	ServiceStartDate *time.Time `json:"service_start_date,omitempty"`
	ServiceEndDate   *time.Time `json:"service_end_date,omitempty"`
	Rank             string     `json:"rank,omitempty"`
	IsActiveDuty     bool       `json:"is_active_duty"`

	MemberNumber        string    `json:"member_number"`
	MembershipStatus    string    `json:"membership_status"`
	MembershipStartDate time.Time `json:"membership_start_date"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Age returns the member's age in whole years as of the given date.
func (m *Member) Age(now time.Time) int {
	years := now.Year() - m.DateOfBirth.Year()
	if now.Month() < m.DateOfBirth.Month() ||
		(now.Month() == m.DateOfBirth.Month() && now.Day() < m.DateOfBirth.Day()) {
		years--
	}
	return years
}

// Benefit is an insurance plan on offer
type Benefit struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	Category       string  `json:"category"`
	CoverageAmount float64 `json:"coverage_amount"`
	MonthlyPremium float64 `json:"monthly_premium"`
	Deductible     float64 `json:"deductible"`

	MinAge             int  `json:"min_age"`
	MaxAge             int  `json:"max_age"`
	RequiresActiveDuty bool `json:"requires_active_duty"`

	PlanCode      string    `json:"plan_code"`
	IsActive      bool      `json:"is_active"`
	EffectiveDate time.Time `json:"effective_date"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Enrollment links a member to a benefit
type Enrollment struct {
	ID        int64 `json:"id"`
	MemberID  int64 `json:"member_id"`
	BenefitID int64 `json:"benefit_id"`

	EnrollmentDate  time.Time  `json:"enrollment_date"`
	EffectiveDate   time.Time  `json:"effective_date"`
	TerminationDate *time.Time `json:"termination_date,omitempty"`
	IsActive        bool       `json:"is_active"`

	CoverageAmount float64 `json:"coverage_amount"`
	MonthlyPremium float64 `json:"monthly_premium"`

	BeneficiaryName         string `json:"beneficiary_name,omitempty"`
	BeneficiaryRelationship string `json:"beneficiary_relationship,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EnrollmentDetail is an enrollment joined with its benefit
type EnrollmentDetail struct {
	Enrollment
	BenefitName     string `json:"benefit_name"`
	BenefitCategory string `json:"benefit_category"`
	PlanCode        string `json:"plan_code"`
}

// Dashboard summarizes a member's active coverage
type Dashboard struct {
	Member              *Member            `json:"member"`
	Enrollments         []EnrollmentDetail `json:"enrollments"`
	TotalMonthlyPremium float64            `json:"total_monthly_premium"`
	TotalCoverage       float64            `json:"total_coverage"`
}

// NextEffectiveDate returns the first day of the month after now, which is
// when a new enrollment takes effect.
func NextEffectiveDate(now time.Time) time.Time {
	y, m, _ := now.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
}

// TerminationDate returns the last day of now's month. A canceled
// enrollment stays in force through this date.
func TerminationDate(now time.Time) time.Time {
	return NextEffectiveDate(now).AddDate(0, 0, -1)
}
