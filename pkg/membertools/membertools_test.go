package membertools

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valorlife/membercenter/internal/store"
	"github.com/valorlife/membercenter/pkg/toolexecutor"
)

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// fakeStore is an in-memory Store for handler tests.
type fakeStore struct {
	members     map[int64]*store.Member
	benefits    []store.Benefit
	enrollments map[int64][]store.EnrollmentDetail
	enrolled    map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		members:     make(map[int64]*store.Member),
		enrollments: make(map[int64][]store.EnrollmentDetail),
		enrolled:    make(map[string]bool),
	}
}

func (f *fakeStore) GetMember(ctx context.Context, id int64) (*store.Member, error) {
	m, ok := f.members[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return m, nil
}

func (f *fakeStore) ListBenefits(ctx context.Context, filter store.BenefitFilter) ([]store.Benefit, error) {
	var out []store.Benefit
	for _, b := range f.benefits {
		if filter.ActiveOnly && !b.IsActive {
			continue
		}
		if filter.Category != "" && b.Category != filter.Category {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeStore) GetBenefitByPlanCode(ctx context.Context, code string) (*store.Benefit, error) {
	for i := range f.benefits {
		if f.benefits[i].PlanCode == code {
			return &f.benefits[i], nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) ListEnrollments(ctx context.Context, memberID int64, activeOnly bool) ([]store.EnrollmentDetail, error) {
	var out []store.EnrollmentDetail
	for _, e := range f.enrollments[memberID] {
		if activeOnly && !e.IsActive {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeStore) GetDashboard(ctx context.Context, memberID int64) (*store.Dashboard, error) {
	m, ok := f.members[memberID]
	if !ok {
		return nil, store.ErrNotFound
	}
	d := &store.Dashboard{Member: m}
	for _, e := range f.enrollments[memberID] {
		if !e.IsActive {
			continue
		}
		d.Enrollments = append(d.Enrollments, e)
		d.TotalCoverage += e.CoverageAmount
		d.TotalMonthlyPremium += e.MonthlyPremium
	}
	return d, nil
}

func (f *fakeStore) HasActiveEnrollment(ctx context.Context, memberID, benefitID int64) (bool, error) {
	return f.enrolled[fmt.Sprintf("%d:%d", memberID, benefitID)], nil
}

func testMember() *store.Member {
	start := time.Date(2015, 3, 1, 0, 0, 0, 0, time.UTC)
	return &store.Member{
		ID:                  1,
		Email:               "jordan.reyes@example.com",
		FirstName:           "Jordan",
		LastName:            "Reyes",
		DateOfBirth:         time.Date(1990, 1, 15, 0, 0, 0, 0, time.UTC),
		MilitaryBranch:      "Army",
		Rank:                "SSG",
		IsActiveDuty:        true,
		ServiceStartDate:    &start,
		MemberNumber:        "MIL-2015-000001",
		MembershipStatus:    store.StatusActive,
		MembershipStartDate: start,
	}
}

func testBenefit() store.Benefit {
	return store.Benefit{
		ID:             10,
		Name:           "Servicemembers' Group Life Insurance",
		Category:       store.CategoryLifeInsurance,
		CoverageAmount: 400000,
		Deductible:     0,
		MinAge:         18,
		MaxAge:         60,
		PlanCode:       "SGLI-400",
		IsActive:       true,
	}
}

func setupTools(t *testing.T, fs *fakeStore) *toolexecutor.ToolExecutor {
	t.Helper()
	executor := toolexecutor.New()
	deps := Deps{Store: fs, Now: func() time.Time { return fixedNow }}
	require.NoError(t, RegisterMemberTools(executor, deps))
	return executor
}

func loggedIn(memberID int64) *toolexecutor.ExecutionContext {
	return &toolexecutor.ExecutionContext{MemberID: memberID, ConversationID: "conv_test"}
}

func anonymous() *toolexecutor.ExecutionContext {
	return &toolexecutor.ExecutionContext{ConversationID: "conv_test"}
}

func TestRegisterMemberTools(t *testing.T) {
	fs := newFakeStore()
	executor := setupTools(t, fs)

	assert.Equal(t, len(ToolNames()), executor.GetToolCount())
	for _, name := range ToolNames() {
		def := executor.GetTool(name)
		assert.NotNil(t, def, "tool %s should be registered", name)
	}
}

func TestRegisterMemberTools_Validation(t *testing.T) {
	err := RegisterMemberTools(nil, Deps{Store: newFakeStore()})
	assert.Error(t, err)

	err = RegisterMemberTools(toolexecutor.New(), Deps{})
	assert.Error(t, err)
}

func TestMemberProfileTool(t *testing.T) {
	fs := newFakeStore()
	fs.members[1] = testMember()
	executor := setupTools(t, fs)

	t.Run("should require login for anonymous callers", func(t *testing.T) {
		result := executor.Execute(context.Background(), "get_member_profile", map[string]interface{}{}, anonymous())
		require.True(t, result.Success)

		out, ok := result.Output.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, true, out["login_required"])
	})

	t.Run("should return profile with service record", func(t *testing.T) {
		result := executor.Execute(context.Background(), "get_member_profile", map[string]interface{}{}, loggedIn(1))
		require.True(t, result.Success)

		out, ok := result.Output.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "MIL-2015-000001", out["member_number"])
		assert.Equal(t, "Jordan Reyes", out["name"])
		assert.Equal(t, 35, out["age"])

		service, ok := out["military_service"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "Army", service["branch"])
		assert.Equal(t, true, service["is_active_duty"])
	})

	t.Run("should treat unknown member id as anonymous", func(t *testing.T) {
		result := executor.Execute(context.Background(), "get_member_profile", map[string]interface{}{}, loggedIn(999))
		require.True(t, result.Success)

		out := result.Output.(map[string]interface{})
		assert.Equal(t, true, out["login_required"])
	})
}

func TestMemberBenefitsTool(t *testing.T) {
	fs := newFakeStore()
	fs.members[1] = testMember()
	terminated := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	fs.enrollments[1] = []store.EnrollmentDetail{
		{
			Enrollment: store.Enrollment{
				ID: 100, MemberID: 1, BenefitID: 10,
				EffectiveDate: time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC), IsActive: true,
				CoverageAmount: 400000, MonthlyPremium: 20.40,
				BeneficiaryName: "Ana Reyes", BeneficiaryRelationship: "Spouse",
			},
			BenefitName: "Servicemembers' Group Life Insurance", BenefitCategory: store.CategoryLifeInsurance, PlanCode: "SGLI-400",
		},
		{
			Enrollment: store.Enrollment{
				ID: 101, MemberID: 1, BenefitID: 11,
				EffectiveDate: time.Date(2022, 5, 1, 0, 0, 0, 0, time.UTC), IsActive: false, TerminationDate: &terminated,
				CoverageAmount: 50000, MonthlyPremium: 9.00,
			},
			BenefitName: "Accident Protection Plan", BenefitCategory: store.CategoryAccident, PlanCode: "APP-50",
		},
	}
	executor := setupTools(t, fs)

	t.Run("should list active enrollments by default", func(t *testing.T) {
		result := executor.Execute(context.Background(), "get_member_benefits", map[string]interface{}{}, loggedIn(1))
		require.True(t, result.Success)

		out := result.Output.(map[string]interface{})
		assert.Equal(t, 1, out["count"])

		items := out["enrollments"].([]map[string]interface{})
		require.Len(t, items, 1)
		assert.Equal(t, "SGLI-400", items[0]["plan_code"])
		assert.Equal(t, "Ana Reyes (Spouse)", items[0]["beneficiary"])
	})

	t.Run("should include terminated enrollments when asked", func(t *testing.T) {
		result := executor.Execute(context.Background(), "get_member_benefits",
			map[string]interface{}{"include_inactive": true}, loggedIn(1))
		require.True(t, result.Success)

		out := result.Output.(map[string]interface{})
		assert.Equal(t, 2, out["count"])

		items := out["enrollments"].([]map[string]interface{})
		assert.Equal(t, "2024-12-31", items[1]["termination_date"])
	})

	t.Run("should require login", func(t *testing.T) {
		result := executor.Execute(context.Background(), "get_member_benefits", map[string]interface{}{}, anonymous())
		require.True(t, result.Success)
		out := result.Output.(map[string]interface{})
		assert.Equal(t, true, out["login_required"])
	})
}

func TestAvailableBenefitsTool(t *testing.T) {
	fs := newFakeStore()
	fs.benefits = []store.Benefit{
		testBenefit(),
		{ID: 11, Name: "Accident Protection Plan", Category: store.CategoryAccident, PlanCode: "APP-50", IsActive: true},
		{ID: 12, Name: "Legacy Plan", Category: store.CategoryLifeInsurance, PlanCode: "LEG-1", IsActive: false},
	}
	executor := setupTools(t, fs)

	t.Run("should list only active plans", func(t *testing.T) {
		result := executor.Execute(context.Background(), "get_available_benefits", map[string]interface{}{}, anonymous())
		require.True(t, result.Success)

		out := result.Output.(map[string]interface{})
		assert.Equal(t, 2, out["count"])
	})

	t.Run("should filter by category", func(t *testing.T) {
		result := executor.Execute(context.Background(), "get_available_benefits",
			map[string]interface{}{"category": store.CategoryAccident}, anonymous())
		require.True(t, result.Success)

		out := result.Output.(map[string]interface{})
		assert.Equal(t, 1, out["count"])
		items := out["benefits"].([]map[string]interface{})
		assert.Equal(t, "APP-50", items[0]["plan_code"])
	})
}

func TestCoverageSummaryTool(t *testing.T) {
	fs := newFakeStore()
	fs.members[1] = testMember()
	fs.enrollments[1] = []store.EnrollmentDetail{
		{
			Enrollment:  store.Enrollment{ID: 100, IsActive: true, CoverageAmount: 400000, MonthlyPremium: 20.40},
			BenefitName: "SGLI", BenefitCategory: store.CategoryLifeInsurance, PlanCode: "SGLI-400",
		},
		{
			Enrollment:  store.Enrollment{ID: 101, IsActive: true, CoverageAmount: 50000, MonthlyPremium: 4.46},
			BenefitName: "APP", BenefitCategory: store.CategoryAccident, PlanCode: "APP-50",
		},
	}
	executor := setupTools(t, fs)

	result := executor.Execute(context.Background(), "get_coverage_summary", map[string]interface{}{}, loggedIn(1))
	require.True(t, result.Success)

	out := result.Output.(map[string]interface{})
	assert.Equal(t, 2, out["active_enrollments"])
	assert.Equal(t, 450000.0, out["total_coverage"])

	byCategory := out["coverage_by_category"].(map[string]float64)
	assert.Equal(t, 400000.0, byCategory[store.CategoryLifeInsurance])
	assert.Equal(t, 50000.0, byCategory[store.CategoryAccident])
}

func TestMilitaryStatusTool(t *testing.T) {
	fs := newFakeStore()
	fs.members[1] = testMember()
	civilian := testMember()
	civilian.ID = 2
	civilian.MilitaryBranch = ""
	fs.members[2] = civilian
	executor := setupTools(t, fs)

	t.Run("should return service record", func(t *testing.T) {
		result := executor.Execute(context.Background(), "get_military_status", map[string]interface{}{}, loggedIn(1))
		require.True(t, result.Success)

		out := result.Output.(map[string]interface{})
		assert.Equal(t, "Army", out["branch"])
		assert.Equal(t, "SSG", out["rank"])
		assert.Equal(t, "2015-03-01", out["service_start_date"])
	})

	t.Run("should explain when no record is on file", func(t *testing.T) {
		result := executor.Execute(context.Background(), "get_military_status", map[string]interface{}{}, loggedIn(2))
		require.True(t, result.Success)

		out := result.Output.(map[string]interface{})
		assert.Contains(t, out["message"], "No military service record")
	})
}
