package membertools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valorlife/membercenter/internal/store"
)

func TestMonthlyPremium(t *testing.T) {
	tests := []struct {
		name       string
		category   string
		coverage   float64
		age        int
		activeDuty bool
		want       float64
	}{
		{"life insurance at base rate", store.CategoryLifeInsurance, 400000, 35, false, 24.00},
		{"active duty discount", store.CategoryLifeInsurance, 400000, 35, true, 20.40},
		{"under 30 band", store.CategoryLifeInsurance, 400000, 25, false, 21.60},
		{"40s band", store.CategoryLifeInsurance, 400000, 45, false, 32.40},
		{"50s band", store.CategoryLifeInsurance, 400000, 55, false, 45.60},
		{"60 and over band", store.CategoryLifeInsurance, 400000, 65, false, 62.40},
		{"disability", store.CategoryDisability, 100000, 35, false, 18.00},
		{"accident", store.CategoryAccident, 50000, 35, false, 1.75},
		{"critical illness", store.CategoryCriticalIllness, 75000, 35, false, 8.25},
		{"supplemental", store.CategorySupplemental, 500000, 35, false, 45.00},
		{"zero coverage prices to zero", store.CategoryLifeInsurance, 0, 35, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MonthlyPremium(tt.category, tt.coverage, tt.age, tt.activeDuty)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}

	t.Run("should reject unknown category", func(t *testing.T) {
		_, err := MonthlyPremium("Dental", 100000, 35, false)
		assert.Error(t, err)
	})

	t.Run("should reject negative coverage", func(t *testing.T) {
		_, err := MonthlyPremium(store.CategoryLifeInsurance, -1, 35, false)
		assert.Error(t, err)
	})
}

func TestCalculatePremiumTool(t *testing.T) {
	fs := newFakeStore()
	fs.members[1] = testMember()
	fs.benefits = []store.Benefit{testBenefit()}
	executor := setupTools(t, fs)

	t.Run("should price plan for logged-in member", func(t *testing.T) {
		result := executor.Execute(context.Background(), "calculate_premium",
			map[string]interface{}{"plan_code": "SGLI-400"}, loggedIn(1))
		require.True(t, result.Success)

		// member is 35 and active duty: 40 * 0.60 * 1.00 * 0.85
		out := result.Output.(map[string]interface{})
		assert.Equal(t, 35, out["age"])
		assert.Equal(t, true, out["active_duty_discount"])
		assert.InDelta(t, 20.40, out["monthly_premium"].(float64), 0.001)
		assert.InDelta(t, 244.80, out["annual_premium"].(float64), 0.001)
	})

	t.Run("should prefer explicit age and coverage", func(t *testing.T) {
		result := executor.Execute(context.Background(), "calculate_premium",
			map[string]interface{}{"plan_code": "SGLI-400", "age": float64(45), "coverage_amount": float64(200000)}, anonymous())
		require.True(t, result.Success)

		out := result.Output.(map[string]interface{})
		assert.Equal(t, 45, out["age"])
		assert.Equal(t, false, out["active_duty_discount"])
		assert.InDelta(t, 16.20, out["monthly_premium"].(float64), 0.001)
	})

	t.Run("should ask for age when anonymous and no age given", func(t *testing.T) {
		result := executor.Execute(context.Background(), "calculate_premium",
			map[string]interface{}{"plan_code": "SGLI-400"}, anonymous())
		require.True(t, result.Success)

		out := result.Output.(map[string]interface{})
		assert.Contains(t, out["message"], "provide an age")
	})

	t.Run("should fail on unknown plan code", func(t *testing.T) {
		result := executor.Execute(context.Background(), "calculate_premium",
			map[string]interface{}{"plan_code": "NOPE-1"}, loggedIn(1))
		assert.False(t, result.Success)
		assert.Contains(t, result.Error, "unknown plan code")
	})
}

func TestComparePlansTool(t *testing.T) {
	fs := newFakeStore()
	fs.members[1] = testMember()
	fs.benefits = []store.Benefit{
		testBenefit(),
		{ID: 13, Name: "Supplemental Term Life", Category: store.CategoryLifeInsurance,
			CoverageAmount: 500000, PlanCode: "STL-500", IsActive: true},
	}
	executor := setupTools(t, fs)

	t.Run("should price every active plan in the category", func(t *testing.T) {
		result := executor.Execute(context.Background(), "compare_plans",
			map[string]interface{}{"category": store.CategoryLifeInsurance, "age": float64(35)}, anonymous())
		require.True(t, result.Success)

		out := result.Output.(map[string]interface{})
		plans := out["plans"].([]map[string]interface{})
		require.Len(t, plans, 2)
		assert.InDelta(t, 24.00, plans[0]["monthly_premium"].(float64), 0.001)
		assert.InDelta(t, 30.00, plans[1]["monthly_premium"].(float64), 0.001)
	})

	t.Run("should report empty category", func(t *testing.T) {
		result := executor.Execute(context.Background(), "compare_plans",
			map[string]interface{}{"category": store.CategoryDisability, "age": float64(35)}, anonymous())
		require.True(t, result.Success)

		out := result.Output.(map[string]interface{})
		assert.Contains(t, out["message"], "No active plans")
	})
}

func TestEstimateCoverageNeedsTool(t *testing.T) {
	fs := newFakeStore()
	fs.members[1] = testMember()
	fs.enrollments[1] = []store.EnrollmentDetail{
		{
			Enrollment:  store.Enrollment{ID: 100, IsActive: true, CoverageAmount: 400000, MonthlyPremium: 20.40},
			BenefitName: "SGLI", BenefitCategory: store.CategoryLifeInsurance, PlanCode: "SGLI-400",
		},
	}
	executor := setupTools(t, fs)

	t.Run("should apply income and dependent heuristic", func(t *testing.T) {
		result := executor.Execute(context.Background(), "estimate_coverage_needs",
			map[string]interface{}{"annual_income": float64(60000), "dependents": float64(2)}, anonymous())
		require.True(t, result.Success)

		out := result.Output.(map[string]interface{})
		assert.Equal(t, 700000.0, out["recommended_coverage"])
		assert.Equal(t, 0.0, out["existing_coverage"])
		assert.Equal(t, 700000.0, out["coverage_gap"])
	})

	t.Run("should subtract existing coverage for logged-in member", func(t *testing.T) {
		result := executor.Execute(context.Background(), "estimate_coverage_needs",
			map[string]interface{}{"annual_income": float64(60000)}, loggedIn(1))
		require.True(t, result.Success)

		out := result.Output.(map[string]interface{})
		assert.Equal(t, 400000.0, out["existing_coverage"])
		assert.Equal(t, 200000.0, out["coverage_gap"])
	})

	t.Run("should floor the gap at zero", func(t *testing.T) {
		result := executor.Execute(context.Background(), "estimate_coverage_needs",
			map[string]interface{}{"annual_income": float64(10000)}, loggedIn(1))
		require.True(t, result.Success)

		out := result.Output.(map[string]interface{})
		assert.Equal(t, 0.0, out["coverage_gap"])
	})
}
