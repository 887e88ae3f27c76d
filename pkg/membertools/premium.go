package membertools

import (
	"context"
	"fmt"
	"math"

	"github.com/valorlife/membercenter/internal/store"
	"github.com/valorlife/membercenter/pkg/toolexecutor"
)

// Base monthly rate per $10,000 of coverage, by benefit category.
var baseRatePer10k = map[string]float64{
	store.CategoryLifeInsurance:   0.60,
	store.CategoryDisability:      1.80,
	store.CategoryAccident:        0.35,
	store.CategoryCriticalIllness: 1.10,
	store.CategorySupplemental:    0.90,
}

const activeDutyFactor = 0.85

// ageFactor returns the age-band multiplier for premium calculation.
func ageFactor(age int) float64 {
	switch {
	case age < 30:
		return 0.90
	case age < 40:
		return 1.00
	case age < 50:
		return 1.35
	case age < 60:
		return 1.90
	default:
		return 2.60
	}
}

// MonthlyPremium prices coverage in a category for a given age.
// Factors multiply, so zero coverage always prices to zero.
func MonthlyPremium(category string, coverageAmount float64, age int, activeDuty bool) (float64, error) {
	rate, ok := baseRatePer10k[category]
	if !ok {
		return 0, fmt.Errorf("unknown benefit category: %s", category)
	}
	if coverageAmount < 0 {
		return 0, fmt.Errorf("coverage amount cannot be negative")
	}

	premium := (coverageAmount / 10000) * rate * ageFactor(age)
	if activeDuty {
		premium *= activeDutyFactor
	}

	return math.Round(premium*100) / 100, nil
}

// resolveAge picks an explicit age parameter over the member's computed age.
func resolveAge(params map[string]interface{}, member *store.Member, deps Deps) (int, bool) {
	if v, ok := params["age"].(float64); ok && v > 0 {
		return int(v), true
	}
	if member != nil {
		return member.Age(deps.now()), true
	}
	return 0, false
}

func calculatePremiumTool(deps Deps) toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "calculate_premium",
		Description: "Calculate the monthly premium for a benefit plan given coverage amount and age",
		Parameters: []toolexecutor.ToolParameter{
			{
				Name:        "plan_code",
				Type:        "string",
				Description: "Plan code of the benefit to price",
				Required:    true,
			},
			{
				Name:        "coverage_amount",
				Type:        "number",
				Description: "Coverage amount in dollars (defaults to the plan's standard coverage)",
				Required:    false,
			},
			{
				Name:        "age",
				Type:        "integer",
				Description: "Age to price for (defaults to the logged-in member's age)",
				Required:    false,
			},
		},
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			planCode, _ := params["plan_code"].(string)

			benefit, err := deps.Store.GetBenefitByPlanCode(ctx, planCode)
			if err != nil {
				return nil, fmt.Errorf("unknown plan code %q: %w", planCode, err)
			}

			member, err := memberFromContext(ctx, deps)
			if err != nil {
				return nil, err
			}

			age, ok := resolveAge(params, member, deps)
			if !ok {
				return map[string]interface{}{
					"message": "Please provide an age to calculate the premium, or log in so I can use your profile.",
				}, nil
			}

			coverage := benefit.CoverageAmount
			if v, ok := params["coverage_amount"].(float64); ok && v >= 0 {
				coverage = v
			}

			activeDuty := member != nil && member.IsActiveDuty

			premium, err := MonthlyPremium(benefit.Category, coverage, age, activeDuty)
			if err != nil {
				return nil, err
			}

			return map[string]interface{}{
				"plan_code":            benefit.PlanCode,
				"plan_name":            benefit.Name,
				"category":             benefit.Category,
				"coverage_amount":      coverage,
				"age":                  age,
				"active_duty_discount": activeDuty,
				"monthly_premium":      premium,
				"annual_premium":       math.Round(premium*12*100) / 100,
			}, nil
		},
	}
}

func comparePlansTool(deps Deps) toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "compare_plans",
		Description: "Compare monthly premiums across all active plans in a benefit category",
		Parameters: []toolexecutor.ToolParameter{
			{
				Name:        "category",
				Type:        "string",
				Description: "Benefit category to compare (e.g. Life Insurance)",
				Required:    true,
			},
			{
				Name:        "age",
				Type:        "integer",
				Description: "Age to price for (defaults to the logged-in member's age)",
				Required:    false,
			},
		},
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			category, _ := params["category"].(string)

			benefits, err := deps.Store.ListBenefits(ctx, store.BenefitFilter{
				Category:   category,
				ActiveOnly: true,
			})
			if err != nil {
				return nil, fmt.Errorf("list benefits: %w", err)
			}
			if len(benefits) == 0 {
				return map[string]interface{}{
					"category": category,
					"message":  fmt.Sprintf("No active plans found in category %q.", category),
				}, nil
			}

			member, err := memberFromContext(ctx, deps)
			if err != nil {
				return nil, err
			}

			age, ok := resolveAge(params, member, deps)
			if !ok {
				return map[string]interface{}{
					"message": "Please provide an age to compare plans, or log in so I can use your profile.",
				}, nil
			}

			activeDuty := member != nil && member.IsActiveDuty

			plans := make([]map[string]interface{}, 0, len(benefits))
			for _, b := range benefits {
				premium, err := MonthlyPremium(b.Category, b.CoverageAmount, age, activeDuty)
				if err != nil {
					return nil, err
				}
				plans = append(plans, map[string]interface{}{
					"plan_code":       b.PlanCode,
					"name":            b.Name,
					"coverage_amount": b.CoverageAmount,
					"monthly_premium": premium,
					"deductible":      b.Deductible,
				})
			}

			return map[string]interface{}{
				"category":             category,
				"age":                  age,
				"active_duty_discount": activeDuty,
				"plans":                plans,
			}, nil
		},
	}
}

func estimateCoverageNeedsTool(deps Deps) toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "estimate_coverage_needs",
		Description: "Estimate recommended life insurance coverage from income and dependents",
		Parameters: []toolexecutor.ToolParameter{
			{
				Name:        "annual_income",
				Type:        "number",
				Description: "Annual income in dollars",
				Required:    true,
			},
			{
				Name:        "dependents",
				Type:        "integer",
				Description: "Number of dependents",
				Required:    false,
				Default:     0,
			},
		},
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			income, _ := params["annual_income"].(float64)
			if income < 0 {
				return nil, fmt.Errorf("annual income cannot be negative")
			}

			dependents := 0
			if v, ok := params["dependents"].(float64); ok && v > 0 {
				dependents = int(v)
			}

			// Income-replacement heuristic: 10x income plus $50k per dependent
			recommended := income*10 + float64(dependents)*50000

			existing := 0.0
			member, err := memberFromContext(ctx, deps)
			if err != nil {
				return nil, err
			}
			if member != nil {
				dashboard, err := deps.Store.GetDashboard(ctx, member.ID)
				if err != nil {
					return nil, fmt.Errorf("load dashboard: %w", err)
				}
				existing = dashboard.TotalCoverage
			}

			gap := recommended - existing
			if gap < 0 {
				gap = 0
			}

			return map[string]interface{}{
				"annual_income":        income,
				"dependents":           dependents,
				"recommended_coverage": recommended,
				"existing_coverage":    existing,
				"coverage_gap":         gap,
			}, nil
		},
	}
}
