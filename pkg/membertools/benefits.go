package membertools

import (
	"context"
	"fmt"

	"github.com/valorlife/membercenter/internal/store"
	"github.com/valorlife/membercenter/pkg/toolexecutor"
)

func memberBenefitsTool(deps Deps) toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "get_member_benefits",
		Description: "List the logged-in member's current benefit enrollments with coverage and premium details",
		Parameters: []toolexecutor.ToolParameter{
			{
				Name:        "include_inactive",
				Type:        "boolean",
				Description: "Include cancelled and terminated enrollments",
				Required:    false,
				Default:     false,
			},
		},
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			member, err := memberFromContext(ctx, deps)
			if err != nil {
				return nil, err
			}
			if member == nil {
				return loginRequired(), nil
			}

			includeInactive, _ := params["include_inactive"].(bool)

			enrollments, err := deps.Store.ListEnrollments(ctx, member.ID, !includeInactive)
			if err != nil {
				return nil, fmt.Errorf("list enrollments: %w", err)
			}

			items := make([]map[string]interface{}, 0, len(enrollments))
			for _, e := range enrollments {
				item := map[string]interface{}{
					"enrollment_id":   e.ID,
					"benefit_name":    e.BenefitName,
					"category":        e.BenefitCategory,
					"plan_code":       e.PlanCode,
					"coverage_amount": e.CoverageAmount,
					"monthly_premium": e.MonthlyPremium,
					"effective_date":  e.EffectiveDate.Format("2006-01-02"),
					"is_active":       e.IsActive,
				}
				if e.BeneficiaryName != "" {
					item["beneficiary"] = fmt.Sprintf("%s (%s)", e.BeneficiaryName, e.BeneficiaryRelationship)
				}
				if e.TerminationDate != nil {
					item["termination_date"] = e.TerminationDate.Format("2006-01-02")
				}
				items = append(items, item)
			}

			return map[string]interface{}{
				"member_number": member.MemberNumber,
				"count":         len(items),
				"enrollments":   items,
			}, nil
		},
	}
}

func availableBenefitsTool(deps Deps) toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "get_available_benefits",
		Description: "List the benefit plans currently open for enrollment, optionally filtered by category",
		Parameters: []toolexecutor.ToolParameter{
			{
				Name:        "category",
				Type:        "string",
				Description: "Benefit category filter (e.g. Life Insurance, Disability, Accident)",
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

			items := make([]map[string]interface{}, 0, len(benefits))
			for _, b := range benefits {
				items = append(items, map[string]interface{}{
					"plan_code":            b.PlanCode,
					"name":                 b.Name,
					"category":             b.Category,
					"description":          b.Description,
					"coverage_amount":      b.CoverageAmount,
					"monthly_premium":      b.MonthlyPremium,
					"deductible":           b.Deductible,
					"min_age":              b.MinAge,
					"max_age":              b.MaxAge,
					"requires_active_duty": b.RequiresActiveDuty,
				})
			}

			return map[string]interface{}{
				"count":    len(items),
				"benefits": items,
			}, nil
		},
	}
}

func coverageSummaryTool(deps Deps) toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "get_coverage_summary",
		Description: "Summarize the logged-in member's total active coverage and monthly premium",
		Parameters:  []toolexecutor.ToolParameter{},
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			member, err := memberFromContext(ctx, deps)
			if err != nil {
				return nil, err
			}
			if member == nil {
				return loginRequired(), nil
			}

			dashboard, err := deps.Store.GetDashboard(ctx, member.ID)
			if err != nil {
				return nil, fmt.Errorf("load dashboard: %w", err)
			}

			byCategory := map[string]float64{}
			for _, e := range dashboard.Enrollments {
				byCategory[e.BenefitCategory] += e.CoverageAmount
			}

			return map[string]interface{}{
				"member_number":         member.MemberNumber,
				"active_enrollments":    len(dashboard.Enrollments),
				"total_coverage":        dashboard.TotalCoverage,
				"total_monthly_premium": dashboard.TotalMonthlyPremium,
				"coverage_by_category":  byCategory,
			}, nil
		},
	}
}
