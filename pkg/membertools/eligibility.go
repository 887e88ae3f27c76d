package membertools

import (
	"context"
	"fmt"

	"github.com/valorlife/membercenter/internal/store"
	"github.com/valorlife/membercenter/pkg/toolexecutor"
)

// EligibilityResult is the outcome of an eligibility check.
type EligibilityResult struct {
	PlanCode string   `json:"plan_code"`
	Eligible bool     `json:"eligible"`
	Reasons  []string `json:"reasons,omitempty"`
}

// CheckEligibility applies a plan's eligibility rules to a member.
func CheckEligibility(member *store.Member, benefit *store.Benefit, alreadyEnrolled bool, deps Deps) EligibilityResult {
	result := EligibilityResult{PlanCode: benefit.PlanCode, Eligible: true}

	age := member.Age(deps.now())
	if age < benefit.MinAge || age > benefit.MaxAge {
		result.Eligible = false
		result.Reasons = append(result.Reasons,
			fmt.Sprintf("age %d is outside the eligible range %d-%d", age, benefit.MinAge, benefit.MaxAge))
	}

	if benefit.RequiresActiveDuty && !member.IsActiveDuty {
		result.Eligible = false
		result.Reasons = append(result.Reasons, "this plan requires active duty status")
	}

	if member.MembershipStatus != store.StatusActive {
		result.Eligible = false
		result.Reasons = append(result.Reasons,
			fmt.Sprintf("membership status is %s; an Active membership is required", member.MembershipStatus))
	}

	if alreadyEnrolled {
		result.Eligible = false
		result.Reasons = append(result.Reasons, "you are already enrolled in this plan")
	}

	return result
}

func checkEligibilityTool(deps Deps) toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "check_eligibility",
		Description: "Check whether the logged-in member is eligible to enroll in a benefit plan",
		Parameters: []toolexecutor.ToolParameter{
			{
				Name:        "plan_code",
				Type:        "string",
				Description: "Plan code of the benefit to check",
				Required:    true,
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

			planCode, _ := params["plan_code"].(string)
			benefit, err := deps.Store.GetBenefitByPlanCode(ctx, planCode)
			if err != nil {
				return nil, fmt.Errorf("unknown plan code %q: %w", planCode, err)
			}

			enrolled, err := deps.Store.HasActiveEnrollment(ctx, member.ID, benefit.ID)
			if err != nil {
				return nil, fmt.Errorf("check enrollment: %w", err)
			}

			result := CheckEligibility(member, benefit, enrolled, deps)

			out := map[string]interface{}{
				"plan_code": result.PlanCode,
				"plan_name": benefit.Name,
				"eligible":  result.Eligible,
			}
			if len(result.Reasons) > 0 {
				out["reasons"] = result.Reasons
			}
			return out, nil
		},
	}
}

func militaryStatusTool(deps Deps) toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "get_military_status",
		Description: "Get the logged-in member's military service record",
		Parameters:  []toolexecutor.ToolParameter{},
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			member, err := memberFromContext(ctx, deps)
			if err != nil {
				return nil, err
			}
			if member == nil {
				return loginRequired(), nil
			}

			if member.MilitaryBranch == "" {
				return map[string]interface{}{
					"message": "No military service record is on file for your account.",
				}, nil
			}

			status := map[string]interface{}{
				"branch":         member.MilitaryBranch,
				"rank":           member.Rank,
				"is_active_duty": member.IsActiveDuty,
			}
			if member.ServiceStartDate != nil {
				status["service_start_date"] = member.ServiceStartDate.Format("2006-01-02")
			}
			if member.ServiceEndDate != nil {
				status["service_end_date"] = member.ServiceEndDate.Format("2006-01-02")
			}

			return status, nil
		},
	}
}

func verifyDocumentationTool(deps Deps) toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "verify_documentation_requirements",
		Description: "List the documentation a member must provide to enroll in a plan, noting service-record items already on file",
		Parameters: []toolexecutor.ToolParameter{
			{
				Name:        "plan_code",
				Type:        "string",
				Description: "Plan code of the benefit",
				Required:    true,
			},
		},
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			planCode, _ := params["plan_code"].(string)

			benefit, err := deps.Store.GetBenefitByPlanCode(ctx, planCode)
			if err != nil {
				return nil, fmt.Errorf("unknown plan code %q: %w", planCode, err)
			}

			docs := requiredDocumentsFor(benefit.PlanCode)

			out := map[string]interface{}{
				"plan_code":          benefit.PlanCode,
				"plan_name":          benefit.Name,
				"required_documents": docs,
			}

			member, err := memberFromContext(ctx, deps)
			if err != nil {
				return nil, err
			}
			if member != nil && member.MilitaryBranch != "" {
				out["on_file"] = []string{"Military service record (branch, rank, service dates)"}
			}

			return out, nil
		},
	}
}
