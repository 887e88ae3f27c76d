package membertools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/valorlife/membercenter/internal/store"
	"github.com/valorlife/membercenter/pkg/toolexecutor"
)

// Store is the subset of the member store the tools read from.
type Store interface {
	GetMember(ctx context.Context, id int64) (*store.Member, error)
	ListBenefits(ctx context.Context, filter store.BenefitFilter) ([]store.Benefit, error)
	GetBenefitByPlanCode(ctx context.Context, code string) (*store.Benefit, error)
	ListEnrollments(ctx context.Context, memberID int64, activeOnly bool) ([]store.EnrollmentDetail, error)
	GetDashboard(ctx context.Context, memberID int64) (*store.Dashboard, error)
	HasActiveEnrollment(ctx context.Context, memberID, benefitID int64) (bool, error)
}

// Deps carries tool dependencies.
type Deps struct {
	Store Store
	Now   func() time.Time // defaults to time.Now
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

const loginRequiredMessage = "You need to be logged in to access your personal information. Please log in to your member account first."

// loginRequired is the tool output for anonymous callers.
func loginRequired() map[string]interface{} {
	return map[string]interface{}{
		"login_required": true,
		"message":        loginRequiredMessage,
	}
}

// memberFromContext resolves the logged-in member, or nil when anonymous.
func memberFromContext(ctx context.Context, deps Deps) (*store.Member, error) {
	execCtx := toolexecutor.ExecContextFromContext(ctx)
	if execCtx == nil || execCtx.MemberID == 0 {
		return nil, nil
	}

	member, err := deps.Store.GetMember(ctx, execCtx.MemberID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load member: %w", err)
	}
	return member, nil
}

// RegisterMemberTools registers all member center tools with the tool executor.
func RegisterMemberTools(executor *toolexecutor.ToolExecutor, deps Deps) error {
	if executor == nil {
		return errors.New("tool executor is required")
	}
	if deps.Store == nil {
		return errors.New("store is required")
	}

	tools := []toolexecutor.ToolDefinition{
		memberProfileTool(deps),
		memberBenefitsTool(deps),
		availableBenefitsTool(deps),
		coverageSummaryTool(deps),
		calculatePremiumTool(deps),
		comparePlansTool(deps),
		estimateCoverageNeedsTool(deps),
		checkEligibilityTool(deps),
		militaryStatusTool(deps),
		verifyDocumentationTool(deps),
		requiredDocumentsTool(deps),
		generateFormTool(deps),
		explainFormFieldsTool(deps),
	}

	for _, tool := range tools {
		if err := executor.RegisterTool(tool); err != nil {
			return fmt.Errorf("failed to register tool %s: %w", tool.Name, err)
		}
	}
	return nil
}

// ToolNames returns the names of all member center tools, in registration order.
func ToolNames() []string {
	return []string{
		"get_member_profile",
		"get_member_benefits",
		"get_available_benefits",
		"get_coverage_summary",
		"calculate_premium",
		"compare_plans",
		"estimate_coverage_needs",
		"check_eligibility",
		"get_military_status",
		"verify_documentation_requirements",
		"get_required_documents",
		"generate_form",
		"explain_form_fields",
	}
}
