package membertools

import (
	"context"
	"fmt"

	"github.com/valorlife/membercenter/pkg/toolexecutor"
)

func memberProfileTool(deps Deps) toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "get_member_profile",
		Description: "Get the logged-in member's profile: contact details, military service record and membership status",
		Parameters:  []toolexecutor.ToolParameter{},
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			member, err := memberFromContext(ctx, deps)
			if err != nil {
				return nil, err
			}
			if member == nil {
				return loginRequired(), nil
			}

			profile := map[string]interface{}{
				"member_number":         member.MemberNumber,
				"name":                  fmt.Sprintf("%s %s", member.FirstName, member.LastName),
				"email":                 member.Email,
				"date_of_birth":         member.DateOfBirth.Format("2006-01-02"),
				"age":                   member.Age(deps.now()),
				"membership_status":     member.MembershipStatus,
				"membership_start_date": member.MembershipStartDate.Format("2006-01-02"),
			}

			if member.Phone != "" {
				profile["phone"] = member.Phone
			}
			if member.Address != "" {
				profile["address"] = fmt.Sprintf("%s, %s, %s %s", member.Address, member.City, member.State, member.ZipCode)
			}

			if member.MilitaryBranch != "" {
				service := map[string]interface{}{
					"branch":         member.MilitaryBranch,
					"rank":           member.Rank,
					"is_active_duty": member.IsActiveDuty,
				}
				if member.ServiceStartDate != nil {
					service["service_start_date"] = member.ServiceStartDate.Format("2006-01-02")
				}
				if member.ServiceEndDate != nil {
					service["service_end_date"] = member.ServiceEndDate.Format("2006-01-02")
				}
				profile["military_service"] = service
			}

			return profile, nil
		},
	}
}
