package membertools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/valorlife/membercenter/pkg/toolexecutor"
)

// requiredDocuments maps plan codes to enrollment documentation.
var requiredDocuments = map[string][]string{
	"SGLI-400": {
		"SGLV 8286 coverage election form",
		"Proof of military service (current orders or DD Form 214)",
		"Beneficiary designation",
	},
	"FSGLI-100": {
		"SGLV 8286A family coverage election form",
		"Marriage certificate or dependent birth certificate",
	},
	"VGLI-250": {
		"SGLV 8714 application form",
		"DD Form 214 separation document",
	},
	"SDVI-10": {
		"VA Form 29-4364 application",
		"Service-connected disability rating letter",
	},
	"MDP-PLUS": {
		"Disability coverage application",
		"Proof of income (most recent LES or pay statement)",
	},
	"APP-50": {
		"Accident protection application",
		"Government-issued photo ID",
	},
	"CIS-75": {
		"Critical illness coverage application",
		"Health history questionnaire",
	},
	"STL-500": {
		"Supplemental term life application",
		"Health history questionnaire",
		"Beneficiary designation",
	},
}

// genericDocuments applies when a plan has no specific catalog entry.
var genericDocuments = []string{
	"Completed enrollment application",
	"Government-issued photo ID",
	"Proof of military service or membership",
}

func requiredDocumentsFor(planCode string) []string {
	if docs, ok := requiredDocuments[planCode]; ok {
		return docs
	}
	return genericDocuments
}

type formField struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// formCatalog lists the forms the documents assistant can produce.
var formCatalog = map[string]struct {
	title  string
	fields []formField
}{
	"enrollment": {
		title: "Benefit Enrollment Form",
		fields: []formField{
			{Name: "member_number", Description: "Your member number (format MIL-YYYY-NNNNNN)", Required: true},
			{Name: "plan_code", Description: "Plan code of the benefit you are enrolling in", Required: true},
			{Name: "coverage_amount", Description: "Requested coverage amount in dollars", Required: true},
			{Name: "beneficiary_name", Description: "Full legal name of your primary beneficiary", Required: true},
			{Name: "beneficiary_relationship", Description: "Relationship to the beneficiary (spouse, child, parent...)", Required: true},
			{Name: "signature_date", Description: "Date of signature", Required: true},
		},
	},
	"beneficiary_change": {
		title: "Beneficiary Change Form",
		fields: []formField{
			{Name: "member_number", Description: "Your member number", Required: true},
			{Name: "enrollment_id", Description: "The enrollment this change applies to", Required: true},
			{Name: "new_beneficiary_name", Description: "Full legal name of the new beneficiary", Required: true},
			{Name: "new_beneficiary_relationship", Description: "Relationship to the new beneficiary", Required: true},
			{Name: "signature_date", Description: "Date of signature", Required: true},
		},
	},
	"cancellation": {
		title: "Coverage Cancellation Form",
		fields: []formField{
			{Name: "member_number", Description: "Your member number", Required: true},
			{Name: "enrollment_id", Description: "The enrollment to cancel", Required: true},
			{Name: "cancellation_reason", Description: "Reason for cancelling coverage", Required: false},
			{Name: "signature_date", Description: "Date of signature", Required: true},
		},
	},
}

func knownFormNames() []string {
	names := make([]string, 0, len(formCatalog))
	for name := range formCatalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func requiredDocumentsTool(deps Deps) toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "get_required_documents",
		Description: "List the documents required to enroll in a benefit plan",
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

			return map[string]interface{}{
				"plan_code":          benefit.PlanCode,
				"plan_name":          benefit.Name,
				"required_documents": requiredDocumentsFor(benefit.PlanCode),
			}, nil
		},
	}
}

func generateFormTool(deps Deps) toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "generate_form",
		Description: "Generate a benefit form pre-filled with the logged-in member's details",
		Parameters: []toolexecutor.ToolParameter{
			{
				Name:        "form_name",
				Type:        "string",
				Description: "Which form to generate: enrollment, beneficiary_change or cancellation",
				Required:    true,
			},
		},
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			formName, _ := params["form_name"].(string)
			form, ok := formCatalog[formName]
			if !ok {
				return nil, fmt.Errorf("unknown form %q; available forms: %s", formName, strings.Join(knownFormNames(), ", "))
			}

			member, err := memberFromContext(ctx, deps)
			if err != nil {
				return nil, err
			}

			prefilled := map[string]string{}
			if member != nil {
				prefilled["member_number"] = member.MemberNumber
				prefilled["member_name"] = fmt.Sprintf("%s %s", member.FirstName, member.LastName)
				prefilled["email"] = member.Email
			}

			var b strings.Builder
			fmt.Fprintf(&b, "%s\n%s\n\n", form.title, strings.Repeat("=", len(form.title)))
			for _, f := range form.fields {
				value := prefilled[f.Name]
				if value == "" {
					value = "____________________"
				}
				marker := ""
				if f.Required {
					marker = " (required)"
				}
				fmt.Fprintf(&b, "%s%s: %s\n", f.Name, marker, value)
			}

			return map[string]interface{}{
				"form_name": formName,
				"title":     form.title,
				"form":      b.String(),
				"prefilled": prefilled,
			}, nil
		},
	}
}

func explainFormFieldsTool(deps Deps) toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "explain_form_fields",
		Description: "Explain what each field on a benefit form means and how to fill it in",
		Parameters: []toolexecutor.ToolParameter{
			{
				Name:        "form_name",
				Type:        "string",
				Description: "Which form to explain: enrollment, beneficiary_change or cancellation",
				Required:    true,
			},
		},
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			formName, _ := params["form_name"].(string)
			form, ok := formCatalog[formName]
			if !ok {
				return nil, fmt.Errorf("unknown form %q; available forms: %s", formName, strings.Join(knownFormNames(), ", "))
			}

			return map[string]interface{}{
				"form_name": formName,
				"title":     form.title,
				"fields":    form.fields,
			}, nil
		},
	}
}
