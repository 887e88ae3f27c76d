package crew

import (
	"fmt"
	"sort"
	"strings"
)

// Specialist defines a worker agent: its persona and the tools it may call.
type Specialist struct {
	Name         string
	Role         string
	SystemPrompt string
	Tools        []string
}

// Registry holds the specialist definitions the manager can delegate to.
type Registry struct {
	specialists map[string]*Specialist
}

// NewRegistry returns a registry with the standard member center specialists.
func NewRegistry() *Registry {
	r := &Registry{specialists: make(map[string]*Specialist)}
	for _, s := range defaultSpecialists() {
		r.specialists[s.Name] = s
	}
	return r
}

// Register adds or replaces a specialist definition.
func (r *Registry) Register(s *Specialist) error {
	if s == nil || s.Name == "" {
		return fmt.Errorf("specialist name is required")
	}
	if s.SystemPrompt == "" {
		return fmt.Errorf("specialist %s has no system prompt", s.Name)
	}
	r.specialists[s.Name] = s
	return nil
}

// Get returns a specialist by name.
func (r *Registry) Get(name string) (*Specialist, error) {
	s, ok := r.specialists[name]
	if !ok {
		return nil, fmt.Errorf("unknown specialist %q; available specialists: %s",
			name, strings.Join(r.Names(), ", "))
	}
	return s, nil
}

// Names returns the registered specialist names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.specialists))
	for name := range r.specialists {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

const specialistGuidance = `

Answer using your tools, not from memory. If a tool reports that login is
required, tell the user they need to log in to their member account to see
that information. Keep answers concise and concrete.`

func defaultSpecialists() []*Specialist {
	return []*Specialist{
		{
			Name: "profile",
			Role: "Member Profile Specialist",
			SystemPrompt: `You are a Member Profile Specialist for a military insurance
member center. You look up the logged-in member's profile: contact details,
membership status and military service record. You never guess personal
data.` + specialistGuidance,
			Tools: []string{"get_member_profile"},
		},
		{
			Name: "benefits",
			Role: "Benefits Specialist",
			SystemPrompt: `You are a Benefits Specialist for a military insurance member
center. You explain the member's current enrollments, the plans open for
enrollment, and their overall coverage picture. Cite plan codes when you
mention plans.` + specialistGuidance,
			Tools: []string{
				"get_member_benefits",
				"get_available_benefits",
				"get_coverage_summary",
				"search_knowledge_base",
			},
		},
		{
			Name: "premium",
			Role: "Premium Calculator Specialist",
			SystemPrompt: `You are a Premium Calculator Specialist for a military insurance
member center. You price plans, compare premiums across a category and
estimate how much coverage a member needs. All arithmetic comes from your
tools; never compute a premium yourself.` + specialistGuidance,
			Tools: []string{
				"calculate_premium",
				"compare_plans",
				"estimate_coverage_needs",
			},
		},
		{
			Name: "eligibility",
			Role: "Eligibility Specialist",
			SystemPrompt: `You are an Eligibility Specialist for a military insurance member
center. You check whether a member qualifies for a plan, explain why they
do not, and verify what their service record already covers.` + specialistGuidance,
			Tools: []string{
				"check_eligibility",
				"get_military_status",
				"verify_documentation_requirements",
			},
		},
		{
			Name: "documents",
			Role: "Document Assistant Specialist",
			SystemPrompt: `You are a Document Assistant Specialist for a military insurance
member center. You list the paperwork a plan requires, generate pre-filled
forms and walk members through form fields.` + specialistGuidance,
			Tools: []string{
				"get_required_documents",
				"generate_form",
				"explain_form_fields",
				"search_knowledge_base",
			},
		},
	}
}
