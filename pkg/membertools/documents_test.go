package membertools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valorlife/membercenter/internal/store"
)

func TestRequiredDocumentsFor(t *testing.T) {
	t.Run("should return plan specific catalog", func(t *testing.T) {
		docs := requiredDocumentsFor("SGLI-400")
		assert.Contains(t, docs, "SGLV 8286 coverage election form")
	})

	t.Run("should fall back to generic documents", func(t *testing.T) {
		docs := requiredDocumentsFor("UNKNOWN-99")
		assert.Equal(t, genericDocuments, docs)
	})
}

func TestRequiredDocumentsTool(t *testing.T) {
	fs := newFakeStore()
	fs.benefits = []store.Benefit{testBenefit()}
	executor := setupTools(t, fs)

	t.Run("should list documents for a known plan", func(t *testing.T) {
		result := executor.Execute(context.Background(), "get_required_documents",
			map[string]interface{}{"plan_code": "SGLI-400"}, anonymous())
		require.True(t, result.Success)

		out := result.Output.(map[string]interface{})
		assert.Equal(t, "SGLI-400", out["plan_code"])
		docs := out["required_documents"].([]string)
		assert.Contains(t, docs, "Beneficiary designation")
	})

	t.Run("should fail on unknown plan", func(t *testing.T) {
		result := executor.Execute(context.Background(), "get_required_documents",
			map[string]interface{}{"plan_code": "NOPE-1"}, anonymous())
		assert.False(t, result.Success)
	})
}

func TestVerifyDocumentationTool(t *testing.T) {
	fs := newFakeStore()
	fs.members[1] = testMember()
	fs.benefits = []store.Benefit{testBenefit()}
	executor := setupTools(t, fs)

	t.Run("should note service record on file for logged-in member", func(t *testing.T) {
		result := executor.Execute(context.Background(), "verify_documentation_requirements",
			map[string]interface{}{"plan_code": "SGLI-400"}, loggedIn(1))
		require.True(t, result.Success)

		out := result.Output.(map[string]interface{})
		onFile := out["on_file"].([]string)
		require.Len(t, onFile, 1)
		assert.Contains(t, onFile[0], "Military service record")
	})

	t.Run("should work for anonymous callers without on-file items", func(t *testing.T) {
		result := executor.Execute(context.Background(), "verify_documentation_requirements",
			map[string]interface{}{"plan_code": "SGLI-400"}, anonymous())
		require.True(t, result.Success)

		out := result.Output.(map[string]interface{})
		assert.NotContains(t, out, "on_file")
		assert.NotEmpty(t, out["required_documents"])
	})
}

func TestGenerateFormTool(t *testing.T) {
	fs := newFakeStore()
	fs.members[1] = testMember()
	executor := setupTools(t, fs)

	t.Run("should prefill member details when logged in", func(t *testing.T) {
		result := executor.Execute(context.Background(), "generate_form",
			map[string]interface{}{"form_name": "enrollment"}, loggedIn(1))
		require.True(t, result.Success)

		out := result.Output.(map[string]interface{})
		assert.Equal(t, "Benefit Enrollment Form", out["title"])

		prefilled := out["prefilled"].(map[string]string)
		assert.Equal(t, "MIL-2015-000001", prefilled["member_number"])
		assert.Equal(t, "Jordan Reyes", prefilled["member_name"])

		form := out["form"].(string)
		assert.Contains(t, form, "member_number (required): MIL-2015-000001")
		assert.Contains(t, form, "plan_code (required): ____________________")
	})

	t.Run("should leave fields blank for anonymous callers", func(t *testing.T) {
		result := executor.Execute(context.Background(), "generate_form",
			map[string]interface{}{"form_name": "cancellation"}, anonymous())
		require.True(t, result.Success)

		out := result.Output.(map[string]interface{})
		prefilled := out["prefilled"].(map[string]string)
		assert.Empty(t, prefilled)
	})

	t.Run("should reject unknown forms and name the alternatives", func(t *testing.T) {
		result := executor.Execute(context.Background(), "generate_form",
			map[string]interface{}{"form_name": "tax_waiver"}, anonymous())
		assert.False(t, result.Success)
		assert.Contains(t, result.Error, "beneficiary_change, cancellation, enrollment")
	})
}

func TestExplainFormFieldsTool(t *testing.T) {
	fs := newFakeStore()
	executor := setupTools(t, fs)

	t.Run("should describe every field", func(t *testing.T) {
		result := executor.Execute(context.Background(), "explain_form_fields",
			map[string]interface{}{"form_name": "beneficiary_change"}, anonymous())
		require.True(t, result.Success)

		out := result.Output.(map[string]interface{})
		fields := out["fields"].([]formField)
		require.Len(t, fields, 5)
		assert.Equal(t, "member_number", fields[0].Name)
		assert.True(t, fields[0].Required)
	})

	t.Run("should reject unknown forms", func(t *testing.T) {
		result := executor.Execute(context.Background(), "explain_form_fields",
			map[string]interface{}{"form_name": "direct_deposit"}, anonymous())
		assert.False(t, result.Success)
	})
}
