package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func anthropicToolDef(required interface{}) map[string]interface{} {
	return map[string]interface{}{
		"name":        "calculate_premium",
		"description": "Quote a monthly premium",
		"input_schema": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"plan_code":       map[string]interface{}{"type": "string"},
				"coverage_amount": map[string]interface{}{"type": "number"},
			},
			"required": required,
		},
	}
}

func TestToAnthropicTools_RequiredParams(t *testing.T) {
	t.Run("should carry required params from registry-built schemas", func(t *testing.T) {
		tools, err := toAnthropicTools([]interface{}{anthropicToolDef([]string{"plan_code"})})
		require.NoError(t, err)
		require.Len(t, tools, 1)
		assert.Equal(t, []string{"plan_code"}, tools[0].OfTool.InputSchema.Required)
	})

	t.Run("should carry required params from JSON-decoded schemas", func(t *testing.T) {
		tools, err := toAnthropicTools([]interface{}{anthropicToolDef([]interface{}{"plan_code", "coverage_amount"})})
		require.NoError(t, err)
		require.Len(t, tools, 1)
		assert.Equal(t, []string{"plan_code", "coverage_amount"}, tools[0].OfTool.InputSchema.Required)
	})

	t.Run("should reject a tool without an input schema", func(t *testing.T) {
		_, err := toAnthropicTools([]interface{}{map[string]interface{}{"name": "broken"}})
		assert.Error(t, err)
	})
}
