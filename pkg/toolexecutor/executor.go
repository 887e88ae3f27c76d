package toolexecutor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"

	"github.com/valorlife/membercenter/internal/observability"
)

const (
	defaultTimeout = 30 * time.Second
	maxOutputBytes = 10 * 1024
)

// ToolPolicy restricts which tools an agent may call. Deny wins over
// allow, and "*" matches every tool.
type ToolPolicy struct {
	Allow []string `json:"allow"`
	Deny  []string `json:"deny"`
}

// IsToolAllowed reports whether the policy permits the named tool.
// A nil policy permits everything.
func (tp *ToolPolicy) IsToolAllowed(toolName string) bool {
	if tp == nil {
		return true
	}
	for _, denied := range tp.Deny {
		if denied == toolName || denied == "*" {
			return false
		}
	}
	for _, allowed := range tp.Allow {
		if allowed == toolName || allowed == "*" {
			return true
		}
	}
	return false
}

// ToolParameter describes one input of a tool. Type must be a JSON
// Schema primitive type.
type ToolParameter struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Required    bool        `json:"required"`
	Default     interface{} `json:"default,omitempty"`
}

// ToolDefinition binds a tool's metadata to its handler. Timeout,
// when set, overrides the caller's deadline for this tool; long-running
// tools such as delegation set it explicitly.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters"`
	Timeout     time.Duration   `json:"-"`
	Handler     ToolHandler     `json:"-"`
}

// ToolHandler runs one tool call. The context carries the deadline and
// the ExecutionContext.
type ToolHandler func(ctx context.Context, params map[string]interface{}) (interface{}, error)

// ExecutionContext identifies who a tool call runs on behalf of.
// MemberID is the logged-in member of the current request; zero means
// the caller is anonymous.
type ExecutionContext struct {
	MemberID       int64
	ConversationID string
	AgentID        string
	Timeout        time.Duration
	ToolPolicy     *ToolPolicy
}

// ToolResult is the outcome of one tool call.
type ToolResult struct {
	Success   bool                   `json:"success"`
	Output    interface{}            `json:"output,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Truncated bool                   `json:"truncated,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// ToolExecutor holds the tool registry and runs calls against it.
// Registration compiles each tool's parameter list into a JSON Schema
// used to validate call arguments.
type ToolExecutor struct {
	mu      sync.RWMutex
	tools   map[string]*ToolDefinition
	schemas map[string]*gojsonschema.Schema
}

func New() *ToolExecutor {
	return &ToolExecutor{
		tools:   make(map[string]*ToolDefinition),
		schemas: make(map[string]*gojsonschema.Schema),
	}
}

// RegisterTool validates the definition, compiles its schema and adds
// it to the registry. Registering an existing name replaces it.
func (te *ToolExecutor) RegisterTool(def ToolDefinition) error {
	if err := checkDefinition(def); err != nil {
		return fmt.Errorf("invalid tool definition: %w", err)
	}

	schema, err := compileSchema(def.Parameters)
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	te.mu.Lock()
	te.tools[def.Name] = &def
	te.schemas[def.Name] = schema
	te.mu.Unlock()

	log.Info().Str("tool", def.Name).Msg("Tool registered")
	return nil
}

// UnregisterTool removes a tool from the registry.
func (te *ToolExecutor) UnregisterTool(name string) {
	te.mu.Lock()
	delete(te.tools, name)
	delete(te.schemas, name)
	te.mu.Unlock()
}

// GetTool returns the definition for name, or nil.
func (te *ToolExecutor) GetTool(name string) *ToolDefinition {
	te.mu.RLock()
	defer te.mu.RUnlock()
	return te.tools[name]
}

// ListTools returns the registered tool names in no particular order.
func (te *ToolExecutor) ListTools() []string {
	te.mu.RLock()
	defer te.mu.RUnlock()
	names := make([]string, 0, len(te.tools))
	for name := range te.tools {
		names = append(names, name)
	}
	return names
}

// GetToolCount returns the number of registered tools.
func (te *ToolExecutor) GetToolCount() int {
	te.mu.RLock()
	defer te.mu.RUnlock()
	return len(te.tools)
}

// Execute runs one tool call: policy check, schema validation, then the
// handler under a timeout. Every outcome is recorded as a metric and an
// audit event.
func (te *ToolExecutor) Execute(ctx context.Context, toolName string, params map[string]interface{}, execCtx *ExecutionContext) ToolResult {
	start := time.Now()

	agentID := ""
	if execCtx != nil {
		agentID = execCtx.AgentID
	}

	if execCtx != nil && !execCtx.ToolPolicy.IsToolAllowed(toolName) {
		log.Warn().Str("tool", toolName).Str("agent_id", agentID).Msg("Tool execution blocked by policy")
		return ToolResult{
			Success: false,
			Error:   fmt.Sprintf("tool '%s' is not allowed by agent policy", toolName),
			Metadata: map[string]interface{}{
				"policy_violation": true,
				"agent_id":         agentID,
			},
		}
	}

	te.mu.RLock()
	tool := te.tools[toolName]
	schema := te.schemas[toolName]
	te.mu.RUnlock()

	if tool == nil {
		log.Error().Str("tool", toolName).Msg("Tool not found")
		return ToolResult{Success: false, Error: fmt.Sprintf("tool not found: %s", toolName)}
	}

	if err := validateParams(schema, params); err != nil {
		log.Error().Str("tool", toolName).Err(err).Msg("Parameter validation failed")
		return ToolResult{Success: false, Error: fmt.Sprintf("parameter validation failed: %v", err)}
	}

	timeout := defaultTimeout
	if execCtx != nil && execCtx.Timeout > 0 {
		timeout = execCtx.Timeout
	}
	if tool.Timeout > 0 {
		timeout = tool.Timeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Handlers read the execution context for member identity.
	runCtx = ContextWithExecContext(runCtx, execCtx)

	resultCh := make(chan interface{}, 1)
	errCh := make(chan error, 1)
	go func() {
		out, err := tool.Handler(runCtx, params)
		if err != nil {
			errCh <- err
			return
		}
		resultCh <- out
	}()

	select {
	case result := <-resultCh:
		duration := time.Since(start)
		output, truncated := truncateOutput(result)

		observability.RecordToolExecution(toolName, duration, true)
		observability.RecordToolAudit(ctx, toolName, agentID, "success", nil)
		log.Debug().
			Str("tool", toolName).
			Dur("duration", duration).
			Bool("truncated", truncated).
			Msg("Tool execution completed")

		return ToolResult{
			Success:   true,
			Output:    output,
			Truncated: truncated,
			Metadata:  map[string]interface{}{"duration": duration.Milliseconds()},
		}

	case err := <-errCh:
		duration := time.Since(start)

		observability.RecordToolExecution(toolName, duration, false)
		observability.RecordToolAudit(ctx, toolName, agentID, "failure", map[string]interface{}{"error": err.Error()})
		log.Error().
			Str("tool", toolName).
			Dur("duration", duration).
			Err(err).
			Msg("Tool execution failed")

		return ToolResult{
			Success:  false,
			Error:    err.Error(),
			Metadata: map[string]interface{}{"duration": duration.Milliseconds()},
		}

	case <-runCtx.Done():
		duration := time.Since(start)

		observability.RecordToolExecution(toolName, duration, false)
		observability.RecordToolAudit(ctx, toolName, agentID, "failure", map[string]interface{}{"error": "timeout"})
		log.Error().
			Str("tool", toolName).
			Dur("duration", duration).
			Msg("Tool execution timeout")

		return ToolResult{
			Success:  false,
			Error:    fmt.Sprintf("tool execution timeout after %v", timeout),
			Metadata: map[string]interface{}{"duration": duration.Milliseconds()},
		}
	}
}

var validParamTypes = map[string]bool{
	"string": true, "number": true, "boolean": true,
	"object": true, "array": true, "integer": true,
}

func checkDefinition(def ToolDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if def.Description == "" {
		return fmt.Errorf("tool description cannot be empty")
	}
	if def.Handler == nil {
		return fmt.Errorf("tool handler cannot be nil")
	}
	for _, param := range def.Parameters {
		if param.Name == "" {
			return fmt.Errorf("parameter name cannot be empty")
		}
		if param.Type == "" {
			return fmt.Errorf("parameter type cannot be empty for %s", param.Name)
		}
		if param.Description == "" {
			return fmt.Errorf("parameter description cannot be empty for %s", param.Name)
		}
		if !validParamTypes[param.Type] {
			return fmt.Errorf("invalid parameter type %s for %s", param.Type, param.Name)
		}
	}
	return nil
}

// compileSchema builds a strict object schema from the parameter list.
// Unknown arguments are rejected.
func compileSchema(params []ToolParameter) (*gojsonschema.Schema, error) {
	properties := make(map[string]interface{}, len(params))
	var required []string

	for _, param := range params {
		prop := map[string]interface{}{
			"type":        param.Type,
			"description": param.Description,
		}
		if param.Default != nil {
			prop["default"] = param.Default
		}
		properties[param.Name] = prop
		if param.Required {
			required = append(required, param.Name)
		}
	}

	schemaMap := map[string]interface{}{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           properties,
	}
	if len(required) > 0 {
		schemaMap["required"] = required
	}

	return gojsonschema.NewSchema(gojsonschema.NewGoLoader(schemaMap))
}

func validateParams(schema *gojsonschema.Schema, params map[string]interface{}) error {
	if schema == nil {
		return nil
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(params))
	if err != nil {
		return err
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return fmt.Errorf("validation errors: %v", problems)
	}
	return nil
}

// truncateOutput caps tool output so a runaway result cannot blow up
// the conversation context.
func truncateOutput(output interface{}) (interface{}, bool) {
	str := fmt.Sprintf("%v", output)
	if len(str) <= maxOutputBytes {
		return output, false
	}
	log.Warn().Int("original", len(str)).Int("truncated", maxOutputBytes).Msg("Output truncated")
	return str[:maxOutputBytes] + "\n... [output truncated]", true
}
