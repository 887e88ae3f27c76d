package crew

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/valorlife/membercenter/internal/observability"
	"github.com/valorlife/membercenter/internal/tracing"
	"github.com/valorlife/membercenter/pkg/agent"
	"github.com/valorlife/membercenter/pkg/knowledge"
	"github.com/valorlife/membercenter/pkg/toolexecutor"
)

// DelegateToolName is the manager's single tool.
const DelegateToolName = "delegate_to_specialist"

const (
	defaultManagerMaxTurns    = 8
	defaultSpecialistMaxTurns = 10
	defaultKnowledgeLimit     = 3

	// A specialist run is a full agent loop with its own tool calls
	// and retries, so it gets far more than the per-tool default.
	delegateTimeout = 5 * time.Minute
)

const managerSystemPrompt = `You are the AI Assistant Manager for a military insurance
member center. You coordinate a team of specialists: profile, benefits,
premium, eligibility and documents.

You never answer member-specific or plan-specific questions yourself.
Delegate each question to the right specialist with the
delegate_to_specialist tool, then compose their answers into one clear,
friendly response. For greetings or smalltalk, answer directly without
delegating.`

// KnowledgeSearcher retrieves knowledge base context for a query.
type KnowledgeSearcher interface {
	Search(ctx context.Context, query string, opts *knowledge.SearchOptions) ([]knowledge.SearchResult, error)
}

// AgentRunner executes a single agent run.
type AgentRunner interface {
	RunWithContext(ctx context.Context, params agent.AgentRunParams) (agent.AgentResult, error)
}

// Request is one chat message to process.
type Request struct {
	Message        string
	MemberID       int64
	ConversationID string
	History        []agent.AgentMessage
}

// Response is the manager's final answer.
type Response struct {
	Text        string
	Delegations []string
	Usage       *agent.TokenUsage
}

// Manager runs the hierarchical crew: one manager agent delegating to
// specialist agents over a shared tool executor.
type Manager struct {
	runner             AgentRunner
	executor           *toolexecutor.ToolExecutor
	registry           *Registry
	knowledge          KnowledgeSearcher
	logger             zerolog.Logger
	agentConfig        agent.AgentConfig
	specialistModel    string
	managerMaxTurns    int
	specialistMaxTurns int
	knowledgeLimit     int
}

// Config holds manager dependencies.
type Config struct {
	Runner             AgentRunner
	Executor           *toolexecutor.ToolExecutor
	Registry           *Registry
	Knowledge          KnowledgeSearcher
	Logger             zerolog.Logger
	AgentConfig        agent.AgentConfig
	SpecialistModel    string // defaults to AgentConfig.Model
	ManagerMaxTurns    int
	SpecialistMaxTurns int
	KnowledgeLimit     int // context chunks per chat turn
}

// NewManager wires the manager and registers the delegation tool.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Runner == nil {
		return nil, fmt.Errorf("agent runner is required")
	}
	if cfg.Executor == nil {
		return nil, fmt.Errorf("tool executor is required")
	}
	if cfg.Registry == nil {
		cfg.Registry = NewRegistry()
	}
	if cfg.AgentConfig.Model == "" {
		cfg.AgentConfig = agent.DefaultConfig()
	}
	if cfg.ManagerMaxTurns <= 0 {
		cfg.ManagerMaxTurns = defaultManagerMaxTurns
	}
	if cfg.SpecialistMaxTurns <= 0 {
		cfg.SpecialistMaxTurns = defaultSpecialistMaxTurns
	}
	if cfg.KnowledgeLimit <= 0 {
		cfg.KnowledgeLimit = defaultKnowledgeLimit
	}

	m := &Manager{
		runner:             cfg.Runner,
		executor:           cfg.Executor,
		registry:           cfg.Registry,
		knowledge:          cfg.Knowledge,
		logger:             cfg.Logger,
		agentConfig:        cfg.AgentConfig,
		specialistModel:    cfg.SpecialistModel,
		managerMaxTurns:    cfg.ManagerMaxTurns,
		specialistMaxTurns: cfg.SpecialistMaxTurns,
		knowledgeLimit:     cfg.KnowledgeLimit,
	}

	if err := cfg.Executor.RegisterTool(m.delegateTool()); err != nil {
		return nil, fmt.Errorf("failed to register delegation tool: %w", err)
	}

	return m, nil
}

// Process answers one chat message through the crew.
func (m *Manager) Process(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, fmt.Errorf("message is required")
	}

	ctx, span := tracing.StartSpan(
		ctx,
		"membercenter.crew",
		"crew.process",
		attribute.String("conversation_id", req.ConversationID),
		attribute.Bool("logged_in", req.MemberID != 0),
	)
	defer span.End()

	prompt := m.buildTaskPrompt(ctx, req)

	config := m.agentConfig
	config.SystemPrompt = managerSystemPrompt
	config.Tools = []string{DelegateToolName}

	result, err := m.runner.RunWithContext(ctx, agent.AgentRunParams{
		Prompt:         prompt,
		History:        req.History,
		Config:         config,
		AgentID:        "manager",
		ConversationID: req.ConversationID,
		MemberID:       req.MemberID,
		ToolPolicy:     &toolexecutor.ToolPolicy{Allow: []string{DelegateToolName}},
		MaxTurns:       m.managerMaxTurns,
	})
	if err != nil {
		return nil, fmt.Errorf("manager run failed: %w", err)
	}

	resp := &Response{
		Text:  result.Response,
		Usage: result.Usage,
	}
	for _, call := range result.ToolCalls {
		if call.Name != DelegateToolName {
			continue
		}
		if name, ok := call.Parameters["specialist"].(string); ok {
			resp.Delegations = append(resp.Delegations, name)
		}
	}

	m.logger.Info().
		Str("conversation_id", req.ConversationID).
		Strs("delegations", resp.Delegations).
		Msg("Chat message processed")

	return resp, nil
}

// buildTaskPrompt assembles the manager's task: the user message, any
// knowledge base context, and a note about login state.
func (m *Manager) buildTaskPrompt(ctx context.Context, req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Member message: %s\n", req.Message)

	if kb := m.knowledgeContext(ctx, req.Message); kb != "" {
		b.WriteString("\n")
		b.WriteString(kb)
		b.WriteString("\nUse the above knowledge base context when it is relevant to the question.\n")
	}

	if req.MemberID != 0 {
		b.WriteString("\nNote: a member is logged in. Delegate to the appropriate specialist to fetch their personal data when they ask about their profile, benefits, enrollments or coverage.\n")
	} else {
		b.WriteString("\nNote: no member is logged in. If they ask about their personal profile or benefits, let them know they need to log in first.\n")
	}

	return b.String()
}

func (m *Manager) knowledgeContext(ctx context.Context, query string) string {
	if m.knowledge == nil {
		return ""
	}

	results, err := m.knowledge.Search(ctx, query, &knowledge.SearchOptions{
		Limit:         m.knowledgeLimit,
		VectorWeight:  0.7,
		KeywordWeight: 0.3,
	})
	if err != nil {
		// Degrade to an uninformed manager rather than failing the chat
		m.logger.Warn().Err(err).Msg("Knowledge base lookup failed")
		return ""
	}
	if len(results) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Relevant knowledge base information:\n")
	for _, r := range results {
		source := r.DocPath
		if r.Heading != "" {
			source = fmt.Sprintf("%s / %s", r.DocPath, r.Heading)
		}
		fmt.Fprintf(&b, "\n[Source: %s]\n%s\n", source, r.Content)
	}
	return b.String()
}

// delegateTool runs a named specialist and returns its answer as the
// tool result. Specialists never receive this tool, so delegation depth
// is one.
func (m *Manager) delegateTool() toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        DelegateToolName,
		Description: "Delegate a request to a specialist agent and return its answer",
		Parameters: []toolexecutor.ToolParameter{
			{
				Name:        "specialist",
				Type:        "string",
				Description: "Which specialist to use: profile, benefits, premium, eligibility or documents",
				Required:    true,
			},
			{
				Name:        "request",
				Type:        "string",
				Description: "The request to send to the specialist, with all needed context",
				Required:    true,
			},
		},
		Timeout: delegateTimeout,
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			name, _ := params["specialist"].(string)
			request, _ := params["request"].(string)

			specialist, err := m.registry.Get(name)
			if err != nil {
				return nil, err
			}

			execCtx := toolexecutor.ExecContextFromContext(ctx)
			var memberID int64
			if execCtx != nil {
				memberID = execCtx.MemberID
			}

			start := time.Now()
			result, err := m.runSpecialist(ctx, specialist, request, memberID)
			observability.RecordDelegation(name, err == nil)

			if err != nil {
				m.logger.Error().
					Err(err).
					Str("specialist", name).
					Dur("duration", time.Since(start)).
					Msg("Specialist run failed")
				return nil, fmt.Errorf("specialist %s failed: %w", name, err)
			}

			m.logger.Debug().
				Str("specialist", name).
				Dur("duration", time.Since(start)).
				Msg("Specialist run completed")

			return map[string]interface{}{
				"specialist": name,
				"response":   result.Response,
			}, nil
		},
	}
}

func (m *Manager) runSpecialist(ctx context.Context, specialist *Specialist, request string, memberID int64) (agent.AgentResult, error) {
	config := m.agentConfig
	config.SystemPrompt = specialist.SystemPrompt
	config.Tools = specialist.Tools
	if m.specialistModel != "" {
		config.Model = m.specialistModel
	}

	// Same trace, fresh run ID for the delegated turn.
	ctx = tracing.PropagateToSpecialist(ctx, "specialist."+specialist.Name)

	// ConversationID stays empty so the specialist run does not clobber
	// the manager's abort registration; cancelling the manager cancels
	// the specialist through ctx.
	return m.runner.RunWithContext(ctx, agent.AgentRunParams{
		Prompt:     request,
		Config:     config,
		AgentID:    "specialist." + specialist.Name,
		MemberID:   memberID,
		ToolPolicy: &toolexecutor.ToolPolicy{Allow: specialist.Tools},
		MaxTurns:   m.specialistMaxTurns,
	})
}
