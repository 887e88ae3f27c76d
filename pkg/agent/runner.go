package agent

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/valorlife/membercenter/internal/observability"
	"github.com/valorlife/membercenter/internal/tracing"
	"github.com/valorlife/membercenter/pkg/toolexecutor"
)

const (
	defaultMaxTurns   = 10
	defaultMaxRetries = 3
	toolCallTimeout   = 30 * time.Second
	recentKeep        = 20
)

// Runner drives a single agent through its completion-and-tools loop.
// It fails over between auth profiles, retries transient provider
// errors with backoff, and tracks in-flight runs so a conversation can
// be aborted.
type Runner struct {
	toolExecutor    *toolexecutor.ToolExecutor
	logger          zerolog.Logger
	providerFactory ProviderCreator

	authMu       sync.RWMutex
	authProfiles []AuthProfile

	runsMu     sync.RWMutex
	activeRuns map[string]context.CancelFunc
}

// Config configures a Runner. ToolExecutor and at least one auth
// profile are required; ProviderFactory defaults to the built-in one.
type Config struct {
	ToolExecutor    *toolexecutor.ToolExecutor
	Logger          zerolog.Logger
	AuthProfiles    []AuthProfile
	ProviderFactory ProviderCreator
}

// ProviderCreator creates LLM providers from auth profiles.
type ProviderCreator interface {
	NewProvider(profile AuthProfile) (LLMProvider, error)
}

func NewRunner(cfg Config) (*Runner, error) {
	observability.EnsureRegistered()

	if cfg.ToolExecutor == nil {
		return nil, fmt.Errorf("tool executor is required")
	}
	if len(cfg.AuthProfiles) == 0 {
		return nil, fmt.Errorf("at least one auth profile is required")
	}

	factory := cfg.ProviderFactory
	if factory == nil {
		factory = &ProviderFactory{}
	}

	return &Runner{
		toolExecutor:    cfg.ToolExecutor,
		logger:          cfg.Logger,
		providerFactory: factory,
		authProfiles:    cfg.AuthProfiles,
		activeRuns:      make(map[string]context.CancelFunc),
	}, nil
}

// Run executes an agent turn with a background context.
func (r *Runner) Run(params AgentRunParams) (AgentResult, error) {
	return r.RunWithContext(context.Background(), params)
}

// RunWithContext executes one agent turn. The conversation and agent
// IDs are attached to the trace and every log line under it.
func (r *Runner) RunWithContext(ctx context.Context, params AgentRunParams) (AgentResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if tracing.GetTraceID(ctx) == "" {
		ctx = tracing.NewRequestContext(ctx)
	}
	ctx = tracing.WithConversationID(ctx, params.ConversationID)
	ctx = tracing.WithAgentID(ctx, params.AgentID)
	ctx, span := tracing.StartSpan(
		ctx,
		"membercenter.agent",
		"agent.run",
		attribute.String("agent_id", params.AgentID),
		attribute.String("conversation_id", params.ConversationID),
	)
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, r.logger).With().Str("agent_id", params.AgentID).Logger()

	if err := validateAgentConfig(params.Config); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return AgentResult{}, fmt.Errorf("invalid configuration: %w", err)
	}

	result, err := r.run(ctx, params)
	if err != nil {
		logger.Error().Err(err).Msg("Agent run failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return AgentResult{}, err
	}
	return result, nil
}

// Abort cancels the in-flight run for a conversation, if any.
func (r *Runner) Abort(conversationID string) error {
	r.runsMu.Lock()
	defer r.runsMu.Unlock()

	cancel, ok := r.activeRuns[conversationID]
	if !ok {
		r.logger.Debug().Str("conversationId", conversationID).Msg("No active run to abort")
		return nil
	}

	r.logger.Info().Str("conversationId", conversationID).Msg("Aborting agent execution")
	cancel()
	delete(r.activeRuns, conversationID)
	return nil
}

// IsRunning reports whether a run is in flight for the conversation.
func (r *Runner) IsRunning(conversationID string) bool {
	r.runsMu.RLock()
	defer r.runsMu.RUnlock()
	_, ok := r.activeRuns[conversationID]
	return ok
}

func (r *Runner) run(ctx context.Context, params AgentRunParams) (AgentResult, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if params.ConversationID != "" {
		r.runsMu.Lock()
		r.activeRuns[params.ConversationID] = cancel
		r.runsMu.Unlock()

		defer func() {
			r.runsMu.Lock()
			delete(r.activeRuns, params.ConversationID)
			r.runsMu.Unlock()
		}()
	}

	select {
	case <-runCtx.Done():
		return AgentResult{ConversationID: params.ConversationID, Aborted: true}, nil
	default:
	}

	messages := r.buildMessages(params)

	tools, err := r.buildTools(params.Config.Tools)
	if err != nil {
		return AgentResult{}, fmt.Errorf("failed to build tools: %w", err)
	}

	result, err := r.runWithFailover(runCtx, messages, tools, params)
	if err != nil {
		return AgentResult{}, err
	}

	result.ConversationID = params.ConversationID
	return result, nil
}

func validateAgentConfig(config AgentConfig) error {
	if config.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}
	if config.Temperature < 0 || config.Temperature > 1 {
		return fmt.Errorf("temperature must be between 0 and 1")
	}
	if config.MaxTokens < 0 {
		return fmt.Errorf("max tokens cannot be negative")
	}
	if config.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	return nil
}

// buildMessages assembles system prompt, prior turns and the current
// prompt, compacting old history when it would blow the token budget.
func (r *Runner) buildMessages(params AgentRunParams) []AgentMessage {
	systemPrompt := params.Config.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = "You are a helpful assistant."
	}

	messages := []AgentMessage{{Role: "system", Content: systemPrompt}}

	for _, msg := range params.History {
		if msg.Role == "" || msg.Content == "" {
			continue
		}
		messages = append(messages, AgentMessage{Role: msg.Role, Content: msg.Content})
	}

	messages = append(messages, AgentMessage{Role: "user", Content: params.Prompt})

	return r.compactIfNeeded(messages, params.Config.MaxTokens)
}

// compactIfNeeded drops older turns once the estimated token count
// exceeds the budget, leaving a placeholder so the model knows history
// was elided. System messages always survive.
func (r *Runner) compactIfNeeded(messages []AgentMessage, maxTokens int) []AgentMessage {
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	tokenCount := EstimateTokens(messages)
	if tokenCount <= maxTokens {
		return messages
	}

	r.logger.Info().
		Int("tokenCount", tokenCount).
		Int("maxTokens", maxTokens).
		Msg("Compacting context")

	var system, rest []AgentMessage
	for _, msg := range messages {
		if msg.Role == "system" {
			system = append(system, msg)
		} else {
			rest = append(rest, msg)
		}
	}

	if len(rest) <= recentKeep {
		return messages
	}

	elided := len(rest) - recentKeep
	compacted := append(system, AgentMessage{
		Role:    "system",
		Content: fmt.Sprintf("[Previous conversation summary: %d messages exchanged]", elided),
	})
	return append(compacted, rest[len(rest)-recentKeep:]...)
}

// buildTools resolves tool names against the registry and renders each
// definition in the wire shape both providers translate from.
func (r *Runner) buildTools(toolNames []string) ([]interface{}, error) {
	if len(toolNames) == 0 {
		return nil, nil
	}

	tools := make([]interface{}, 0, len(toolNames))
	for _, name := range toolNames {
		def := r.toolExecutor.GetTool(name)
		if def == nil {
			return nil, fmt.Errorf("tool not found: %s", name)
		}

		properties := make(map[string]interface{}, len(def.Parameters))
		var required []string
		for _, param := range def.Parameters {
			properties[param.Name] = map[string]interface{}{
				"type":        param.Type,
				"description": param.Description,
			}
			if param.Required {
				required = append(required, param.Name)
			}
		}

		inputSchema := map[string]interface{}{
			"type":       "object",
			"properties": properties,
		}
		if len(required) > 0 {
			inputSchema["required"] = required
		}

		tools = append(tools, map[string]interface{}{
			"name":         def.Name,
			"description":  def.Description,
			"input_schema": inputSchema,
		})
	}

	return tools, nil
}

// runWithFailover walks the auth profiles in priority order, skipping
// those in cooldown, until one completes the turn. Permanent errors
// stop the walk immediately.
func (r *Runner) runWithFailover(ctx context.Context, messages []AgentMessage, tools []interface{}, params AgentRunParams) (AgentResult, error) {
	r.authMu.RLock()
	profiles := make([]AuthProfile, len(r.authProfiles))
	copy(profiles, r.authProfiles)
	r.authMu.RUnlock()
	logger := tracing.LoggerFromContext(ctx, r.logger).With().Str("agent_id", params.AgentID).Logger()

	sortProfilesByPriority(profiles)

	var lastErr error
	for _, profile := range profiles {
		started := time.Now()

		if profile.CooldownUntil != nil && time.Now().UnixMilli() < *profile.CooldownUntil {
			observability.SetProviderCooldown(profile.Provider, true)
			logger.Debug().Str("profileId", profile.ID).Msg("Skipping profile in cooldown")
			continue
		}

		observability.SetProviderCooldown(profile.Provider, false)
		logger.Info().Str("profileId", profile.ID).Msg("Trying auth profile")

		provider, err := r.providerFactory.NewProvider(profile)
		if err != nil {
			observability.RecordAgentRun(profile.Provider, time.Since(started), false)
			logger.Warn().Str("profileId", profile.ID).Err(err).Msg("Failed to create provider")
			continue
		}

		result, err := r.runProvider(ctx, provider, messages, tools, params)
		if err == nil {
			r.markProfileSuccess(profile.ID)
			observability.RecordAgentRun(profile.Provider, time.Since(started), true)
			observability.SetProviderCooldown(profile.Provider, false)
			return result, nil
		}

		lastErr = err
		observability.RecordAgentRun(profile.Provider, time.Since(started), false)
		logger.Warn().Str("profileId", profile.ID).Err(err).Msg("Auth profile failed")
		r.markProfileFailure(profile.ID)

		if !IsRetryableError(err) {
			return AgentResult{}, err
		}
	}

	if lastErr != nil {
		logger.Error().Err(lastErr).Msg("All auth profiles failed")
	}
	return AgentResult{}, fmt.Errorf("all auth profiles failed: %w", lastErr)
}

func (r *Runner) runProvider(ctx context.Context, provider LLMProvider, messages []AgentMessage, tools []interface{}, params AgentRunParams) (AgentResult, error) {
	ctx, span := tracing.StartSpan(
		ctx,
		"membercenter.agent",
		"agent.execute_with_provider",
		attribute.String("provider", provider.Provider()),
	)
	defer span.End()

	result, err := r.toolLoop(ctx, provider, messages, tools, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return result, err
}

// toolLoop alternates completions and tool executions until the model
// answers without requesting tools, or the turn budget runs out.
func (r *Runner) toolLoop(ctx context.Context, provider LLMProvider, messages []AgentMessage, tools []interface{}, params AgentRunParams) (AgentResult, error) {
	systemPrompt := ""
	for _, msg := range messages {
		if msg.Role == "system" {
			systemPrompt = msg.Content
			break
		}
	}

	maxTurns := params.MaxTurns
	if maxTurns <= 0 {
		maxTurns = defaultMaxTurns
	}

	var allToolCalls []ToolCall

	for turn := 0; turn < maxTurns; turn++ {
		select {
		case <-ctx.Done():
			return AgentResult{Aborted: true}, nil
		default:
		}

		response, err := r.completeWithRetry(ctx, provider, messages, tools, systemPrompt, params)
		if err != nil {
			return AgentResult{}, err
		}

		if len(response.ToolCalls) == 0 {
			return AgentResult{
				Response:  response.Content,
				ToolCalls: allToolCalls,
				Usage:     response.Usage,
			}, nil
		}

		messages = append(messages, AgentMessage{
			Role:      "assistant",
			Content:   response.Content,
			ToolCalls: response.ToolCalls,
		})

		for _, toolCall := range response.ToolCalls {
			result := r.toolExecutor.Execute(ctx, toolCall.Name, toolCall.Parameters, &toolexecutor.ExecutionContext{
				MemberID:       params.MemberID,
				ConversationID: params.ConversationID,
				AgentID:        params.AgentID,
				Timeout:        toolCallTimeout,
				ToolPolicy:     params.ToolPolicy,
			})

			content := fmt.Sprintf("%v", result.Output)
			if result.Error != "" {
				content = result.Error
			}
			messages = append(messages, AgentMessage{
				Role:       "tool",
				Content:    content,
				ToolCallID: toolCall.ID,
			})
		}

		allToolCalls = append(allToolCalls, response.ToolCalls...)
	}

	return AgentResult{}, fmt.Errorf("maximum tool execution turns exceeded")
}

// completeWithRetry retries transient provider errors with exponential
// backoff: 1s, 2s, 4s.
func (r *Runner) completeWithRetry(ctx context.Context, provider LLMProvider, messages []AgentMessage, tools []interface{}, systemPrompt string, params AgentRunParams) (*LLMResponse, error) {
	maxRetries := params.Config.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		response, err := provider.Call(ctx, LLMRequest{
			Model:        params.Config.Model,
			SystemPrompt: systemPrompt,
			Messages:     messages,
			Tools:        tools,
			Temperature:  params.Config.Temperature,
			MaxTokens:    params.Config.MaxTokens,
		})
		if err == nil {
			return response, nil
		}

		lastErr = err
		if !IsRetryableError(err) {
			return nil, err
		}
		if attempt == maxRetries-1 {
			break
		}

		delay := time.Duration(1<<attempt) * time.Second
		r.logger.Info().
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Msg("Retrying after error")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("max retries (%d) exceeded: %w", maxRetries, lastErr)
}

func (r *Runner) markProfileSuccess(profileID string) {
	r.authMu.Lock()
	defer r.authMu.Unlock()

	for i := range r.authProfiles {
		if r.authProfiles[i].ID == profileID {
			r.authProfiles[i].FailureCount = 0
			r.authProfiles[i].CooldownUntil = nil
			observability.SetProviderCooldown(r.authProfiles[i].Provider, false)
			return
		}
	}
}

// markProfileFailure bumps the failure count and extends the cooldown
// linearly with it, one minute per consecutive failure.
func (r *Runner) markProfileFailure(profileID string) {
	r.authMu.Lock()
	defer r.authMu.Unlock()

	for i := range r.authProfiles {
		if r.authProfiles[i].ID == profileID {
			r.authProfiles[i].FailureCount++
			until := time.Now().UnixMilli() + int64(60000*r.authProfiles[i].FailureCount)
			r.authProfiles[i].CooldownUntil = &until
			observability.SetProviderCooldown(r.authProfiles[i].Provider, true)
			return
		}
	}
}

func sortProfilesByPriority(profiles []AuthProfile) {
	sort.SliceStable(profiles, func(i, j int) bool {
		return profiles[i].Priority < profiles[j].Priority
	})
}
