package agent

import (
	"strings"

	"github.com/valorlife/membercenter/pkg/toolexecutor"
)

// AgentRunParams is the input for one agent turn. MemberID identifies
// the logged-in member so tools can scope their lookups.
type AgentRunParams struct {
	Prompt         string                   `json:"prompt"`
	History        []AgentMessage           `json:"history,omitempty"`
	Config         AgentConfig              `json:"config"`
	AgentID        string                   `json:"agent_id,omitempty"`
	ConversationID string                   `json:"conversation_id,omitempty"`
	MemberID       int64                    `json:"member_id,omitempty"`
	ToolPolicy     *toolexecutor.ToolPolicy `json:"tool_policy,omitempty"`
	MaxTurns       int                      `json:"max_turns,omitempty"`
}

// AgentConfig sets the model and sampling parameters for an agent.
// Tools lists the registered tool names this agent may call.
type AgentConfig struct {
	Model        string   `json:"model"`
	Temperature  float64  `json:"temperature,omitempty"`
	MaxTokens    int      `json:"max_tokens,omitempty"`
	SystemPrompt string   `json:"system_prompt,omitempty"`
	Tools        []string `json:"tools,omitempty"`
	MaxRetries   int      `json:"max_retries,omitempty"`
}

// AgentResult is the outcome of one agent turn.
type AgentResult struct {
	Response       string      `json:"response"`
	ToolCalls      []ToolCall  `json:"tool_calls,omitempty"`
	Usage          *TokenUsage `json:"usage,omitempty"`
	ConversationID string      `json:"conversation_id"`
	Aborted        bool        `json:"aborted,omitempty"`
}

// ToolCall is a tool invocation the model requested.
type ToolCall struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name"`
	Parameters map[string]interface{} `json:"parameters"`
}

// TokenUsage tracks token consumption for a completion.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// AuthProfile holds the credentials for one provider account.
// CooldownUntil is a unix-millis timestamp the runner sets after
// failures; a profile in cooldown is skipped during failover. Lower
// Priority wins.
type AuthProfile struct {
	ID            string `json:"id"`
	Provider      string `json:"provider"` // "anthropic", "openai"
	APIKey        string `json:"api_key"`
	CooldownUntil *int64 `json:"cooldown_until,omitempty"`
	FailureCount  int    `json:"failure_count"`
	Priority      int    `json:"priority"`
}

// AgentMessage is one turn in a conversation. Role is "system", "user",
// "assistant" or "tool"; ToolCallID links a tool result back to the
// call that produced it.
type AgentMessage struct {
	Role       string                 `json:"role"`
	Content    string                 `json:"content"`
	ToolCalls  []ToolCall             `json:"tool_calls,omitempty"`
	ToolCallID string                 `json:"tool_call_id,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// DefaultConfig returns the baseline agent configuration.
func DefaultConfig() AgentConfig {
	return AgentConfig{
		Model:       "claude-3-5-sonnet-20241022",
		Temperature: 0.3,
		MaxTokens:   4096,
		MaxRetries:  3,
	}
}

// IsRetryableError reports whether an error is worth another attempt:
// transient network failures, rate limits and server-side errors.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()

	switch {
	case strings.Contains(msg, "ECONNRESET"), strings.Contains(msg, "ETIMEDOUT"):
		return true
	case strings.Contains(msg, "429"), strings.Contains(msg, "rate limit"):
		return true
	case strings.Contains(msg, "500"), strings.Contains(msg, "502"),
		strings.Contains(msg, "503"), strings.Contains(msg, "504"):
		return true
	}
	return false
}

// EstimateTokens approximates the token count of a message list,
// assuming roughly four characters per token.
func EstimateTokens(messages []AgentMessage) int {
	chars := 0
	for _, msg := range messages {
		chars += len(msg.Content)
	}
	return (chars + 3) / 4
}
