package agent

import (
	"context"
	"fmt"
)

// LLMProvider abstracts a chat-completion backend so the runner can
// fail over between vendors without changing its tool loop.
type LLMProvider interface {
	// Call runs one completion and returns the assistant turn.
	Call(ctx context.Context, request LLMRequest) (*LLMResponse, error)

	// Provider names the backing vendor, e.g. "anthropic".
	Provider() string
}

// LLMRequest is a single completion request. Tools carries the JSON
// schema tool definitions handed to the model verbatim.
type LLMRequest struct {
	Model        string
	SystemPrompt string
	Messages     []AgentMessage
	Tools        []interface{}
	Temperature  float64
	MaxTokens    int
}

// LLMResponse is the assistant turn, including any tool calls the
// model requested before it will produce a final answer.
type LLMResponse struct {
	Content   string
	ToolCalls []ToolCall
	Usage     *TokenUsage
}

// ProviderFactory builds a provider from an auth profile.
type ProviderFactory struct{}

func (f *ProviderFactory) NewProvider(profile AuthProfile) (LLMProvider, error) {
	switch profile.Provider {
	case "anthropic":
		return NewAnthropicProvider(profile.APIKey), nil
	case "openai":
		return NewOpenAIProvider(profile.APIKey), nil
	}
	return nil, fmt.Errorf("unsupported provider: %s", profile.Provider)
}
