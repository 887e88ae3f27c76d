package tracing

import (
	"context"

	"github.com/google/uuid"
)

// ContextKey is the type for tracing context keys.
type ContextKey string

const (
	// TraceIDKey carries the request-scoped trace ID.
	TraceIDKey ContextKey = "trace_id"
	// RunIDKey carries the ID of one agent run within a trace.
	RunIDKey ContextKey = "run_id"
	// AgentIDKey carries the ID of the agent currently executing.
	AgentIDKey ContextKey = "agent_id"
	// ConversationIDKey carries the chat conversation ID.
	ConversationIDKey ContextKey = "conversation_id"
)

// TraceContext is a snapshot of the tracing values in a context.
type TraceContext struct {
	TraceID        string
	RunID          string
	AgentID        string
	ConversationID string
}

// NewTraceID generates a fresh trace ID.
func NewTraceID() string {
	return uuid.New().String()
}

// NewRunID generates a fresh run ID.
func NewRunID() string {
	return uuid.New().String()
}

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

func WithAgentID(ctx context.Context, agentID string) context.Context {
	return context.WithValue(ctx, AgentIDKey, agentID)
}

func WithConversationID(ctx context.Context, conversationID string) context.Context {
	return context.WithValue(ctx, ConversationIDKey, conversationID)
}

func stringValue(ctx context.Context, key ContextKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}

// GetTraceID returns the trace ID in ctx, or "".
func GetTraceID(ctx context.Context) string {
	return stringValue(ctx, TraceIDKey)
}

// GetRunID returns the run ID in ctx, or "".
func GetRunID(ctx context.Context) string {
	return stringValue(ctx, RunIDKey)
}

// GetAgentID returns the agent ID in ctx, or "".
func GetAgentID(ctx context.Context) string {
	return stringValue(ctx, AgentIDKey)
}

// GetConversationID returns the conversation ID in ctx, or "".
func GetConversationID(ctx context.Context) string {
	return stringValue(ctx, ConversationIDKey)
}

// FromContext snapshots all tracing values in ctx.
func FromContext(ctx context.Context) *TraceContext {
	return &TraceContext{
		TraceID:        GetTraceID(ctx),
		RunID:          GetRunID(ctx),
		AgentID:        GetAgentID(ctx),
		ConversationID: GetConversationID(ctx),
	}
}

// NewContext applies the non-empty values of tc to ctx.
func NewContext(ctx context.Context, tc *TraceContext) context.Context {
	if tc.TraceID != "" {
		ctx = WithTraceID(ctx, tc.TraceID)
	}
	if tc.RunID != "" {
		ctx = WithRunID(ctx, tc.RunID)
	}
	if tc.AgentID != "" {
		ctx = WithAgentID(ctx, tc.AgentID)
	}
	if tc.ConversationID != "" {
		ctx = WithConversationID(ctx, tc.ConversationID)
	}
	return ctx
}

// NewRequestContext stamps ctx with a fresh trace ID. Called once at
// the edge of each incoming request.
func NewRequestContext(ctx context.Context) context.Context {
	return WithTraceID(ctx, NewTraceID())
}
