package tracing

import (
	"context"

	"github.com/rs/zerolog"
)

// PropagateToSpecialist derives the context for a delegated specialist
// run: same trace and conversation, a fresh run ID, and the specialist
// as the current agent.
func PropagateToSpecialist(ctx context.Context, specialistID string) context.Context {
	traceID := GetTraceID(ctx)
	if traceID == "" {
		traceID = NewTraceID()
	}

	ctx = WithTraceID(ctx, traceID)
	ctx = WithRunID(ctx, NewRunID())
	ctx = WithAgentID(ctx, specialistID)

	if conversationID := GetConversationID(ctx); conversationID != "" {
		ctx = WithConversationID(ctx, conversationID)
	}
	return ctx
}

// LoggerFromContext returns base extended with every tracing field
// present in ctx, so log lines correlate with traces.
func LoggerFromContext(ctx context.Context, base zerolog.Logger) zerolog.Logger {
	tc := FromContext(ctx)

	logCtx := base.With()
	if tc.TraceID != "" {
		logCtx = logCtx.Str("trace_id", tc.TraceID)
	}
	if tc.RunID != "" {
		logCtx = logCtx.Str("run_id", tc.RunID)
	}
	if tc.AgentID != "" {
		logCtx = logCtx.Str("agent_id", tc.AgentID)
	}
	if tc.ConversationID != "" {
		logCtx = logCtx.Str("conversation_id", tc.ConversationID)
	}
	return logCtx.Logger()
}
