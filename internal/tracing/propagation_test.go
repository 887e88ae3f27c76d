package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestPropagateToSpecialist(t *testing.T) {
	t.Run("keeps trace, replaces run and agent", func(t *testing.T) {
		parent := WithTraceID(context.Background(), "trace-1")
		parent = WithRunID(parent, "run-manager")
		parent = WithAgentID(parent, "manager")
		parent = WithConversationID(parent, "conv_1")

		child := PropagateToSpecialist(parent, "specialist.benefits")

		assert.Equal(t, "trace-1", GetTraceID(child))
		assert.Equal(t, "conv_1", GetConversationID(child))
		assert.Equal(t, "specialist.benefits", GetAgentID(child))
		assert.NotEmpty(t, GetRunID(child))
		assert.NotEqual(t, "run-manager", GetRunID(child))
	})

	t.Run("mints a trace ID when the parent has none", func(t *testing.T) {
		child := PropagateToSpecialist(context.Background(), "specialist.claims")

		assert.NotEmpty(t, GetTraceID(child))
		assert.NotEmpty(t, GetRunID(child))
		assert.Equal(t, "specialist.claims", GetAgentID(child))
	})
}

func TestLoggerFromContext(t *testing.T) {
	t.Run("stamps every tracing field", func(t *testing.T) {
		ctx := WithTraceID(context.Background(), "trace-1")
		ctx = WithRunID(ctx, "run-1")
		ctx = WithAgentID(ctx, "specialist.enrollment")
		ctx = WithConversationID(ctx, "conv_1")

		var buf bytes.Buffer
		logger := LoggerFromContext(ctx, zerolog.New(&buf))
		logger.Info().Msg("enrollment created")

		out := buf.String()
		assert.Contains(t, out, `"trace_id":"trace-1"`)
		assert.Contains(t, out, `"run_id":"run-1"`)
		assert.Contains(t, out, `"agent_id":"specialist.enrollment"`)
		assert.Contains(t, out, `"conversation_id":"conv_1"`)
	})

	t.Run("leaves the logger alone for a bare context", func(t *testing.T) {
		var buf bytes.Buffer
		logger := LoggerFromContext(context.Background(), zerolog.New(&buf))
		logger.Info().Msg("startup")

		out := buf.String()
		assert.NotContains(t, out, "trace_id")
		assert.NotContains(t, out, "run_id")
	})
}
