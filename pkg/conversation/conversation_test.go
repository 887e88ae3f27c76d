package conversation

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConversationID(t *testing.T) {
	s := NewStore(nil, Options{})

	id, err := s.NewConversationID()
	require.NoError(t, err)
	assert.Len(t, id, len("conv_")+21)
	assert.Contains(t, id, "conv_")

	other, err := s.NewConversationID()
	require.NoError(t, err)
	assert.NotEqual(t, id, other)
}

func TestConversationKey(t *testing.T) {
	assert.Equal(t, "conversation:conv_abc:messages", conversationKey("conv_abc"))
}

func TestStoreDefaults(t *testing.T) {
	s := NewStore(nil, Options{})
	assert.Equal(t, 168*time.Hour, s.ttl)
	assert.Equal(t, 20, s.maxTurns)

	s = NewStore(nil, Options{TTL: time.Hour, MaxTurns: 5})
	assert.Equal(t, time.Hour, s.ttl)
	assert.Equal(t, 5, s.maxTurns)
}

func TestAppendMessage_Validation(t *testing.T) {
	s := NewStore(nil, Options{})

	err := s.AppendMessage(context.Background(), "", Message{Role: "user", Content: "hi"})
	assert.Error(t, err)

	err = s.AppendMessage(context.Background(), "conv_1", Message{Content: "hi"})
	assert.Error(t, err)
}

// Integration tests require a running Redis, pointed at by REDIS_ADDR.
func setupRedis(t *testing.T) *Store {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	require.NoError(t, rdb.Ping(context.Background()).Err())

	return NewStore(rdb, Options{TTL: time.Minute, MaxTurns: 2})
}

func TestHistoryRoundTrip(t *testing.T) {
	s := setupRedis(t)
	ctx := context.Background()

	id, err := s.NewConversationID()
	require.NoError(t, err)
	defer s.Clear(ctx, id)

	// Unknown conversation yields empty history
	history, err := s.History(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, history)

	require.NoError(t, s.AppendMessage(ctx, id, Message{Role: "user", Content: "What plans do I have?"}))
	require.NoError(t, s.AppendMessage(ctx, id, Message{Role: "assistant", Content: "You have two active plans.", AgentID: "manager"}))

	history, err = s.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "assistant", history[1].Role)
	assert.Equal(t, "manager", history[1].AgentID)
	assert.False(t, history[0].CreatedAt.IsZero())

	count, err := s.MessageCount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestHistoryTrimsToRecentTurns(t *testing.T) {
	s := setupRedis(t)
	ctx := context.Background()

	id, err := s.NewConversationID()
	require.NoError(t, err)
	defer s.Clear(ctx, id)

	for i := 0; i < 10; i++ {
		require.NoError(t, s.AppendMessage(ctx, id, Message{Role: "user", Content: "ping"}))
		require.NoError(t, s.AppendMessage(ctx, id, Message{Role: "assistant", Content: "pong"}))
	}

	// MaxTurns is 2, so only the last 4 messages come back
	history, err := s.History(ctx, id)
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestClear(t *testing.T) {
	s := setupRedis(t)
	ctx := context.Background()

	id, err := s.NewConversationID()
	require.NoError(t, err)

	require.NoError(t, s.AppendMessage(ctx, id, Message{Role: "user", Content: "hi"}))
	require.NoError(t, s.Clear(ctx, id))

	count, err := s.MessageCount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
