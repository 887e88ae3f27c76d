package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Message is a single turn in a conversation.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	AgentID   string    `json:"agent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Options configures the conversation store.
type Options struct {
	TTL      time.Duration
	MaxTurns int
}

// Store persists conversation history in Redis.
type Store struct {
	rdb      redis.Cmdable
	ttl      time.Duration
	maxTurns int
}

// NewStore creates a conversation store backed by the given Redis client.
func NewStore(rdb redis.Cmdable, opts Options) *Store {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 168 * time.Hour
	}
	maxTurns := opts.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 20
	}
	return &Store{
		rdb:      rdb,
		ttl:      ttl,
		maxTurns: maxTurns,
	}
}

// NewConversationID generates a new conversation identifier.
func (s *Store) NewConversationID() (string, error) {
	id, err := gonanoid.Generate(idAlphabet, 21)
	if err != nil {
		return "", fmt.Errorf("generate conversation id: %w", err)
	}
	return "conv_" + id, nil
}

func conversationKey(conversationID string) string {
	return fmt.Sprintf("conversation:%s:messages", conversationID)
}

// AppendMessage appends a message to a conversation and extends its TTL.
func (s *Store) AppendMessage(ctx context.Context, conversationID string, msg Message) error {
	if conversationID == "" {
		return fmt.Errorf("conversation id cannot be empty")
	}
	if msg.Role == "" {
		return fmt.Errorf("message role cannot be empty")
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	key := conversationKey(conversationID)

	if err := s.rdb.RPush(ctx, key, b).Err(); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to push message to redis")
		return fmt.Errorf("append message: %w", err)
	}

	// Extend TTL on touch
	if err := s.rdb.Expire(ctx, key, s.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to refresh conversation TTL")
	}

	return nil
}

// History returns the most recent turns of a conversation, oldest first.
// Unknown conversation IDs return an empty history.
func (s *Store) History(ctx context.Context, conversationID string) ([]Message, error) {
	key := conversationKey(conversationID)

	// Each turn is a user and an assistant message
	limit := int64(s.maxTurns * 2)

	rows, err := s.rdb.LRange(ctx, key, -limit, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return []Message{}, nil
		}
		log.Error().Err(err).Str("key", key).Msg("Failed to load conversation history")
		return nil, fmt.Errorf("load history: %w", err)
	}

	msgs := make([]Message, 0, len(rows))
	for i, raw := range rows {
		var m Message
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			log.Warn().Err(err).Str("conversationId", conversationID).Int("index", i).Msg("Skipping malformed history entry")
			continue
		}
		msgs = append(msgs, m)
	}

	return msgs, nil
}

// MessageCount returns the number of stored messages in a conversation.
func (s *Store) MessageCount(ctx context.Context, conversationID string) (int, error) {
	n, err := s.rdb.LLen(ctx, conversationKey(conversationID)).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("message count: %w", err)
	}
	return int(n), nil
}

// Clear deletes a conversation's history.
func (s *Store) Clear(ctx context.Context, conversationID string) error {
	if err := s.rdb.Del(ctx, conversationKey(conversationID)).Err(); err != nil {
		return fmt.Errorf("clear conversation: %w", err)
	}
	return nil
}
