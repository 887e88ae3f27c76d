// Package conversation stores chat history in Redis with per-conversation TTL.
//
// Invariants:
// - History is an append-only Redis list keyed by conversation ID.
// - TTL is extended on every append.
// - Loads return at most the configured number of recent turns.
//
// Usage:
//
//	store := conversation.NewStore(rdb, conversation.Options{TTL: 168 * time.Hour, MaxTurns: 20})
//	id, _ := store.NewConversationID()
//	_ = store.AppendMessage(ctx, id, conversation.Message{Role: "user", Content: "hi"})
package conversation
