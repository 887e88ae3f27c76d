package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/valorlife/membercenter/internal/observability"
	"github.com/valorlife/membercenter/internal/tracing"
	"github.com/valorlife/membercenter/pkg/agent"
	"github.com/valorlife/membercenter/pkg/conversation"
	"github.com/valorlife/membercenter/pkg/crew"
)

const maxChatMessageLength = 4000

type chatRequest struct {
	Message        string `json:"message"`
	MemberID       int64  `json:"member_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type chatResponse struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversation_id"`
}

func (req *chatRequest) validate() string {
	if strings.TrimSpace(req.Message) == "" {
		return "message is required"
	}
	if len(req.Message) > maxChatMessageLength {
		return "message is too long"
	}
	if req.MemberID < 0 {
		return "member_id must be positive"
	}
	return ""
}

func (s *server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !readJSON(w, r, &req, 64*1024) {
		return
	}
	if msg := req.validate(); msg != "" {
		writeErrorMessage(w, http.StatusBadRequest, msg)
		return
	}
	if err := s.guard.CheckMessage(req.Message); err != nil {
		s.logger.Info().Err(err).Msg("Chat message blocked")
		writeErrorMessage(w, http.StatusBadRequest, "message contains blocked content")
		return
	}

	resp, err := s.processChat(r.Context(), req)
	if err != nil {
		s.logger.Error().Err(err).Msg("Chat processing failed")
		writeErrorMessage(w, http.StatusServiceUnavailable, "assistant is temporarily unavailable")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// processChat runs one chat turn: load history, run the crew, persist
// both sides of the exchange.
func (s *server) processChat(ctx context.Context, req chatRequest) (*chatResponse, error) {
	start := time.Now()
	ctx = tracing.NewRequestContext(ctx)

	// Strip SSNs and card numbers before the message reaches a provider
	// or the conversation store.
	req.Message = s.guard.RedactPII(req.Message)

	conversationID := req.ConversationID
	if conversationID == "" {
		id, err := s.conversations.NewConversationID()
		if err != nil {
			return nil, err
		}
		conversationID = id
	}

	history, err := s.conversations.History(ctx, conversationID)
	if err != nil {
		// A dead Redis should not take chat down with it
		s.logger.Warn().Err(err).Str("conversation_id", conversationID).Msg("History load failed")
		history = nil
	}

	result, err := s.chat.Process(ctx, crew.Request{
		Message:        req.Message,
		MemberID:       req.MemberID,
		ConversationID: conversationID,
		History:        toAgentHistory(history),
	})
	observability.RecordChatRequest(time.Since(start), err == nil)
	if err != nil {
		return nil, err
	}

	s.persistTurn(ctx, conversationID, req.Message, result.Text)

	return &chatResponse{
		Response:       result.Text,
		ConversationID: conversationID,
	}, nil
}

func (s *server) persistTurn(ctx context.Context, conversationID, userMessage, assistantMessage string) {
	if err := s.conversations.AppendMessage(ctx, conversationID, conversation.Message{
		Role:    "user",
		Content: userMessage,
	}); err != nil {
		s.logger.Warn().Err(err).Str("conversation_id", conversationID).Msg("Persist user message failed")
		return
	}
	if err := s.conversations.AppendMessage(ctx, conversationID, conversation.Message{
		Role:    "assistant",
		Content: assistantMessage,
		AgentID: "manager",
	}); err != nil {
		s.logger.Warn().Err(err).Str("conversation_id", conversationID).Msg("Persist assistant message failed")
	}
}

func toAgentHistory(messages []conversation.Message) []agent.AgentMessage {
	if len(messages) == 0 {
		return nil
	}
	history := make([]agent.AgentMessage, 0, len(messages))
	for _, m := range messages {
		history = append(history, agent.AgentMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	return history
}

func (s *server) chatUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			return isAllowedCORSOrigin(origin, s.allowedOrigins)
		},
	}
}

// handleChatWS serves a persistent chat connection: one JSON request
// frame in, one JSON response frame out, sharing a conversation across
// frames.
func (s *server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	upgrader := s.chatUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	var conversationID string
	for {
		var req chatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug().Err(err).Msg("WebSocket closed")
			}
			return
		}

		if req.ConversationID == "" {
			req.ConversationID = conversationID
		}

		if msg := req.validate(); msg != "" {
			if err := conn.WriteJSON(map[string]string{"error": msg}); err != nil {
				return
			}
			continue
		}
		if err := s.guard.CheckMessage(req.Message); err != nil {
			s.logger.Info().Err(err).Msg("Chat message blocked")
			if err := conn.WriteJSON(map[string]string{"error": "message contains blocked content"}); err != nil {
				return
			}
			continue
		}

		resp, err := s.processChat(r.Context(), req)
		if err != nil {
			s.logger.Error().Err(err).Msg("Chat processing failed")
			if err := conn.WriteJSON(map[string]string{"error": "assistant is temporarily unavailable"}); err != nil {
				return
			}
			continue
		}

		conversationID = resp.ConversationID
		if err := conn.WriteJSON(resp); err != nil {
			return
		}
	}
}
