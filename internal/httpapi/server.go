package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/valorlife/membercenter/internal/store"
	"github.com/valorlife/membercenter/pkg/moderation"
)

type server struct {
	store          Store
	chat           ChatService
	conversations  Conversations
	guard          *moderation.Guard
	logger         zerolog.Logger
	allowedOrigins map[string]bool
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := s.store.Ping(r.Context()); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{
		"service": "membercenter",
		"status":  status,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps storage and service errors onto HTTP statuses.
func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeErrorMessage(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrDuplicate):
		writeErrorMessage(w, http.StatusBadRequest, "already exists")
	case errors.Is(err, store.ErrBadCredentials):
		writeErrorMessage(w, http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, context.DeadlineExceeded) || isConnectivityError(err):
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("Backend unavailable")
		writeErrorMessage(w, http.StatusServiceUnavailable, "service temporarily unavailable")
	default:
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		writeErrorMessage(w, http.StatusInternalServerError, "internal error")
	}
}

func isConnectivityError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "no such host")
}

func readJSON(w http.ResponseWriter, r *http.Request, dst any, maxBytes int64) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}
