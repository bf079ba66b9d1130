// Package handler implements the /v1/chat routes, the entry point of the
// AI chat.
//
// ============================================================
// ROUTES
// ============================================================
//
//	POST   /v1/chat        submit a query against the selected project
//	GET    /v1/chat        chat history of the selected project
//	DELETE /v1/chat        clear the history
//	DELETE /v1/chat/cache  drop every cached AI answer
//
// The handler is thin: it validates the body and delegates to the
// workspace, which owns the history and calls the intent router.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/finbuddy-assistant-go/internal/chat/domain"
	maindomain "github.com/boddenberg/finbuddy-assistant-go/internal/domain"
)

// tracer is the OpenTelemetry tracer for chat/handler.
var tracer = otel.Tracer("chat/handler")

// ChatWorkspace is what the chat routes need from the application state.
type ChatWorkspace interface {
	SubmitChat(ctx context.Context, query string) (*domain.ChatResponse, error)
	ChatHistory() []domain.ChatMessage
	ClearChat()
	ClearChatCache()
}

// Routes returns the chat sub-router, mounted at /v1/chat.
func Routes(ws ChatWorkspace, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Post("/", ChatHandler(ws, logger))
	r.Get("/", historyHandler(ws))
	r.Delete("/", clearHistoryHandler(ws))
	r.Delete("/cache", clearCacheHandler(ws, logger))
	return r
}

// ============================================================
// ChatHandler: POST /v1/chat
// ============================================================

// ChatHandler answers one query.
//
// Request:
//
//	Content-Type: application/json
//	Body: {"query": "Summarize my spending"}
//
// Response (200 OK):
//
//	{"project": "Default", "intent": "REPORT_SUMMARY", "answer": "...", "cached": false}
//
// AI failures still produce 200 with an apology in "answer".
func ChatHandler(ws ChatWorkspace, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/chat")
		defer span.End()

		var req domain.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: expected {\"query\": \"your message\"}")
			return
		}

		resp, err := ws.SubmitChat(ctx, req.Query)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(
			attribute.String("chat.intent", string(resp.Intent)),
			attribute.Bool("chat.cached", resp.Cached),
		)
		writeJSON(w, http.StatusOK, resp)
	}
}

func historyHandler(ws ChatWorkspace) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		messages := ws.ChatHistory()
		writeJSON(w, http.StatusOK, maindomain.ListResponse[domain.ChatMessage]{Data: messages, Total: len(messages)})
	}
}

func clearHistoryHandler(ws ChatWorkspace) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws.ClearChat()
		w.WriteHeader(http.StatusNoContent)
	}
}

func clearCacheHandler(ws ChatWorkspace, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws.ClearChatCache()
		logger.Info("chat response cache cleared")
		writeJSON(w, http.StatusOK, maindomain.SuccessResponse{Message: "AI response cache cleared"})
	}
}

// ============================================================
// Helpers
// ============================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var validation *maindomain.ErrValidation
	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, maindomain.ErrNoProjectSelected):
		writeError(w, http.StatusConflict, err.Error())
	default:
		logger.Error("chat request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
