// Package domain holds the types used by the chat routes.
//
// A chat turn goes through these steps:
//  1. The caller posts a free-text query to POST /v1/chat.
//  2. The router classifies the query into one of the eight intents.
//  3. The strategy registered for that intent builds the answer, using the
//     selected project's transactions as context.
//  4. The answer string is appended to the project's chat history and returned.
package domain

import (
	"time"

	"github.com/boddenberg/finbuddy-assistant-go/internal/domain"
)

// ============================================================
// Chat: request/response between the caller and the service
// ============================================================

// ChatRequest is the body of POST /v1/chat.
type ChatRequest struct {
	Query string `json:"query"`
}

// ChatResponse is what the service returns for one turn.
type ChatResponse struct {
	Project string        `json:"project"`
	Intent  domain.Intent `json:"intent,omitempty"`
	Answer  string        `json:"answer"`
	Cached  bool          `json:"cached"`
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one entry of a project's chat history.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// RouteResult is the router's answer to one query.
type RouteResult struct {
	Intent  domain.Intent
	Matched bool
	Answer  string
	Cached  bool
}

// ============================================================
// Categorization service payloads
// ============================================================

// PredictRequest is the body sent to the categorizer's /run/predict endpoint.
type PredictRequest struct {
	Data []string `json:"data"`
}

// PredictResponse is the categorizer reply; Data[0] holds the label.
type PredictResponse struct {
	Data     []any   `json:"data"`
	Duration float64 `json:"duration,omitempty"`
}

// ============================================================
// Strategy context
// ============================================================

// ChatContext carries everything a strategy needs to answer a query.
// The router builds it after classification.
type ChatContext struct {
	// Query is the raw user text.
	Query string

	// Intent is the classified label; Matched is false when the classifier
	// reply was not a known label or the call failed.
	Intent  domain.Intent
	Matched bool

	// Transactions is the selected project's table.
	Transactions []domain.Transaction
}
