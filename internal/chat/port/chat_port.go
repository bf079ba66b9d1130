// Package port defines the interfaces the chat module exposes and consumes.
//
// Following the hexagonal layout, the workspace service and the HTTP handler
// depend on QueryRouter and NOT on the concrete Router. This keeps them
// testable with fakes and lets the routing policy change without touching them.
package port

import (
	"context"

	chatdomain "github.com/boddenberg/finbuddy-assistant-go/internal/chat/domain"
	"github.com/boddenberg/finbuddy-assistant-go/internal/domain"
)

// QueryRouter answers a free-text query using the given transaction table.
// It never fails: degraded paths produce a user-displayable answer.
type QueryRouter interface {
	Route(ctx context.Context, query string, txs []domain.Transaction) chatdomain.RouteResult
	ClearCache()
}
