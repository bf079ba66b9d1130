// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/finbuddy-assistant-go/internal/domain"
)

// GenerateRequest is a single prompt sent to the text generation backend.
// MaxOutputTokens of zero leaves the backend default.
type GenerateRequest struct {
	Prompt          string
	MaxOutputTokens int32
}

// TextGenerator produces text from a prompt. It backs both intent
// classification and free-form answers.
type TextGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// TransactionCategorizer labels a transaction description.
type TransactionCategorizer interface {
	Categorize(ctx context.Context, prompt string) (string, error)
}

// QuoteFetcher retrieves market data for a ticker.
type QuoteFetcher interface {
	FetchQuote(ctx context.Context, ticker string) (*domain.StockQuote, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	Clear()
}

// LoadingCache is a Cache that can fill a missing key exactly once for
// concurrent callers.
type LoadingCache[T any] interface {
	Cache[T]
	GetOrLoad(ctx context.Context, key string, load func(ctx context.Context) (T, error)) (T, bool, error)
}

// ProjectStore holds the named transaction tables.
// Implemented by the in-memory adapter.
type ProjectStore interface {
	CreateProject(ctx context.Context, name string) (*domain.Project, error)
	ListProjects(ctx context.Context) ([]domain.ProjectSummary, error)
	GetProject(ctx context.Context, name string) (*domain.Project, error)

	ListTransactions(ctx context.Context, project string) ([]domain.Transaction, error)
	AddTransaction(ctx context.Context, project string, tx domain.Transaction) (*domain.Transaction, error)
	UpdateTransaction(ctx context.Context, project string, tx domain.Transaction) (*domain.Transaction, error)
	DeleteTransaction(ctx context.Context, project, id string) error
	AppendTransactions(ctx context.Context, project string, txs []domain.Transaction) error
}
