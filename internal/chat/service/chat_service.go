// Package service implements the intent router behind POST /v1/chat.
//
// ============================================================
// ARCHITECTURE: Strategy pattern for intent routing
// ============================================================
//
// The Router is the central orchestrator of a chat turn. It asks the text
// generator to classify the query into one of eight intents and delegates
// to the strategy registered for that intent.
//
// Full flow:
//  1. The handler receives POST /v1/chat with {"query": "..."}
//  2. The workspace calls Router.Route() with the selected project's table
//  3. The answer cache is consulted, keyed by query and table fingerprint
//  4. On a miss, the query is classified (one short generation call)
//  5. The first strategy whose CanHandle accepts the intent builds the answer
//  6. Strategy errors become an apology string; Route never fails
//
// Available strategies:
//   - CategorizationStrategy: labels one transaction via the categorizer
//   - ForecastingStrategy: the local 30-day trend narrative, no AI call
//   - PromptStrategy: canned system prompt + query + recent transactions
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	chatdomain "github.com/boddenberg/finbuddy-assistant-go/internal/chat/domain"
	"github.com/boddenberg/finbuddy-assistant-go/internal/domain"
	"github.com/boddenberg/finbuddy-assistant-go/internal/infra/observability"
	"github.com/boddenberg/finbuddy-assistant-go/internal/port"
)

// chatTracer is the OpenTelemetry tracer for the chat module.
var chatTracer = otel.Tracer("chat/service")

// ============================================================
// ChatStrategy: the contract each intent handler implements
// ============================================================

// ChatStrategy builds the answer for the intents it accepts.
//
// CanHandle: reports whether the strategy handles the classified intent
// Handle:    produces the answer text
type ChatStrategy interface {
	CanHandle(intent domain.Intent) bool
	Handle(ctx context.Context, chatCtx *chatdomain.ChatContext) (string, error)
}

// classifierPrompt lists the eight labels the generator must choose from.
const classifierPrompt = `
You are an intelligent routing system for a financial assistant app. Classify the user's request into ONE of the following categories based on their query. Respond with only the category name.

Categories:
- 'BUDGETING': For questions about creating or analyzing a spending budget.
- 'FORECASTING': For questions about future spending projections or predictions.
- 'CATEGORIZATION': For direct requests to categorize a single transaction description (e.g., "categorize starbucks coffee").
- 'SAVINGS_INVESTMENT': For questions about saving money, investment plans, or financial goals.
- 'TAX_INFO': For questions related to income tax, deductions, or tax planning.
- 'CASH_MANAGEMENT': For questions about cash flow, income vs. expenses, or managing money.
- 'REPORT_SUMMARY': For requests to summarize spending, find top expenses, or general data analysis.
- 'GENERAL_QUERY': For all other financial questions, advice, or conversations.

User request: "%s"
Category:
`

// Apology prefixes returned instead of an answer.
const (
	apologyExternal   = "Sorry, there was an issue with the AI service: API call failed. Details: %v"
	apologyUnexpected = "An unexpected error occurred while processing your request: %v"
)

// ============================================================
// Router: orchestrator with strategy routing
// ============================================================

// Router classifies chat queries and dispatches them to strategies.
type Router struct {
	generator  port.TextGenerator
	strategies []ChatStrategy
	fallback   ChatStrategy
	cache      port.LoadingCache[chatdomain.RouteResult]
	maxTokens  int32
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewRouter wires the router. Strategy order matters: the first one that
// accepts an intent wins; fallback handles anything left over.
func NewRouter(
	generator port.TextGenerator,
	strategies []ChatStrategy,
	fallback ChatStrategy,
	cache port.LoadingCache[chatdomain.RouteResult],
	classifierMaxTokens int,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Router {
	return &Router{
		generator:  generator,
		strategies: strategies,
		fallback:   fallback,
		cache:      cache,
		maxTokens:  int32(classifierMaxTokens),
		metrics:    metrics,
		logger:     logger,
	}
}

// Route answers query in the context of txs. Identical queries over an
// unchanged table are served from the cache until ClearCache is called;
// failed turns are not cached.
func (r *Router) Route(ctx context.Context, query string, txs []domain.Transaction) chatdomain.RouteResult {
	ctx, span := chatTracer.Start(ctx, "Router.Route")
	defer span.End()

	key := fmt.Sprintf("%016x|%s", domain.Fingerprint(txs), query)
	res, hit, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (chatdomain.RouteResult, error) {
		return r.dispatch(ctx, query, txs)
	})
	if hit {
		r.metrics.IncrCacheHit(observability.CacheAIResponses)
	} else {
		r.metrics.IncrCacheMiss(observability.CacheAIResponses)
	}
	if err != nil {
		r.metrics.IncrRequest("error")
		span.RecordError(err)
		var failed *dispatchError
		if errors.As(err, &failed) {
			return chatdomain.RouteResult{Intent: failed.intent, Matched: failed.matched, Answer: apology(failed.err)}
		}
		return chatdomain.RouteResult{Answer: apology(err)}
	}

	r.metrics.IncrRequest("success")
	res.Cached = hit
	span.SetAttributes(
		attribute.String("chat.intent", string(res.Intent)),
		attribute.Bool("chat.cached", hit),
	)
	return res
}

// ClearCache drops every cached answer.
func (r *Router) ClearCache() {
	r.cache.Clear()
}

func (r *Router) dispatch(ctx context.Context, query string, txs []domain.Transaction) (chatdomain.RouteResult, error) {
	intent, matched := r.classify(ctx, query)

	chatCtx := &chatdomain.ChatContext{
		Query:        query,
		Intent:       intent,
		Matched:      matched,
		Transactions: txs,
	}
	r.metrics.IncrIntent(intent)
	r.logger.Info("chat query routed",
		zap.String("intent", string(intent)),
		zap.Bool("matched", matched),
		zap.Int("query_length", len(query)),
		zap.Int("transactions", len(txs)),
	)

	strategy := r.fallback
	for _, s := range r.strategies {
		if s.CanHandle(intent) {
			strategy = s
			break
		}
	}

	answer, err := strategy.Handle(ctx, chatCtx)
	if err != nil {
		r.logger.Warn("chat strategy failed",
			zap.String("intent", string(intent)),
			zap.Error(err),
		)
		return chatdomain.RouteResult{}, &dispatchError{intent: intent, matched: matched, err: err}
	}
	return chatdomain.RouteResult{Intent: intent, Matched: matched, Answer: answer}, nil
}

// classify asks the generator for a label. A failed call or an unknown
// label both degrade to GENERAL_QUERY and are counted apart.
func (r *Router) classify(ctx context.Context, query string) (domain.Intent, bool) {
	ctx, span := chatTracer.Start(ctx, "Router.classify")
	defer span.End()

	raw, err := r.generator.Generate(ctx, port.GenerateRequest{
		Prompt:          fmt.Sprintf(classifierPrompt, query),
		MaxOutputTokens: r.maxTokens,
	})
	if err != nil {
		r.metrics.IncrFallback(observability.FallbackIntentError)
		r.logger.Warn("intent classification failed, using GENERAL_QUERY", zap.Error(err))
		span.RecordError(err)
		return domain.IntentGeneralQuery, false
	}

	intent, ok := domain.ParseIntent(raw)
	if !ok {
		r.metrics.IncrFallback(observability.FallbackIntentUnmatched)
		r.logger.Warn("unrecognised intent label, using GENERAL_QUERY",
			zap.String("label", strings.TrimSpace(raw)),
		)
	}
	return intent, ok
}

// dispatchError keeps the classified intent of a failed turn so every caller
// sharing the load can report it.
type dispatchError struct {
	intent  domain.Intent
	matched bool
	err     error
}

func (e *dispatchError) Error() string { return e.err.Error() }
func (e *dispatchError) Unwrap() error { return e.err }

func apology(err error) string {
	if domain.IsExternal(err) {
		return fmt.Sprintf(apologyExternal, err)
	}
	return fmt.Sprintf(apologyUnexpected, err)
}
