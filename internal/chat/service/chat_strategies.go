package service

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/boddenberg/finbuddy-assistant-go/internal/analytics"
	chatdomain "github.com/boddenberg/finbuddy-assistant-go/internal/chat/domain"
	"github.com/boddenberg/finbuddy-assistant-go/internal/domain"
	"github.com/boddenberg/finbuddy-assistant-go/internal/infra/observability"
	"github.com/boddenberg/finbuddy-assistant-go/internal/port"
)

// ============================================================
// CategorizationStrategy: single transaction labelling
// ============================================================

const categorizePrompt = "Categorize the following transaction into one of these: Income, Rent/EMI, Groceries, Utilities, Transport, Investment, Other. Transaction: '%s'"

// CategorizationStrategy sends the transaction description to the external
// categorizer. A failing categorizer yields "Other" instead of an error.
type CategorizationStrategy struct {
	categorizer port.TransactionCategorizer
	metrics     *observability.Metrics
	logger      *zap.Logger
}

func NewCategorizationStrategy(c port.TransactionCategorizer, metrics *observability.Metrics, logger *zap.Logger) *CategorizationStrategy {
	return &CategorizationStrategy{categorizer: c, metrics: metrics, logger: logger}
}

func (s *CategorizationStrategy) CanHandle(intent domain.Intent) bool {
	return intent == domain.IntentCategorization
}

func (s *CategorizationStrategy) Handle(ctx context.Context, chatCtx *chatdomain.ChatContext) (string, error) {
	desc := strings.TrimSpace(strings.ReplaceAll(strings.ToLower(chatCtx.Query), "categorize", ""))

	category, err := s.categorizer.Categorize(ctx, fmt.Sprintf(categorizePrompt, desc))
	if err != nil || strings.TrimSpace(category) == "" {
		s.metrics.IncrFallback(observability.FallbackCategorizer)
		s.logger.Warn("categorizer unavailable, using Other", zap.Error(err))
		category = "Other"
	}
	return fmt.Sprintf("The transaction '%s' is best categorized as: **%s**", desc, strings.TrimSpace(category)), nil
}

// ============================================================
// ForecastingStrategy: local regression, no AI call
// ============================================================

// ForecastingStrategy answers with the 30-day spend projection.
type ForecastingStrategy struct{}

func NewForecastingStrategy() *ForecastingStrategy { return &ForecastingStrategy{} }

func (s *ForecastingStrategy) CanHandle(intent domain.Intent) bool {
	return intent == domain.IntentForecasting
}

func (s *ForecastingStrategy) Handle(_ context.Context, chatCtx *chatdomain.ChatContext) (string, error) {
	f := analytics.Trend(chatCtx.Transactions)
	if !f.Sufficient {
		return f.Message, nil
	}
	return f.Narrative, nil
}

// ============================================================
// PromptStrategy: system prompt + query + recent history
// ============================================================

// SnippetRows is how many of the latest transactions are sent as context.
const SnippetRows = 20

const noTransactions = "No transactions yet."

var systemPrompts = map[domain.Intent]string{
	domain.IntentBudgeting:         "You are a helpful financial advisor. Create a simple, actionable monthly budget based on the user's request and their transaction history. Present it clearly in markdown.",
	domain.IntentSavingsInvestment: "You are a financial planning assistant. Provide guidance on savings strategies or investment options based on the user's query and financial data. Include a disclaimer that this is not professional financial advice.",
	domain.IntentTaxInfo:           "You are a tax information assistant for India. Answer user questions about income tax concepts clearly and concisely. Include a disclaimer that you are not a certified tax professional and the user should consult one for official advice.",
	domain.IntentCashManagement:    "You are a financial analyst. Explain concepts of cash flow and analyze the provided transaction data to give insights on managing income and expenses.",
	domain.IntentReportSummary:     "You are a data analyst. Summarize the provided transaction history, highlighting key insights like top spending categories, spending trends, and total income vs. expenses. Use markdown for clear formatting.",
	domain.IntentGeneralQuery:      "You are FinBuddy, a helpful and friendly financial assistant. Answer the user's question concisely and clearly based on their request and the provided context of their recent financial transactions.",
}

// PromptStrategy handles every intent that has a system prompt. It is also
// the router's fallback, answering with the GENERAL_QUERY template.
type PromptStrategy struct {
	generator port.TextGenerator
}

func NewPromptStrategy(generator port.TextGenerator) *PromptStrategy {
	return &PromptStrategy{generator: generator}
}

func (s *PromptStrategy) CanHandle(intent domain.Intent) bool {
	_, ok := systemPrompts[intent]
	return ok
}

func (s *PromptStrategy) Handle(ctx context.Context, chatCtx *chatdomain.ChatContext) (string, error) {
	return s.generator.Generate(ctx, port.GenerateRequest{
		Prompt: BuildPrompt(chatCtx.Intent, chatCtx.Query, chatCtx.Transactions),
	})
}

// BuildPrompt assembles the generation prompt for intent. Intents without a
// template use the GENERAL_QUERY one.
func BuildPrompt(intent domain.Intent, query string, txs []domain.Transaction) string {
	system, ok := systemPrompts[intent]
	if !ok {
		system = systemPrompts[domain.IntentGeneralQuery]
	}
	return fmt.Sprintf("%s\n\nUser Request: %s\n\nTransaction History (for context):\n%s",
		system, query, ContextSnippet(txs, SnippetRows))
}

// ContextSnippet renders the n most recent transactions as an aligned table.
func ContextSnippet(txs []domain.Transaction, n int) string {
	if len(txs) == 0 {
		return noTransactions
	}
	rows := analytics.LatestFirst(txs)
	if len(rows) > n {
		rows = rows[:n]
	}

	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "date\tcategory\tamount\tnote")
	for _, t := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.DateString(), t.Category, t.Amount.String(), t.Note)
	}
	w.Flush()
	return strings.TrimRight(b.String(), "\n")
}
