package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/finbuddy-assistant-go/internal/domain"
	"github.com/boddenberg/finbuddy-assistant-go/internal/infra/observability"
	"github.com/boddenberg/finbuddy-assistant-go/internal/port"
)

// Moving average windows of the price series, in trading days.
const (
	ShortWindow = 20
	LongWindow  = 50
)

// Market serves stock quotes and the AI fundamental snapshot.
type Market struct {
	fetcher   port.QuoteFetcher
	generator port.TextGenerator
	quotes    port.LoadingCache[*domain.StockQuote]
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewMarket creates the market service. quotes should expire entries after
// a few minutes.
func NewMarket(fetcher port.QuoteFetcher, generator port.TextGenerator, quotes port.LoadingCache[*domain.StockQuote], metrics *observability.Metrics, logger *zap.Logger) *Market {
	return &Market{
		fetcher:   fetcher,
		generator: generator,
		quotes:    quotes,
		metrics:   metrics,
		logger:    logger,
	}
}

// NormalizeTicker trims and uppercases a symbol.
func NormalizeTicker(ticker string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if t == "" {
		return "", &domain.ErrValidation{Field: "ticker", Message: "Empty ticker symbol."}
	}
	return t, nil
}

func notFound(ticker string) error {
	return &domain.ErrNotFound{
		Resource: "ticker",
		ID:       ticker,
		Detail:   fmt.Sprintf("Could not find data for '%s'. Check the symbol (e.g., 'MSFT' for US, 'RELIANCE.NS' for India).", ticker),
	}
}

// Quote returns a valid quote for ticker, cached per symbol.
func (m *Market) Quote(ctx context.Context, ticker string) (*domain.StockQuote, error) {
	ctx, span := tracer.Start(ctx, "Market.Quote")
	defer span.End()

	t, err := NormalizeTicker(ticker)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("market.ticker", t))

	q, hit, err := m.quotes.GetOrLoad(ctx, t, func(ctx context.Context) (*domain.StockQuote, error) {
		q, err := m.fetcher.FetchQuote(ctx, t)
		if err != nil {
			return nil, err
		}
		if !q.Valid() {
			return nil, notFound(t)
		}
		return q, nil
	})
	if hit {
		m.metrics.IncrCacheHit(observability.CacheMarket)
	} else {
		m.metrics.IncrCacheMiss(observability.CacheMarket)
	}
	if err != nil {
		var nf *domain.ErrNotFound
		if errors.As(err, &nf) {
			return nil, notFound(t)
		}
		m.logger.Warn("market quote failed", zap.String("ticker", t), zap.Error(err))
		return nil, fmt.Errorf("fetch quote %s: %w", t, err)
	}
	return q, nil
}

// View returns the quote with its headline metrics and moving averages.
func (m *Market) View(ctx context.Context, ticker string) (*domain.MarketView, error) {
	q, err := m.Quote(ctx, ticker)
	if err != nil {
		return nil, err
	}
	return &domain.MarketView{
		Ticker:  q.Ticker,
		Summary: Summarize(q),
		Info:    q.Info,
		Series:  MovingAverages(q.History),
	}, nil
}

// Summarize derives last price, change and size metrics from the info fields.
func Summarize(q *domain.StockQuote) domain.StockSummary {
	price, _ := q.Price()
	prev, _ := domain.InfoFloat(q.Info, "previousClose")
	s := domain.StockSummary{
		Name:      domain.InfoString(q.Info, "longName"),
		Symbol:    domain.InfoString(q.Info, "symbol"),
		Currency:  domain.InfoString(q.Info, "currency"),
		LastPrice: price,
		Change:    price - prev,
	}
	if s.Name == "" {
		s.Name = "N/A"
	}
	if s.Symbol == "" {
		s.Symbol = q.Ticker
	}
	if prev != 0 {
		s.ChangePct = s.Change / prev * 100
	}
	if mc, ok := domain.InfoFloat(q.Info, "marketCap"); ok {
		s.MarketCapBn = mc / 1e9
	}
	if v, ok := domain.InfoFloat(q.Info, "volume"); ok {
		s.Volume = int64(v)
	}
	s.FiftyTwoWeekHi, _ = domain.InfoFloat(q.Info, "fiftyTwoWeekHigh")
	s.FiftyTwoWeekLo, _ = domain.InfoFloat(q.Info, "fiftyTwoWeekLow")
	return s
}

// MovingAverages pairs each close with its trailing 20- and 50-day means.
// Points before a window fills carry nil for that window.
func MovingAverages(history []domain.PricePoint) []domain.MovingAveragePoint {
	out := make([]domain.MovingAveragePoint, len(history))
	var sumShort, sumLong float64
	for i, p := range history {
		sumShort += p.Close
		sumLong += p.Close
		if i >= ShortWindow {
			sumShort -= history[i-ShortWindow].Close
		}
		if i >= LongWindow {
			sumLong -= history[i-LongWindow].Close
		}

		out[i] = domain.MovingAveragePoint{Time: p.Time, Close: p.Close}
		if i+1 >= ShortWindow {
			v := sumShort / ShortWindow
			out[i].MA20 = &v
		}
		if i+1 >= LongWindow {
			v := sumLong / LongWindow
			out[i].MA50 = &v
		}
	}
	return out
}

const analysisPrompt = `You are a financial data analyst. Provide a neutral, objective summary of the company
based ONLY on the JSON below. Do NOT give investment advice.

JSON:
%s

FORMAT:
1) 1 short paragraph describing the business.
2) Key metrics as concise bullet points.
3) "Fundamental Snapshot" with 2-3 neutral observations (e.g., what a high/low P/E might imply).
4) Mandatory disclaimer:
   "Disclaimer: This is an AI-generated analysis based on public data and is for informational purposes only.
    It is not financial advice. Please consult a qualified financial advisor before making any investment decisions."

Rules:
- Avoid words like buy/sell/hold or prescriptive advice.
- No price predictions.`

// analysisFacts is the subset of info fields sent for analysis, in prompt order.
type analysisFacts struct {
	CompanyName      any `json:"Company Name"`
	Symbol           any `json:"Symbol"`
	Sector           any `json:"Sector"`
	Industry         any `json:"Industry"`
	BusinessSummary  any `json:"Business Summary"`
	CurrentPrice     any `json:"Current Price"`
	MarketCap        any `json:"Market Cap"`
	FiftyTwoWeekHigh any `json:"52-Week High"`
	FiftyTwoWeekLow  any `json:"52-Week Low"`
	Volume           any `json:"Volume"`
	PERatio          any `json:"P/E Ratio"`
	Currency         any `json:"Currency"`
}

// AnalysisPrompt builds the neutral fundamental snapshot request for q.
func AnalysisPrompt(q *domain.StockQuote) (string, error) {
	info := q.Info
	price := info["currentPrice"]
	if price == nil {
		price = info["regularMarketPrice"]
	}
	facts, err := json.Marshal(analysisFacts{
		CompanyName:      info["longName"],
		Symbol:           info["symbol"],
		Sector:           info["sector"],
		Industry:         info["industry"],
		BusinessSummary:  info["longBusinessSummary"],
		CurrentPrice:     price,
		MarketCap:        info["marketCap"],
		FiftyTwoWeekHigh: info["fiftyTwoWeekHigh"],
		FiftyTwoWeekLow:  info["fiftyTwoWeekLow"],
		Volume:           info["volume"],
		PERatio:          info["trailingPE"],
		Currency:         info["currency"],
	})
	if err != nil {
		return "", fmt.Errorf("marshal analysis facts: %w", err)
	}
	return fmt.Sprintf(analysisPrompt, facts), nil
}

// Analysis returns the AI fundamental snapshot of ticker. Generation
// failures are reported inside the text; only quote errors are returned.
func (m *Market) Analysis(ctx context.Context, ticker string) (*domain.MarketAnalysis, error) {
	ctx, span := tracer.Start(ctx, "Market.Analysis")
	defer span.End()

	q, err := m.Quote(ctx, ticker)
	if err != nil {
		return nil, err
	}
	out := &domain.MarketAnalysis{Ticker: q.Ticker}

	prompt, err := AnalysisPrompt(q)
	if err == nil {
		out.Analysis, err = m.generator.Generate(ctx, port.GenerateRequest{Prompt: prompt})
	}
	if err != nil {
		m.logger.Warn("market analysis failed", zap.String("ticker", q.Ticker), zap.Error(err))
		out.Analysis = fmt.Sprintf("An error occurred during AI analysis: %v", err)
	}
	return out, nil
}
