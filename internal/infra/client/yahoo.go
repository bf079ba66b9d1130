package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"

	"github.com/boddenberg/finbuddy-assistant-go/internal/domain"
	"github.com/boddenberg/finbuddy-assistant-go/internal/infra/resilience"
)

const marketService = "market"

// YahooClient fetches one year of daily bars from the Yahoo Finance chart API.
type YahooClient struct {
	httpClient *http.Client
	baseURL    string // ex: https://query1.finance.yahoo.com
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewYahooClient creates a new YahooClient.
func NewYahooClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *YahooClient {
	return &YahooClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		cfg:        cfg,
	}
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       chartMeta `json:"meta"`
	Timestamp  []int64   `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

type chartMeta struct {
	Symbol               string   `json:"symbol"`
	Currency             string   `json:"currency"`
	LongName             string   `json:"longName"`
	ShortName            string   `json:"shortName"`
	ExchangeName         string   `json:"exchangeName"`
	InstrumentType       string   `json:"instrumentType"`
	RegularMarketPrice   *float64 `json:"regularMarketPrice"`
	ChartPreviousClose   *float64 `json:"chartPreviousClose"`
	PreviousClose        *float64 `json:"previousClose"`
	FiftyTwoWeekHigh     *float64 `json:"fiftyTwoWeekHigh"`
	FiftyTwoWeekLow      *float64 `json:"fiftyTwoWeekLow"`
	RegularMarketVolume  *int64   `json:"regularMarketVolume"`
	RegularMarketDayHigh *float64 `json:"regularMarketDayHigh"`
	RegularMarketDayLow  *float64 `json:"regularMarketDayLow"`
}

// FetchQuote returns the info fields and daily history of ticker. An unknown
// symbol yields *domain.ErrNotFound without tripping the breaker.
func (c *YahooClient) FetchQuote(ctx context.Context, ticker string) (*domain.StockQuote, error) {
	ctx, span := tracer.Start(ctx, "YahooClient.FetchQuote")
	defer span.End()
	span.SetAttributes(attribute.String("market.ticker", ticker))

	var notFound bool
	result, err := resilience.Call(ctx, c.cb, c.cfg, marketService, func(ctx context.Context) (*chartResult, error) {
		u := fmt.Sprintf("%s/v8/finance/chart/%s?range=1y&interval=1d", c.baseURL, url.PathEscape(ticker))
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, resilience.Permanent(fmt.Errorf("create http request: %w", err))
		}
		httpReq.Header.Set("Accept", "application/json")
		httpReq.Header.Set("User-Agent", "finbuddy-assistant/1.0")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return nil, fmt.Errorf("http call to chart api: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			notFound = true
			return nil, nil
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, resilience.Permanent(fmt.Errorf("chart api returned status %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("chart api returned status %d", resp.StatusCode)
		}

		var body chartResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, fmt.Errorf("decode chart response: %w", err)
		}
		if len(body.Chart.Result) == 0 {
			notFound = true
			return nil, nil
		}
		return &body.Chart.Result[0], nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if notFound || result == nil {
		return nil, &domain.ErrNotFound{Resource: "ticker", ID: ticker}
	}

	return toStockQuote(ticker, result), nil
}

func toStockQuote(ticker string, r *chartResult) *domain.StockQuote {
	m := r.Meta
	info := map[string]any{
		"symbol":   m.Symbol,
		"currency": m.Currency,
	}
	if m.LongName != "" {
		info["longName"] = m.LongName
	} else if m.ShortName != "" {
		info["longName"] = m.ShortName
	}
	if m.ExchangeName != "" {
		info["exchange"] = m.ExchangeName
	}
	if m.InstrumentType != "" {
		info["quoteType"] = m.InstrumentType
	}
	setFloat(info, "regularMarketPrice", m.RegularMarketPrice)
	setFloat(info, "fiftyTwoWeekHigh", m.FiftyTwoWeekHigh)
	setFloat(info, "fiftyTwoWeekLow", m.FiftyTwoWeekLow)
	setFloat(info, "dayHigh", m.RegularMarketDayHigh)
	setFloat(info, "dayLow", m.RegularMarketDayLow)
	if m.PreviousClose != nil {
		setFloat(info, "previousClose", m.PreviousClose)
	} else {
		setFloat(info, "previousClose", m.ChartPreviousClose)
	}
	if m.RegularMarketVolume != nil {
		info["volume"] = *m.RegularMarketVolume
	}

	q := &domain.StockQuote{Ticker: ticker, Info: info}
	if len(r.Indicators.Quote) == 0 {
		return q
	}
	bars := r.Indicators.Quote[0]
	for i, ts := range r.Timestamp {
		closeV := at(bars.Close, i)
		if closeV == nil {
			continue
		}
		p := domain.PricePoint{
			Time:  time.Unix(ts, 0).UTC(),
			Close: *closeV,
		}
		if v := at(bars.Open, i); v != nil {
			p.Open = *v
		}
		if v := at(bars.High, i); v != nil {
			p.High = *v
		}
		if v := at(bars.Low, i); v != nil {
			p.Low = *v
		}
		if i < len(bars.Volume) && bars.Volume[i] != nil {
			p.Volume = *bars.Volume[i]
		}
		q.History = append(q.History, p)
	}
	return q
}

func setFloat(info map[string]any, key string, v *float64) {
	if v != nil {
		info[key] = *v
	}
}

func at(xs []*float64, i int) *float64 {
	if i < len(xs) {
		return xs[i]
	}
	return nil
}
