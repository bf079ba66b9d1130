package domain

import "time"

// ============================================================
// Market data
// ============================================================

// StockQuote is the raw result of a quote fetch: named info fields plus
// the daily price history.
type StockQuote struct {
	Ticker  string         `json:"ticker"`
	Info    map[string]any `json:"info"`
	History []PricePoint   `json:"history"`
}

// PricePoint is one daily bar.
type PricePoint struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Price returns currentPrice, falling back to regularMarketPrice.
func (q *StockQuote) Price() (float64, bool) {
	for _, key := range []string{"currentPrice", "regularMarketPrice"} {
		if v, ok := InfoFloat(q.Info, key); ok {
			return v, true
		}
	}
	return 0, false
}

// Valid reports whether the quote carries a usable price.
func (q *StockQuote) Valid() bool {
	if q == nil {
		return false
	}
	_, ok := q.Price()
	return ok
}

// InfoFloat reads a numeric info field.
func InfoFloat(info map[string]any, key string) (float64, bool) {
	switch v := info[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// InfoString reads a string info field.
func InfoString(info map[string]any, key string) string {
	if s, ok := info[key].(string); ok {
		return s
	}
	return ""
}

// StockSummary is the headline metrics block of the market view.
type StockSummary struct {
	Name           string  `json:"name"`
	Symbol         string  `json:"symbol"`
	Currency       string  `json:"currency"`
	LastPrice      float64 `json:"last_price"`
	Change         float64 `json:"change"`
	ChangePct      float64 `json:"change_pct"`
	MarketCapBn    float64 `json:"market_cap_bn"`
	Volume         int64   `json:"volume"`
	FiftyTwoWeekHi float64 `json:"fifty_two_week_high,omitempty"`
	FiftyTwoWeekLo float64 `json:"fifty_two_week_low,omitempty"`
}

// MovingAveragePoint is one row of the moving average series. A window
// without enough closes yet has a nil value.
type MovingAveragePoint struct {
	Time  time.Time `json:"time"`
	Close float64   `json:"close"`
	MA20  *float64  `json:"ma20"`
	MA50  *float64  `json:"ma50"`
}

// MarketView is the payload of GET /v1/market/{ticker}.
type MarketView struct {
	Ticker  string               `json:"ticker"`
	Summary StockSummary         `json:"summary"`
	Info    map[string]any       `json:"info"`
	Series  []MovingAveragePoint `json:"series"`
}

// MarketAnalysis is the payload of POST /v1/market/{ticker}/analysis.
type MarketAnalysis struct {
	Ticker   string `json:"ticker"`
	Analysis string `json:"analysis"`
}
