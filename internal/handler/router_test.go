package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	chatdomain "github.com/boddenberg/finbuddy-assistant-go/internal/chat/domain"
	chatservice "github.com/boddenberg/finbuddy-assistant-go/internal/chat/service"
	"github.com/boddenberg/finbuddy-assistant-go/internal/domain"
	"github.com/boddenberg/finbuddy-assistant-go/internal/handler"
	"github.com/boddenberg/finbuddy-assistant-go/internal/infra/cache"
	"github.com/boddenberg/finbuddy-assistant-go/internal/infra/memory"
	"github.com/boddenberg/finbuddy-assistant-go/internal/infra/observability"
	"github.com/boddenberg/finbuddy-assistant-go/internal/infra/resilience"
	"github.com/boddenberg/finbuddy-assistant-go/internal/port"
	"github.com/boddenberg/finbuddy-assistant-go/internal/service"
)

// --- Fakes ---

// scriptedGenerator labels every classifier prompt with label and answers
// everything else with answer.
type scriptedGenerator struct {
	mu     sync.Mutex
	label  string
	answer string
	calls  int
}

func (g *scriptedGenerator) Generate(_ context.Context, req port.GenerateRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if strings.HasSuffix(strings.TrimSpace(req.Prompt), "Category:") {
		return g.label, nil
	}
	return g.answer, nil
}

type stubCategorizer struct{}

func (stubCategorizer) Categorize(context.Context, string) (string, error) { return "Groceries", nil }

type stubFetcher struct{ quote *domain.StockQuote }

func (f stubFetcher) FetchQuote(_ context.Context, ticker string) (*domain.StockQuote, error) {
	if f.quote == nil || f.quote.Ticker != ticker {
		return &domain.StockQuote{Ticker: ticker, Info: map[string]any{}}, nil
	}
	return f.quote, nil
}

func msftQuote() *domain.StockQuote {
	q := &domain.StockQuote{
		Ticker: "MSFT",
		Info: map[string]any{
			"longName":           "Microsoft Corporation",
			"currency":           "USD",
			"regularMarketPrice": 420.0,
			"previousClose":      400.0,
		},
	}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		q.History = append(q.History, domain.PricePoint{Time: start.AddDate(0, 0, i), Close: 400 + float64(i)})
	}
	return q
}

// --- Wiring ---

type testApp struct {
	router  http.Handler
	gen     *scriptedGenerator
	metrics *observability.Metrics
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	return newTestAppWith(t, stubCategorizer{}, stubFetcher{quote: msftQuote()})
}

func newTestAppWith(t *testing.T, categorizer port.TransactionCategorizer, fetcher port.QuoteFetcher) *testApp {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	gen := &scriptedGenerator{label: "REPORT_SUMMARY", answer: "You spend most on rent."}

	prompt := chatservice.NewPromptStrategy(gen)
	router := chatservice.NewRouter(
		gen,
		[]chatservice.ChatStrategy{
			chatservice.NewCategorizationStrategy(categorizer, metrics, logger),
			chatservice.NewForecastingStrategy(),
			prompt,
		},
		prompt,
		cache.New[chatdomain.RouteResult](0),
		20,
		metrics,
		logger,
	)

	ws, err := service.NewWorkspace(ctx, memory.NewStore(), router, "Default", metrics, logger)
	if err != nil {
		t.Fatalf("workspace: %v", err)
	}
	forecaster := service.NewWeatherForecaster(gen, cache.New[domain.MetricsSnapshot](time.Minute), 30, metrics, logger)

	svc := handler.Services{
		Workspace:  ws,
		Forecaster: forecaster,
		Reports:    service.NewReports(ws, forecaster, metrics, logger),
		Planner:    service.NewPlanner(ws, router, cache.New[string](0), metrics, logger),
		Market:     service.NewMarket(fetcher, gen, cache.New[*domain.StockQuote](time.Minute), metrics, logger),
		Breakers: map[string]*gobreaker.CircuitBreaker{
			"gemini":      resilience.NewCircuitBreaker("gemini", nil),
			"categorizer": nil,
			"market":      resilience.NewCircuitBreaker("market", nil),
		},
	}
	return &testApp{router: handler.NewRouter(svc, metrics, logger), gen: gen, metrics: metrics}
}

func (a *testApp) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func daysAgo(n int) string {
	return domain.CalendarDay(time.Now()).AddDate(0, 0, -n).Format(domain.DateLayout)
}

func addTx(t *testing.T, a *testApp, date, category, amount string) domain.Transaction {
	t.Helper()
	body := `{"date":"` + date + `","category":"` + category + `","amount":{"mode":"exact","text":"` + amount + `"}}`
	rec := a.do(t, http.MethodPost, "/v1/transactions", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add transaction: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	return decode[domain.Transaction](t, rec)
}

// --- Operational ---

func TestHealthz(t *testing.T) {
	a := newTestApp(t)

	rec := a.do(t, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	health := decode[domain.HealthStatus](t, rec)
	if health.Status != "degraded" {
		t.Errorf("expected degraded with a disabled categorizer, got %q", health.Status)
	}
	statuses := map[string]string{}
	for _, s := range health.Services {
		statuses[s.Name] = s.Status
	}
	if statuses["gemini"] != "configured" || statuses["categorizer"] != "disabled" {
		t.Errorf("unexpected service statuses %v", statuses)
	}
}

func TestReadyz(t *testing.T) {
	a := newTestApp(t)

	rec := a.do(t, http.MethodGet, "/readyz", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	a := newTestApp(t)

	rec := a.do(t, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestPing(t *testing.T) {
	a := newTestApp(t)

	rec := a.do(t, http.MethodGet, "/ping", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

// --- Projects & transactions ---

func TestProjects_CreateSelectsAndTagsResponses(t *testing.T) {
	a := newTestApp(t)

	rec := a.do(t, http.MethodPost, "/v1/projects", `{"name":"Trip"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = a.do(t, http.MethodGet, "/v1/projects", "")
	if got := rec.Header().Get(handler.ProjectHeader); got != "Trip" {
		t.Errorf("expected project header Trip, got %q", got)
	}
	list := decode[domain.ListResponse[domain.ProjectSummary]](t, rec)
	if list.Total != 2 {
		t.Fatalf("expected 2 projects, got %d", list.Total)
	}

	rec = a.do(t, http.MethodPost, "/v1/projects", `{"name":"Trip"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate: expected 409, got %d", rec.Code)
	}

	rec = a.do(t, http.MethodPut, "/v1/projects/selected", `{"name":"Nope"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown project: expected 404, got %d", rec.Code)
	}

	rec = a.do(t, http.MethodPut, "/v1/projects/selected", `{"name":"Default"}`)
	if rec.Code != http.StatusOK || rec.Header().Get(handler.ProjectHeader) != "Default" {
		t.Errorf("select: got %d / %q", rec.Code, rec.Header().Get(handler.ProjectHeader))
	}
}

func TestTransactions_Lifecycle(t *testing.T) {
	a := newTestApp(t)

	first := addTx(t, a, "2024-03-01", "Income", "₹50,000")
	addTx(t, a, "2024-03-02", "Rent", "15000")

	rec := a.do(t, http.MethodGet, "/v1/transactions", "")
	list := decode[domain.ListResponse[domain.Transaction]](t, rec)
	if list.Total != 2 || list.Data[0].Category != "Rent" {
		t.Fatalf("expected latest first, got %+v", list.Data)
	}

	rec = a.do(t, http.MethodPut, "/v1/transactions/"+first.ID,
		`{"date":"2024-03-01","category":"Income","amount":{"mode":"slider","slider":60000}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("edit: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if edited := decode[domain.Transaction](t, rec); edited.Amount.String() != "60000" {
		t.Errorf("expected amount 60000, got %s", edited.Amount)
	}

	rec = a.do(t, http.MethodDelete, "/v1/transactions/"+first.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete: expected 204, got %d", rec.Code)
	}
	rec = a.do(t, http.MethodDelete, "/v1/transactions/"+first.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete: expected 404, got %d", rec.Code)
	}
}

func TestTransactions_ValidationErrors(t *testing.T) {
	a := newTestApp(t)

	cases := map[string]string{
		"bad json":      `{`,
		"bad date":      `{"date":"yesterday","category":"Rent","amount":{"mode":"exact","text":"10"}}`,
		"bad amount":    `{"date":"2024-03-01","category":"Rent","amount":{"mode":"exact","text":"ten"}}`,
		"empty category": `{"date":"2024-03-01","category":"  ","amount":{"mode":"exact","text":"10"}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := a.do(t, http.MethodPost, "/v1/transactions", body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestTransactions_ImportAndExport(t *testing.T) {
	a := newTestApp(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "march.csv")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte("date,category,amount,note\n2024-03-01,Groceries,\"Rs 1,200\",veg\nnot-a-date,Rent,10,\n"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/transactions/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("import: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	report := decode[domain.ImportReport](t, rec)
	if report.Imported != 1 || len(report.Skipped) != 1 || report.Skipped[0].Line != 3 {
		t.Errorf("unexpected import report %+v", report)
	}

	rec = a.do(t, http.MethodGet, "/v1/transactions/export", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export: expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("unexpected content type %q", ct)
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "Default-") {
		t.Errorf("unexpected disposition %q", rec.Header().Get("Content-Disposition"))
	}
	if want := "date,category,amount,note\n2024-03-01,Groceries,1200,veg\n"; rec.Body.String() != want {
		t.Errorf("unexpected export %q", rec.Body.String())
	}
}

func TestTransactions_ImportRawBodyMissingColumn(t *testing.T) {
	a := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/transactions/import", strings.NewReader("date,amount\n2024-03-01,10\n"))
	req.Header.Set("Content-Type", "text/csv")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

// --- Chat, forecasts, reports ---

func TestChat_RoundTrip(t *testing.T) {
	a := newTestApp(t)
	addTx(t, a, daysAgo(1), "Rent", "15000")

	rec := a.do(t, http.MethodPost, "/v1/chat", `{"query":"Summarize my spending"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("chat: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[chatdomain.ChatResponse](t, rec)
	if resp.Intent != domain.IntentReportSummary || resp.Answer != "You spend most on rent." || resp.Cached {
		t.Errorf("unexpected response %+v", resp)
	}

	rec = a.do(t, http.MethodPost, "/v1/chat", `{"query":"Summarize my spending"}`)
	if resp := decode[chatdomain.ChatResponse](t, rec); !resp.Cached {
		t.Error("expected the repeated query to be served from cache")
	}

	rec = a.do(t, http.MethodGet, "/v1/chat", "")
	history := decode[domain.ListResponse[chatdomain.ChatMessage]](t, rec)
	if history.Total != 4 {
		t.Errorf("expected 4 messages, got %d", history.Total)
	}

	rec = a.do(t, http.MethodGet, "/v1/metrics/assistant", "")
	snap := decode[domain.AssistantMetrics](t, rec)
	if snap.IntentsRouted[string(domain.IntentReportSummary)] != 1 {
		t.Errorf("expected one routed intent, got %v", snap.IntentsRouted)
	}
}

func TestForecast_WeatherAndTrend(t *testing.T) {
	a := newTestApp(t)

	rec := a.do(t, http.MethodGet, "/v1/forecast/weather", "")
	if empty := decode[domain.WeatherForecast](t, rec); !empty.Empty {
		t.Errorf("expected empty forecast, got %+v", empty)
	}

	addTx(t, a, daysAgo(1), "Income", "50000")
	addTx(t, a, daysAgo(2), "Rent", "15000")
	addTx(t, a, daysAgo(3), "Groceries", "3000")
	addTx(t, a, daysAgo(4), "Transport", "1000")

	rec = a.do(t, http.MethodGet, "/v1/forecast/weather?days=30", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("weather: expected 200, got %d", rec.Code)
	}
	weather := decode[domain.WeatherForecast](t, rec)
	// The scripted answer is not JSON, so the local rules decide.
	if weather.Verdict == nil || weather.Verdict.Source != domain.VerdictSourceLocal {
		t.Fatalf("expected local verdict, got %+v", weather.Verdict)
	}

	rec = a.do(t, http.MethodGet, "/v1/forecast/weather?days=abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad days: expected 400, got %d", rec.Code)
	}

	rec = a.do(t, http.MethodGet, "/v1/forecast/trend", "")
	trend := decode[domain.TrendForecast](t, rec)
	if !trend.Sufficient || trend.Horizon != 30 {
		t.Errorf("expected a 30 day projection, got %+v", trend)
	}
}

func TestReports_Dashboard(t *testing.T) {
	a := newTestApp(t)
	addTx(t, a, daysAgo(1), "Income", "50000")
	addTx(t, a, daysAgo(2), "Rent", "15000")

	rec := a.do(t, http.MethodGet, "/v1/reports/dashboard", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard: expected 200, got %d", rec.Code)
	}
	d := decode[domain.Dashboard](t, rec)
	if d.Totals.Net != 35000 || d.Formatted["net"] != "₹35,000.00" {
		t.Errorf("unexpected totals %+v / %v", d.Totals, d.Formatted)
	}
}

// --- Planning ---

func TestPlanning_BudgetCachedUntilCleared(t *testing.T) {
	a := newTestApp(t)
	a.gen.answer = "Spend less on dining."

	rec := a.do(t, http.MethodPost, "/v1/planning/budget", "")
	plan := decode[domain.BudgetPlan](t, rec)
	if plan.Plan != "Spend less on dining." || plan.Cached {
		t.Fatalf("unexpected plan %+v", plan)
	}

	rec = a.do(t, http.MethodPost, "/v1/planning/budget", "")
	if plan := decode[domain.BudgetPlan](t, rec); !plan.Cached {
		t.Error("expected cached plan")
	}

	if rec := a.do(t, http.MethodDelete, "/v1/planning/budget", ""); rec.Code != http.StatusNoContent {
		t.Errorf("clear: expected 204, got %d", rec.Code)
	}
	rec = a.do(t, http.MethodPost, "/v1/planning/budget", "")
	if plan := decode[domain.BudgetPlan](t, rec); plan.Cached {
		t.Error("expected a fresh plan after clearing")
	}
}

// --- Market ---

func TestMarket_QuoteAndAnalysis(t *testing.T) {
	a := newTestApp(t)
	a.gen.answer = "Microsoft is a software company."

	rec := a.do(t, http.MethodGet, "/v1/market/msft", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("quote: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	view := decode[domain.MarketView](t, rec)
	if view.Summary.LastPrice != 420 || view.Summary.Change != 20 || len(view.Series) != 25 {
		t.Errorf("unexpected view %+v", view.Summary)
	}

	rec = a.do(t, http.MethodPost, "/v1/market/MSFT/analysis", "")
	analysis := decode[domain.MarketAnalysis](t, rec)
	if analysis.Analysis != "Microsoft is a software company." {
		t.Errorf("unexpected analysis %q", analysis.Analysis)
	}

	rec = a.do(t, http.MethodGet, "/v1/market/ZZZZ", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown ticker: expected 404, got %d", rec.Code)
	}
}
