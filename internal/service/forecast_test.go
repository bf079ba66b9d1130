package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/finbuddy-assistant-go/internal/domain"
	"github.com/boddenberg/finbuddy-assistant-go/internal/infra/cache"
	"github.com/boddenberg/finbuddy-assistant-go/internal/infra/observability"
	"github.com/boddenberg/finbuddy-assistant-go/internal/service"
)

func newForecaster(gen *mockGenerator, metrics *observability.Metrics) *service.WeatherForecaster {
	return service.NewWeatherForecaster(gen, cache.New[domain.MetricsSnapshot](time.Minute), 30, metrics, zap.NewNop())
}

func recentTable(t *testing.T) []domain.Transaction {
	t.Helper()
	var txs []domain.Transaction
	for _, in := range []domain.TransactionInput{
		{Date: daysAgo(1), Category: "Income", Amount: exact("50000")},
		{Date: daysAgo(2), Category: "Rent", Amount: exact("15000")},
		{Date: daysAgo(3), Category: "Groceries", Amount: exact("5000")},
	} {
		tx, err := in.Validate()
		if err != nil {
			t.Fatalf("validate: %v", err)
		}
		txs = append(txs, tx)
	}
	return txs
}

func TestWeatherForecaster_EmptyProject(t *testing.T) {
	gen := &mockGenerator{}
	f := newForecaster(gen, observability.NewMetrics())

	res := f.Forecast(context.Background(), "Default", nil, 0)
	if !res.Empty || res.Verdict != nil {
		t.Fatalf("expected empty forecast, got %+v", res)
	}
	if res.Message != service.MsgNoForecastData {
		t.Errorf("unexpected message %q", res.Message)
	}
	if res.Snapshot.PeriodDays != 30 {
		t.Errorf("expected default window 30, got %d", res.Snapshot.PeriodDays)
	}
	if gen.calls != 0 {
		t.Error("empty project must not call the generator")
	}
}

func TestWeatherForecaster_AIVerdict(t *testing.T) {
	gen := &mockGenerator{text: "Sure! ```json\n{\"status\":\"CLEAR_SKIES\",\"headline\":\"Great month\",\"explanation\":\"Saving well.\",\"actions\":[\"a\",\"b\",\"c\",\"d\"],\"score\":\"104\"}\n```"}
	metrics := observability.NewMetrics()
	f := newForecaster(gen, metrics)

	res := f.Forecast(context.Background(), "Default", recentTable(t), 30)
	if res.Empty || res.Verdict == nil {
		t.Fatalf("expected a verdict, got %+v", res)
	}
	v := res.Verdict
	if v.Status != domain.StatusClearSkies || v.Source != domain.VerdictSourceAI {
		t.Errorf("unexpected verdict %+v", v)
	}
	if v.Emoji != "☀️" || v.Score != 100 || len(v.Actions) != 3 {
		t.Errorf("expected defaulted emoji, clamped score and 3 actions, got %+v", v)
	}
	if res.Snapshot.Current.Income != 50000 || res.Snapshot.Current.Expense != 20000 {
		t.Errorf("unexpected snapshot %+v", res.Snapshot.Current)
	}
	if !strings.Contains(gen.prompt, "current_income: 50000") {
		t.Errorf("expected snapshot in prompt, got %q", gen.prompt)
	}
	if metrics.FallbackCount(observability.FallbackWeather) != 0 {
		t.Error("no fallback expected")
	}
}

func TestWeatherForecaster_FallsBackToLocal(t *testing.T) {
	cases := map[string]*mockGenerator{
		"generator error": {err: &domain.ErrExternalService{Service: "gemini", Err: errors.New("503")}},
		"not json":        {text: "it looks sunny"},
		"bad status":      {text: `{"status":"HAIL"}`},
		"missing status":  {text: `{"headline":"x"}`},
	}
	for name, gen := range cases {
		t.Run(name, func(t *testing.T) {
			metrics := observability.NewMetrics()
			f := newForecaster(gen, metrics)

			res := f.Forecast(context.Background(), "Default", recentTable(t), 30)
			if res.Verdict == nil || res.Verdict.Source != domain.VerdictSourceLocal {
				t.Fatalf("expected local verdict, got %+v", res.Verdict)
			}
			// net 30000, savings 60%, no previous period: CLEAR_SKIES.
			if res.Verdict.Status != domain.StatusClearSkies {
				t.Errorf("expected CLEAR_SKIES, got %s", res.Verdict.Status)
			}
			if metrics.FallbackCount(observability.FallbackWeather) != 1 {
				t.Error("expected weather fallback to be counted")
			}
		})
	}
}

func TestWeatherForecaster_SnapshotCached(t *testing.T) {
	metrics := observability.NewMetrics()
	f := newForecaster(&mockGenerator{text: `{"status":"CLEAR_SKIES"}`}, metrics)
	txs := recentTable(t)

	a := f.Forecast(context.Background(), "Default", txs, 30)
	b := f.Forecast(context.Background(), "Default", txs, 30)
	if a.Snapshot.Current.Net != b.Snapshot.Current.Net {
		t.Error("expected identical snapshots")
	}
	snap := metrics.GetAssistantSnapshot()
	if snap.CacheHitRate <= 0 {
		t.Errorf("expected a snapshot cache hit, got rate %f", snap.CacheHitRate)
	}
}

func TestTrend_InsufficientData(t *testing.T) {
	tf := service.Trend(context.Background(), recentTable(t)[:2])
	if tf.Sufficient {
		t.Fatal("expected insufficient data")
	}
	if !strings.HasPrefix(tf.Message, "Not enough transaction data") {
		t.Errorf("unexpected message %q", tf.Message)
	}
}

func TestReports_Dashboard(t *testing.T) {
	ctx := context.Background()
	ws := newWorkspace(t, &mockRouter{})
	for _, tx := range recentTable(t) {
		_, err := ws.AddTransaction(ctx, domain.TransactionInput{
			Date: tx.DateString(), Category: tx.Category, Amount: exact(tx.Amount.String()),
		})
		if err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	metrics := observability.NewMetrics()
	reports := service.NewReports(ws, newForecaster(&mockGenerator{err: errors.New("down")}, metrics), metrics, zap.NewNop())

	d, err := reports.Dashboard(ctx, 0)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if d.Empty {
		t.Fatal("expected a populated dashboard")
	}
	if d.Totals.Income != 50000 || d.Totals.Expenses != 20000 || d.Totals.Net != 30000 {
		t.Errorf("unexpected totals %+v", d.Totals)
	}
	if d.Formatted["net"] != "₹30,000.00" {
		t.Errorf("unexpected formatted net %q", d.Formatted["net"])
	}
	if len(d.ExpenseBreakdown) != 2 || d.ExpenseBreakdown[0].Category != "Rent" {
		t.Errorf("unexpected breakdown %+v", d.ExpenseBreakdown)
	}
	if len(d.DailySeries) != 3 || d.DailySeries[0].Date != daysAgo(3) {
		t.Errorf("unexpected daily series %+v", d.DailySeries)
	}
	if d.Transactions[0].Category != "Income" {
		t.Error("expected transactions latest first")
	}
	if d.Weather == nil || d.Weather.Verdict == nil || d.Weather.Verdict.Source != domain.VerdictSourceLocal {
		t.Errorf("expected local weather verdict, got %+v", d.Weather)
	}
	// Two expense rows are not enough for a projection.
	if d.Trend == nil || d.Trend.Sufficient || !strings.HasPrefix(d.Trend.Message, "Not enough expense data") {
		t.Errorf("unexpected trend %+v", d.Trend)
	}
}

func TestReports_EmptyDashboard(t *testing.T) {
	ws := newWorkspace(t, &mockRouter{})
	metrics := observability.NewMetrics()
	reports := service.NewReports(ws, newForecaster(&mockGenerator{}, metrics), metrics, zap.NewNop())

	d, err := reports.Dashboard(context.Background(), 30)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if !d.Empty || !d.Weather.Empty {
		t.Errorf("expected empty dashboard, got %+v", d)
	}
	if d.Trend.Sufficient {
		t.Error("expected insufficient trend")
	}
}
