package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/boddenberg/finbuddy-assistant-go/internal/analytics"
	"github.com/boddenberg/finbuddy-assistant-go/internal/domain"
	"github.com/boddenberg/finbuddy-assistant-go/internal/infra/observability"
)

// Reports assembles the dashboard of the selected project.
type Reports struct {
	workspace *Workspace
	weather   *WeatherForecaster
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewReports creates the reports service.
func NewReports(workspace *Workspace, weather *WeatherForecaster, metrics *observability.Metrics, logger *zap.Logger) *Reports {
	return &Reports{
		workspace: workspace,
		weather:   weather,
		metrics:   metrics,
		logger:    logger,
	}
}

// Dashboard returns totals, breakdowns, the daily series and both forecasts.
// The weather verdict and the trend are computed alongside the tables.
func (r *Reports) Dashboard(ctx context.Context, days int) (*domain.Dashboard, error) {
	ctx, span := tracer.Start(ctx, "Reports.Dashboard")
	defer span.End()

	start := time.Now()
	defer func() {
		r.metrics.RecordRequestDuration("dashboard", time.Since(start))
	}()

	project, txs, err := r.workspace.Table(ctx)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("project", project), attribute.Int("transactions", len(txs)))

	d := &domain.Dashboard{
		Project:          project,
		Empty:            !analytics.Analysable(txs),
		ExpenseBreakdown: []domain.CategoryAmount{},
		DailySeries:      []domain.DailyFlow{},
		Transactions:     analytics.LatestFirst(txs),
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		d.Totals = analytics.Totals(txs)
		d.Formatted = map[string]string{
			"income":   domain.FormatINR(d.Totals.Income),
			"expenses": domain.FormatINR(d.Totals.Expenses),
			"net":      domain.FormatINR(d.Totals.Net),
		}
		d.ExpenseBreakdown = analytics.ExpenseBreakdown(txs)
		d.DailySeries = analytics.DailySeries(txs)
		return nil
	})

	g.Go(func() error {
		d.Weather = r.weather.Forecast(gCtx, project, txs, days)
		return nil
	})

	g.Go(func() error {
		d.Trend = Trend(gCtx, txs)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}
