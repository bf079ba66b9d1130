package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/finbuddy-assistant-go/internal/analytics"
	"github.com/boddenberg/finbuddy-assistant-go/internal/domain"
	"github.com/boddenberg/finbuddy-assistant-go/internal/infra/observability"
	"github.com/boddenberg/finbuddy-assistant-go/internal/port"
)

// MsgNoForecastData is shown instead of a verdict for an empty project.
const MsgNoForecastData = "Add a few transactions to get your first forecast."

// WeatherForecaster produces the financial weather verdict of a table.
// The AI verdict is preferred; any failure falls back to the local rules.
type WeatherForecaster struct {
	generator port.TextGenerator
	snapshots port.LoadingCache[domain.MetricsSnapshot]
	defDays   int
	now       func() time.Time
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewWeatherForecaster creates the forecaster. defaultDays is used when a
// request does not name a window.
func NewWeatherForecaster(
	generator port.TextGenerator,
	snapshots port.LoadingCache[domain.MetricsSnapshot],
	defaultDays int,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *WeatherForecaster {
	if defaultDays <= 0 {
		defaultDays = domain.DefaultPeriodDays
	}
	return &WeatherForecaster{
		generator: generator,
		snapshots: snapshots,
		defDays:   defaultDays,
		now:       time.Now,
		metrics:   metrics,
		logger:    logger,
	}
}

// Forecast computes the snapshot of the last days and its verdict.
// It never fails: generator errors and unusable replies yield the local verdict.
func (f *WeatherForecaster) Forecast(ctx context.Context, project string, txs []domain.Transaction, days int) *domain.WeatherForecast {
	ctx, span := tracer.Start(ctx, "WeatherForecaster.Forecast")
	defer span.End()

	if days <= 0 {
		days = f.defDays
	}
	today := domain.CalendarDay(f.now())
	span.SetAttributes(attribute.String("project", project), attribute.Int("forecast.days", days))

	if !analytics.Analysable(txs) {
		return &domain.WeatherForecast{
			Project:  project,
			Empty:    true,
			Message:  MsgNoForecastData,
			Snapshot: domain.EmptySnapshot(days, today),
		}
	}

	start := time.Now()
	defer func() {
		f.metrics.RecordRequestDuration("weather", time.Since(start))
	}()

	snapshot := f.snapshot(ctx, txs, days, today)
	verdict := f.verdict(ctx, project, snapshot)
	span.SetAttributes(
		attribute.String("forecast.status", string(verdict.Status)),
		attribute.String("forecast.source", verdict.Source),
	)
	return &domain.WeatherForecast{
		Project:  project,
		Snapshot: snapshot,
		Verdict:  &verdict,
	}
}

func (f *WeatherForecaster) snapshot(ctx context.Context, txs []domain.Transaction, days int, today time.Time) domain.MetricsSnapshot {
	key := fmt.Sprintf("%016x|%d|%s", domain.Fingerprint(txs), days, today.Format(domain.DateLayout))
	s, hit, err := f.snapshots.GetOrLoad(ctx, key, func(context.Context) (domain.MetricsSnapshot, error) {
		return analytics.ComputeMetrics(txs, days, today), nil
	})
	if hit {
		f.metrics.IncrCacheHit(observability.CacheSnapshots)
	} else {
		f.metrics.IncrCacheMiss(observability.CacheSnapshots)
	}
	if err != nil {
		// Only a cancelled context gets here; compute inline.
		return analytics.ComputeMetrics(txs, days, today)
	}
	return s
}

func (f *WeatherForecaster) verdict(ctx context.Context, project string, s domain.MetricsSnapshot) domain.ForecastVerdict {
	prompt, err := analytics.WeatherPrompt(s)
	if err != nil {
		return f.fallback(project, s, err)
	}
	text, err := f.generator.Generate(ctx, port.GenerateRequest{Prompt: prompt})
	if err != nil {
		return f.fallback(project, s, err)
	}
	v, err := analytics.ParseVerdict(text, s)
	if err != nil {
		return f.fallback(project, s, err)
	}
	return v
}

func (f *WeatherForecaster) fallback(project string, s domain.MetricsSnapshot, err error) domain.ForecastVerdict {
	f.metrics.IncrFallback(observability.FallbackWeather)
	f.logger.Warn("weather verdict unavailable, using local rules",
		zap.String("project", project),
		zap.Error(err),
	)
	return analytics.LocalVerdict(s)
}

// Trend returns the 30-day spend projection of txs.
func Trend(ctx context.Context, txs []domain.Transaction) *domain.TrendForecast {
	_, span := tracer.Start(ctx, "Trend")
	defer span.End()

	t := analytics.Trend(txs)
	span.SetAttributes(attribute.Bool("trend.sufficient", t.Sufficient))
	return &t
}
