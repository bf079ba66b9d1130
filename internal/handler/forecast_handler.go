package handler

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/finbuddy-assistant-go/internal/service"
)

// ============================================================
// Forecasts & reports
// ============================================================

// weatherHandler returns the financial weather of the selected project.
//
//	GET /v1/forecast/weather?days=30
//
// The verdict always comes back with 200: when the AI is unavailable the
// local rules decide and "source" reads "local".
func weatherHandler(ws *service.Workspace, forecaster *service.WeatherForecaster, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/forecast/weather")
		defer span.End()

		days, err := parseDays(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		project, txs, err := ws.Table(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		forecast := forecaster.Forecast(ctx, project, txs, days)
		if forecast.Verdict != nil {
			span.SetAttributes(
				attribute.String("forecast.status", string(forecast.Verdict.Status)),
				attribute.String("forecast.source", forecast.Verdict.Source),
			)
		}
		writeJSON(w, http.StatusOK, forecast)
	}
}

func trendHandler(ws *service.Workspace, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/forecast/trend")
		defer span.End()

		_, txs, err := ws.Table(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, service.Trend(ctx, txs))
	}
}

func dashboardHandler(reports *service.Reports, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/reports/dashboard")
		defer span.End()

		days, err := parseDays(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		dashboard, err := reports.Dashboard(ctx, days)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, dashboard)
	}
}

// ============================================================
// Planning
// ============================================================

func budgetPlanHandler(planner *service.Planner, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/planning/budget")
		defer span.End()

		plan, err := planner.BudgetPlan(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.Bool("plan.cached", plan.Cached))
		writeJSON(w, http.StatusOK, plan)
	}
}

func clearBudgetPlanHandler(planner *service.Planner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		planner.Clear()
		w.WriteHeader(http.StatusNoContent)
	}
}
