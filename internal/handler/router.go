package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	chathandler "github.com/boddenberg/finbuddy-assistant-go/internal/chat/handler"
	"github.com/boddenberg/finbuddy-assistant-go/internal/domain"
	"github.com/boddenberg/finbuddy-assistant-go/internal/infra/observability"
	"github.com/boddenberg/finbuddy-assistant-go/internal/service"
)

var tracer = otel.Tracer("handler")

// MaxImportBytes caps CSV uploads.
const MaxImportBytes = 10 << 20

// Services bundles everything the routes call into.
type Services struct {
	Workspace  *service.Workspace
	Forecaster *service.WeatherForecaster
	Reports    *service.Reports
	Planner    *service.Planner
	Market     *service.Market

	// Breakers are reported by /healthz, keyed by dependency name. A nil
	// breaker marks a dependency that is not configured.
	Breakers map[string]*gobreaker.CircuitBreaker
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc Services, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(observability.MetricsMiddleware(metrics))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svc.Breakers))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Use(SelectedProjectMiddleware(svc.Workspace.Selected))

		// =============================================
		// 1. 📊 Metrics
		// =============================================
		r.Get("/metrics/assistant", assistantMetricsHandler(metrics))

		// =============================================
		// 2. 📁 Projects
		// =============================================
		r.Get("/projects", listProjectsHandler(svc.Workspace, logger))
		r.Post("/projects", createProjectHandler(svc.Workspace, logger))
		r.Put("/projects/selected", selectProjectHandler(svc.Workspace, logger))

		// =============================================
		// 3. 💰 Transactions
		// =============================================
		r.Get("/transactions", listTransactionsHandler(svc.Workspace, logger))
		r.Post("/transactions", addTransactionHandler(svc.Workspace, logger))
		r.Put("/transactions/{id}", editTransactionHandler(svc.Workspace, logger))
		r.Delete("/transactions/{id}", deleteTransactionHandler(svc.Workspace, logger))
		r.With(LimitBodyMiddleware(MaxImportBytes)).
			Post("/transactions/import", importTransactionsHandler(svc.Workspace, logger))
		r.Get("/transactions/export", exportTransactionsHandler(svc.Workspace, logger))

		// =============================================
		// 4. 💬 Chat
		// =============================================
		r.Mount("/chat", chathandler.Routes(svc.Workspace, logger))

		// =============================================
		// 5. 🌦 Forecasts & reports
		// =============================================
		r.Get("/forecast/weather", weatherHandler(svc.Workspace, svc.Forecaster, logger))
		r.Get("/forecast/trend", trendHandler(svc.Workspace, logger))
		r.Get("/reports/dashboard", dashboardHandler(svc.Reports, logger))

		// =============================================
		// 6. 🗓 Planning
		// =============================================
		r.Post("/planning/budget", budgetPlanHandler(svc.Planner, logger))
		r.Delete("/planning/budget", clearBudgetPlanHandler(svc.Planner))

		// =============================================
		// 7. 📈 Market
		// =============================================
		r.Get("/market/{ticker}", marketQuoteHandler(svc.Market, logger))
		r.Post("/market/{ticker}/analysis", marketAnalysisHandler(svc.Market, logger))
	})

	return r
}

// ============================================================
// Operational
// ============================================================

func healthzHandler(breakers map[string]*gobreaker.CircuitBreaker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services := []domain.ServiceHealth{
			{Name: "finbuddy-api", Status: "healthy"},
		}
		overall := "healthy"
		for _, name := range []string{"gemini", "categorizer", "market"} {
			cb, ok := breakers[name]
			if !ok {
				continue
			}
			if cb == nil {
				services = append(services, domain.ServiceHealth{Name: name, Status: "disabled"})
				overall = "degraded"
				continue
			}
			status := "configured"
			if cb.State() == gobreaker.StateOpen {
				status = "open"
				overall = "degraded"
			}
			services = append(services, domain.ServiceHealth{Name: name, Status: status, Breaker: cb.State().String()})
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overall,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func assistantMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetAssistantSnapshot())
	}
}
