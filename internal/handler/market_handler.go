package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/boddenberg/finbuddy-assistant-go/internal/service"
)

// ============================================================
// Market
// ============================================================

// marketQuoteHandler returns the summary metrics and the 20/50 day moving
// averages of a ticker.
//
//	GET /v1/market/MSFT
//	GET /v1/market/RELIANCE.NS
func marketQuoteHandler(market *service.Market, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/market/{ticker}")
		defer span.End()

		view, err := market.View(ctx, chi.URLParam(r, "ticker"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func marketAnalysisHandler(market *service.Market, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/market/{ticker}/analysis")
		defer span.End()

		analysis, err := market.Analysis(ctx, chi.URLParam(r, "ticker"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, analysis)
	}
}
