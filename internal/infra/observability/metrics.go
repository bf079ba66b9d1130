package observability

import (
	"time"

	"github.com/boddenberg/finbuddy-assistant-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Fallback kinds counted by IncrFallback.
const (
	FallbackIntentUnmatched = "intent_unmatched"
	FallbackIntentError     = "intent_error"
	FallbackWeather         = "weather"
	FallbackCategorizer     = "categorizer"
)

// Cache names used as metric labels.
const (
	CacheAIResponses = "ai_responses"
	CacheSnapshots   = "snapshots"
	CacheMarket      = "market"
	CachePlans       = "plans"
)

// Metrics holds all Prometheus metrics for the assistant.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	tokensUsed      *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
	intentsRouted   *prometheus.CounterVec
	fallbacks       *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finbuddy_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finbuddy_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finbuddy_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finbuddy_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		tokensUsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finbuddy_llm_tokens_total",
				Help: "Total LLM tokens consumed.",
			},
			[]string{"type"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finbuddy_chat_requests_total",
				Help: "Total chat queries processed.",
			},
			[]string{"status"},
		),
		intentsRouted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finbuddy_intents_routed_total",
				Help: "Chat queries dispatched, by intent.",
			},
			[]string{"intent"},
		),
		fallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finbuddy_fallbacks_total",
				Help: "Degraded results served instead of an external answer.",
			},
			[]string{"kind"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordTokens records prompt and completion token usage.
func (m *Metrics) RecordTokens(prompt, completion int) {
	m.tokensUsed.WithLabelValues("prompt").Add(float64(prompt))
	m.tokensUsed.WithLabelValues("completion").Add(float64(completion))
}

// IncrRequest increments the request counter with a status label.
func (m *Metrics) IncrRequest(status string) {
	m.requestsTotal.WithLabelValues(status).Inc()
}

// IncrIntent counts a dispatched chat intent.
func (m *Metrics) IncrIntent(intent domain.Intent) {
	m.intentsRouted.WithLabelValues(string(intent)).Inc()
}

// IncrFallback counts a degraded result of the given kind.
func (m *Metrics) IncrFallback(kind string) {
	m.fallbacks.WithLabelValues(kind).Inc()
}

// FallbackCount returns the current value of the fallback counter for kind.
func (m *Metrics) FallbackCount(kind string) float64 {
	return getCounterValue(m.fallbacks, kind)
}

// GetAssistantSnapshot returns a snapshot of assistant-related metrics suitable
// for the GET /v1/metrics/assistant endpoint.
func (m *Metrics) GetAssistantSnapshot() *domain.AssistantMetrics {
	// Prometheus counters expose cumulative values.
	promptTokens := getCounterValue(m.tokensUsed, "prompt")
	completionTokens := getCounterValue(m.tokensUsed, "completion")
	totalRequests := getCounterValue(m.requestsTotal, "success") +
		getCounterValue(m.requestsTotal, "error")
	errorCount := getCounterValue(m.requestsTotal, "error")

	var cacheHits, cacheMisses float64
	for _, c := range []string{CacheAIResponses, CacheSnapshots, CacheMarket, CachePlans} {
		cacheHits += getCounterValue(m.cacheHits, c)
		cacheMisses += getCounterValue(m.cacheMisses, c)
	}

	intents := make(map[string]int64, len(domain.Intents))
	for _, in := range domain.Intents {
		intents[string(in)] = int64(getCounterValue(m.intentsRouted, string(in)))
	}
	fallbacks := make(map[string]int64, 4)
	var intentFallbacks float64
	for _, kind := range []string{FallbackIntentUnmatched, FallbackIntentError, FallbackWeather, FallbackCategorizer} {
		v := getCounterValue(m.fallbacks, kind)
		fallbacks[kind] = int64(v)
		if kind == FallbackIntentUnmatched || kind == FallbackIntentError {
			intentFallbacks += v
		}
	}

	totalTokens := promptTokens + completionTokens
	avgTokens := float64(0)
	errorRate := float64(0)
	fallbackRate := float64(0)
	cacheHitRate := float64(0)

	if totalRequests > 0 {
		avgTokens = totalTokens / totalRequests
		errorRate = errorCount / totalRequests
		fallbackRate = intentFallbacks / totalRequests
	}
	if cacheHits+cacheMisses > 0 {
		cacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}

	return &domain.AssistantMetrics{
		TotalRequests:       int64(totalRequests),
		ErrorRate:           errorRate,
		FallbackRate:        fallbackRate,
		AvgTokensPerRequest: avgTokens,
		CacheHitRate:        cacheHitRate,
		IntentsRouted:       intents,
		Fallbacks:           fallbacks,
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
