package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the configuration state of an outbound dependency.
type ServiceHealth struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // configured, disabled, open
	Breaker string `json:"breaker,omitempty"`
}

// AssistantMetrics is returned by GET /v1/metrics/assistant.
type AssistantMetrics struct {
	TotalRequests       int64            `json:"totalRequests"`
	ErrorRate           float64          `json:"errorRate"`
	FallbackRate        float64          `json:"fallbackRate"`
	AvgTokensPerRequest float64          `json:"avgTokensPerRequest"`
	CacheHitRate        float64          `json:"cacheHitRate"`
	IntentsRouted       map[string]int64 `json:"intentsRouted"`
	Fallbacks           map[string]int64 `json:"fallbacks"`
}

// ============================================================
// Generic API Response wrappers
// ============================================================

// ListResponse wraps list results.
type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}

// SuccessResponse wraps a successful single-entity response.
type SuccessResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}
