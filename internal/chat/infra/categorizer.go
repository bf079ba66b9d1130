// Package infra holds the chat module's outbound adapters.
package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	chatdomain "github.com/boddenberg/finbuddy-assistant-go/internal/chat/domain"
	"github.com/boddenberg/finbuddy-assistant-go/internal/domain"
	"github.com/boddenberg/finbuddy-assistant-go/internal/infra/resilience"
)

// tracer is the OpenTelemetry tracer for chat/infra.
var tracer = otel.Tracer("chat/infra")

const categorizerService = "categorizer"

// ============================================================
// CategorizerClient: HTTP client for the hosted categorizer
// ============================================================
//
// The categorizer is a Gradio app exposing a single predict endpoint:
//
//	Request:  POST {base}/run/predict  {"data": ["<prompt>"]}
//	Response: {"data": ["Groceries"], "duration": 0.41}
//
// Only data[0] is used; it must be a string.

type CategorizerClient struct {
	httpClient *http.Client
	baseURL    string // ex: https://finbuddy-categorizer.hf.space
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewCategorizerClient creates the client. baseURL must not end with /run/predict.
func NewCategorizerClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *CategorizerClient {
	return &CategorizerClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		cfg:        cfg,
	}
}

// Categorize sends prompt to the predict endpoint and returns the label.
//
// Flow:
//  1. Serialize {"data": [prompt]}
//  2. POST {baseURL}/run/predict through the breaker and retry loop
//  3. Decode the reply and return data[0]
//
// 4xx replies are not retried.
func (c *CategorizerClient) Categorize(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "CategorizerClient.Categorize")
	defer span.End()
	span.SetAttributes(attribute.Int("categorizer.prompt_length", len(prompt)))

	label, err := resilience.Call(ctx, c.cb, c.cfg, categorizerService, func(ctx context.Context) (string, error) {
		body, err := json.Marshal(chatdomain.PredictRequest{Data: []string{prompt}})
		if err != nil {
			return "", resilience.Permanent(fmt.Errorf("marshal predict request: %w", err))
		}

		url := fmt.Sprintf("%s/run/predict", c.baseURL)
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return "", resilience.Permanent(fmt.Errorf("create http request: %w", err))
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return "", fmt.Errorf("http call to categorizer: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return "", resilience.Permanent(fmt.Errorf("categorizer returned status %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("categorizer returned status %d", resp.StatusCode)
		}

		var out chatdomain.PredictResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return "", fmt.Errorf("decode predict response: %w", err)
		}
		if len(out.Data) == 0 {
			return "", resilience.Permanent(fmt.Errorf("categorizer returned no data"))
		}
		s, ok := out.Data[0].(string)
		if !ok {
			return "", resilience.Permanent(fmt.Errorf("categorizer returned %T, want string", out.Data[0]))
		}
		return s, nil
	})
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	return label, nil
}

// ErrNoCategorizer is reported by DisabledCategorizer.
var ErrNoCategorizer = errors.New("CATEGORIZER_URL is not configured")

// DisabledCategorizer is wired when no categorizer URL is set; every
// categorization then falls back to "Other".
type DisabledCategorizer struct{}

func (DisabledCategorizer) Categorize(context.Context, string) (string, error) {
	return "", &domain.ErrExternalService{Service: categorizerService, Err: ErrNoCategorizer}
}
