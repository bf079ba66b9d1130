package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/boddenberg/finbuddy-assistant-go/internal/domain"
	"github.com/boddenberg/finbuddy-assistant-go/internal/infra/observability"
	"github.com/boddenberg/finbuddy-assistant-go/internal/infra/resilience"
	"github.com/boddenberg/finbuddy-assistant-go/internal/port"
)

const geminiService = "gemini"

// ErrEmptyCompletion is returned when the model answers with no text.
var ErrEmptyCompletion = errors.New("empty response from model")

// contentModel is the subset of *genai.Models used here.
type contentModel interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiClient calls the Gemini text generation API through the genai SDK.
type GeminiClient struct {
	models   contentModel
	model    string
	cb       *gobreaker.CircuitBreaker
	bulkhead *resilience.Bulkhead
	cfg      resilience.Config
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewGeminiClient builds a genai client for the Gemini API backend.
func NewGeminiClient(ctx context.Context, apiKey, model string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, metrics *observability.Metrics, logger *zap.Logger) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newGeminiClient(client.Models, model, cb, cfg, metrics, logger), nil
}

func newGeminiClient(models contentModel, model string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, metrics *observability.Metrics, logger *zap.Logger) *GeminiClient {
	return &GeminiClient{
		models:   models,
		model:    model,
		cb:       cb,
		bulkhead: resilience.NewBulkhead(cfg.MaxConcurrency),
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger,
	}
}

// Generate sends one prompt and returns the model text.
func (c *GeminiClient) Generate(ctx context.Context, req port.GenerateRequest) (string, error) {
	ctx, span := tracer.Start(ctx, "GeminiClient.Generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", c.model),
		attribute.Int("llm.max_output_tokens", int(req.MaxOutputTokens)),
	)

	if err := c.bulkhead.Acquire(ctx); err != nil {
		return "", err
	}
	defer c.bulkhead.Release()

	var genCfg *genai.GenerateContentConfig
	if req.MaxOutputTokens > 0 {
		genCfg = &genai.GenerateContentConfig{MaxOutputTokens: req.MaxOutputTokens}
	}

	text, err := resilience.Call(ctx, c.cb, c.cfg, geminiService, func(ctx context.Context) (string, error) {
		resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(req.Prompt), genCfg)
		if err != nil {
			return "", err
		}
		if resp.UsageMetadata != nil {
			c.metrics.RecordTokens(int(resp.UsageMetadata.PromptTokenCount), int(resp.UsageMetadata.CandidatesTokenCount))
		}
		out := strings.TrimSpace(resp.Text())
		if out == "" {
			return "", ErrEmptyCompletion
		}
		return out, nil
	})
	if err != nil {
		c.metrics.IncrExternalError(geminiService)
		c.logger.Warn("gemini call failed", zap.String("model", c.model), zap.Error(err))
		span.RecordError(err)
		return "", err
	}
	return text, nil
}

// ErrNoAPIKey is reported by DisabledGenerator.
var ErrNoAPIKey = errors.New("GOOGLE_API_KEY is not configured")

// DisabledGenerator stands in for GeminiClient when no API key is set, so
// every AI feature takes its degraded path.
type DisabledGenerator struct{}

func (DisabledGenerator) Generate(context.Context, port.GenerateRequest) (string, error) {
	return "", &domain.ErrExternalService{Service: geminiService, Err: ErrNoAPIKey}
}
