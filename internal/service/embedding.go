package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/beamhq/adgallery/internal/domain"
	"github.com/beamhq/adgallery/internal/logger"
	"github.com/go-resty/resty/v2"
)

const (
	defaultReplicateBaseURL = "https://api.replicate.com/v1"
	defaultDimensions       = 768
	defaultPollInterval     = 2 * time.Second
	defaultPollAttempts     = 30
)

// EmbeddingProvider generates query embeddings.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) (domain.Vector, error)
}

// EmbeddingConfig holds configuration for the embedding service.
type EmbeddingConfig struct {
	APIToken     string
	BaseURL      string // override for tests; defaults to the Replicate API
	ModelVersion string
	Dimensions   int
	PollInterval time.Duration
	PollAttempts int
}

// EmbeddingService generates text embeddings through a hosted prediction
// platform. Predictions are asynchronous: the service submits a job and
// polls the status endpoint until it reaches a terminal state.
type EmbeddingService struct {
	client       *resty.Client
	apiToken     string
	modelVersion string
	dimensions   int
	pollInterval time.Duration
	pollAttempts int
}

// NewEmbeddingService creates a new embedding service.
// Parameters:
//   - cfg: embedding platform settings.
// Returns:
//   - *EmbeddingService: initialized service.
func NewEmbeddingService(cfg *EmbeddingConfig) *EmbeddingService {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultReplicateBaseURL
	}
	dimensions := cfg.Dimensions
	if dimensions <= 0 {
		dimensions = defaultDimensions
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	pollAttempts := cfg.PollAttempts
	if pollAttempts <= 0 {
		pollAttempts = defaultPollAttempts
	}

	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetHeader("Content-Type", "application/json")

	return &EmbeddingService{
		client:       client,
		apiToken:     cfg.APIToken,
		modelVersion: cfg.ModelVersion,
		dimensions:   dimensions,
		pollInterval: pollInterval,
		pollAttempts: pollAttempts,
	}
}

// Prediction API request/response structures
type predictionRequest struct {
	Version string          `json:"version"`
	Input   predictionInput `json:"input"`
}

type predictionInput struct {
	Text string `json:"text"`
}

type predictionResponse struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output,omitempty"`
	Error  string          `json:"error,omitempty"`
	Detail string          `json:"detail,omitempty"`
}

// Embed generates an embedding for the given text.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - text: non-empty query text.
// Returns:
//   - domain.Vector: embedding of exactly the configured dimensionality.
//   - error: ErrEmptyText, ErrMissingAPIToken, ErrPollTimeout,
//     ErrBadEmbeddingShape, or a wrapped upstream error.
func (s *EmbeddingService) Embed(ctx context.Context, text string) (domain.Vector, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	if s.apiToken == "" {
		return nil, ErrMissingAPIToken
	}

	logger.CtxDebug(ctx, "Generating embedding: text=%q", text)

	var created predictionResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Token "+s.apiToken).
		SetBody(predictionRequest{
			Version: s.modelVersion,
			Input:   predictionInput{Text: text},
		}).
		SetResult(&created).
		SetError(&created).
		Post("/predictions")
	if err != nil {
		return nil, fmt.Errorf("failed to call prediction API: %w", err)
	}
	if httpResp.IsError() {
		if created.Detail != "" {
			return nil, fmt.Errorf("prediction API error: %s", created.Detail)
		}
		return nil, fmt.Errorf("prediction API error: status %d", httpResp.StatusCode())
	}
	if created.ID == "" {
		return nil, fmt.Errorf("prediction API returned no prediction ID")
	}

	return s.waitForEmbedding(ctx, created.ID)
}

// waitForEmbedding polls the prediction status endpoint until it reaches a
// terminal state or the attempt budget is exhausted. "succeeded" and "failed"
// are terminal; every other status counts as still pending.
func (s *EmbeddingService) waitForEmbedding(ctx context.Context, predictionID string) (domain.Vector, error) {
	for attempt := 0; attempt < s.pollAttempts; attempt++ {
		var prediction predictionResponse
		httpResp, err := s.client.R().
			SetContext(ctx).
			SetHeader("Authorization", "Token "+s.apiToken).
			SetResult(&prediction).
			Get("/predictions/" + predictionID)
		if err != nil {
			return nil, fmt.Errorf("failed to check prediction status: %w", err)
		}
		if httpResp.IsError() {
			return nil, fmt.Errorf("prediction status error: status %d", httpResp.StatusCode())
		}

		switch prediction.Status {
		case "succeeded":
			return s.validateOutput(prediction.Output)
		case "failed":
			return nil, fmt.Errorf("embedding generation failed: %s", prediction.Error)
		}

		logger.CtxDebug(ctx, "Waiting for embedding: prediction_id=%s, status=%s", predictionID, prediction.Status)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.pollInterval):
		}
	}

	return nil, fmt.Errorf("%w: exceeded %d poll attempts", ErrPollTimeout, s.pollAttempts)
}

// validateOutput normalizes the prediction output and enforces the
// contractual dimensionality.
func (s *EmbeddingService) validateOutput(output json.RawMessage) (domain.Vector, error) {
	vector, err := NormalizeEmbedding(output)
	if err != nil {
		return nil, err
	}
	if len(vector) != s.dimensions {
		return nil, fmt.Errorf("%w: got %d dimensions, expected %d", ErrBadEmbeddingShape, len(vector), s.dimensions)
	}
	return vector, nil
}

// NormalizeEmbedding unwraps the platform output into one canonical vector.
// The platform has been observed returning three shapes: a raw numeric
// array, an object with an "embedding" field, and an array of single-element
// objects wrapping an "embedding" field. Anything else is a shape error.
// Parameters:
//   - raw: prediction output JSON.
// Returns:
//   - domain.Vector: unwrapped numeric array.
//   - error: ErrBadEmbeddingShape (wrapped) if no shape matches.
func NormalizeEmbedding(raw json.RawMessage) (domain.Vector, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty output", ErrBadEmbeddingShape)
	}

	var direct []float32
	if err := json.Unmarshal(raw, &direct); err == nil {
		return domain.Vector(direct), nil
	}

	var wrapped struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Embedding != nil {
		return domain.Vector(wrapped.Embedding), nil
	}

	var list []struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 && list[0].Embedding != nil {
		return domain.Vector(list[0].Embedding), nil
	}

	return nil, fmt.Errorf("%w: expected numeric array or wrapped embedding field", ErrBadEmbeddingShape)
}
