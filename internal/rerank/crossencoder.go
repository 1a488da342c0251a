package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ashita-ai/veritas/internal/telemetry"
)

var tracer = telemetry.Tracer("veritas/rerank")

// ErrNoProvider is returned by NoopCrossEncoder to signal that no real
// cross-encoder endpoint is configured. The Reranker treats any Score error,
// including this one, as a signal to return the input list unchanged.
var ErrNoProvider = errors.New("rerank: no cross-encoder configured (noop)")

const maxResponseBody = 1 * 1024 * 1024

// HTTPCrossEncoder scores a claim/document pair against a hosted
// cross-encoder model over HTTP. Adapted from
// internal/service/embedding/embedding.go's OpenAIProvider: same
// marshal/POST/status-check/unmarshal shape, generalized from an embeddings
// endpoint to a single-pair relevance-scoring endpoint (RERANK_MODEL, §6).
type HTTPCrossEncoder struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewHTTPCrossEncoder creates a cross-encoder client. Returns an error if
// apiKey is empty.
func NewHTTPCrossEncoder(apiKey, model, baseURL string, timeout time.Duration) (*HTTPCrossEncoder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("rerank: cross-encoder API key is required")
	}
	if baseURL == "" {
		return nil, fmt.Errorf("rerank: cross-encoder base URL is required")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPCrossEncoder{
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type crossEncoderRequest struct {
	Model string `json:"model"`
	Query string `json:"query"`
	Doc   string `json:"document"`
}

type crossEncoderResponse struct {
	Score float32 `json:"score"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Score calls the hosted cross-encoder endpoint with (claim, doc) and
// returns its raw relevance score. The Reranker min-max normalizes across a
// batch, so the absolute scale doesn't matter.
func (e *HTTPCrossEncoder) Score(ctx context.Context, claim, doc string) (float32, error) {
	ctx, span := tracer.Start(ctx, "rerank.Score", trace.WithAttributes(
		attribute.String("rerank.model", e.model),
	))
	defer span.End()

	reqBody, err := json.Marshal(crossEncoderRequest{Model: e.model, Query: claim, Doc: doc})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("rerank: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL, bytes.NewReader(reqBody))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("rerank: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("rerank: send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("rerank: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp crossEncoderResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != nil {
			err := fmt.Errorf("rerank: cross-encoder error (HTTP %d): %s", resp.StatusCode, errResp.Error.Message)
			span.SetStatus(codes.Error, err.Error())
			return 0, err
		}
		err := fmt.Errorf("rerank: unexpected status %d: %s", resp.StatusCode, string(body))
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	var result crossEncoderResponse
	if err := json.Unmarshal(body, &result); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("rerank: unmarshal response: %w", err)
	}
	if result.Error != nil {
		err := fmt.Errorf("rerank: cross-encoder error: %s", result.Error.Message)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	return result.Score, nil
}

// NoopCrossEncoder reports ErrNoProvider on every call, letting the service
// start without a reranking model configured (§9): the Reranker's fail-soft
// path then returns each batch unchanged, so ordering falls back to whatever
// upstream stage produced it.
type NoopCrossEncoder struct{}

// Score always returns ErrNoProvider.
func (NoopCrossEncoder) Score(_ context.Context, _, _ string) (float32, error) {
	return 0, ErrNoProvider
}

var _ CrossEncoder = (*HTTPCrossEncoder)(nil)
var _ CrossEncoder = NoopCrossEncoder{}
