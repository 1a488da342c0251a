// Package llmclient provides chat-completion access to a large language
// model, used by the Stance Classifier (§4.10), Verdict Former (§4.12), and
// Claim Decomposer (§4.15) for the natural-language reasoning steps those
// components need. Adapted from internal/service/embedding/embedding.go's
// Provider/OpenAIProvider/NoopProvider shape: a single-method capability
// interface, one HTTP-backed implementation, and a no-op fallback.
package llmclient

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

var tracer = telemetry.Tracer("veritas/llmclient")

// ErrNoProvider is returned by NoopProvider to signal that no real LLM
// provider is configured.
var ErrNoProvider = errors.New("llmclient: no provider configured (noop)")

const maxResponseBody = 10 * 1024 * 1024

// Message is a single chat-completion turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider completes a chat conversation and returns the model's reply text.
type Provider interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// OpenAIProvider completes chat conversations using an OpenAI-compatible
// chat-completions endpoint (the same base-URL override pattern used by
// internal/embedding lets this also target a local Ollama-style gateway).
type OpenAIProvider struct {
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	httpClient  *http.Client
}

// NewOpenAIProvider creates a chat-completion provider. baseURL, when empty,
// defaults to the public OpenAI API.
func NewOpenAIProvider(apiKey, model, baseURL string, temperature float64, timeout time.Duration) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("llmclient: API key is required")
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1/chat/completions"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIProvider{
		apiKey:      apiKey,
		model:       model,
		baseURL:     baseURL,
		temperature: temperature,
		httpClient:  &http.Client{Timeout: timeout},
	}, nil
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends messages to the configured model and returns its reply
// content. Returns an error if the provider is unreachable, returns a
// non-2xx status, or reports no choices.
func (p *OpenAIProvider) Complete(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("llmclient: at least one message is required")
	}

	ctx, span := tracer.Start(ctx, "llmclient.Complete", trace.WithAttributes(
		attribute.String("llmclient.model", p.model),
		attribute.Int("llmclient.message_count", len(messages)),
	))
	defer span.End()

	reqBody, err := json.Marshal(chatRequest{Model: p.model, Messages: messages, Temperature: p.temperature})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("llmclient: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(reqBody))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("llmclient: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("llmclient: send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("llmclient: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp chatResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != nil {
			err := fmt.Errorf("llmclient: provider error (HTTP %d): %s: %s", resp.StatusCode, errResp.Error.Type, errResp.Error.Message)
			span.SetStatus(codes.Error, err.Error())
			return "", err
		}
		err := fmt.Errorf("llmclient: unexpected status %d: %s", resp.StatusCode, string(body))
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("llmclient: unmarshal response: %w", err)
	}
	if result.Error != nil {
		err := fmt.Errorf("llmclient: provider error: %s: %s", result.Error.Type, result.Error.Message)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	if len(result.Choices) == 0 {
		err := fmt.Errorf("llmclient: no choices in response")
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	return result.Choices[0].Message.Content, nil
}

// NoopProvider returns ErrNoProvider. Used when no LLM API key is
// configured; callers fall back to deterministic-only behavior (§9).
type NoopProvider struct{}

// Complete always returns ErrNoProvider.
func (NoopProvider) Complete(_ context.Context, _ []Message) (string, error) {
	return "", ErrNoProvider
}

var _ Provider = (*OpenAIProvider)(nil)
var _ Provider = NoopProvider{}
