// Package websearch implements the Web Search Client (§4.3): a capability
// interface over an external search API, plus one concrete HTTP-backed
// provider and a no-op fallback. Grounded on the marshal -> POST ->
// status-check -> unmarshal shape of
// internal/service/embedding/embedding.go's OpenAIProvider, adapted from
// "must propagate" to "must fail soft" per §4.3: network errors, non-2xx
// responses, and provider-reported errors all yield an empty slice, never
// an error.
package websearch

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ashita-ai/veritas/internal/model"
	"github.com/ashita-ai/veritas/internal/telemetry"
)

// maxResponseBody bounds how much of a search response we'll read.
const maxResponseBody = 5 * 1024 * 1024

var tracer = telemetry.Tracer("veritas/websearch")

// Searcher calls an external search API and returns article-level results.
// Implementations must fail soft: any error, non-2xx response, or
// provider-reported error yields an empty (possibly nil) slice.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) []model.SearchResult
}

// HTTPSearcher is a Searcher backed by an HTTP search API (e.g. Brave,
// Serper, Bing). The request/response shapes are generic enough to adapt to
// most "title/url/snippet" search APIs by field name.
type HTTPSearcher struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPSearcher creates an HTTP-backed Searcher. baseURL must accept a
// GET request with a "q" and "count" query parameter and return a JSON body
// shaped like searchAPIResponse.
func NewHTTPSearcher(apiKey, baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPSearcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPSearcher{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type searchAPIResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Snippet string `json:"snippet"`
	} `json:"results"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Search calls the configured search API. It never returns an error to the
// caller: network failures, non-2xx responses, and provider-reported errors
// are logged once and yield an empty slice (§4.3, §7).
func (s *HTTPSearcher) Search(ctx context.Context, query string, maxResults int) []model.SearchResult {
	ctx, span := tracer.Start(ctx, "websearch.Search", trace.WithAttributes(
		attribute.String("websearch.query", query),
		attribute.Int("websearch.max_results", maxResults),
	))
	defer span.End()

	if s.apiKey == "" || s.baseURL == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL, nil)
	if err != nil {
		s.logger.Warn("websearch: build request failed", "error", err, "query", query)
		return nil
	}
	q := req.URL.Query()
	q.Set("q", query)
	if maxResults > 0 {
		q.Set("count", strconv.Itoa(maxResults))
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Warn("websearch: request failed", "error", err, "query", query)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		s.logger.Warn("websearch: read response failed", "error", err, "query", query)
		return nil
	}

	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("websearch: unexpected status", "status", resp.StatusCode, "query", query)
		return nil
	}

	var parsed searchAPIResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		s.logger.Warn("websearch: unmarshal response failed", "error", err, "query", query)
		return nil
	}
	if parsed.Error != nil {
		s.logger.Warn("websearch: provider error", "message", parsed.Error.Message, "query", query)
		return nil
	}

	results := make([]model.SearchResult, 0, len(parsed.Results))
	for i, r := range parsed.Results {
		if maxResults > 0 && i >= maxResults {
			break
		}
		if r.URL == "" {
			continue
		}
		results = append(results, model.SearchResult{Title: r.Title, URL: r.URL, Snippet: r.Snippet})
	}
	span.SetAttributes(attribute.Int("websearch.result_count", len(results)))
	return results
}

// NoopSearcher returns no results. Used when no search provider is
// configured, letting the service start in a degraded mode (§9).
type NoopSearcher struct{}

// Search always returns nil.
func (NoopSearcher) Search(_ context.Context, _ string, _ int) []model.SearchResult {
	return nil
}

var _ Searcher = (*HTTPSearcher)(nil)
var _ Searcher = NoopSearcher{}
