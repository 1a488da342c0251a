package websearch

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHTTPSearcherHappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "climate treaty", r.URL.Query().Get("q"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]string{
				{"title": "A", "url": "https://a.example/1", "snippet": "s1"},
				{"title": "B", "url": "https://b.example/2", "snippet": "s2"},
			},
		})
	}))
	defer srv.Close()

	s := NewHTTPSearcher("key", srv.URL, 0, discardLogger())
	results := s.Search(context.Background(), "climate treaty", 5)
	require.Len(t, results, 2)
	assert.Equal(t, "https://a.example/1", results[0].URL)
}

func TestHTTPSearcherCapsAtMaxResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]string{
				{"title": "A", "url": "https://a.example/1"},
				{"title": "B", "url": "https://b.example/2"},
				{"title": "C", "url": "https://c.example/3"},
			},
		})
	}))
	defer srv.Close()

	s := NewHTTPSearcher("key", srv.URL, 0, discardLogger())
	results := s.Search(context.Background(), "q", 2)
	assert.Len(t, results, 2)
}

func TestHTTPSearcherFailsSoftOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewHTTPSearcher("key", srv.URL, 0, discardLogger())
	results := s.Search(context.Background(), "q", 5)
	assert.Empty(t, results)
}

func TestHTTPSearcherFailsSoftOnProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "rate limited"},
		})
	}))
	defer srv.Close()

	s := NewHTTPSearcher("key", srv.URL, 0, discardLogger())
	results := s.Search(context.Background(), "q", 5)
	assert.Empty(t, results)
}

func TestHTTPSearcherFailsSoftOnMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	s := NewHTTPSearcher("key", srv.URL, 0, discardLogger())
	results := s.Search(context.Background(), "q", 5)
	assert.Empty(t, results)
}

func TestHTTPSearcherUnconfiguredReturnsNil(t *testing.T) {
	s := NewHTTPSearcher("", "", 0, discardLogger())
	assert.Nil(t, s.Search(context.Background(), "q", 5))
}

func TestNoopSearcherReturnsNil(t *testing.T) {
	assert.Nil(t, NoopSearcher{}.Search(context.Background(), "q", 5))
}
