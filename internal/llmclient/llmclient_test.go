package llmclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIProviderRequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIProvider("", "gpt-4o-mini", "", 0, 0)
	assert.Error(t, err)
}

func TestCompleteReturnsFirstChoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "supports"}},
			},
		})
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider("key", "m", srv.URL, 0, 0)
	require.NoError(t, err)

	reply, err := p.Complete(context.Background(), []Message{{Role: "user", Content: "classify"}})
	require.NoError(t, err)
	assert.Equal(t, "supports", reply)
}

func TestCompleteRequiresMessages(t *testing.T) {
	p, err := NewOpenAIProvider("key", "m", "", 0, 0)
	require.NoError(t, err)
	_, err = p.Complete(context.Background(), nil)
	assert.Error(t, err)
}

func TestCompleteErrorsOnEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []map[string]any{}})
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider("key", "m", srv.URL, 0, 0)
	require.NoError(t, err)
	_, err = p.Complete(context.Background(), []Message{{Role: "user", Content: "x"}})
	assert.Error(t, err)
}

func TestCompleteErrorsOnProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "overloaded", "type": "server_error"},
		})
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider("key", "m", srv.URL, 0, 0)
	require.NoError(t, err)
	_, err = p.Complete(context.Background(), []Message{{Role: "user", Content: "x"}})
	assert.Error(t, err)
}

func TestNoopProviderReturnsErrNoProvider(t *testing.T) {
	_, err := NoopProvider{}.Complete(context.Background(), []Message{{Role: "user", Content: "x"}})
	assert.ErrorIs(t, err, ErrNoProvider)
}
