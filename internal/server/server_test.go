package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/veritas/internal/config"
	"github.com/ashita-ai/veritas/internal/mcptool"
	"github.com/ashita-ai/veritas/internal/model"
	"github.com/ashita-ai/veritas/internal/orchestrator"
	"github.com/ashita-ai/veritas/internal/review"
	"github.com/ashita-ai/veritas/internal/webagent"
	"github.com/ashita-ai/veritas/internal/websearch"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	reviews := review.New()
	o := orchestrator.New(orchestrator.Config{},
		webagent.New(websearch.NoopSearcher{}, 5),
		nil, nil, nil, nil, nil, nil, reviews, nil)

	return New(Config{
		Orchestrator: o,
		Reviews:      reviews,
		AppConfig:    config.Config{ClaimMaxLength: 2000, CORSAllowedOrigins: []string{"*"}},
		Version:      "test",
		Port:         0,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})
}

func TestHealthReturnsOK(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body healthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
}

func TestVerifyRejectsEmptyClaim(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/verify", "application/json", bytes.NewBufferString(`{"claim":"   "}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body errorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body.Detail)
}

func TestVerifyRunsPipelineAndReturnsVerdict(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/verify", "application/json", bytes.NewBufferString(`{"claim":"The sky is blue and grass is green"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body verifyResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, model.VerdictNotEnoughEvidence, body.Verdict)
	assert.True(t, body.RequiresReview)
	assert.NotEmpty(t, body.ClaimID)
}

func TestPendingReviewLifecycle(t *testing.T) {
	reviews := review.New()
	reviews.Put("abc123", model.PendingReview{Claim: "c", Verdict: model.VerdictNotEnoughEvidence, CreatedAt: time.Now()})

	o := orchestrator.New(orchestrator.Config{}, nil, nil, nil, nil, nil, nil, nil, reviews, nil)
	srv := New(Config{
		Orchestrator: o,
		Reviews:      reviews,
		AppConfig:    config.Config{ClaimMaxLength: 2000, CORSAllowedOrigins: []string{"*"}},
	})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/pending_reviews")
	require.NoError(t, err)
	var list pendingReviewsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	resp.Body.Close()
	assert.Contains(t, list.ClaimIDs, "abc123")

	resp, err = http.Get(ts.URL + "/pending_reviews/abc123")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/pending_reviews/missing")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Post(ts.URL+"/review/abc123", "application/json", bytes.NewBufferString(`{"verdict":"Supported"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	_, ok := reviews.Get("abc123")
	assert.False(t, ok)

	resp, err = http.Post(ts.URL+"/review/abc123", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestConfigSnapshotOmitsSecrets(t *testing.T) {
	srv := New(Config{
		Orchestrator: orchestrator.New(orchestrator.Config{}, nil, nil, nil, nil, nil, nil, nil, review.New(), nil),
		Reviews:      review.New(),
		AppConfig: config.Config{
			ClaimMaxLength:       2000,
			CORSAllowedOrigins:   []string{"*"},
			LLMProviderAPIKey:    "super-secret",
			SearchProviderAPIKey: "also-secret",
		},
	})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/config")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := readAll(resp)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "secret")
}

func TestMCPRouteMountsWhenConfigured(t *testing.T) {
	reviews := review.New()
	o := orchestrator.New(orchestrator.Config{}, webagent.New(websearch.NoopSearcher{}, 5), nil, nil, nil, nil, nil, nil, reviews, nil)
	mcpSrv := mcptool.New(o, 2000, nil, "test")

	srv := New(Config{
		Orchestrator: o,
		Reviews:      reviews,
		AppConfig:    config.Config{ClaimMaxLength: 2000, CORSAllowedOrigins: []string{"*"}},
		MCPServer:    mcpSrv.MCPServer(),
	})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/mcp")
	require.NoError(t, err)
	defer resp.Body.Close()
	// The StreamableHTTP transport rejects a bare GET without the MCP
	// session headers, but a 404 here would mean the route never mounted.
	assert.NotEqual(t, http.StatusNotFound, resp.StatusCode)
}

func readAll(resp *http.Response) ([]byte, error) {
	buf := new(bytes.Buffer)
	_, err := buf.ReadFrom(resp.Body)
	return buf.Bytes(), err
}
