package config

import (
	"testing"
	"time"
)

func TestEnvIntValid(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	v, err := envInt("TEST_INT", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 {
		t.Fatalf("expected 42, got %d", v)
	}
}

func TestEnvIntFallback(t *testing.T) {
	v, err := envInt("TEST_INT_MISSING", 99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 99 {
		t.Fatalf("expected fallback 99, got %d", v)
	}
}

func TestEnvIntInvalid(t *testing.T) {
	t.Setenv("TEST_INT_BAD", "abc")
	_, err := envInt("TEST_INT_BAD", 0)
	if err == nil {
		t.Fatal("expected error for non-integer value, got nil")
	}
	if got := err.Error(); got != `TEST_INT_BAD="abc" is not a valid integer` {
		t.Fatalf("unexpected error message: %s", got)
	}
}

func TestEnvBoolValid(t *testing.T) {
	t.Setenv("TEST_BOOL", "true")
	v, err := envBool("TEST_BOOL", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v {
		t.Fatal("expected true")
	}
}

func TestEnvBoolInvalid(t *testing.T) {
	t.Setenv("TEST_BOOL_BAD", "maybe")
	_, err := envBool("TEST_BOOL_BAD", false)
	if err == nil {
		t.Fatal("expected error for non-boolean value, got nil")
	}
	if got := err.Error(); got != `TEST_BOOL_BAD="maybe" is not a valid boolean` {
		t.Fatalf("unexpected error message: %s", got)
	}
}

func TestEnvDurationValid(t *testing.T) {
	t.Setenv("TEST_DUR", "5s")
	v, err := envDuration("TEST_DUR", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Seconds() != 5 {
		t.Fatalf("expected 5s, got %s", v)
	}
}

func TestEnvDurationInvalid(t *testing.T) {
	t.Setenv("TEST_DUR_BAD", "five-seconds")
	_, err := envDuration("TEST_DUR_BAD", 0)
	if err == nil {
		t.Fatal("expected error for invalid duration, got nil")
	}
	if got := err.Error(); got != `TEST_DUR_BAD="five-seconds" is not a valid duration` {
		t.Fatalf("unexpected error message: %s", got)
	}
}

func TestLoadFailsOnInvalidPort(t *testing.T) {
	t.Setenv("PORT", "abc")
	_, err := Load()
	if err == nil {
		t.Fatal("expected Load() to fail with invalid PORT")
	}
	if got := err.Error(); !contains(got, "PORT") || !contains(got, "abc") {
		t.Fatalf("error should mention PORT and value 'abc', got: %s", got)
	}
}

func TestLoadFailsOnMultipleInvalid(t *testing.T) {
	t.Setenv("PORT", "abc")
	t.Setenv("RAG_TOP_K", "xyz")
	_, err := Load()
	if err == nil {
		t.Fatal("expected Load() to fail with multiple invalid vars")
	}
	got := err.Error()
	if !contains(got, "PORT") {
		t.Fatalf("error should mention PORT, got: %s", got)
	}
	if !contains(got, "RAG_TOP_K") {
		t.Fatalf("error should mention RAG_TOP_K, got: %s", got)
	}
}

func TestLoadSucceedsWithDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected Load() to succeed with defaults, got: %v", err)
	}
	if cfg.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Port)
	}
	if cfg.ClaimMaxLength != 2000 {
		t.Fatalf("expected default CLAIM_MAX_LENGTH 2000, got %d", cfg.ClaimMaxLength)
	}
	if cfg.AgenticLoopMaxIter != 3 {
		t.Fatalf("expected default AGENTIC_LOOP_MAX_ITER 3, got %d", cfg.AgenticLoopMaxIter)
	}
	if cfg.MinSourcesVerdict != 1 {
		t.Fatalf("expected default MIN_SOURCES_FOR_VERDICT 1, got %d", cfg.MinSourcesVerdict)
	}
	if cfg.RerankTopK != 25 {
		t.Fatalf("expected default RERANK_TOP_K 25, got %d", cfg.RerankTopK)
	}
	if cfg.DecomposeEnabled {
		t.Fatal("expected decomposition to be disabled by default")
	}
	if len(cfg.CredibleDomains) == 0 {
		t.Fatal("expected built-in credible domain allowlist when unset")
	}
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && searchSubstring(s, substr)
}

func searchSubstring(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

func TestLoad_OTELEndpointParsing(t *testing.T) {
	endpoint := "https://otel.example.com:4317"
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", endpoint)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected Load() to succeed, got: %v", err)
	}
	if cfg.OTELEndpoint != endpoint {
		t.Fatalf("expected OTELEndpoint %q, got %q", endpoint, cfg.OTELEndpoint)
	}
}

func TestLoad_QdrantURLDefault(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected Load() to succeed, got: %v", err)
	}
	if cfg.QdrantURL != "http://localhost:6334" {
		t.Fatalf("expected default QdrantURL, got %q", cfg.QdrantURL)
	}
}

func TestLoad_QdrantURLExplicit(t *testing.T) {
	qdrantURL := "https://qdrant.example.com:6334"
	t.Setenv("QDRANT_URL", qdrantURL)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected Load() to succeed, got: %v", err)
	}
	if cfg.QdrantURL != qdrantURL {
		t.Fatalf("expected QdrantURL %q, got %q", qdrantURL, cfg.QdrantURL)
	}
}

func TestLoad_QdrantStaticCollectionDefault(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected Load() to succeed, got: %v", err)
	}
	if cfg.QdrantStaticCollection != "static_gk" {
		t.Fatalf("expected default QdrantStaticCollection %q, got %q", "static_gk", cfg.QdrantStaticCollection)
	}
}

func TestLoad_QdrantStaticCollectionExplicit(t *testing.T) {
	t.Setenv("QDRANT_STATIC_COLLECTION", "my_static_kb")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected Load() to succeed, got: %v", err)
	}
	if cfg.QdrantStaticCollection != "my_static_kb" {
		t.Fatalf("expected QdrantStaticCollection %q, got %q", "my_static_kb", cfg.QdrantStaticCollection)
	}
}

func TestLoad_RerankProviderCredentialsIndependentOfEmbedding(t *testing.T) {
	t.Setenv("RERANK_PROVIDER_API_KEY", "rerank-key")
	t.Setenv("RERANK_PROVIDER_BASE_URL", "https://rerank.example.com/score")
	t.Setenv("EMBEDDING_PROVIDER_API_KEY", "embedding-key")
	t.Setenv("EMBEDDING_PROVIDER_BASE_URL", "https://embedding.example.com/v1/embeddings")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected Load() to succeed, got: %v", err)
	}
	if cfg.RerankProviderAPIKey != "rerank-key" {
		t.Fatalf("expected RerankProviderAPIKey %q, got %q", "rerank-key", cfg.RerankProviderAPIKey)
	}
	if cfg.RerankProviderBaseURL != "https://rerank.example.com/score" {
		t.Fatalf("expected RerankProviderBaseURL %q, got %q", "https://rerank.example.com/score", cfg.RerankProviderBaseURL)
	}
	if cfg.RerankProviderAPIKey == cfg.EmbeddingProviderAPIKey {
		t.Fatalf("expected reranker and embedding credentials to be configured independently")
	}
}

func TestLoad_CredibleDomainsOverride(t *testing.T) {
	t.Setenv("CREDIBLE_DOMAINS", "example.com, example.org")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected Load() to succeed, got: %v", err)
	}
	if len(cfg.CredibleDomains) != 2 || cfg.CredibleDomains[0] != "example.com" {
		t.Fatalf("expected overridden credible domains, got %v", cfg.CredibleDomains)
	}
}

func TestLoad_RefreshChunkOverlapMustBeSmallerThanMaxChars(t *testing.T) {
	t.Setenv("REFRESH_CHUNK_MAX_CHARS", "100")
	t.Setenv("REFRESH_CHUNK_OVERLAP", "200")

	_, err := Load()
	if err == nil {
		t.Fatal("expected Load() to fail when overlap >= max chars")
	}
	if !contains(err.Error(), "REFRESH_CHUNK_OVERLAP") {
		t.Fatalf("error should mention REFRESH_CHUNK_OVERLAP, got: %s", err.Error())
	}
}

func TestLoad_AllEnvVarsHonored(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CLAIM_MAX_LENGTH", "3000")
	t.Setenv("RAG_TOP_K", "15")
	t.Setenv("AGENTIC_LOOP_MAX_ITER", "5")
	t.Setenv("MIN_SOURCES_FOR_VERDICT", "2")
	t.Setenv("RERANK_TOP_K", "30")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("DECOMPOSE_ENABLED", "true")
	t.Setenv("DECOMPOSE_MIN_CLAIM_LENGTH", "80")
	t.Setenv("DECOMPOSE_MAX_SUBCLAIMS", "4")
	t.Setenv("PROVIDER_TIMEOUT", "15s")
	t.Setenv("REFRESH_INTERVAL", "12h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected Load() to succeed, got: %v", err)
	}

	if cfg.Port != 9090 {
		t.Fatalf("expected Port 9090, got %d", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected LogLevel %q, got %q", "debug", cfg.LogLevel)
	}
	if cfg.ClaimMaxLength != 3000 {
		t.Fatalf("expected ClaimMaxLength 3000, got %d", cfg.ClaimMaxLength)
	}
	if cfg.RAGTopK != 15 {
		t.Fatalf("expected RAGTopK 15, got %d", cfg.RAGTopK)
	}
	if cfg.AgenticLoopMaxIter != 5 {
		t.Fatalf("expected AgenticLoopMaxIter 5, got %d", cfg.AgenticLoopMaxIter)
	}
	if cfg.MinSourcesVerdict != 2 {
		t.Fatalf("expected MinSourcesVerdict 2, got %d", cfg.MinSourcesVerdict)
	}
	if cfg.RerankTopK != 30 {
		t.Fatalf("expected RerankTopK 30, got %d", cfg.RerankTopK)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[0] != "https://a.example.com" {
		t.Fatalf("expected 2 CORS origins, got %v", cfg.CORSAllowedOrigins)
	}
	if !cfg.DecomposeEnabled {
		t.Fatal("expected DecomposeEnabled true")
	}
	if cfg.DecomposeMinClaimLength != 80 {
		t.Fatalf("expected DecomposeMinClaimLength 80, got %d", cfg.DecomposeMinClaimLength)
	}
	if cfg.DecomposeMaxSubclaims != 4 {
		t.Fatalf("expected DecomposeMaxSubclaims 4, got %d", cfg.DecomposeMaxSubclaims)
	}
	if cfg.ProviderTimeout != 15*time.Second {
		t.Fatalf("expected ProviderTimeout 15s, got %s", cfg.ProviderTimeout)
	}
	if cfg.RefreshInterval != 12*time.Hour {
		t.Fatalf("expected RefreshInterval 12h, got %s", cfg.RefreshInterval)
	}
}
