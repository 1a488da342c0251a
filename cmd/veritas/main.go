// Command veritas runs the claim-verification HTTP (and MCP) service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ashita-ai/veritas/internal/aggregate"
	"github.com/ashita-ai/veritas/internal/config"
	"github.com/ashita-ai/veritas/internal/decompose"
	"github.com/ashita-ai/veritas/internal/embedding"
	"github.com/ashita-ai/veritas/internal/llmclient"
	"github.com/ashita-ai/veritas/internal/mcptool"
	"github.com/ashita-ai/veritas/internal/orchestrator"
	"github.com/ashita-ai/veritas/internal/rag"
	"github.com/ashita-ai/veritas/internal/refresh"
	"github.com/ashita-ai/veritas/internal/rerank"
	"github.com/ashita-ai/veritas/internal/review"
	"github.com/ashita-ai/veritas/internal/server"
	"github.com/ashita-ai/veritas/internal/stance"
	"github.com/ashita-ai/veritas/internal/telemetry"
	"github.com/ashita-ai/veritas/internal/urlutil"
	"github.com/ashita-ai/veritas/internal/vectorstore"
	"github.com/ashita-ai/veritas/internal/verdict"
	"github.com/ashita-ai/veritas/internal/webagent"
	"github.com/ashita-ai/veritas/internal/websearch"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	level := parseLogLevel(os.Getenv("LOG_LEVEL"))
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Info("veritas starting", "version", version, "port", cfg.Port)

	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	searcher := newSearcher(cfg, logger)
	embedder := newEmbedder(cfg, logger)
	llm := newLLM(cfg, logger)
	encoder := newCrossEncoder(cfg, logger)
	credible := urlutil.NewCredibleSet(cfg.CredibleDomains)

	store, err := vectorstore.New(vectorstore.Config{
		URL:    cfg.QdrantURL,
		APIKey: cfg.QdrantAPIKey,
		Dims:   uint64(cfg.EmbeddingDimensions), //nolint:gosec // validated positive in config.Validate
	}, logger)
	if err != nil {
		return fmt.Errorf("vectorstore: %w", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.EnsureCollection(ctx, cfg.QdrantCollection); err != nil {
		return fmt.Errorf("vectorstore ensure collection %q: %w", cfg.QdrantCollection, err)
	}
	if err := store.EnsureCollection(ctx, cfg.QdrantStaticCollection); err != nil {
		return fmt.Errorf("vectorstore ensure collection %q: %w", cfg.QdrantStaticCollection, err)
	}

	webAgent := webagent.New(searcher, 0) // 0 selects webagent.New's own default
	retriever := rag.New(embedder, store, cfg.QdrantCollection, cfg.QdrantStaticCollection, cfg.RAGTopK, logger)
	reranker := rerank.New(encoder, credible, cfg.RerankModel)
	classifier := stance.New(llm)
	former := verdict.New(llm, credible)
	decomposer := decompose.New(decompose.Config{
		Enabled:        cfg.DecomposeEnabled,
		UseLLM:         cfg.DecomposeUseLLM,
		MinClaimLength: cfg.DecomposeMinClaimLength,
		MaxSubclaims:   cfg.DecomposeMaxSubclaims,
	}, llm)
	aggregator := aggregate.New(llm)
	reviews := review.New()

	pipeline := orchestrator.New(orchestrator.Config{
		MaxIter:           cfg.AgenticLoopMaxIter,
		InitialTopK:       cfg.RAGTopK,
		RerankTopK:        cfg.RerankTopK,
		MinSourcesVerdict: cfg.MinSourcesVerdict,
	}, webAgent, retriever, reranker, classifier, former, decomposer, aggregator, reviews, logger)

	mcpSrv := mcptool.New(pipeline, cfg.ClaimMaxLength, logger, version)

	srv := server.New(server.Config{
		Orchestrator: pipeline,
		Reviews:      reviews,
		AppConfig:    cfg,
		Logger:       logger,
		Version:      version,
		MCPServer:    mcpSrv.MCPServer(),
		Port:         cfg.Port,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	})

	refreshJob := refresh.New(refresh.Config{
		Queries:            cfg.RefreshQueries,
		NumResultsPerQuery: cfg.RefreshNumResultsPerQuery,
		ChunkMaxChars:      cfg.RefreshChunkMaxChars,
		ChunkOverlap:       cfg.RefreshChunkOverlap,
		EmbedBatchSize:     cfg.RefreshEmbedBatchSize,
		Interval:           cfg.RefreshInterval,
		LiveCollection:     cfg.QdrantCollection,
		StagingCollection:  cfg.QdrantCollection + "_new",
	}, searcher, embedder, store, credible, logger)
	go refreshJob.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	logger.Info("veritas shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}

	logger.Info("veritas stopped")
	return nil
}

func parseLogLevel(raw string) slog.Level {
	switch raw {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newSearcher wires the Web Search Client, falling back to a noop when no
// API key is configured (§4.3, §6).
func newSearcher(cfg config.Config, logger *slog.Logger) websearch.Searcher {
	if cfg.SearchProviderAPIKey == "" {
		logger.Warn("search provider: noop (no SEARCH_PROVIDER_API_KEY)")
		return websearch.NoopSearcher{}
	}
	logger.Info("search provider: http", "base_url", cfg.SearchProviderBaseURL)
	return websearch.NewHTTPSearcher(cfg.SearchProviderAPIKey, cfg.SearchProviderBaseURL, cfg.ProviderTimeout, logger)
}

// newEmbedder wires the embedding Provider, falling back to a noop when no
// API key is configured (§4.4).
func newEmbedder(cfg config.Config, logger *slog.Logger) embedding.Provider {
	if cfg.EmbeddingProviderAPIKey == "" {
		logger.Warn("embedding provider: noop (no EMBEDDING_PROVIDER_API_KEY)")
		return embedding.NewNoopProvider(cfg.EmbeddingDimensions)
	}
	p, err := embedding.NewOpenAIProvider(cfg.EmbeddingProviderAPIKey, cfg.RAGEmbeddingModel, cfg.EmbeddingProviderBaseURL, cfg.EmbeddingDimensions, cfg.ProviderTimeout)
	if err != nil {
		logger.Error("embedding provider init failed, falling back to noop", "error", err)
		return embedding.NewNoopProvider(cfg.EmbeddingDimensions)
	}
	logger.Info("embedding provider: openai", "model", cfg.RAGEmbeddingModel)
	return p
}

// newLLM wires the LLM Provider used by the Stance Classifier, Verdict
// Former, Claim Decomposer, and Aggregator, falling back to a noop when no
// API key is configured (§4.10, §4.12, §4.15, §4.16).
func newLLM(cfg config.Config, logger *slog.Logger) llmclient.Provider {
	if cfg.LLMProviderAPIKey == "" {
		logger.Warn("llm provider: noop (no LLM_PROVIDER_API_KEY)")
		return llmclient.NoopProvider{}
	}
	p, err := llmclient.NewOpenAIProvider(cfg.LLMProviderAPIKey, cfg.LLMModel, cfg.LLMProviderBaseURL, 0, cfg.ProviderTimeout)
	if err != nil {
		logger.Error("llm provider init failed, falling back to noop", "error", err)
		return llmclient.NoopProvider{}
	}
	logger.Info("llm provider: openai", "model", cfg.LLMModel)
	return p
}

// newCrossEncoder wires the Reranker's CrossEncoder, falling back to a noop
// (which leaves the Reranker's input unchanged, per its fail-soft contract)
// when no cross-encoder endpoint is configured (§4.9).
func newCrossEncoder(cfg config.Config, logger *slog.Logger) rerank.CrossEncoder {
	if cfg.RerankProviderAPIKey == "" {
		logger.Warn("cross-encoder: noop (no RERANK_PROVIDER_API_KEY)")
		return rerank.NoopCrossEncoder{}
	}
	e, err := rerank.NewHTTPCrossEncoder(cfg.RerankProviderAPIKey, cfg.RerankModel, cfg.RerankProviderBaseURL, cfg.ProviderTimeout)
	if err != nil {
		logger.Error("cross-encoder init failed, falling back to noop", "error", err)
		return rerank.NoopCrossEncoder{}
	}
	logger.Info("cross-encoder: http", "model", cfg.RerankModel)
	return e
}
