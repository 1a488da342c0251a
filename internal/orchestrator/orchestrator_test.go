package orchestrator

import (
	"context"
	"testing"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/veritas/internal/aggregate"
	"github.com/ashita-ai/veritas/internal/decompose"
	"github.com/ashita-ai/veritas/internal/llmclient"
	"github.com/ashita-ai/veritas/internal/model"
	"github.com/ashita-ai/veritas/internal/rag"
	"github.com/ashita-ai/veritas/internal/rerank"
	"github.com/ashita-ai/veritas/internal/review"
	"github.com/ashita-ai/veritas/internal/stance"
	"github.com/ashita-ai/veritas/internal/urlutil"
	"github.com/ashita-ai/veritas/internal/verdict"
	"github.com/ashita-ai/veritas/internal/webagent"
	"github.com/ashita-ai/veritas/internal/websearch"
)

// fakeSearcher returns a fixed set of results for every query.
type fakeSearcher struct {
	results []model.SearchResult
}

func (f fakeSearcher) Search(_ context.Context, _ string, _ int) []model.SearchResult {
	return f.results
}

// fakeEmbedder returns a constant vector, never failing.
type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, _ string) (pgvector.Vector, error) {
	return pgvector.NewVector([]float32{0.1, 0.2, 0.3}), nil
}

func (fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([]pgvector.Vector, error) {
	vecs := make([]pgvector.Vector, len(texts))
	for i := range texts {
		vecs[i] = pgvector.NewVector([]float32{0.1, 0.2, 0.3})
	}
	return vecs, nil
}

func (fakeEmbedder) Dimensions() int { return 3 }

// fakeStore returns a fixed chunk list for the current-affairs collection
// and nothing for the static one, regardless of the query vector.
type fakeStore struct {
	chunks []model.ScoredChunk
}

func (f fakeStore) Query(_ context.Context, collection string, _ []float32, _ int, _ bool) ([]model.ScoredChunk, error) {
	if collection == "current_affairs_24h" {
		return f.chunks, nil
	}
	return nil, nil
}

// fakeEncoder scores every document with a constant relevance.
type fakeEncoder struct{}

func (fakeEncoder) Score(_ context.Context, _, _ string) (float32, error) {
	return 0.9, nil
}

// fakeLLM returns a canned reply, or an error/panic when configured to.
type fakeLLM struct {
	reply string
	err   error
	panic bool
}

func (f fakeLLM) Complete(_ context.Context, _ []llmclient.Message) (string, error) {
	if f.panic {
		panic("boom: simulated LLM client failure")
	}
	return f.reply, f.err
}

func newTestOrchestrator(t *testing.T, searcher websearch.Searcher, store rag.VectorQuerier, encoder rerank.CrossEncoder, stanceProvider, verdictProvider, decomposeProvider, aggregateProvider llmclient.Provider) *Orchestrator {
	t.Helper()

	webAgent := webagent.New(searcher, 5)
	retriever := rag.New(fakeEmbedder{}, store, "current_affairs_24h", "static_gk", 8, nil)
	reranker := rerank.New(encoder, urlutil.CredibleSet{"reuters.com": true}, "")
	classifier := stance.New(stanceProvider)
	former := verdict.New(verdictProvider, urlutil.CredibleSet{"reuters.com": true})
	decomposer := decompose.New(decompose.Config{Enabled: false}, decomposeProvider)
	aggregator := aggregate.New(aggregateProvider)
	reviews := review.New()

	return New(Config{MaxIter: 2, InitialTopK: 5, RerankTopK: 10, MinSourcesVerdict: 1},
		webAgent, retriever, reranker, classifier, former, decomposer, aggregator, reviews, nil)
}

func TestVerifySupportedClaim(t *testing.T) {
	searcher := fakeSearcher{results: []model.SearchResult{
		{Title: "Article", URL: "https://reuters.com/article-1", Snippet: "Confirms the claim is true."},
	}}
	store := fakeStore{}
	stanceProvider := fakeLLM{reply: `["supports"]`}
	verdictProvider := fakeLLM{reply: "The evidence confirms this claim."}

	o := newTestOrchestrator(t, searcher, store, fakeEncoder{}, stanceProvider, verdictProvider, llmclient.NoopProvider{}, llmclient.NoopProvider{})

	result := o.Verify(context.Background(), "The sky is blue")
	assert.Equal(t, model.VerdictSupported, result.Verdict)
	assert.False(t, result.RequiresReview)
	assert.NotEmpty(t, result.Citations)
}

func TestVerifyNoEvidenceRequiresReview(t *testing.T) {
	searcher := websearch.NoopSearcher{}
	store := fakeStore{}

	o := newTestOrchestrator(t, searcher, store, fakeEncoder{}, llmclient.NoopProvider{}, llmclient.NoopProvider{}, llmclient.NoopProvider{}, llmclient.NoopProvider{})

	result := o.Verify(context.Background(), "An entirely unverifiable claim")
	assert.Equal(t, model.VerdictNotEnoughEvidence, result.Verdict)
	assert.True(t, result.RequiresReview)
	assert.NotEmpty(t, result.ClaimID)

	_, ok := o.reviews.Get(result.ClaimID)
	assert.True(t, ok)
}

func TestVerifyRecoversFromSubClaimPanic(t *testing.T) {
	searcher := fakeSearcher{results: []model.SearchResult{
		{Title: "Article", URL: "https://reuters.com/article-1", Snippet: "Some evidence."},
	}}
	store := fakeStore{}
	// A stance classifier that panics simulates an unexpected fault deep in
	// a sub-claim's run: the per-goroutine recovery must convert it into a
	// safe Not Enough Evidence result instead of crashing the test process.
	stanceProvider := fakeLLM{panic: true}

	o := newTestOrchestrator(t, searcher, store, fakeEncoder{}, stanceProvider, llmclient.NoopProvider{}, llmclient.NoopProvider{}, llmclient.NoopProvider{})

	result := o.Verify(context.Background(), "A claim whose stance classification panics")
	assert.Equal(t, model.VerdictNotEnoughEvidence, result.Verdict)
}

func TestVerifyHandlesNilOptionalStages(t *testing.T) {
	o := New(Config{}, nil, nil, nil, nil, nil, nil, nil, nil, nil)
	require.NotPanics(t, func() {
		result := o.Verify(context.Background(), "A claim with no configured stages at all")
		assert.Equal(t, model.VerdictNotEnoughEvidence, result.Verdict)
		assert.True(t, result.RequiresReview)
	})
}

func TestFetchParallelRunsBothBranches(t *testing.T) {
	searcher := fakeSearcher{results: []model.SearchResult{{Title: "A", URL: "https://example.com/a", Snippet: "s"}}}
	store := fakeStore{chunks: []model.ScoredChunk{
		{StoredChunk: model.StoredChunk{URL: "https://example.com/b", Title: "B", Text: "t"}, Score: 0.5},
	}}
	o := newTestOrchestrator(t, searcher, store, fakeEncoder{}, llmclient.NoopProvider{}, llmclient.NoopProvider{}, llmclient.NoopProvider{}, llmclient.NoopProvider{})

	webItems, ragItems := o.fetchParallel(context.Background(), "claim", 5, false)
	assert.Len(t, webItems, 1)
	assert.Len(t, ragItems, 1)
}
