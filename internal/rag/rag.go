// Package rag implements the RAG Retriever (§4.6): it embeds a query once
// and pulls the nearest chunks out of the live current-affairs collection
// and (unless restricted) the static general-knowledge collection,
// projecting them into EvidenceItems alongside the Web Agent's results.
// Grounded on the embed-then-search composition in
// internal/search/search.go's CandidateFinder, generalized from a
// Postgres/pgvector query to two Qdrant collection queries merged by URL.
package rag

import (
	"context"
	"log/slog"

	"github.com/ashita-ai/veritas/internal/embedding"
	"github.com/ashita-ai/veritas/internal/model"
)

// VectorQuerier is the subset of vectorstore.Store the Retriever needs,
// narrowed to a single method so tests can supply a fake instead of a live
// Qdrant instance.
type VectorQuerier interface {
	Query(ctx context.Context, collection string, embedding []float32, topK int, currentAffairsOnly bool) ([]model.ScoredChunk, error)
}

// Retriever finds evidence already in the knowledge base for a claim.
type Retriever struct {
	embedder          embedding.Provider
	store             VectorQuerier
	currentCollection string
	staticCollection  string
	topK              int
	logger            *slog.Logger
}

// New creates a Retriever over the two named collections: currentCollection
// (always queried) and staticCollection (queried unless the caller restricts
// a request to currentAffairsOnly).
func New(embedder embedding.Provider, store VectorQuerier, currentCollection, staticCollection string, topK int, logger *slog.Logger) *Retriever {
	if topK <= 0 {
		topK = 8
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		embedder:          embedder,
		store:             store,
		currentCollection: currentCollection,
		staticCollection:  staticCollection,
		topK:              topK,
		logger:            logger,
	}
}

// Retrieve embeds claim and returns the nearest stored chunks, merged across
// collections and deduplicated by URL (first occurrence wins). A failure
// embedding the claim or querying every collection is soft: it logs and
// returns an empty result rather than propagating an error to the
// orchestrator, since the Web Agent branch can still carry the request
// (§4.6, §7).
func (r *Retriever) Retrieve(ctx context.Context, claim string, topK int, currentAffairsOnly bool) ([]model.EvidenceItem, error) {
	if r.embedder == nil || r.store == nil {
		return nil, nil
	}
	if topK <= 0 {
		topK = r.topK
	}

	vec, err := r.embedder.Embed(ctx, claim)
	if err != nil {
		if err == embedding.ErrNoProvider {
			return nil, nil
		}
		r.logger.WarnContext(ctx, "rag: embed claim failed", "error", err)
		return nil, nil
	}

	collections := []string{r.currentCollection}
	if !currentAffairsOnly && r.staticCollection != "" && r.staticCollection != r.currentCollection {
		collections = append(collections, r.staticCollection)
	}

	seen := make(map[string]bool)
	var items []model.EvidenceItem
	for _, collection := range collections {
		chunks, err := r.store.Query(ctx, collection, vec.Slice(), topK, currentAffairsOnly)
		if err != nil {
			r.logger.WarnContext(ctx, "rag: query collection failed", "collection", collection, "error", err)
			continue
		}
		for _, c := range chunks {
			if c.URL == "" || seen[c.URL] {
				continue
			}
			seen[c.URL] = true
			items = append(items, model.EvidenceItem{
				Title:   c.Title,
				URL:     c.URL,
				Snippet: c.Text,
				Source:  "rag",
				Score:   c.Score,
			})
		}
	}
	return items, nil
}
