// Package webagent implements the Web Agent (§4.7): it turns a claim into
// search queries via the Search Planner, runs them concurrently against the
// Web Search Client, and merges the results into a deduplicated evidence
// list. The concurrent fan-out is grounded on internal/conflicts/scorer.go's
// BackfillScoring, which uses errgroup.WithContext plus SetLimit to bound
// how many goroutines run at once.
package webagent

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ashita-ai/veritas/internal/model"
	"github.com/ashita-ai/veritas/internal/planner"
	"github.com/ashita-ai/veritas/internal/websearch"
)

// maxConcurrentQueries bounds how many search queries run in parallel for a
// single claim.
const maxConcurrentQueries = 4

// Agent runs the planned search queries for a claim and merges their
// results.
type Agent struct {
	searcher       websearch.Searcher
	resultsPerQuery int
}

// New creates a web Agent over searcher. resultsPerQuery bounds how many
// hits are requested per individual query.
func New(searcher websearch.Searcher, resultsPerQuery int) *Agent {
	if resultsPerQuery <= 0 {
		resultsPerQuery = 5
	}
	return &Agent{searcher: searcher, resultsPerQuery: resultsPerQuery}
}

// Run plans search queries for claim, executes them concurrently, and
// returns the deduplicated union of their results as evidence (§4.7).
// Per-query failures are not possible: websearch.Searcher implementations
// must fail soft, so Run itself never returns an error; the signature keeps
// one so a future query-planning failure has somewhere to go.
func (a *Agent) Run(ctx context.Context, claim string) ([]model.EvidenceItem, error) {
	queries := planner.Plan(claim)
	if len(queries) == 0 {
		return nil, nil
	}

	resultsByQuery := make([][]model.SearchResult, len(queries))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentQueries)

	for i, q := range queries {
		g.Go(func() error {
			resultsByQuery[i] = a.searcher.Search(gCtx, q, a.resultsPerQuery)
			return nil
		})
	}
	_ = g.Wait() // searches fail soft; no error ever escapes

	seen := make(map[string]bool)
	var items []model.EvidenceItem
	for _, results := range resultsByQuery {
		for _, r := range results {
			if seen[r.URL] {
				continue
			}
			seen[r.URL] = true
			items = append(items, model.EvidenceItem{
				Title:   r.Title,
				URL:     r.URL,
				Snippet: r.Snippet,
				Source:  "web",
			})
		}
	}
	return items, nil
}
