// Package rerank implements the Reranker (§4.9): a hybrid score combining a
// cross-encoder's claim/evidence relevance judgment, a URL-shape quality
// signal, and a source-preference signal, followed by a per-domain
// diversity cap. Grounded on internal/search/search.go's ReScore: a
// weighted-signal combination followed by a descending sort and
// truncation, generalized from decision outcome-signals to evidence
// quality-signals.
package rerank

import (
	"context"
	"sort"
	"strings"

	"github.com/ashita-ai/veritas/internal/model"
	"github.com/ashita-ai/veritas/internal/urlutil"
)

// relevanceWeight, urlQualityWeight, and sourceWeight sum to 1.0 (§4.9).
const (
	relevanceWeight  = 0.7
	urlQualityWeight = 0.2
	sourceWeight     = 0.1

	// maxPerDomain caps how many items from the same domain survive the
	// reranking pass, so one prolific publisher can't crowd out everything
	// else.
	maxPerDomain = 2

	// maxDocChars bounds the "title\nsnippet" document handed to the
	// cross-encoder (§4.9 step 2).
	maxDocChars = 512
)

// sourcePreference gives web results the highest weight, RAG results a
// slight penalty (they're already in the knowledge base and may be stale),
// and anything else a middling score (§4.9 step 5).
func sourcePreference(source string) float32 {
	switch source {
	case "web":
		return 1.0
	case "rag":
		return 0.7
	default:
		return 0.8
	}
}

// CrossEncoder scores how relevant a claim/document pair is, in an
// unbounded range the Reranker min-max normalizes across the batch.
// Implementations are expected to batch internally if the underlying model
// supports it; this package calls it once per item.
type CrossEncoder interface {
	Score(ctx context.Context, claim, doc string) (float32, error)
}

// Reranker orders evidence by a hybrid relevance/quality/source score and
// applies a per-domain cap.
type Reranker struct {
	encoder  CrossEncoder
	credible urlutil.CredibleSet
}

// New creates a Reranker. credible is currently unused by the scoring
// formula itself (url quality is computed from URL shape, not the
// allowlist) but is threaded through for symmetry with the Verdict Former
// and in case a future scoring revision wants it.
func New(encoder CrossEncoder, credible urlutil.CredibleSet, _ string) *Reranker {
	return &Reranker{encoder: encoder, credible: credible}
}

// Rerank scores every item against claim, sorts descending by the hybrid
// score, applies the per-domain cap, and returns the top n. A cross-encoder
// failure (model not loaded, predict error) returns the input list
// unchanged rather than propagating an error (§4.9 step 2, §7): reranking
// is a quality improvement, not a required stage.
func (r *Reranker) Rerank(ctx context.Context, claim string, items []model.EvidenceItem, n int) ([]model.EvidenceItem, error) {
	if len(items) == 0 {
		return nil, nil
	}

	// Defensive re-filter: cheaper to drop a homepage URL here than to
	// spend a cross-encoder call scoring it (§4.9 step 1).
	filtered := make([]model.EvidenceItem, 0, len(items))
	for _, item := range items {
		if urlutil.IsHomepage(item.URL) {
			continue
		}
		filtered = append(filtered, item)
	}
	if len(filtered) == 0 {
		return nil, nil
	}

	relevance := make([]float32, len(filtered))
	for i, item := range filtered {
		doc := truncateDoc(item.Title + "\n" + item.Snippet)
		score, err := r.encoder.Score(ctx, claim, doc)
		if err != nil {
			return items, nil
		}
		relevance[i] = score
	}
	normRelevance := minMaxNormalize(relevance)

	scored := make([]model.EvidenceItem, len(filtered))
	for i, item := range filtered {
		urlQuality := urlutil.URLQuality(item.URL)
		scored[i] = item
		scored[i].Score = relevanceWeight*normRelevance[i] + urlQualityWeight*urlQuality + sourceWeight*sourcePreference(item.Source)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	perDomain := make(map[string]int)
	var capped []model.EvidenceItem
	for _, item := range scored {
		domain := urlutil.Domain(item.URL)
		if perDomain[domain] >= maxPerDomain {
			continue
		}
		perDomain[domain]++
		capped = append(capped, item)
	}

	if n > 0 && len(capped) > n {
		capped = capped[:n]
	}
	return capped, nil
}

// truncateDoc caps doc at maxDocChars, appending an ellipsis when truncated
// (§4.9 step 2).
func truncateDoc(doc string) string {
	if len(doc) <= maxDocChars {
		return doc
	}
	return strings.TrimSpace(doc[:maxDocChars]) + "..."
}

// minMaxNormalize rescales scores to [0,1]. A zero-range batch (all equal,
// including the single-item case) maps every score to 1.0 rather than
// dividing by zero.
func minMaxNormalize(scores []float32) []float32 {
	if len(scores) == 0 {
		return scores
	}
	min, max := scores[0], scores[0]
	for _, s := range scores {
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}
	out := make([]float32, len(scores))
	rangeVal := max - min
	for i, s := range scores {
		if rangeVal == 0 {
			out[i] = 1.0
			continue
		}
		out[i] = (s - min) / rangeVal
	}
	return out
}
