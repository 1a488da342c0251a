// Package aggregate implements the Verdict Aggregator (§4.16): it combines
// the per-sub-claim results the Orchestrator produced (one per output of
// the Claim Decomposer) into a single verdict, citation list, and summary
// reasoning. Ported from
// original_source/backend/services/verdict_aggregator.py's
// aggregate_verdicts: deterministic verdict precedence and citation
// deduplication, with LLM-based reasoning summarization falling back to
// concatenation.
package aggregate

import (
	"context"
	"fmt"
	"strings"

	"github.com/ashita-ai/veritas/internal/llmclient"
	"github.com/ashita-ai/veritas/internal/model"
)

// maxCitations bounds how many deduplicated citations the aggregated result
// carries.
const maxCitations = 25

// Aggregator combines sub-claim results into one overall result.
type Aggregator struct {
	provider llmclient.Provider
}

// New creates an Aggregator backed by provider. A nil provider (or one that
// returns llmclient.ErrNoProvider) falls back to a deterministic
// concatenation of each sub-result's reasoning.
func New(provider llmclient.Provider) *Aggregator {
	return &Aggregator{provider: provider}
}

// Aggregate combines subResults into one overall SubResult. When subResults
// has exactly one element, that element's claim field is preserved but the
// result is otherwise passed through unchanged (no LLM call, no
// reasoning-summarization step is needed for an undecomposed claim).
func (a *Aggregator) Aggregate(ctx context.Context, subResults []model.SubResult) (model.SubResult, error) {
	if len(subResults) == 0 {
		return model.SubResult{
			Verdict:   model.VerdictNotEnoughEvidence,
			Reasoning: "No sub-results to aggregate.",
		}, nil
	}
	if len(subResults) == 1 {
		return subResults[0], nil
	}

	v := aggregateVerdict(subResults)
	citations := mergeCitations(subResults)
	reasoning := a.summarizeReasoning(ctx, v, subResults)

	return model.SubResult{
		Verdict:   v,
		Reasoning: reasoning,
		Citations: citations,
	}, nil
}

// aggregateVerdict computes the overall verdict by priority (§4.16):
//  1. any Refuted -> Refuted
//  2. any Mixed / Disputed -> Mixed / Disputed
//  3. all Supported -> Supported
//  4. all Not Enough Evidence or Unverifiable -> Not Enough Evidence
//  5. otherwise -> Mixed / Disputed
func aggregateVerdict(subResults []model.SubResult) model.Verdict {
	anyRefuted, anyMixed, allSupported, allInconclusive := false, false, true, true

	for _, r := range subResults {
		switch r.Verdict {
		case model.VerdictRefuted:
			anyRefuted = true
			allSupported = false
			allInconclusive = false
		case model.VerdictMixedDisputed:
			anyMixed = true
			allSupported = false
			allInconclusive = false
		case model.VerdictSupported:
			allInconclusive = false
		case model.VerdictNotEnoughEvidence, model.VerdictUnverifiable:
			allSupported = false
		default:
			allSupported = false
			allInconclusive = false
		}
	}

	switch {
	case anyRefuted:
		return model.VerdictRefuted
	case anyMixed:
		return model.VerdictMixedDisputed
	case allSupported:
		return model.VerdictSupported
	case allInconclusive:
		return model.VerdictNotEnoughEvidence
	default:
		return model.VerdictMixedDisputed
	}
}

// mergeCitations unions each sub-result's citations, deduplicating by URL
// and capping at maxCitations.
func mergeCitations(subResults []model.SubResult) []model.Citation {
	seen := make(map[string]bool)
	var merged []model.Citation
	for _, r := range subResults {
		for _, c := range r.Citations {
			if c.URL == "" || seen[c.URL] {
				continue
			}
			seen[c.URL] = true
			merged = append(merged, c)
			if len(merged) >= maxCitations {
				return merged
			}
		}
	}
	return merged
}

const summaryPrompt = `You are a fact-checking assistant. Below are the verification results for each sub-claim of a decomposed claim. Write a short, neutral summary (2-4 sentences) of the overall finding. Use only the information below; do not invent facts or sources.

Overall verdict for the combined claim: %s

Sub-results:
%s`

// summarizeReasoning never surfaces an error: a missing provider, a failed
// call, or an empty reply all fall back to fallbackReasoning (§4.16, §7 —
// reasoning generation is a soft-fail stage, never pipeline-fatal).
func (a *Aggregator) summarizeReasoning(ctx context.Context, overall model.Verdict, subResults []model.SubResult) string {
	if a.provider == nil {
		return fallbackReasoning(subResults)
	}

	var parts strings.Builder
	for i, r := range subResults {
		reason := strings.TrimSpace(r.Reasoning)
		if reason == "" {
			reason = "No reasoning provided."
		}
		if len(reason) > 300 {
			reason = reason[:300]
		}
		fmt.Fprintf(&parts, "- Sub-claim %d verdict: %s. Reasoning: %s\n", i+1, r.Verdict, reason)
	}

	reply, err := a.provider.Complete(ctx, []llmclient.Message{
		{Role: "user", Content: fmt.Sprintf(summaryPrompt, overall, parts.String())},
	})
	if err != nil || strings.TrimSpace(reply) == "" {
		return fallbackReasoning(subResults)
	}
	return reply
}

// fallbackReasoning concatenates each sub-result's reasoning with a short
// prefix, used when no LLM provider is available or it returns no text.
func fallbackReasoning(subResults []model.SubResult) string {
	if len(subResults) == 0 {
		return "No sub-results to aggregate."
	}
	parts := make([]string, len(subResults))
	for i, r := range subResults {
		reason := strings.TrimSpace(r.Reasoning)
		if reason == "" {
			reason = "No reasoning provided."
		}
		parts[i] = fmt.Sprintf("Sub-claim %d: %s", i+1, reason)
	}
	return strings.Join(parts, " ")
}
