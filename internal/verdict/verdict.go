// Package verdict implements the Verdict Former (§4.12): it maps classified
// evidence to one of the terminal labels, selects which citations to show
// (preferring allowlisted-domain sources over the full evidence list, but
// never letting that selection change the verdict itself), asks the LLM
// Client for a short rationale, and downgrades to Not Enough Evidence when
// the final citation count doesn't clear MIN_SOURCES_FOR_VERDICT. A Verdict
// Former call never returns model.VerdictUnverifiable; the Verdict
// Aggregator accepts that label as a sub-claim input but does not produce
// it either (§9).
package verdict

import (
	"context"
	"fmt"

	"github.com/ashita-ai/veritas/internal/llmclient"
	"github.com/ashita-ai/veritas/internal/model"
	"github.com/ashita-ai/veritas/internal/urlutil"
)

// minCredibleCitations and minCredibleFraction decide whether the
// credible-only citation list is substantial enough to replace the full
// evidence list in selectCitations; they never change the verdict (§4.12,
// resolved per the open question on credibility thresholds: fixed named
// constants, not configurable).
const (
	minCredibleCitations = 3
	minCredibleFraction  = 0.30
)

const rationalePrompt = `You are a fact-checking assistant. You will be given a claim, a verdict already determined by evidence analysis, and the citations supporting that verdict. Write a concise (2-4 sentence) explanation of why the evidence supports this verdict. Do not change the verdict; only explain it.`

// Former turns classified evidence into a terminal verdict with citations
// and a rationale.
type Former struct {
	provider llmclient.Provider
	credible urlutil.CredibleSet
}

// New creates a Former. credible is the domain allowlist used for
// credibility softening.
func New(provider llmclient.Provider, credible urlutil.CredibleSet) *Former {
	return &Former{provider: provider, credible: credible}
}

// Form computes the verdict for claim from its classified evidence.
// minSources is MIN_SOURCES_FOR_VERDICT: a Supported or Refuted verdict
// that doesn't clear it is downgraded to Not Enough Evidence and its
// rationale suffixed with an explanation (§4.12's validation rule).
func (f *Former) Form(ctx context.Context, claim string, items []model.EvidenceItem, minSources int) (model.SubResult, error) {
	v := deterministicVerdict(items)
	citations := f.selectCitations(items)

	downgraded := false
	if (v == model.VerdictSupported || v == model.VerdictRefuted) && len(citations) < minSources {
		v = model.VerdictNotEnoughEvidence
		downgraded = true
	}

	reasoning := f.rationale(ctx, claim, v, citations)
	if downgraded {
		reasoning += fmt.Sprintf(" (Downgraded: fewer than %d surviving source(s).)", minSources)
	}

	return model.SubResult{
		Claim:     claim,
		Verdict:   v,
		Reasoning: reasoning,
		Citations: model.CitationsFromEvidence(citations),
	}, nil
}

// deterministicVerdict maps supports/refutes counts to a terminal label
// (§4.12):
//   - no classified evidence at all: Not Enough Evidence
//   - both supports and refutes present: Mixed / Disputed
//   - only supports: Supported
//   - only refutes: Refuted
func deterministicVerdict(items []model.EvidenceItem) model.Verdict {
	supports, refutes := 0, 0
	for _, item := range items {
		switch item.Stance {
		case model.StanceSupports:
			supports++
		case model.StanceRefutes:
			refutes++
		}
	}

	switch {
	case supports == 0 && refutes == 0:
		return model.VerdictNotEnoughEvidence
	case supports > 0 && refutes > 0:
		return model.VerdictMixedDisputed
	case supports > 0:
		return model.VerdictSupported
	default:
		return model.VerdictRefuted
	}
}

// selectCitations applies the §4.12 citation-credibility filter: it never
// changes the verdict, only which citations are shown. filtered keeps only
// evidence from allowlisted domains; it's used in place of the full evidence
// list unless filtering would leave the citation list empty or too thin
// relative to the unfiltered evidence (fewer than minCredibleCitations AND
// below minCredibleFraction of the total), in which case the unfiltered
// list is kept instead.
func (f *Former) selectCitations(citations []model.EvidenceItem) []model.EvidenceItem {
	if len(citations) == 0 {
		return citations
	}

	var filtered []model.EvidenceItem
	for _, c := range citations {
		if f.credible.Has(c.URL) {
			filtered = append(filtered, c)
		}
	}

	if len(filtered) == 0 {
		return citations
	}
	if len(filtered) < minCredibleCitations && float64(len(filtered)) < minCredibleFraction*float64(len(citations)) {
		return citations
	}
	return filtered
}

// rationale asks the LLM Client for a short explanation of v. Any failure —
// no provider configured, a transient call error, or an empty reply — falls
// back to a fixed neutral sentence rather than surfacing an error (§4.12,
// §7: rationale generation is a soft-fail stage, never pipeline-fatal).
func (f *Former) rationale(ctx context.Context, claim string, v model.Verdict, citations []model.EvidenceItem) string {
	if f.provider == nil {
		return defaultRationale(v, len(citations))
	}

	reply, err := f.provider.Complete(ctx, []llmclient.Message{
		{Role: "system", Content: rationalePrompt},
		{Role: "user", Content: buildRationalePrompt(claim, v, citations)},
	})
	if err != nil || reply == "" {
		return defaultRationale(v, len(citations))
	}
	return reply
}

// maxRationaleCitations bounds how many citations the rationale prompt
// lists (§4.12).
const maxRationaleCitations = 10

func buildRationalePrompt(claim string, v model.Verdict, citations []model.EvidenceItem) string {
	prompt := fmt.Sprintf("Claim: %s\nVerdict: %s\n\nCitations:\n", claim, v)
	for i, c := range citations {
		if i >= maxRationaleCitations {
			break
		}
		prompt += fmt.Sprintf("%d. %s (%s) - %s\n", i+1, c.Title, c.URL, c.Snippet)
	}
	return prompt
}

func defaultRationale(v model.Verdict, citationCount int) string {
	switch v {
	case model.VerdictSupported:
		return fmt.Sprintf("The claim is supported by %d piece(s) of corroborating evidence.", citationCount)
	case model.VerdictRefuted:
		return fmt.Sprintf("The claim is contradicted by %d piece(s) of evidence.", citationCount)
	case model.VerdictMixedDisputed:
		return "The available evidence includes both supporting and contradicting sources."
	default:
		return "Insufficient credible evidence was found to evaluate this claim."
	}
}
