// Package stance implements the Stance Classifier (§4.10): it asks the LLM
// Client to label each evidence item's relation to the claim, parsing the
// model's reply with the shared Markdown-fence-tolerant JSON-array
// extractor (internal/urlutil.ExtractJSONArray) so a model that wraps its
// answer in a code fence still parses.
package stance

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ashita-ai/veritas/internal/llmclient"
	"github.com/ashita-ai/veritas/internal/model"
	"github.com/ashita-ai/veritas/internal/urlutil"
)

const systemPrompt = `You are a fact-checking assistant. You will be given a claim and a numbered list of evidence snippets. For each snippet, decide whether it supports the claim, refutes the claim, or is neutral/irrelevant to the claim.

Respond with a JSON array of exactly one string per snippet, in the same order, using only the values "supports", "refutes", or "neutral". Respond with the array only, no commentary.`

// Prompt-size bounds (§4.10): the claim and each snippet are truncated, and
// only the first maxSnippets items are sent to the model at all, to keep the
// batch within a reasonable token budget.
const (
	maxClaimChars   = 500
	maxSnippetChars = 400
	maxSnippets     = 30
)

// Classifier assigns a Stance to each piece of evidence for a claim.
type Classifier struct {
	provider llmclient.Provider
}

// New creates a Classifier backed by provider.
func New(provider llmclient.Provider) *Classifier {
	return &Classifier{provider: provider}
}

// Classify sets the Stance field on each item in place and returns the same
// slice for chaining. A missing provider or a transient call failure leaves
// every item at model.StanceUnset. A reply with no parseable JSON array sets
// every item to model.StanceNeutral. A reply that parses but is shorter than
// len(items) defaults only the missing positions to model.StanceNeutral,
// keeping every label the model did provide (§4.10).
// Stance classification is a transient-external error kind that is caught
// per call and never propagated (§7).
func (c *Classifier) Classify(ctx context.Context, claim string, items []model.EvidenceItem) ([]model.EvidenceItem, error) {
	if len(items) == 0 {
		return items, nil
	}
	if c.provider == nil {
		return items, nil
	}

	reply, err := c.provider.Complete(ctx, []llmclient.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: buildUserPrompt(claim, items)},
	})
	if err != nil {
		return items, nil
	}

	stances, ok := parseStances(reply, len(items))
	if !ok {
		for i := range items {
			items[i].Stance = model.StanceNeutral
		}
		return items, nil
	}

	for i := range items {
		items[i].Stance = stances[i]
	}
	return items, nil
}

func buildUserPrompt(claim string, items []model.EvidenceItem) string {
	prompt := "Claim: " + truncate(claim, maxClaimChars) + "\n\nEvidence:\n"
	n := len(items)
	if n > maxSnippets {
		n = maxSnippets
	}
	for i := 0; i < n; i++ {
		prompt += fmt.Sprintf("%d. %s\n", i, truncate(items[i].Snippet, maxSnippetChars))
	}
	return prompt
}

func truncate(s string, maxChars int) string {
	if len(s) <= maxChars {
		return s
	}
	return s[:maxChars]
}

// parseStances decodes reply into exactly want labels. A reply with fewer
// labels than want is padded with model.StanceNeutral at the missing
// positions rather than discarded outright; a reply with more is truncated
// to want (§4.10, ported from evidence_evaluator.py's pad-then-truncate).
func parseStances(reply string, want int) ([]model.Stance, bool) {
	arr := urlutil.ExtractJSONArray(reply)
	if arr == "" {
		return nil, false
	}

	var raw []string
	if err := json.Unmarshal([]byte(arr), &raw); err != nil {
		return nil, false
	}

	out := make([]model.Stance, want)
	for i := range out {
		out[i] = model.StanceNeutral
	}
	for i, s := range raw {
		if i >= want {
			break
		}
		switch model.Stance(s) {
		case model.StanceSupports, model.StanceRefutes, model.StanceNeutral:
			out[i] = model.Stance(s)
		default:
			out[i] = model.StanceNeutral
		}
	}
	return out, true
}
