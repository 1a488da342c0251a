// Package decompose implements the Claim Decomposer (§4.15): it splits a
// long or compound claim into independently verifiable sub-claims. Ported
// from original_source/backend/services/claim_decomposer.py's
// decompose_claim: LLM-based splitting with a rule-based fallback, both of
// which collapse to the original claim on any failure or single-claim
// result. JSON-array parsing reuses the shared fence-tolerant extractor
// (internal/urlutil.ExtractJSONArray) instead of duplicating the original's
// bespoke extractor.
package decompose

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ashita-ai/veritas/internal/llmclient"
	"github.com/ashita-ai/veritas/internal/urlutil"
)

// Config controls when and how decomposition runs (§6's DECOMPOSE_* env vars).
type Config struct {
	Enabled        bool
	UseLLM         bool
	MinClaimLength int
	MaxSubclaims   int
}

const claimTruncateChars = 800

// splitPattern mirrors the original's rule-based fallback: split on
// sentence boundaries, " and ", or ", ".
var splitPattern = regexp.MustCompile(`\.\s+|\s+and\s+|\s*,\s*`)

// Decomposer splits claims into sub-claims.
type Decomposer struct {
	cfg      Config
	provider llmclient.Provider
}

// New creates a Decomposer. cfg.MaxSubclaims defaults to 5 and
// cfg.MinClaimLength to 40 when unset.
func New(cfg Config, provider llmclient.Provider) *Decomposer {
	if cfg.MaxSubclaims <= 0 {
		cfg.MaxSubclaims = 5
	}
	if cfg.MinClaimLength <= 0 {
		cfg.MinClaimLength = 40
	}
	return &Decomposer{cfg: cfg, provider: provider}
}

// Decompose returns the sub-claims to verify independently. It returns
// []string{claim} whenever decomposition is disabled, the claim is too
// short, or splitting yields zero or one piece — a decomposition failure
// degrades to treating the claim as a single unit, it never errors (§4.15).
func (d *Decomposer) Decompose(ctx context.Context, claim string) []string {
	trimmed := strings.TrimSpace(claim)
	if trimmed == "" {
		return []string{claim}
	}
	if !d.cfg.Enabled || len(trimmed) < d.cfg.MinClaimLength {
		return []string{trimmed}
	}

	var subClaims []string
	if d.cfg.UseLLM && d.provider != nil {
		subClaims = d.decomposeByLLM(ctx, trimmed)
	} else {
		subClaims = decomposeByRules(trimmed, d.cfg.MaxSubclaims)
	}

	if len(subClaims) <= 1 {
		return []string{trimmed}
	}
	return subClaims
}

const decomposePrompt = `You are a fact-checking assistant. The following text may contain one or more distinct factual claims that can be verified independently.

Your task: list ONLY the distinct factual claims. Output a JSON array of strings, one claim per element. Use the exact wording of each claim. If there is only one factual claim, return that single claim as a one-element array. Do not add commentary or explanation outside the JSON array.

Text:
%s

Output (JSON array of strings only):`

func (d *Decomposer) decomposeByLLM(ctx context.Context, claim string) []string {
	truncated := truncateOnWordBoundary(claim, claimTruncateChars)
	reply, err := d.provider.Complete(ctx, []llmclient.Message{
		{Role: "user", Content: fmt.Sprintf(decomposePrompt, truncated)},
	})
	if err != nil {
		if errors.Is(err, llmclient.ErrNoProvider) {
			return decomposeByRules(claim, d.cfg.MaxSubclaims)
		}
		return nil
	}

	arr := extractStringArray(reply)
	if len(arr) > d.cfg.MaxSubclaims {
		arr = arr[:d.cfg.MaxSubclaims]
	}
	return arr
}

func truncateOnWordBoundary(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := s[:n]
	if idx := strings.LastIndexByte(cut, ' '); idx >= 0 {
		return cut[:idx]
	}
	return cut
}

func extractStringArray(reply string) []string {
	arr := urlutil.ExtractJSONArray(reply)
	if arr == "" {
		return nil
	}
	var raw []string
	if err := json.Unmarshal([]byte(arr), &raw); err != nil {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// decomposeByRules is the non-LLM fallback: split on sentence boundaries or
// conjunctions, dropping fragments under 10 characters.
func decomposeByRules(claim string, maxSubclaims int) []string {
	parts := splitPattern.Split(claim, maxSubclaims)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if len(p) >= 10 {
			out = append(out, p)
		}
	}
	if len(out) <= 1 {
		return nil
	}
	if len(out) > maxSubclaims {
		out = out[:maxSubclaims]
	}
	return out
}
