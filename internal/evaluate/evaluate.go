// Package evaluate implements the Evidence Evaluator (§4.11): the pure
// decision functions the Orchestrator's agentic loop consults to decide
// whether to widen its search or stop.
package evaluate

import "github.com/ashita-ai/veritas/internal/model"

// IsSufficient reports whether items carries at least minSources pieces of
// evidence. minSources is the same MIN_SOURCES_FOR_VERDICT knob the Verdict
// Former validates citation counts against (§4.11, §4.12) — one config
// value gates both "should the loop keep widening" and "is the final
// verdict confident enough to stand."
func IsSufficient(items []model.EvidenceItem, minSources int) bool {
	return len(items) >= minSources
}

// HasConflict reports whether items contain both supporting and refuting
// stances, signaling a disputed claim rather than a simple lack of
// evidence.
func HasConflict(items []model.EvidenceItem) bool {
	sawSupports, sawRefutes := false, false
	for _, item := range items {
		switch item.Stance {
		case model.StanceSupports:
			sawSupports = true
		case model.StanceRefutes:
			sawRefutes = true
		}
		if sawSupports && sawRefutes {
			return true
		}
	}
	return false
}
