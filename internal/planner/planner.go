// Package planner implements the Search Planner (§4.2): it turns one claim
// into a small set of diverse web-search queries. Built in the style of the
// teacher's rune-by-rune token scanning (internal/conflicts/claims.go) but
// with no direct teacher analogue — this heuristic is new.
package planner

import (
	"strings"
	"unicode"
)

const maxQueries = 4

// Plan extracts a key phrase from claim and emits up to maxQueries diverse
// search query strings, in a fixed order, with duplicates dropped. Length is
// always in [1, maxQueries].
func Plan(claim string) []string {
	phrase := keyPhrase(claim)

	var queries []string
	add := func(q string) {
		q = strings.TrimSpace(q)
		if q == "" {
			return
		}
		for _, existing := range queries {
			if existing == q {
				return
			}
		}
		queries = append(queries, q)
	}

	if phrase != "" {
		add(quotePhraseInClaim(claim, phrase))
		add(`fact check "` + phrase + `"`)
	} else {
		add(claim)
		add("fact check " + claim)
	}

	if len(phrase) >= 10 {
		add(`"` + phrase + `"`)
	}

	if len(claim) > 80 {
		add(truncatePrefix(claim, 77) + "...")
	}

	if phrase != "" {
		add(`"` + phrase + `" debunk`)
	}

	if len(queries) > maxQueries {
		queries = queries[:maxQueries]
	}
	return queries
}

// quotePhraseInClaim returns claim with the first case-insensitive
// occurrence of phrase wrapped in quotes, preserving claim's original
// casing at that span (§4.2, ported from search_planner.py's
// re.sub(..., re.IGNORECASE) step). If phrase can't be found in claim at
// all, falls back to a literal substring replacement.
func quotePhraseInClaim(claim, phrase string) string {
	lowerClaim := strings.ToLower(claim)
	lowerPhrase := strings.ToLower(phrase)
	idx := strings.Index(lowerClaim, lowerPhrase)
	if idx < 0 {
		return strings.Replace(claim, phrase, `"`+phrase+`"`, 1)
	}
	return claim[:idx] + `"` + claim[idx:idx+len(phrase)] + `"` + claim[idx+len(phrase):]
}

// truncatePrefix returns the first n runes of s.
func truncatePrefix(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// keyPhrase extracts a single key phrase from claim using, in precedence
// order: (a) the first double-quoted substring; (b) the longest run of >=2
// consecutive Title-Case tokens; (c) the longest 2- or 3-word substring.
// On scripts with no ASCII-cased runs, heuristic (b) simply finds nothing
// and falls through to (c) — no panic, no script detection (§9).
func keyPhrase(claim string) string {
	if q := firstQuoted(claim); q != "" {
		return q
	}
	if tc := longestTitleCaseRun(claim); tc != "" {
		return tc
	}
	return longestWordSubstring(claim, 2, 3)
}

// firstQuoted returns the contents of the first double-quoted substring, if any.
func firstQuoted(s string) string {
	start := strings.IndexByte(s, '"')
	if start < 0 {
		return ""
	}
	end := strings.IndexByte(s[start+1:], '"')
	if end < 0 {
		return ""
	}
	return s[start+1 : start+1+end]
}

// longestTitleCaseRun finds the longest run of >=2 consecutive tokens that
// each start with an uppercase letter followed by at least one lowercase
// letter (a conservative Title-Case signature), and returns them joined by
// spaces. Returns "" if no such run of length >=2 exists.
func longestTitleCaseRun(s string) string {
	tokens := strings.Fields(s)

	var bestStart, bestLen int
	curStart, curLen := -1, 0

	flush := func(i int) {
		if curLen >= 2 && curLen > bestLen {
			bestStart, bestLen = curStart, curLen
		}
		curStart, curLen = -1, 0
	}

	for i, tok := range tokens {
		if isTitleCaseToken(tok) {
			if curLen == 0 {
				curStart = i
			}
			curLen++
		} else {
			flush(i)
		}
	}
	flush(len(tokens))

	if bestLen < 2 {
		return ""
	}
	return strings.Join(tokens[bestStart:bestStart+bestLen], " ")
}

// isTitleCaseToken reports whether tok looks like a Title-Case word: starts
// with an uppercase letter, followed by at least one lowercase letter, with
// no other uppercase letters (rules out ALLCAPS acronyms).
func isTitleCaseToken(tok string) bool {
	tok = strings.Trim(tok, `.,!?;:"'`)
	runes := []rune(tok)
	if len(runes) < 2 {
		return false
	}
	if !unicode.IsUpper(runes[0]) {
		return false
	}
	sawLower := false
	for _, r := range runes[1:] {
		if unicode.IsUpper(r) {
			return false
		}
		if unicode.IsLower(r) {
			sawLower = true
		}
	}
	return sawLower
}

// longestWordSubstring returns the longest contiguous run of minWords..maxWords
// tokens in s, preferring the longest (by byte length) such run; ties prefer
// the earliest occurrence. Used as the final fallback when no quoted phrase
// or Title-Case run is found.
func longestWordSubstring(s string, minWords, maxWords int) string {
	tokens := strings.Fields(s)
	if len(tokens) == 0 {
		return ""
	}

	best := ""
	for n := maxWords; n >= minWords; n-- {
		if n > len(tokens) {
			continue
		}
		for i := 0; i+n <= len(tokens); i++ {
			candidate := strings.Join(tokens[i:i+n], " ")
			if len(candidate) > len(best) {
				best = candidate
			}
		}
		if best != "" {
			return best
		}
	}
	// Fewer tokens than minWords: use everything available.
	return strings.Join(tokens, " ")
}
