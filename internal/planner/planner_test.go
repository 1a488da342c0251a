package planner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanBoundedAndDeduped(t *testing.T) {
	claims := []string{
		`The WHO declared the end of COVID-19 as a global emergency.`,
		`The Great Wall of China is visible from the Moon.`,
		`Vitamin C prevents the common cold.`,
		`xyzzy plugh event occurred in 2042.`,
		`short`,
		``,
		strings.Repeat("word ", 40),
	}
	for _, c := range claims {
		qs := Plan(c)
		require.GreaterOrEqual(t, len(qs), 1, "claim=%q", c)
		require.LessOrEqual(t, len(qs), 4, "claim=%q", c)
		seen := map[string]bool{}
		for _, q := range qs {
			assert.False(t, seen[q], "duplicate query %q for claim %q", q, c)
			seen[q] = true
		}
	}
}

func TestPlanUsesQuotedPhrase(t *testing.T) {
	qs := Plan(`Experts say "the new policy" will hurt small business.`)
	require.NotEmpty(t, qs)
	assert.Contains(t, qs[0], "the new policy")
}

func TestPlanLongClaimIncludesTruncatedPrefix(t *testing.T) {
	long := strings.Repeat("a very long claim about a disputed fact ", 5)
	qs := Plan(long)
	found := false
	for _, q := range qs {
		if strings.HasSuffix(q, "...") {
			found = true
		}
	}
	assert.True(t, found, "expected a truncated-prefix query among %v", qs)
}

func TestPlanQuotesPhraseInPlaceWithinFullClaim(t *testing.T) {
	claim := "A report from the World Health Organization says the virus spread worldwide."
	qs := Plan(claim)
	require.NotEmpty(t, qs)

	// Query 1 is the full claim with the phrase quoted in place, not a bare
	// quoted phrase standing alone.
	assert.Equal(t, `A report from the "World Health Organization" says the virus spread worldwide.`, qs[0])

	// The bare quoted phrase (len(phrase) >= 10) must still appear as its
	// own, distinct query rather than being deduped away against query 1.
	assert.Contains(t, qs, `"World Health Organization"`)
}

func TestKeyPhraseTitleCaseRun(t *testing.T) {
	phrase := keyPhrase("A report from the World Health Organization says otherwise.")
	assert.Equal(t, "World Health Organization", phrase)
}

func TestKeyPhraseFallsBackOnNonLatin(t *testing.T) {
	// Must not panic; falls through to the word-substring heuristic.
	assert.NotPanics(t, func() {
		_ = Plan("这是一个关于某个事件的说法")
	})
}
