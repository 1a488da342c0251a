package claimtext

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCollapsesWhitespace(t *testing.T) {
	got := Normalize("  The   Wall  \t\nis  visible ")
	assert.Equal(t, "The Wall is visible", got)
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"  plain claim  ",
		"Café reopens—again",
		"ﬁrst claim", // ligature "fi" decomposes under NFKC
		"",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		assert.Equal(t, once, twice, "Normalize not idempotent for %q", in)
	}
}

func TestNormalizeNFKC(t *testing.T) {
	// The "fi" ligature (U+FB01) should decompose to "fi" under NFKC.
	got := Normalize("ﬁngerprint")
	assert.Equal(t, "fingerprint", got)
}

func TestValidateRejectsEmpty(t *testing.T) {
	err := Validate(Normalize("   "), 2000)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestValidateBoundary(t *testing.T) {
	exact := strings.Repeat("a", 2000)
	require.NoError(t, Validate(exact, 2000))

	tooLong := strings.Repeat("a", 2001)
	require.Error(t, Validate(tooLong, 2000))
}
