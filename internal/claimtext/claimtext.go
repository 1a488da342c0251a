// Package claimtext implements claim intake: Unicode normalization and
// length validation for the raw string a caller submits for verification.
// Deterministic, no I/O.
package claimtext

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// ErrEmpty is returned by Validate when the claim is empty after normalization.
var ErrEmpty = errors.New("claimtext: claim is empty")

// Normalize applies Unicode NFKC (compatibility) normalization, trims
// leading/trailing whitespace, and collapses runs of whitespace to a single
// space. It is idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = strings.TrimSpace(s)

	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !prevSpace {
				b.WriteByte(' ')
			}
			prevSpace = true
			continue
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// Validate rejects an empty (after normalization) or oversized claim.
// maxLength is the caller-configured upper bound (CLAIM_MAX_LENGTH).
func Validate(normalized string, maxLength int) error {
	if normalized == "" {
		return ErrEmpty
	}
	if n := len([]rune(normalized)); n > maxLength {
		return fmt.Errorf("claimtext: claim length %d exceeds maximum %d", n, maxLength)
	}
	return nil
}
