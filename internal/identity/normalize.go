// Package identity derives stable, content-addressed keys for organizers,
// events and guides. Everything here is pure: the same input yields the same
// key in every process.
package identity

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// NormalizeName standardizes a display name for matching by:
//  1. Composing to Unicode NFC
//  2. Case folding
//  3. Dropping punctuation and symbols
//  4. Collapsing whitespace runs into single spaces
func NormalizeName(name string) string {
	name = norm.NFC.String(name)
	name = folder.String(name)

	var b strings.Builder
	b.Grow(len(name))
	space := false
	for _, r := range name {
		switch {
		case unicode.IsSpace(r):
			space = b.Len() > 0
		case unicode.IsPunct(r), unicode.IsSymbol(r), unicode.IsControl(r):
			// dropped
		default:
			if space {
				b.WriteByte(' ')
				space = false
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}
