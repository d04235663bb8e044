package export

import (
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// Ordinal returns the sequence number written for frame:
// frame - rng.Start + offset.
func Ordinal(frame int, rng Range, offset int) int {
	return frame - rng.Start + offset
}

// Filename joins prefix, the ordinal padded to four digits and suffix.
// Ordinals wider than four digits are written in full; negative ordinals
// keep their sign inside the padded width.
func Filename(prefix string, ordinal int, suffix string) string {
	return prefix + fmt.Sprintf("%04d", ordinal) + suffix
}

// normalizeName returns s in Unicode NFC so that composed and decomposed
// spellings of the same prefix produce the same file names.
func normalizeName(s string) string {
	return norm.NFC.String(s)
}
