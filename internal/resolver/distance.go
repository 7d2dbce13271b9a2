package resolver

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Distance returns the Levenshtein distance between a and b with unit costs
// for insertion, deletion and substitution. Comparison is rune-wise and
// case-insensitive, so Distance(a, b) == Distance(b, a).
func Distance(a, b string) int {
	return levenshtein.ComputeDistance(strings.ToLower(a), strings.ToLower(b))
}

// CommonCharacters counts the runes of the shorter string that also occur
// somewhere in the longer one. Order is ignored and repeated runes in the
// shorter string are counted each time. Comparison is case-insensitive.
func CommonCharacters(a, b string) int {
	a, b = strings.ToLower(a), strings.ToLower(b)
	short, long := a, b
	if len([]rune(b)) < len([]rune(a)) {
		short, long = b, a
	}

	common := 0
	for _, r := range short {
		if strings.ContainsRune(long, r) {
			common++
		}
	}
	return common
}
