package search

import (
	"strings"
	"unicode/utf8"
)

// FuzzinessAuto lets the engine pick the edit distance from the term length.
const FuzzinessAuto = "AUTO"

// AutoFuzziness returns the edit distance tolerated for term under the AUTO
// policy: 0 for terms of up to 2 characters, 1 for 3 to 5, 2 beyond.
func AutoFuzziness(term string) int {
	n := utf8.RuneCountInString(term)
	switch {
	case n <= 2:
		return 0
	case n <= 5:
		return 1
	default:
		return 2
	}
}

// Terms splits query text into lower-case whitespace separated terms.
func Terms(text string) []string {
	return strings.Fields(strings.ToLower(text))
}
