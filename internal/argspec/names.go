package argspec

import (
	"strings"

	"golang.org/x/text/cases"
)

// Normalize returns the matching form of a step or argument name: case
// folded with '-', '_' and spaces removed. "Result-Index", "result_index"
// and "resultindex" all name the same argument.
func Normalize(name string) string {
	stripped := strings.Map(func(r rune) rune {
		switch r {
		case '-', '_', ' ':
			return -1
		}
		return r
	}, name)
	return cases.Fold().String(stripped)
}
