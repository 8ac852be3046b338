package schema

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// closest returns the candidate nearest to s by edit distance, when it is
// near enough to be a plausible typo. Ties go to the earlier candidate.
func closest(s string, candidates []string) (string, bool) {
	if s == "" {
		return "", false
	}
	limit := max(2, len(s)/3)
	best, bestDist := "", limit+1
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(strings.ToLower(s), strings.ToLower(c))
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, best != ""
}
