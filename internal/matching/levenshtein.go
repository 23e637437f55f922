// Package matching provides fuzzy similarity scoring and duplicate
// detection for ingested order rows.
package matching

// EditDistance computes the Levenshtein distance between two strings,
// counted in runes so accented French and Arabic text measure correctly.
//
// Uses the classic two-row dynamic programming formulation: O(len(a)*len(b))
// time, O(min(len(a),len(b))) space. Candidate sets are small (bounded by
// the product candidate cap and per-day order counts), so no banded or
// early-exit variant is needed.
func EditDistance(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	// Keep the shorter string on the inner dimension to minimize the rows.
	if len(ra) < len(rb) {
		ra, rb = rb, ra
	}

	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i

		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}

			curr[j] = minInt(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}

		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

// StringSimilarity returns the normalized Levenshtein similarity of two
// strings in [0, 1]:
//
//	similarity(a, b) = (maxLen - distance(a, b)) / maxLen
//
// Two empty strings are identical (1). A non-empty string compared with an
// empty one shares nothing (0). The function is symmetric and returns 1
// exactly when the strings are equal.
func StringSimilarity(a, b string) float64 {
	la := len([]rune(a))
	lb := len([]rune(b))

	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}

	if maxLen == 0 {
		return 1
	}

	return float64(maxLen-EditDistance(a, b)) / float64(maxLen)
}

func minInt(values ...int) int {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}

	return m
}
