package matching

import "strings"

// Similarity scores how alike two titles are in [0,1]: an even blend of
// entity-token Jaccard overlap and character-sequence similarity. Token
// overlap is robust to reordering ("NBA Finals: Lakers to win?" vs "Will the
// Lakers win the NBA Finals?"); sequence similarity rewards shared phrasing
// that token sets flatten away.
func Similarity(a, b Entities, titleA, titleB string) float64 {
	s := 0.5*jaccard(a.Tokens, b.Tokens) + 0.5*sequenceRatio(normalizeTitle(titleA), normalizeTitle(titleB))
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	inter := 0
	for tok := range small {
		if _, ok := large[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

func normalizeTitle(title string) string {
	return strings.Join(tokenize(strings.ToLower(title)), " ")
}

// sequenceRatio is the Ratcliff-Obershelp similarity: twice the total length
// of recursively matched common substrings over the combined length.
func sequenceRatio(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	matched := commonChars(a, b)
	return 2 * float64(matched) / float64(len(a)+len(b))
}

func commonChars(a, b string) int {
	start1, start2, size := longestCommonSubstring(a, b)
	if size == 0 {
		return 0
	}
	total := size
	total += commonChars(a[:start1], b[:start2])
	total += commonChars(a[start1+size:], b[start2+size:])
	return total
}

func longestCommonSubstring(a, b string) (start1, start2, size int) {
	// One-row dynamic program; prev[j] is the run length ending at a[i-1], b[j-1].
	prev := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		cur := make([]int, len(b)+1)
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > size {
					size = cur[j]
					start1 = i - size
					start2 = j - size
				}
			}
		}
		prev = cur
	}
	return start1, start2, size
}
