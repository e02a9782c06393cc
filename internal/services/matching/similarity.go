package matching

import (
	"math"
	"strings"
)

// NameSimilarity compares the free-text side of a bank transaction against a
// customer name. Each customer-name token is matched to its closest
// transaction token by levenshtein distance; the result is the mean best
// similarity, in 0..1.
func NameSimilarity(bankText, customerName string) float64 {
	bTokens := strings.Fields(normalizeName(bankText))
	cTokens := strings.Fields(normalizeName(customerName))

	if len(cTokens) == 0 || len(bTokens) == 0 {
		return 0
	}

	total := 0.0
	for _, ct := range cTokens {
		best := 0.0
		for _, bt := range bTokens {
			dist := levenshtein(ct, bt)
			maxLen := math.Max(float64(len(ct)), float64(len(bt)))
			sim := 1 - float64(dist)/maxLen
			if sim > best {
				best = sim
			}
		}
		total += best
	}

	return total / float64(len(cTokens))
}

func normalizeName(s string) string {
	s = strings.ToUpper(s)
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.TrimSpace(s)
	return s
}

func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	dp := make([][]int, len(a)+1)
	for i := range dp {
		dp[i] = make([]int, len(b)+1)
	}

	for i := 0; i <= len(a); i++ {
		dp[i][0] = i
	}
	for j := 0; j <= len(b); j++ {
		dp[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			dp[i][j] = minOf3(
				dp[i-1][j]+1,
				dp[i][j-1]+1,
				dp[i-1][j-1]+cost,
			)
		}
	}
	return dp[len(a)][len(b)]
}

func minOf3(a, b, c int) int {
	if a < b && a < c {
		return a
	}
	if b < c {
		return b
	}
	return c
}
