// Package verify implements the security-question check that gates the
// release of a finder's contact details.
package verify

// Distance returns the Levenshtein edit distance between a and b, counted in
// Unicode code points. It fills the full (len(b)+1) x (len(a)+1) grid.
func Distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)

	grid := make([][]int, len(rb)+1)
	for i := range grid {
		grid[i] = make([]int, len(ra)+1)
		grid[i][0] = i
	}
	for j := range grid[0] {
		grid[0][j] = j
	}

	for i := 1; i <= len(rb); i++ {
		for j := 1; j <= len(ra); j++ {
			if rb[i-1] == ra[j-1] {
				grid[i][j] = grid[i-1][j-1]
				continue
			}
			grid[i][j] = 1 + min(grid[i-1][j-1], grid[i][j-1], grid[i-1][j])
		}
	}

	return grid[len(rb)][len(ra)]
}

// Similarity returns 1 - Distance(a, b)/max(len(a), len(b)), a ratio in
// [0, 1]. Two empty strings are identical.
func Similarity(a, b string) float64 {
	longer := max(len([]rune(a)), len([]rune(b)))
	if longer == 0 {
		return 1.0
	}
	return float64(longer-Distance(a, b)) / float64(longer)
}
