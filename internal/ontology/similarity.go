package ontology

// similarityRatio computes a normalized similarity in [0,1] between two
// strings: twice the longest-common-subsequence length over the summed
// lengths. Equal strings score 1.0, disjoint strings 0.0.
func similarityRatio(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	la, lb := len(a), len(b)

	// Two rows are enough for the LCS length.
	prev := make([]int, lb+1)
	curr := make([]int, lb+1)

	for i := 1; i <= la; i++ {
		for j := 1; j <= lb; j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}

	lcs := prev[lb]
	return 2.0 * float64(lcs) / float64(la+lb)
}

// lengthsComparable prunes hopeless comparisons: when the length difference
// exceeds half the longer string, the similarity ratio cannot be meaningful.
func lengthsComparable(a, b string) bool {
	la, lb := len(a), len(b)
	longer := la
	diff := la - lb
	if lb > la {
		longer = lb
		diff = lb - la
	}
	if longer == 0 {
		return true
	}
	return float64(diff) <= 0.5*float64(longer)
}
