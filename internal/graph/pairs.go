package graph

// Pairs enumerates every unordered pair of true replicates in row-major
// order: (0,1),(0,2),…,(0,n-1),(1,2),…,(n-2,n-1). Downstream artifact
// naming ("rep{i+1}-rep{j+1}") and the reproducibility summary both rely
// on this ordering. For n < 2 the result is empty.
func Pairs(n int) [][2]int {
	if n < 2 {
		return nil
	}
	pairs := make([][2]int, 0, n*(n-1)/2)
	for i := 0; i < n-1; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, [2]int{i, j})
		}
	}
	return pairs
}
