package viewcache

// SearchMode selects which end of a run of matches Search returns.
type SearchMode int

const (
	// SearchStart finds the first index of the run.
	SearchStart SearchMode = iota
	// SearchEnd finds the last index of the run.
	SearchEnd
)

// Search binary searches indices [0, n) for the boundary of the run where
// cmp returns 0. cmp(i) must be negative for every index before the run,
// zero inside it and positive after it.
//
// On a zero result the search keeps narrowing toward the requested boundary
// instead of stopping, so runs of duplicates are bracketed exactly. Returns
// (-1, false) when no index compares equal.
func Search(n int, cmp func(i int) int, mode SearchMode) (int, bool) {
	lo, hi := 0, n-1
	found := -1
	for lo <= hi {
		mid := int(uint(lo+hi) >> 1)
		switch c := cmp(mid); {
		case c < 0:
			lo = mid + 1
		case c > 0:
			hi = mid - 1
		default:
			found = mid
			if mode == SearchStart {
				hi = mid - 1
			} else {
				lo = mid + 1
			}
		}
	}
	return found, found >= 0
}
