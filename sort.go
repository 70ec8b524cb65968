package kvdoc

import "slices"

// Sort sorts docs in place with c. The sort is stable.
func Sort(docs []Document, c Comparator) {
	slices.SortStableFunc(docs, c.Compare)
}

// SortBy sorts docs by criteria with default options.
func SortBy(docs []Document, criteria ...Criterion) error {
	cc, err := NewCriteriaComparator(CompareOptions{}, criteria...)
	if err != nil {
		return err
	}
	Sort(docs, cc)
	return nil
}

func IsSorted(docs []Document, c Comparator) bool {
	return slices.IsSortedFunc(docs, c.Compare)
}

// Dedup sorts docs and drops all but the first of each run of documents
// that c considers equal. It returns the shortened slice.
func Dedup(docs []Document, c Comparator) []Document {
	Sort(docs, c)
	return slices.CompactFunc(docs, func(a, b Document) bool {
		return c.Compare(a, b) == 0
	})
}
