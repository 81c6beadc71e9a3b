// Package median picks the representative element out of a set of repeated
// measurements.
package median

import (
	"errors"
	"sort"
)

var ErrEmptySet = errors.New("median: empty set")

// Index returns the position, within a set of n elements sorted ascending,
// of the element treated as representative: floor(sum(1..n)/n) - 1, which is
// floor((n+1)/2) - 1. For even n this is the lower of the two middle
// elements (n=4 gives 1), never an average.
func Index(n int) int {
	if n < 1 {
		return -1
	}
	return triangular(n)/n - 1
}

func triangular(n int) int {
	return n * (n + 1) / 2
}

// Select stable-sorts items ascending by score and returns the element at
// Index(len(items)) together with its position in the original slice. Equal
// scores keep their original relative order, so the earliest measurement
// takes the lower position. items itself is not reordered.
func Select[T any](items []T, score func(T) (int, error)) (T, int, error) {
	var zero T
	if len(items) == 0 {
		return zero, -1, ErrEmptySet
	}

	scores := make([]int, len(items))
	for i, item := range items {
		s, err := score(item)
		if err != nil {
			return zero, -1, err
		}
		scores[i] = s
	}

	order := make([]int, len(items))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] < scores[order[b]]
	})

	picked := order[Index(len(items))]
	return items[picked], picked, nil
}
