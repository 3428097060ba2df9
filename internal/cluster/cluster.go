// Package cluster partitions timestamped values into groups of temporally
// close neighbours.
package cluster

import (
	"slices"
	"time"
)

// ByGap sorts items by the timestamp returned from at and splits them into
// groups. An item joins the current group when the gap to the item added
// before it is at most maxGap; otherwise it opens a new group. The gap is
// chained, so a group may span any total duration as long as consecutive
// photos stay within maxGap of each other.
//
// Groups come back in timestamp order and are never empty. Items with equal
// timestamps keep their input order. The input slice is not modified.
func ByGap[T any](items []T, at func(T) time.Time, maxGap time.Duration) [][]T {
	if len(items) == 0 {
		return nil
	}
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b T) int {
		return at(a).Compare(at(b))
	})

	groups := [][]T{{sorted[0]}}
	prev := at(sorted[0])
	for _, item := range sorted[1:] {
		ts := at(item)
		if ts.Sub(prev) > maxGap {
			groups = append(groups, []T{item})
		} else {
			last := len(groups) - 1
			groups[last] = append(groups[last], item)
		}
		prev = ts
	}
	return groups
}
