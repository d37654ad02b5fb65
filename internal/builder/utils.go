package builder

import (
	"iter"
	"maps"
	"slices"
)

// sortedMap iterates a map in key order so generated command lines are stable
func sortedMap[V any](m map[string]V) iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		for _, k := range slices.Sorted(maps.Keys(m)) {
			if !yield(k, m[k]) {
				return
			}
		}
	}
}
