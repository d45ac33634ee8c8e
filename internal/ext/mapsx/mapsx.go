// Package mapsx contains small extensions to package maps used across the
// compiler passes.
package mapsx

import "sort"

// SortedKeys returns the keys of m sorted with less.
func SortedKeys[K comparable, V any](m map[K]V, less func(a, b K) bool) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return less(keys[i], keys[j]) })
	return keys
}
