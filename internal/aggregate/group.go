// Package aggregate groups lots and dispatch records under structured keys
// and flattens them into report rows. Everything here is pure: same input,
// same output, no I/O.
package aggregate

// Group is one bucket of a GroupBy partition
type Group[K comparable, T any] struct {
	Key   K
	Items []T
}

// GroupBy partitions items by key. Groups come out in first-seen key order and
// members keep their input order, so every item lands in exactly one group.
func GroupBy[K comparable, T any](items []T, key func(T) K) []Group[K, T] {
	index := make(map[K]int)
	var groups []Group[K, T]
	for _, it := range items {
		k := key(it)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group[K, T]{Key: k})
		}
		groups[i].Items = append(groups[i].Items, it)
	}
	return groups
}
