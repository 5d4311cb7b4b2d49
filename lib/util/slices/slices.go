package slices

func Contains[T comparable](haystack []T, needle T) bool {
	for _, hay := range haystack {
		if hay == needle {
			return true
		}
	}

	return false
}

func Index[T comparable](haystack []T, needle T) int {
	for i, v := range haystack {
		if needle == v {
			return i
		}
	}
	return -1
}

// Delete is similar to Remove but doesn't retain order.
func Delete[T comparable](slice []T, item T) []T {
	i := Index(slice, item)
	if i == -1 {
		return slice
	}
	return DeleteIndex(slice, i)
}

func DeleteIndex[T any](slice []T, idx int) []T {
	slice[idx] = slice[len(slice)-1]
	slice[len(slice)-1] = *new(T)
	return slice[:len(slice)-1]
}

func Equal[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}

	for i, av := range a {
		bv := b[i]
		if av != bv {
			return false
		}
	}

	return true
}

// Unique returns slice with duplicates removed, keeping the first
// occurrence of each item and preserving order. The input is not modified.
func Unique[T comparable](slice []T) []T {
	seen := make(map[T]struct{}, len(slice))
	out := make([]T, 0, len(slice))
	for _, v := range slice {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
