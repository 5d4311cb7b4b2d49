package slices

// Sorted is a sorted slice. As long as all items are inserted by Insert,
// this slice will stay sorted.
type Sorted[V any] []V

func (T Sorted[V]) Insert(value V, sorter func(V) int) Sorted[V] {
	key := sorter(value)
	for i, v := range T {
		if sorter(v) < key {
			continue
		}

		res := append(T, *new(V))
		copy(res[i+1:], res[i:])
		res[i] = value
		return res
	}

	return append(T, value)
}
