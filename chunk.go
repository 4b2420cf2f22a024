package hallpass

// chunks partitions ids into windows of at most size elements. The last
// window may be shorter. A nil or empty input yields no windows.
func chunks[T any](ids []T, size int) [][]T {
	if len(ids) == 0 || size <= 0 {
		return nil
	}
	out := make([][]T, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[start:end])
	}
	return out
}
