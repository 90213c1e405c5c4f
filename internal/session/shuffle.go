package session

import "math/rand/v2"

// Shuffle returns a uniformly random permutation of items as a new slice.
// The input slice is left untouched.
func Shuffle[T any](items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	rand.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// Perm returns a random permutation of [0, n).
func Perm(n int) Permutation {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return Permutation(Shuffle(idx))
}
