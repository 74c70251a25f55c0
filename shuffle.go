package guesswhat

import (
	"math/rand/v2"
)

// Shuffle reorders s in place with a uniform Fisher-Yates shuffle. A nil r
// uses the global source.
func Shuffle[T any](r *rand.Rand, s []T) {
	swap := func(i, j int) { s[i], s[j] = s[j], s[i] }
	if r == nil {
		rand.Shuffle(len(s), swap)
		return
	}

	r.Shuffle(len(s), swap)
}
