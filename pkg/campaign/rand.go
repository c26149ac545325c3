package campaign

import "math/rand"

// Source supplies every random choice the engine makes: deck shuffles,
// marker placement and counter-attack targets. *rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

// NewSource returns a deterministic Source for the given seed.
func NewSource(seed int64) Source {
	return rand.New(rand.NewSource(seed))
}
