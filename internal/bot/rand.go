package bot

import "math/rand"

// Dice is the random source one game's strategy uses. It is not safe for
// concurrent use; give each game its own.
type Dice struct {
	r *rand.Rand
}

// NewDice returns a deterministic source for seed.
func NewDice(seed int64) *Dice {
	return &Dice{r: rand.New(rand.NewSource(seed))}
}

func (d *Dice) Float64() float64 { return d.r.Float64() }

func (d *Dice) Intn(n int) int { return d.r.Intn(n) }

func (d *Dice) Perm(n int) []int { return d.r.Perm(n) }
