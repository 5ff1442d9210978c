package expreplay

import (
	"golang.org/x/exp/rand"
)

// Selector chooses the indices of a pool of transitions that make up
// a sampled batch
type Selector interface {
	// choose returns n indices in [0, poolSize)
	choose(n, poolSize int) []int
}

// uniformSelector selects indices uniformly at random with replacement
type uniformSelector struct {
	rng *rand.Rand
}

// NewUniformSelector returns a new Selector which selects indices
// uniformly at random, with replacement
func NewUniformSelector(seed uint64) Selector {
	source := rand.NewSource(seed)
	return &uniformSelector{rng: rand.New(source)}
}

// choose implements the Selector interface
func (u *uniformSelector) choose(n, poolSize int) []int {
	selected := make([]int, n)
	for i := range selected {
		selected[i] = u.rng.Intn(poolSize)
	}
	return selected
}
