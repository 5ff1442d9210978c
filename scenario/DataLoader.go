package scenario

import (
	"errors"
	"fmt"

	"golang.org/x/exp/rand"
)

// ErrExhausted is returned when sampling from an exhausted DataLoader
var ErrExhausted = errors.New("data loader exhausted")

// DataLoader hands out batches of at most numScenario configs, sampled
// without replacement, until every config has been used once
type DataLoader struct {
	configs     []Config
	numScenario int
	rng         *rand.Rand
	remaining   []int
}

// NewDataLoader returns a DataLoader over configs. Sampling order is
// determined by seed.
func NewDataLoader(configs []Config, numScenario int,
	seed uint64) (*DataLoader, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("newDataLoader: no scenario configs")
	}
	if numScenario <= 0 {
		return nil, fmt.Errorf("newDataLoader: number of scenarios must be "+
			"positive, got %v", numScenario)
	}

	d := &DataLoader{
		configs:     append([]Config(nil), configs...),
		numScenario: numScenario,
		rng:         rand.New(rand.NewSource(seed)),
	}
	d.Reset()
	return d, nil
}

// Len returns the number of batches left before the loader is
// exhausted
func (d *DataLoader) Len() int {
	return (len(d.remaining) + d.numScenario - 1) / d.numScenario
}

// Reset makes every config available again
func (d *DataLoader) Reset() {
	d.remaining = d.rng.Perm(len(d.configs))
}

// Sampler returns the next batch of configs. The last batch may hold
// fewer than numScenario configs.
func (d *DataLoader) Sampler() ([]Config, error) {
	if len(d.remaining) == 0 {
		return nil, ErrExhausted
	}

	n := d.numScenario
	if n > len(d.remaining) {
		n = len(d.remaining)
	}
	batch := make([]Config, n)
	for i, index := range d.remaining[:n] {
		batch[i] = d.configs[index]
	}
	d.remaining = d.remaining[n:]
	return batch, nil
}
