package trainer

import "math/rand"

// sampler walks the train split in a deterministic, seed-driven order:
// a shuffled pass over all indices per epoch, reshuffled at each epoch
// boundary. Runs with the same seed visit batches in the same order.
type sampler struct {
	rng   *rand.Rand
	order []int
	pos   int
	batch int
}

func newSampler(n, batchSize int, seed int64) *sampler {
	s := &sampler{
		rng:   rand.New(rand.NewSource(seed)),
		order: make([]int, n),
		batch: batchSize,
	}
	for i := range s.order {
		s.order[i] = i
	}
	s.shuffle()
	return s
}

func (s *sampler) shuffle() {
	s.rng.Shuffle(len(s.order), func(i, j int) {
		s.order[i], s.order[j] = s.order[j], s.order[i]
	})
	s.pos = 0
}

// next returns the indices of the next batch, crossing into a fresh
// epoch when the current one is exhausted.
func (s *sampler) next() []int {
	idx := make([]int, 0, s.batch)
	for len(idx) < s.batch {
		if s.pos == len(s.order) {
			s.shuffle()
		}
		idx = append(idx, s.order[s.pos])
		s.pos++
	}
	return idx
}
