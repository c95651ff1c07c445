package gossip

import (
	"math/rand"
	"time"

	"github.com/spaolacci/murmur3"
)

// sampler uniformly selects peers from a table, excluding a given
// identity. It holds a single PRNG seeded once at construction: a
// per-engine PRNG is sufficient, and reproducible under test with a
// seeded clock.
type sampler struct {
	table *Table
	rng   *rand.Rand
}

// newSampler derives its seed from the owning engine's own identity
// hashed with murmur3, mixed with the clock reading taken at
// construction.
func newSampler(table *Table, self NodeID, now time.Time) *sampler {
	seed := int64(murmur3.Sum64(self[:])) ^ now.UnixNano()
	return &sampler{
		table: table,
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// sample returns up to k views chosen uniformly at random from the table,
// excluding exclude. It returns fewer than k if fewer candidates exist,
// and an empty (non-nil) slice if k <= 0 or no candidates exist.
func (s *sampler) sample(k int, exclude NodeID) []NodeView {
	if k <= 0 {
		return []NodeView{}
	}

	candidates := s.table.Snapshot()
	filtered := candidates[:0]
	for _, c := range candidates {
		if c.ID != exclude {
			filtered = append(filtered, c)
		}
	}
	if len(filtered) == 0 {
		return []NodeView{}
	}

	s.rng.Shuffle(len(filtered), func(i, j int) {
		filtered[i], filtered[j] = filtered[j], filtered[i]
	})

	if k > len(filtered) {
		k = len(filtered)
	}
	return filtered[:k]
}
