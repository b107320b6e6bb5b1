package service

import (
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/crm-kit/lead-router/internal/domain"
)

// WeightedPicker draws one operator with probability proportional to weight.
// It is safe for concurrent use.
type WeightedPicker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewWeightedPicker seeds the picker. A zero seed draws a random one.
func NewWeightedPicker(seed int64) *WeightedPicker {
	s1, s2 := uint64(seed), uint64(seed)^0x9e3779b97f4a7c15
	if seed == 0 {
		s1, s2 = rand.Uint64(), rand.Uint64()
	}
	return &WeightedPicker{rng: rand.New(rand.NewPCG(s1, s2))}
}

// Pick returns the chosen operator id, or false when candidates is empty.
// When every weight is zero the choice is uniform over the candidates.
func (p *WeightedPicker) Pick(candidates []domain.Candidate) (int64, bool) {
	if len(candidates) == 0 {
		return 0, false
	}

	cumulative := make([]int64, len(candidates))
	var total int64
	for i, c := range candidates {
		if c.Weight > 0 {
			total += int64(c.Weight)
		}
		cumulative[i] = total
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if total == 0 {
		return candidates[p.rng.IntN(len(candidates))].OperatorID, true
	}

	draw := p.rng.Int64N(total)
	idx := sort.Search(len(cumulative), func(i int) bool { return cumulative[i] > draw })
	return candidates[idx].OperatorID, true
}
