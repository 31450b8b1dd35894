package ops

import (
	"math/rand/v2"
	"sync"
)

// Sampler keeps a fraction of operational events. Rates are clamped to
// [0,1]; an action without its own rate uses the default.
type Sampler struct {
	mu       sync.RWMutex
	fallback float64
	byAction map[string]float64
	roll     func() float64
}

func NewSampler(rate float64) *Sampler {
	return &Sampler{
		fallback: clampRate(rate),
		byAction: make(map[string]float64),
		roll:     rand.Float64, //nolint:gosec // sampling, not security
	}
}

// ShouldSample reports whether an event with this action is kept.
func (s *Sampler) ShouldSample(action string) bool {
	rate := s.rate(action)
	switch rate {
	case 0:
		return false
	case 1:
		return true
	}
	return s.roll() < rate
}

// SetRate overrides the rate for one action, e.g. to keep every assignment
// change while thinning routine status churn.
func (s *Sampler) SetRate(action string, rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byAction[action] = clampRate(rate)
}

func (s *Sampler) rate(action string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.byAction[action]; ok {
		return r
	}
	return s.fallback
}

func clampRate(r float64) float64 {
	return min(max(r, 0), 1)
}
