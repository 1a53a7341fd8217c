package application

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/AzielCF/az-social/scheduling/domain/common"
	"github.com/sirupsen/logrus"
)

// MediaSource lists candidate files for generated posts.
type MediaSource interface {
	ListAvailable(ctx context.Context) ([]string, error)
}

// SelectionStrategy picks the index of the next item to draw from a pool of size n (n > 0).
type SelectionStrategy interface {
	Pick(n int) int
}

// RandomStrategy draws uniformly at random.
type RandomStrategy struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomStrategy uses rng when given, or the global source otherwise.
func NewRandomStrategy(rng *rand.Rand) *RandomStrategy {
	return &RandomStrategy{rng: rng}
}

func (s *RandomStrategy) Pick(n int) int {
	if s.rng == nil {
		return rand.IntN(n)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

// RoundRobinStrategy always takes the head of the remaining items, so draws follow the
// source order.
type RoundRobinStrategy struct{}

func (RoundRobinStrategy) Pick(int) int { return 0 }

// Pool is a working copy of a media listing drawn without replacement.
type Pool struct {
	items    []string
	strategy SelectionStrategy
}

func NewPool(items []string, strategy SelectionStrategy) *Pool {
	if strategy == nil {
		strategy = NewRandomStrategy(nil)
	}
	working := make([]string, 0, len(items))
	for _, it := range items {
		if common.IsSupportedMedia(it) {
			working = append(working, it)
		}
	}
	return &Pool{items: working, strategy: strategy}
}

// Draw removes and returns one item. ok is false once the pool is exhausted.
func (p *Pool) Draw() (common.Publishable, bool) {
	for len(p.items) > 0 {
		idx := p.strategy.Pick(len(p.items))
		if idx < 0 || idx >= len(p.items) {
			idx = 0
		}
		path := p.items[idx]
		p.items = append(p.items[:idx], p.items[idx+1:]...)

		payload, err := common.NewPayload(path)
		if err != nil {
			logrus.Warnf("[MEDIA_POOL] dropping %s: %v", path, err)
			continue
		}
		return payload, true
	}
	return nil, false
}

func (p *Pool) Remaining() int { return len(p.items) }

// Exclude removes paths already claimed elsewhere (e.g. by other pending posts).
func (p *Pool) Exclude(paths map[string]bool) {
	kept := p.items[:0]
	for _, it := range p.items {
		if !paths[it] {
			kept = append(kept, it)
		}
	}
	p.items = kept
}
