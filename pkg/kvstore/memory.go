package kvstore

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryStore keeps entries in process. Expired entries are dropped lazily on Get and by
// a background sweep.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]entry
	now   func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore starts a sweep every sweepEvery. A non-positive value disables the
// sweep and leaves expiry to Get.
func NewMemoryStore(sweepEvery time.Duration) *MemoryStore {
	s := &MemoryStore{
		items: make(map[string]entry),
		now:   time.Now,
		stop:  make(chan struct{}),
	}
	if sweepEvery > 0 {
		go s.sweepLoop(sweepEvery)
	}
	return s
}

func (s *MemoryStore) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.items[key] = e
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	e, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if e.expired(s.now()) {
		s.mu.Lock()
		if cur, ok := s.items[key]; ok && cur.expired(s.now()) {
			delete(s.items, key)
		}
		s.mu.Unlock()
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Sweep removes every expired entry and returns how many were dropped.
func (s *MemoryStore) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for k, e := range s.items {
		if e.expired(now) {
			delete(s.items, k)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *MemoryStore) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				logrus.Debugf("[KVSTORE] swept %d expired entries", n)
			}
		}
	}
}
