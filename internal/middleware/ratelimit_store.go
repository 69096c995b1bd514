package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/charlesng35/hrmatrix/internal/cache"
)

const defaultRateWindow = time.Minute

// RateStore counts hits for a key inside a fixed window and reports the time left in it.
type RateStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int, ttl time.Duration, err error)
}

type rateWindow struct {
	hits    int
	expires time.Time
}

// localRateStore keeps fixed-window counters in process memory. Expired windows are swept
// lazily at most once per sweepEvery.
type localRateStore struct {
	mu         sync.Mutex
	windows    map[string]rateWindow
	now        func() time.Time
	sweepEvery time.Duration
	nextSweep  time.Time
}

// NewMemoryRateStore returns a process-local RateStore.
func NewMemoryRateStore() RateStore {
	return newLocalRateStore(time.Now)
}

func newLocalRateStore(now func() time.Time) *localRateStore {
	return &localRateStore{
		windows:    make(map[string]rateWindow),
		now:        now,
		sweepEvery: time.Minute,
	}
}

func (s *localRateStore) Increment(_ context.Context, key string, window time.Duration) (int, time.Duration, error) {
	if window <= 0 {
		window = defaultRateWindow
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if now.After(s.nextSweep) {
		for k, w := range s.windows {
			if !now.Before(w.expires) {
				delete(s.windows, k)
			}
		}
		s.nextSweep = now.Add(s.sweepEvery)
	}

	w, ok := s.windows[key]
	if !ok || !now.Before(w.expires) {
		w = rateWindow{expires: now.Add(window)}
	}
	w.hits++
	s.windows[key] = w

	return w.hits, w.expires.Sub(now), nil
}

func (s *localRateStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

// sharedRateStore keeps counters in a cache.Store so every replica sees the same totals.
type sharedRateStore struct {
	store cache.Store
}

// NewCacheRateStore wraps a shared cache store. A nil store yields nil.
func NewCacheRateStore(store cache.Store) RateStore {
	if store == nil {
		return nil
	}
	return &sharedRateStore{store: store}
}

func (s *sharedRateStore) Increment(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	if window <= 0 {
		window = defaultRateWindow
	}
	hits, ttl, err := s.store.IncrementWithTTL(ctx, key, window)
	return int(hits), ttl, err
}
