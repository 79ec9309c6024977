package cache

import (
	"math"
	"sync"
	"time"
)

// DefaultSweepInterval is how often the background sweeper removes expired
// entries. Sweeping is an optimization only; Get never returns an expired
// entry regardless of sweep timing.
const DefaultSweepInterval = 10 * time.Minute

// Store is a process-local key-value cache with a default TTL, hit/miss
// accounting, and an optional maximum key count. Inserts past the cap are
// rejected rather than evicting existing entries. Safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	data    map[string]entry
	ttl     time.Duration
	maxKeys int
	hits    int64
	misses  int64

	stop     chan struct{}
	stopOnce sync.Once
}

type entry struct {
	value     any
	expiresAt time.Time
}

// StoreStats reports cache counters. HitRate is hits/(hits+misses) as a
// percentage rounded to two decimals, 0 when no lookups have happened.
type StoreStats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Keys    int     `json:"keys"`
	HitRate float64 `json:"hitRate"`
}

// NewStore creates a Store with the given default TTL and key cap
// (maxKeys <= 0 disables the cap) and starts the background sweeper.
func NewStore(ttl time.Duration, maxKeys int) *Store {
	return NewStoreWithSweep(ttl, maxKeys, DefaultSweepInterval)
}

// NewStoreWithSweep is NewStore with a custom sweep interval. A non-positive
// interval disables the sweeper (expiry is then enforced lazily on access).
func NewStoreWithSweep(ttl time.Duration, maxKeys int, sweepInterval time.Duration) *Store {
	s := &Store{
		data:    make(map[string]entry),
		ttl:     ttl,
		maxKeys: maxKeys,
		stop:    make(chan struct{}),
	}
	if sweepInterval > 0 {
		go s.sweepLoop(sweepInterval)
	}
	return s
}

func (s *Store) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stop:
			return
		}
	}
}

func (s *Store) sweep() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, e := range s.data {
		if now.After(e.expiresAt) {
			delete(s.data, key)
		}
	}
}

// Close stops the background sweeper. The store remains usable.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Get returns the live value for key. Expired entries are removed and
// reported as misses.
func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[key]
	if !ok {
		s.misses++
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(s.data, key)
		s.misses++
		return nil, false
	}
	s.hits++
	return e.value, true
}

// Set stores value under key with the default TTL. Returns false when the
// store is full and key is not already present.
func (s *Store) Set(key string, value any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxKeys > 0 {
		if _, exists := s.data[key]; !exists && len(s.data) >= s.maxKeys {
			return false
		}
	}
	s.data[key] = entry{value: value, expiresAt: time.Now().Add(s.ttl)}
	return true
}

// Del removes key and returns the number of entries removed (0 or 1).
func (s *Store) Del(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[key]; !ok {
		return 0
	}
	delete(s.data, key)
	return 1
}

// Keys returns all live keys in unspecified order.
func (s *Store) Keys() []string {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.data))
	for key, e := range s.data {
		if now.After(e.expiresAt) {
			delete(s.data, key)
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

// Clear removes every entry and resets counters. Returns the number of keys
// removed.
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := len(s.data)
	s.data = make(map[string]entry)
	s.hits = 0
	s.misses = 0
	return removed
}

// Stats returns a snapshot of the store's counters.
func (s *Store) Stats() StoreStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := StoreStats{
		Hits:   s.hits,
		Misses: s.misses,
		Keys:   len(s.data),
	}
	if total := s.hits + s.misses; total > 0 {
		stats.HitRate = math.Round(float64(s.hits)/float64(total)*100*100) / 100
	}
	return stats
}
