package recordstore

import (
	"fmt"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
)

const (
	// DefaultCacheSize is the LRU capacity used when the configured size
	// is not positive.
	DefaultCacheSize = 1024

	// maxRangeSpan bounds a single Range call.
	maxRangeSpan = 10_000
)

// Store is the height-keyed record database: a backend for persistence
// with an LRU cache in front. All methods are safe for concurrent use.
type Store struct {
	backend Backend
	cache   *lru.Cache[uint64, *Entry]
	log     zerolog.Logger

	mu         sync.RWMutex
	latest     uint64
	haveLatest bool
	entries    uint64

	reads       uint64
	writes      uint64
	cacheHits   uint64
	cacheMisses uint64
}

// Stats is a snapshot of store counters.
type Stats struct {
	Backend      string `json:"backend"`
	Reads        uint64 `json:"reads"`
	Writes       uint64 `json:"writes"`
	CacheHits    uint64 `json:"cache_hits"`
	CacheMisses  uint64 `json:"cache_misses"`
	LatestHeight uint64 `json:"latest_height"`
	HasEntries   bool   `json:"has_entries"`
	Entries      uint64 `json:"entries"`
}

// Open creates and opens a store over the backend named in opts. Missing
// databases are created. The latest stored height is recovered by a key
// scan.
func Open(opts Options, cacheSize int, log zerolog.Logger) (*Store, error) {
	backend, err := CreateBackend(opts)
	if err != nil {
		return nil, err
	}
	if err := backend.Open(true); err != nil {
		return nil, fmt.Errorf("open %s backend: %w", backend.Name(), err)
	}

	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[uint64, *Entry](cacheSize)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("create record cache: %w", err)
	}

	s := &Store{
		backend: backend,
		cache:   cache,
		log:     log,
	}
	err = backend.ForEach(func(height uint64, _ []byte) error {
		s.latest = height
		s.haveLatest = true
		s.entries++
		return nil
	})
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("scan %s backend: %w", backend.Name(), err)
	}

	s.log.Debug().
		Str("backend", backend.Name()).
		Int("cache_size", cacheSize).
		Uint64("entries", s.entries).
		Uint64("latest_height", s.latest).
		Msg("record store opened")
	return s, nil
}

// Backend returns the name of the underlying backend.
func (s *Store) Backend() string {
	return s.backend.Name()
}

// Put stores an entry at its height, replacing any previous entry there.
func (s *Store) Put(e *Entry) error {
	if e == nil {
		return fmt.Errorf("nil entry")
	}

	replacing := s.Has(e.Height)

	value := encodeEntry(e)
	if status := s.backend.Put(e.Height, value); status != OK {
		return fmt.Errorf("store height %d: %w", e.Height, statusError(status))
	}
	atomic.AddUint64(&s.writes, 1)
	s.cache.Add(e.Height, e.Clone())

	s.mu.Lock()
	if !replacing {
		s.entries++
	}
	if !s.haveLatest || e.Height > s.latest {
		s.latest = e.Height
		s.haveLatest = true
	}
	s.mu.Unlock()
	return nil
}

// Get retrieves the entry stored at height. The returned entry is a copy.
func (s *Store) Get(height uint64) (*Entry, error) {
	atomic.AddUint64(&s.reads, 1)

	if e, ok := s.cache.Get(height); ok {
		atomic.AddUint64(&s.cacheHits, 1)
		return e.Clone(), nil
	}
	atomic.AddUint64(&s.cacheMisses, 1)

	value, status := s.backend.Get(height)
	if status != OK {
		return nil, fmt.Errorf("fetch height %d: %w", height, statusError(status))
	}
	e, err := decodeEntry(height, value)
	if err != nil {
		s.log.Error().Uint64("height", height).Err(err).Msg("stored record failed to decode")
		return nil, err
	}
	s.cache.Add(height, e)
	return e.Clone(), nil
}

// Has reports whether an entry exists at height.
func (s *Store) Has(height uint64) bool {
	if s.cache.Contains(height) {
		return true
	}
	_, status := s.backend.Get(height)
	return status == OK
}

// LatestHeight returns the highest stored height, if any.
func (s *Store) LatestHeight() (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.haveLatest
}

// Count returns the number of stored entries.
func (s *Store) Count() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries
}

// Latest returns the entry at the highest stored height.
func (s *Store) Latest() (*Entry, error) {
	height, ok := s.LatestHeight()
	if !ok {
		return nil, ErrEmptyStore
	}
	return s.Get(height)
}

// Range returns the stored entries with from <= height <= to in ascending
// order. Heights with no entry are skipped.
func (s *Store) Range(from, to uint64) ([]*Entry, error) {
	if from > to {
		return nil, fmt.Errorf("%w: from %d after to %d", ErrInvalidRange, from, to)
	}
	if span := to - from + 1; span > maxRangeSpan || span == 0 {
		return nil, fmt.Errorf("%w: span exceeds %d heights", ErrInvalidRange, maxRangeSpan)
	}

	var out []*Entry
	for height := from; ; height++ {
		e, err := s.Get(height)
		if err != nil {
			if !IsNotFound(err) {
				return nil, err
			}
		} else {
			out = append(out, e)
		}
		if height == to {
			break
		}
	}
	return out, nil
}

// ForEach visits every stored entry in ascending height order.
func (s *Store) ForEach(fn func(*Entry) error) error {
	return s.backend.ForEach(func(height uint64, value []byte) error {
		e, err := decodeEntry(height, value)
		if err != nil {
			return err
		}
		return fn(e)
	})
}

// PruneBelow deletes every entry with height < cutoff and returns the
// number removed.
func (s *Store) PruneBelow(cutoff uint64) (int, error) {
	var doomed []uint64
	err := s.backend.ForEach(func(height uint64, _ []byte) error {
		if height < cutoff {
			doomed = append(doomed, height)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, height := range doomed {
		if status := s.backend.Delete(height); status != OK {
			return 0, fmt.Errorf("prune height %d: %w", height, statusError(status))
		}
		s.cache.Remove(height)
	}

	s.mu.Lock()
	s.entries -= uint64(len(doomed))
	if s.haveLatest && s.latest < cutoff {
		s.haveLatest = false
		s.latest = 0
	}
	s.mu.Unlock()

	if len(doomed) > 0 {
		s.log.Info().Uint64("cutoff", cutoff).Int("pruned", len(doomed)).Msg("pruned record store")
	}
	return len(doomed), nil
}

// Sync flushes pending writes to stable storage.
func (s *Store) Sync() error {
	if status := s.backend.Sync(); status != OK {
		return statusError(status)
	}
	return nil
}

// Close flushes and closes the backend and drops the cache.
func (s *Store) Close() error {
	s.cache.Purge()
	if status := s.backend.Sync(); status == BackendError {
		s.log.Warn().Str("backend", s.backend.Name()).Msg("sync on close failed")
	}
	return s.backend.Close()
}

// Stats returns a snapshot of store counters.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	latest, have, entries := s.latest, s.haveLatest, s.entries
	s.mu.RUnlock()

	return Stats{
		Backend:      s.backend.Name(),
		Reads:        atomic.LoadUint64(&s.reads),
		Writes:       atomic.LoadUint64(&s.writes),
		CacheHits:    atomic.LoadUint64(&s.cacheHits),
		CacheMisses:  atomic.LoadUint64(&s.cacheMisses),
		LatestHeight: latest,
		HasEntries:   have,
		Entries:      entries,
	}
}
