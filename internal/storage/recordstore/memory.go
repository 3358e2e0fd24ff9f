package recordstore

import (
	"sort"
	"sync"
)

// memoryBackendName identifies the in-memory backend.
const memoryBackendName = "memory"

func init() {
	RegisterBackend(memoryBackendName, newMemoryBackend)
}

// memoryBackend keeps entries in a map. Used for tests and for nodes that
// do not need persistence across restarts.
type memoryBackend struct {
	mu      sync.RWMutex
	entries map[uint64][]byte
	open    bool
}

func newMemoryBackend(Options) (Backend, error) {
	return &memoryBackend{}, nil
}

func (b *memoryBackend) Name() string { return memoryBackendName }

func (b *memoryBackend) Open(bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.open {
		return ErrBackendOpen
	}
	b.entries = make(map[uint64][]byte)
	b.open = true
	return nil
}

func (b *memoryBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return ErrBackendClosed
	}
	b.entries = nil
	b.open = false
	return nil
}

func (b *memoryBackend) IsOpen() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.open
}

func (b *memoryBackend) Get(height uint64) ([]byte, Status) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.open {
		return nil, BackendError
	}
	value, ok := b.entries[height]
	if !ok {
		return nil, NotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, OK
}

func (b *memoryBackend) Put(height uint64, value []byte) Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return BackendError
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	b.entries[height] = stored
	return OK
}

func (b *memoryBackend) Delete(height uint64) Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return BackendError
	}
	delete(b.entries, height)
	return OK
}

func (b *memoryBackend) ForEach(fn func(height uint64, value []byte) error) error {
	b.mu.RLock()
	if !b.open {
		b.mu.RUnlock()
		return ErrBackendClosed
	}
	heights := make([]uint64, 0, len(b.entries))
	for h := range b.entries {
		heights = append(heights, h)
	}
	b.mu.RUnlock()

	sort.Slice(heights, func(i, j int) bool { return heights[i] < heights[j] })

	for _, h := range heights {
		value, status := b.Get(h)
		if status == NotFound {
			continue
		}
		if status != OK {
			return statusError(status)
		}
		if err := fn(h, value); err != nil {
			return err
		}
	}
	return nil
}

func (b *memoryBackend) Sync() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.open {
		return BackendError
	}
	return OK
}
