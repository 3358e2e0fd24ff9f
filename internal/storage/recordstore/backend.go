package recordstore

import (
	"encoding/binary"
	"fmt"
	"sort"
	"sync"
)

// Options configures backend construction.
type Options struct {
	// Type selects the registered backend ("memory", "pebble", "leveldb").
	Type string

	// Path is the on-disk location for persistent backends. Ignored by
	// the memory backend.
	Path string
}

// BackendFactory constructs a backend from options.
type BackendFactory func(opts Options) (Backend, error)

var (
	backendMu sync.RWMutex
	backends  = make(map[string]BackendFactory)
)

// RegisterBackend makes a backend available under the given type name.
// Registering a duplicate name panics; backends register from init.
func RegisterBackend(name string, factory BackendFactory) {
	backendMu.Lock()
	defer backendMu.Unlock()

	if factory == nil {
		panic("recordstore: nil backend factory for " + name)
	}
	if _, dup := backends[name]; dup {
		panic("recordstore: duplicate backend registration for " + name)
	}
	backends[name] = factory
}

// CreateBackend builds the backend named by opts.Type. The backend is
// returned unopened.
func CreateBackend(opts Options) (Backend, error) {
	backendMu.RLock()
	factory, ok := backends[opts.Type]
	backendMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Type)
	}
	return factory(opts)
}

// AvailableBackends returns the registered backend names, sorted.
func AvailableBackends() []string {
	backendMu.RLock()
	defer backendMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsBackendAvailable reports whether a backend type is registered.
func IsBackendAvailable(name string) bool {
	backendMu.RLock()
	defer backendMu.RUnlock()

	_, ok := backends[name]
	return ok
}

// heightKey encodes a height as a big-endian key so ordered backends
// iterate in chain order.
func heightKey(height uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, height)
	return key
}

// keyHeight decodes a backend key back into a height.
func keyHeight(key []byte) (uint64, bool) {
	if len(key) != 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(key), true
}
