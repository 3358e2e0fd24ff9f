package recordstore

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/bloom"
)

// pebbleBackendName identifies the pebble backend.
const pebbleBackendName = "pebble"

func init() {
	RegisterBackend(pebbleBackendName, newPebbleBackend)
}

// pebbleBackend stores envelopes in a pebble LSM database. Writes go
// through the WAL without fsync; Sync flushes memtables for durability
// points.
type pebbleBackend struct {
	path     string
	db       *pebble.DB
	openFlag int64
}

func newPebbleBackend(opts Options) (Backend, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("pebble backend requires a path")
	}
	return &pebbleBackend{path: opts.Path}, nil
}

func (b *pebbleBackend) Name() string { return pebbleBackendName }

// buildPebbleOptions tunes pebble for small fixed-size values keyed by
// height. Bloom filters keep point lookups for missing heights cheap.
func buildPebbleOptions() *pebble.Options {
	opts := &pebble.Options{
		MaxOpenFiles: 1024,
		MemTableSize: 16 << 20,
		Levels: []pebble.LevelOptions{
			{FilterPolicy: bloom.FilterPolicy(10)},
		},
	}
	return opts
}

func (b *pebbleBackend) Open(createIfMissing bool) error {
	if !atomic.CompareAndSwapInt64(&b.openFlag, 0, 1) {
		return ErrBackendOpen
	}

	if createIfMissing {
		if err := os.MkdirAll(b.path, 0o755); err != nil {
			atomic.StoreInt64(&b.openFlag, 0)
			return fmt.Errorf("create pebble directory: %w", err)
		}
	}

	db, err := pebble.Open(b.path, buildPebbleOptions())
	if err != nil {
		atomic.StoreInt64(&b.openFlag, 0)
		return fmt.Errorf("open pebble database: %w", err)
	}
	b.db = db
	return nil
}

func (b *pebbleBackend) Close() error {
	if !atomic.CompareAndSwapInt64(&b.openFlag, 1, 0) {
		return ErrBackendClosed
	}
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("close pebble database: %w", err)
	}
	b.db = nil
	return nil
}

func (b *pebbleBackend) IsOpen() bool {
	return atomic.LoadInt64(&b.openFlag) == 1
}

func (b *pebbleBackend) Get(height uint64) ([]byte, Status) {
	if !b.IsOpen() {
		return nil, BackendError
	}

	value, closer, err := b.db.Get(heightKey(height))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, NotFound
	}
	if err != nil {
		return nil, BackendError
	}
	defer closer.Close()

	out := make([]byte, len(value))
	copy(out, value)
	return out, OK
}

func (b *pebbleBackend) Put(height uint64, value []byte) Status {
	if !b.IsOpen() {
		return BackendError
	}
	if err := b.db.Set(heightKey(height), value, pebble.NoSync); err != nil {
		return BackendError
	}
	return OK
}

func (b *pebbleBackend) Delete(height uint64) Status {
	if !b.IsOpen() {
		return BackendError
	}
	if err := b.db.Delete(heightKey(height), pebble.NoSync); err != nil {
		return BackendError
	}
	return OK
}

func (b *pebbleBackend) ForEach(fn func(height uint64, value []byte) error) error {
	if !b.IsOpen() {
		return ErrBackendClosed
	}

	iter, err := b.db.NewIter(nil)
	if err != nil {
		return fmt.Errorf("pebble iterator: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		height, ok := keyHeight(iter.Key())
		if !ok {
			continue
		}
		value := make([]byte, len(iter.Value()))
		copy(value, iter.Value())
		if err := fn(height, value); err != nil {
			return err
		}
	}
	return iter.Error()
}

func (b *pebbleBackend) Sync() Status {
	if !b.IsOpen() {
		return BackendError
	}
	if err := b.db.Flush(); err != nil {
		return BackendError
	}
	return OK
}
