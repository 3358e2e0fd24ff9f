package recordstore

import (
	"errors"
	"fmt"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// levelDBBackendName identifies the goleveldb backend.
const levelDBBackendName = "leveldb"

func init() {
	RegisterBackend(levelDBBackendName, newLevelDBBackend)
}

// levelDBBackend stores envelopes in a goleveldb database. Every write
// lands in the write-ahead log, so Sync has nothing extra to flush.
type levelDBBackend struct {
	path string

	mu   sync.RWMutex
	db   *leveldb.DB
	open bool
}

func newLevelDBBackend(opts Options) (Backend, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("leveldb backend requires a path")
	}
	return &levelDBBackend{path: opts.Path}, nil
}

func (b *levelDBBackend) Name() string { return levelDBBackendName }

func (b *levelDBBackend) Open(createIfMissing bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.open {
		return ErrBackendOpen
	}

	db, err := leveldb.OpenFile(b.path, &opt.Options{
		ErrorIfMissing: !createIfMissing,
	})
	if err != nil {
		return fmt.Errorf("open leveldb database: %w", err)
	}
	b.db = db
	b.open = true
	return nil
}

func (b *levelDBBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return ErrBackendClosed
	}
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("close leveldb database: %w", err)
	}
	b.db = nil
	b.open = false
	return nil
}

func (b *levelDBBackend) IsOpen() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.open
}

func (b *levelDBBackend) Get(height uint64) ([]byte, Status) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.open {
		return nil, BackendError
	}
	value, err := b.db.Get(heightKey(height), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, NotFound
	}
	if err != nil {
		return nil, BackendError
	}
	return value, OK
}

func (b *levelDBBackend) Put(height uint64, value []byte) Status {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.open {
		return BackendError
	}
	if err := b.db.Put(heightKey(height), value, nil); err != nil {
		return BackendError
	}
	return OK
}

func (b *levelDBBackend) Delete(height uint64) Status {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.open {
		return BackendError
	}
	if err := b.db.Delete(heightKey(height), nil); err != nil {
		return BackendError
	}
	return OK
}

func (b *levelDBBackend) ForEach(fn func(height uint64, value []byte) error) error {
	b.mu.RLock()
	if !b.open {
		b.mu.RUnlock()
		return ErrBackendClosed
	}
	iter := b.db.NewIterator(nil, nil)
	b.mu.RUnlock()
	defer iter.Release()

	for iter.Next() {
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

func (b *levelDBBackend) Sync() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.open {
		return BackendError
	}
	return OK
}
