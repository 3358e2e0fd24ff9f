package recordstore_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/aurumchain/go-aurum/internal/storage/recordstore"
)

func openMemoryBackend(t *testing.T) recordstore.Backend {
	t.Helper()

	backend, err := recordstore.CreateBackend(recordstore.Options{Type: "memory"})
	if err != nil {
		t.Fatalf("failed to create memory backend: %v", err)
	}
	if err := backend.Open(true); err != nil {
		t.Fatalf("failed to open memory backend: %v", err)
	}
	return backend
}

func TestMemoryBackend(t *testing.T) {
	t.Run("Creation", func(t *testing.T) {
		backend, err := recordstore.CreateBackend(recordstore.Options{Type: "memory"})
		if err != nil {
			t.Fatalf("failed to create memory backend: %v", err)
		}

		if backend.Name() != "memory" {
			t.Errorf("expected name 'memory', got %q", backend.Name())
		}

		if backend.IsOpen() {
			t.Error("backend should not be open before Open()")
		}
	})

	t.Run("OpenClose", func(t *testing.T) {
		backend := openMemoryBackend(t)

		if !backend.IsOpen() {
			t.Error("backend should be open after Open()")
		}

		if err := backend.Open(true); !errors.Is(err, recordstore.ErrBackendOpen) {
			t.Errorf("expected ErrBackendOpen on double open, got %v", err)
		}

		if err := backend.Close(); err != nil {
			t.Errorf("failed to close backend: %v", err)
		}

		if backend.IsOpen() {
			t.Error("backend should not be open after Close()")
		}

		if err := backend.Close(); !errors.Is(err, recordstore.ErrBackendClosed) {
			t.Errorf("expected ErrBackendClosed on double close, got %v", err)
		}
	})

	t.Run("PutAndGet", func(t *testing.T) {
		backend := openMemoryBackend(t)
		defer backend.Close()

		value := []byte("envelope bytes")
		if status := backend.Put(42, value); status != recordstore.OK {
			t.Fatalf("failed to store value: %v", status)
		}

		fetched, status := backend.Get(42)
		if status != recordstore.OK {
			t.Fatalf("failed to fetch value: %v", status)
		}
		if string(fetched) != string(value) {
			t.Errorf("fetched value %q doesn't match stored %q", fetched, value)
		}
	})

	t.Run("GetReturnsCopy", func(t *testing.T) {
		backend := openMemoryBackend(t)
		defer backend.Close()

		backend.Put(1, []byte{1, 2, 3})

		first, _ := backend.Get(1)
		first[0] = 0xFF

		second, _ := backend.Get(1)
		if second[0] != 1 {
			t.Error("mutating a fetched value changed the stored value")
		}
	})

	t.Run("GetNotFound", func(t *testing.T) {
		backend := openMemoryBackend(t)
		defer backend.Close()

		value, status := backend.Get(999)
		if status != recordstore.NotFound {
			t.Errorf("expected NotFound, got %v", status)
		}
		if value != nil {
			t.Error("expected nil value for missing height")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		backend := openMemoryBackend(t)
		defer backend.Close()

		backend.Put(7, []byte("doomed"))
		if status := backend.Delete(7); status != recordstore.OK {
			t.Fatalf("failed to delete: %v", status)
		}
		if _, status := backend.Get(7); status != recordstore.NotFound {
			t.Errorf("expected NotFound after delete, got %v", status)
		}

		// Deleting a missing height is not an error.
		if status := backend.Delete(7); status != recordstore.OK {
			t.Errorf("expected OK deleting missing height, got %v", status)
		}
	})

	t.Run("ForEachAscending", func(t *testing.T) {
		backend := openMemoryBackend(t)
		defer backend.Close()

		for _, h := range []uint64{30, 10, 20, 5} {
			backend.Put(h, []byte(fmt.Sprintf("value-%d", h)))
		}

		var visited []uint64
		err := backend.ForEach(func(height uint64, value []byte) error {
			visited = append(visited, height)
			if string(value) != fmt.Sprintf("value-%d", height) {
				t.Errorf("height %d carries wrong value %q", height, value)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("ForEach returned error: %v", err)
		}

		want := []uint64{5, 10, 20, 30}
		if len(visited) != len(want) {
			t.Fatalf("expected %d heights, visited %d", len(want), len(visited))
		}
		for i := range want {
			if visited[i] != want[i] {
				t.Errorf("position %d: expected height %d, got %d", i, want[i], visited[i])
			}
		}
	})

	t.Run("ForEachStopsOnError", func(t *testing.T) {
		backend := openMemoryBackend(t)
		defer backend.Close()

		for h := uint64(1); h <= 5; h++ {
			backend.Put(h, []byte("x"))
		}

		boom := errors.New("stop")
		count := 0
		err := backend.ForEach(func(uint64, []byte) error {
			count++
			if count == 3 {
				return boom
			}
			return nil
		})
		if !errors.Is(err, boom) {
			t.Errorf("expected callback error, got %v", err)
		}
		if count != 3 {
			t.Errorf("expected 3 visits, got %d", count)
		}
	})

	t.Run("ClosedOperations", func(t *testing.T) {
		backend := openMemoryBackend(t)
		backend.Close()

		if _, status := backend.Get(1); status != recordstore.BackendError {
			t.Error("Get on closed backend should report BackendError")
		}
		if status := backend.Put(1, []byte("x")); status != recordstore.BackendError {
			t.Error("Put on closed backend should report BackendError")
		}
		if status := backend.Sync(); status != recordstore.BackendError {
			t.Error("Sync on closed backend should report BackendError")
		}
		if err := backend.ForEach(func(uint64, []byte) error { return nil }); !errors.Is(err, recordstore.ErrBackendClosed) {
			t.Errorf("ForEach on closed backend should fail, got %v", err)
		}
	})

	t.Run("CloseClearsData", func(t *testing.T) {
		backend := openMemoryBackend(t)

		backend.Put(1, []byte("ephemeral"))
		backend.Close()

		if err := backend.Open(true); err != nil {
			t.Fatalf("failed to reopen backend: %v", err)
		}
		defer backend.Close()

		if _, status := backend.Get(1); status != recordstore.NotFound {
			t.Error("reopened memory backend should be empty")
		}
	})

	t.Run("ConcurrentAccess", func(t *testing.T) {
		backend := openMemoryBackend(t)
		defer backend.Close()

		const goroutines = 10
		const opsPerGoroutine = 100

		var wg sync.WaitGroup
		wg.Add(goroutines)

		for g := 0; g < goroutines; g++ {
			go func(id int) {
				defer wg.Done()

				for i := 0; i < opsPerGoroutine; i++ {
					height := uint64(id*opsPerGoroutine + i)
					backend.Put(height, []byte{byte(id), byte(i)})
					backend.Get(height)
					backend.Delete(height / 2)
				}
			}(g)
		}

		wg.Wait()

		if status := backend.Sync(); status != recordstore.OK {
			t.Errorf("backend left inconsistent: %v", status)
		}
	})
}

func TestBackendRegistry(t *testing.T) {
	for _, name := range []string{"memory", "pebble", "leveldb"} {
		if !recordstore.IsBackendAvailable(name) {
			t.Errorf("backend %q should be registered", name)
		}
	}

	available := recordstore.AvailableBackends()
	if len(available) < 3 {
		t.Errorf("expected at least 3 registered backends, got %v", available)
	}

	_, err := recordstore.CreateBackend(recordstore.Options{Type: "flat-file"})
	if !errors.Is(err, recordstore.ErrUnknownBackend) {
		t.Errorf("expected ErrUnknownBackend, got %v", err)
	}

	for _, name := range []string{"pebble", "leveldb"} {
		if _, err := recordstore.CreateBackend(recordstore.Options{Type: name}); err == nil {
			t.Errorf("%s backend without a path should fail to build", name)
		}
	}
}
