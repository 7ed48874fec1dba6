package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"wsync-go/internal/ws"
)

// MemoryStore is an in-memory implementation of the RemoteStore interface.
// It keeps the latest snapshot per user in memory, making it useful for
// testing. Safe for concurrent use.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string][]byte // userID -> latest snapshot bytes
	puts      int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string][]byte)}
}

// PutSnapshot stores the snapshot for a user, replacing any previous one.
func (m *MemoryStore) PutSnapshot(_ context.Context, userID string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[userID] = data
	m.puts++
	return nil
}

// GetLatestSnapshot retrieves the latest snapshot for a user.
func (m *MemoryStore) GetLatestSnapshot(_ context.Context, userID string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.snapshots[userID]
	if !ok {
		return ws.ErrNoSnapshot
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// Validate always succeeds for the in-memory store.
func (m *MemoryStore) Validate(context.Context) error { return nil }

// PutCount returns how many snapshots have been stored. Test hook.
func (m *MemoryStore) PutCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts
}

// Compile-time check that MemoryStore implements the ws.RemoteStore interface
var _ ws.RemoteStore = (*MemoryStore)(nil)
