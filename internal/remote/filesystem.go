package remote

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"wsync-go/internal/ws"
)

// FileSystemStore is a filesystem-based implementation of the RemoteStore
// interface, mainly for local development and tests that want durability.
// Layout:
//
//	<root>/
//	  <userID>/
//	    snapshot.json    (latest snapshot, atomically replaced)
type FileSystemStore struct {
	root string
}

// NewFileSystemStore creates a filesystem snapshot store rooted at the
// given path.
func NewFileSystemStore(root string) (*FileSystemStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot root: %w", err)
	}
	return &FileSystemStore{root: root}, nil
}

func (s *FileSystemStore) snapshotPath(userID string) string {
	return filepath.Join(s.root, userID, "snapshot.json")
}

// PutSnapshot stores the snapshot for a user, replacing any previous one.
// The write goes to a temp file first and is renamed into place so a crashed
// upload never leaves a truncated snapshot as "latest".
func (s *FileSystemStore) PutSnapshot(_ context.Context, userID string, r io.Reader, size int64) error {
	destPath := s.snapshotPath(userID)
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create user directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(destPath), "snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	written, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if written != size {
		os.Remove(tmpPath)
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// GetLatestSnapshot retrieves the latest snapshot for a user.
func (s *FileSystemStore) GetLatestSnapshot(_ context.Context, userID string, w io.Writer) error {
	f, err := os.Open(s.snapshotPath(userID))
	if err != nil {
		if os.IsNotExist(err) {
			return ws.ErrNoSnapshot
		}
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	return nil
}

// Validate verifies the snapshot root is accessible and writable.
func (s *FileSystemStore) Validate(context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("snapshot root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("snapshot root is not a directory: %s", s.root)
	}

	probe, err := os.CreateTemp(s.root, ".probe-*")
	if err != nil {
		return fmt.Errorf("snapshot root not writable: %w", err)
	}
	probe.Close()
	os.Remove(probe.Name())
	return nil
}

// Compile-time check that FileSystemStore implements the ws.RemoteStore interface
var _ ws.RemoteStore = (*FileSystemStore)(nil)
