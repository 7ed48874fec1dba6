package remote_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"wsync-go/internal/remote"
	"wsync-go/internal/ws"
)

// each RemoteStore implementation must pass the same behavioral suite.
func remotesUnderTest(t *testing.T) map[string]ws.RemoteStore {
	t.Helper()
	fs, err := remote.NewFileSystemStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemStore() failed: %v", err)
	}
	return map[string]ws.RemoteStore{
		"memory":     remote.NewMemoryStore(),
		"filesystem": fs,
	}
}

func TestRemoteStore_PutGet(t *testing.T) {
	ctx := context.Background()
	for name, s := range remotesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			payload := `{"schema_version": 1}`
			err := s.PutSnapshot(ctx, "u1", strings.NewReader(payload), int64(len(payload)))
			if err != nil {
				t.Fatalf("PutSnapshot() failed: %v", err)
			}

			var buf bytes.Buffer
			if err := s.GetLatestSnapshot(ctx, "u1", &buf); err != nil {
				t.Fatalf("GetLatestSnapshot() failed: %v", err)
			}
			if got := buf.String(); got != payload {
				t.Errorf("snapshot = %q, want %q", got, payload)
			}
		})
	}
}

func TestRemoteStore_PutReplacesPrevious(t *testing.T) {
	ctx := context.Background()
	for name, s := range remotesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			for _, payload := range []string{"first", "second"} {
				if err := s.PutSnapshot(ctx, "u1", strings.NewReader(payload), int64(len(payload))); err != nil {
					t.Fatalf("PutSnapshot(%q) failed: %v", payload, err)
				}
			}

			var buf bytes.Buffer
			if err := s.GetLatestSnapshot(ctx, "u1", &buf); err != nil {
				t.Fatalf("GetLatestSnapshot() failed: %v", err)
			}
			if got := buf.String(); got != "second" {
				t.Errorf("snapshot = %q, want latest %q", got, "second")
			}
		})
	}
}

func TestRemoteStore_MissingSnapshot(t *testing.T) {
	ctx := context.Background()
	for name, s := range remotesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			err := s.GetLatestSnapshot(ctx, "nobody", &buf)
			if !errors.Is(err, ws.ErrNoSnapshot) {
				t.Errorf("err = %v, want ErrNoSnapshot", err)
			}
		})
	}
}

func TestRemoteStore_SizeMismatch(t *testing.T) {
	ctx := context.Background()
	for name, s := range remotesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			err := s.PutSnapshot(ctx, "u1", strings.NewReader("short"), 999)
			if err == nil {
				t.Fatal("PutSnapshot() with wrong size succeeded, want error")
			}

			// A failed put must not clobber an absent or previous snapshot.
			var buf bytes.Buffer
			if err := s.GetLatestSnapshot(ctx, "u1", &buf); !errors.Is(err, ws.ErrNoSnapshot) {
				t.Errorf("err after failed put = %v, want ErrNoSnapshot", err)
			}
		})
	}
}

func TestRemoteStore_UsersAreIsolated(t *testing.T) {
	ctx := context.Background()
	for name, s := range remotesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.PutSnapshot(ctx, "u1", strings.NewReader("u1 data"), 7); err != nil {
				t.Fatalf("PutSnapshot() failed: %v", err)
			}

			var buf bytes.Buffer
			if err := s.GetLatestSnapshot(ctx, "u2", &buf); !errors.Is(err, ws.ErrNoSnapshot) {
				t.Errorf("u2 snapshot err = %v, want ErrNoSnapshot", err)
			}
		})
	}
}

func TestRemoteStore_Validate(t *testing.T) {
	ctx := context.Background()
	for name, s := range remotesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Validate(ctx); err != nil {
				t.Errorf("Validate() failed: %v", err)
			}
		})
	}
}
