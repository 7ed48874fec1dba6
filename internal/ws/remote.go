package ws

import (
	"context"
	"io"
)

// RemoteStore is the remote object store holding one snapshot per user.
// Uploads overwrite the previous snapshot; the store keeps only the latest.
type RemoteStore interface {
	// PutSnapshot stores the serialized snapshot for a user, replacing any
	// previous one. size is the number of bytes that will be read from r.
	PutSnapshot(ctx context.Context, userID string, r io.Reader, size int64) error

	// GetLatestSnapshot writes the latest stored snapshot for a user to w.
	// Returns ErrNoSnapshot when the user has never uploaded.
	GetLatestSnapshot(ctx context.Context, userID string, w io.Writer) error

	// Validate verifies that the remote store is reachable and properly
	// configured.
	Validate(ctx context.Context) error
}

// SyncGate is the capability check consulted before any cloud operation.
// Typically backed by a plan or feature flag lookup.
type SyncGate interface {
	IsSyncEnabled(ctx context.Context, userID string) (bool, error)
}

// Encryptor optionally wraps snapshots at rest. Encrypt reads plaintext from
// r and writes ciphertext to w; Decrypt is the inverse.
type Encryptor interface {
	Encrypt(r io.Reader, w io.Writer) error
	Decrypt(r io.Reader, w io.Writer) error
}
