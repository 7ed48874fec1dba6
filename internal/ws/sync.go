package ws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"wsync-go/internal/model"
)

// CloudSync serializes local state into snapshots, uploads them, and on the
// inverse path replaces local state from the latest remote snapshot. Both
// operations report success as a boolean and never let an error escape past
// this boundary: local state stays authoritative when the cloud is down.
type CloudSync struct {
	store     Store
	remote    RemoteStore
	gate      SyncGate
	encryptor Encryptor // nil means snapshots are stored in the clear
	clock     Clock
	logger    Logger
	notifier  Notifier
}

func NewCloudSync(store Store, remote RemoteStore, gate SyncGate, encryptor Encryptor, clock Clock, logger Logger, notifier Notifier) *CloudSync {
	return &CloudSync{
		store:     store,
		remote:    remote,
		gate:      gate,
		encryptor: encryptor,
		clock:     clock,
		logger:    logger,
		notifier:  notifier,
	}
}

// IsSyncEnabled reports whether cloud sync is available for the user.
// Gate lookup failures read as disabled.
func (c *CloudSync) IsSyncEnabled(ctx context.Context, userID string) bool {
	enabled, err := c.gate.IsSyncEnabled(ctx, userID)
	if err != nil {
		c.logger.Warn("sync capability check failed", "user", userID, "error", err)
		return false
	}
	return enabled
}

// Upload serializes all workspaces and files for userID into a snapshot and
// pushes it to the remote store. Idempotent: it always serializes current
// state, so redundant or reordered uploads are safe.
func (c *CloudSync) Upload(ctx context.Context, userID string) bool {
	if !c.IsSyncEnabled(ctx, userID) {
		c.logger.Debug("upload skipped, sync disabled", "user", userID)
		return false
	}

	if err := c.upload(ctx, userID); err != nil {
		fail := &SyncFailure{Op: "upload", Err: err}
		c.logger.Warn("snapshot upload failed", "user", userID, "error", err)
		c.notifier.Notify("warning", fail.Error())
		return false
	}
	return true
}

func (c *CloudSync) upload(ctx context.Context, userID string) error {
	workspaces, files, err := c.store.GetAllForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("serializing local state: %w", err)
	}
	// Empty slices, not nil: the snapshot schema wants arrays, and a user
	// with no data still produces a restorable snapshot.
	if workspaces == nil {
		workspaces = []*model.Workspace{}
	}
	if files == nil {
		files = []*model.File{}
	}

	snap := &model.Snapshot{
		SchemaVersion: model.SnapshotSchemaVersion,
		UserID:        userID,
		CreatedAt:     c.clock.Now().UTC(),
		Workspaces:    workspaces,
		Files:         files,
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	payload := raw
	if c.encryptor != nil {
		var buf bytes.Buffer
		if err := c.encryptor.Encrypt(bytes.NewReader(raw), &buf); err != nil {
			return fmt.Errorf("encrypting snapshot: %w", err)
		}
		payload = buf.Bytes()
	}

	if err := c.remote.PutSnapshot(ctx, userID, bytes.NewReader(payload), int64(len(payload))); err != nil {
		return fmt.Errorf("uploading snapshot: %w", err)
	}

	c.logger.Info("snapshot uploaded", "user", userID,
		"workspaces", len(workspaces), "files", len(files), "bytes", len(payload))
	return nil
}

// Restore fetches the latest remote snapshot for userID and replaces local
// state with it wholesale. There is no merge: local unsynced changes are
// lost, which is why the restore coordinator's suppression window exists.
// A missing remote snapshot is a no-op success.
func (c *CloudSync) Restore(ctx context.Context, userID string) bool {
	if !c.IsSyncEnabled(ctx, userID) {
		c.logger.Debug("restore skipped, sync disabled", "user", userID)
		return false
	}

	if err := c.restore(ctx, userID); err != nil {
		if errors.Is(err, ErrNoSnapshot) {
			c.logger.Debug("no remote snapshot, keeping local state", "user", userID)
			return true
		}
		fail := &SyncFailure{Op: "restore", Err: err}
		c.logger.Warn("snapshot restore failed, local state kept", "user", userID, "error", err)
		c.notifier.Notify("warning", fail.Error())
		return false
	}
	return true
}

func (c *CloudSync) restore(ctx context.Context, userID string) error {
	var buf bytes.Buffer
	if err := c.remote.GetLatestSnapshot(ctx, userID, &buf); err != nil {
		return err
	}

	raw := buf.Bytes()
	if c.encryptor != nil {
		var plain bytes.Buffer
		if err := c.encryptor.Decrypt(bytes.NewReader(raw), &plain); err != nil {
			return fmt.Errorf("decrypting snapshot: %w", err)
		}
		raw = plain.Bytes()
	}

	// Validate the document before anything local is touched; a bad
	// snapshot must never get halfway into the destructive replace.
	if err := validateSnapshotJSON(raw); err != nil {
		return err
	}

	var snap model.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return fmt.Errorf("decoding snapshot: %w", err)
	}
	if snap.UserID != userID {
		return fmt.Errorf("snapshot belongs to user %q, requested %q", snap.UserID, userID)
	}

	// The envelope user_id alone is not enough: ReplaceAll scopes its wipe
	// by owner, so a foreign-owned workspace row would be inserted invisibly
	// and never cleaned up by a later restore.
	wsIDs := make(map[string]bool, len(snap.Workspaces))
	for _, w := range snap.Workspaces {
		if w.OwnerID != userID {
			return fmt.Errorf("snapshot workspace %q belongs to user %q, requested %q", w.ID, w.OwnerID, userID)
		}
		wsIDs[w.ID] = true
	}
	for _, f := range snap.Files {
		if !wsIDs[f.WorkspaceID] {
			return fmt.Errorf("snapshot file %q references workspace %q not in the snapshot", f.Path, f.WorkspaceID)
		}
	}

	if err := c.store.ReplaceAll(ctx, userID, snap.Workspaces, snap.Files); err != nil {
		return fmt.Errorf("replacing local state: %w", err)
	}

	c.logger.Info("snapshot restored", "user", userID,
		"workspaces", len(snap.Workspaces), "files", len(snap.Files))
	c.notifier.Notify("info", "workspace data restored from cloud backup")
	return nil
}
