package ws_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"wsync-go/internal/crypt"
	"wsync-go/internal/model"
	"wsync-go/internal/remote"
	"wsync-go/internal/store"
	"wsync-go/internal/testutil"
	"wsync-go/internal/ws"
)

type syncFixture struct {
	store    *store.MemoryStore
	remote   *remote.MemoryStore
	gate     *testutil.StubGate
	notifier *testutil.CaptureNotifier
	sync     *ws.CloudSync
}

func newSyncFixture(t *testing.T, encryptor ws.Encryptor) *syncFixture {
	t.Helper()
	f := &syncFixture{
		store:    testutil.NewTestStore(),
		remote:   testutil.NewTestRemote(),
		gate:     &testutil.StubGate{Enabled: true},
		notifier: &testutil.CaptureNotifier{},
	}
	f.sync = ws.NewCloudSync(f.store, f.remote, f.gate, encryptor,
		testutil.FixedClock(), ws.NewNopLogger(), f.notifier)
	return f
}

func (f *syncFixture) seedWorkspace(t *testing.T, userID, wsID string, paths ...string) {
	t.Helper()
	ctx := context.Background()
	w := &model.Workspace{
		ID:           wsID,
		OwnerID:      userID,
		Name:         "Workspace " + wsID,
		Slug:         "workspace-" + wsID,
		DeployStatus: model.DeployNone,
	}
	if err := f.store.CreateWorkspace(ctx, w); err != nil {
		t.Fatalf("CreateWorkspace(%q) failed: %v", wsID, err)
	}
	for i, p := range paths {
		file := &model.File{
			ID:          wsID + "-f" + string(rune('a'+i)),
			WorkspaceID: wsID,
			Path:        p,
			Name:        p,
			Content:     "content of " + p,
			FileType:    model.FileTypeText,
		}
		if err := f.store.CreateFile(ctx, file); err != nil {
			t.Fatalf("CreateFile(%q) failed: %v", p, err)
		}
	}
}

func TestCloudSync_UploadRestore(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip replaces local state wholesale", func(t *testing.T) {
		f := newSyncFixture(t, nil)
		f.seedWorkspace(t, "u1", "w1", "readme.md", "src/main.go")

		if !f.sync.Upload(ctx, "u1") {
			t.Fatal("Upload() = false, want true")
		}
		if got := f.remote.PutCount(); got != 1 {
			t.Fatalf("PutCount() = %d, want 1", got)
		}

		// Diverge locally after the upload.
		if err := f.store.DeleteFile(ctx, "w1", "readme.md"); err != nil {
			t.Fatalf("DeleteFile() failed: %v", err)
		}
		f.seedWorkspace(t, "u1", "w2", "scratch.txt")

		if !f.sync.Restore(ctx, "u1") {
			t.Fatal("Restore() = false, want true")
		}

		workspaces, files, err := f.store.GetAllForUser(ctx, "u1")
		if err != nil {
			t.Fatalf("GetAllForUser() failed: %v", err)
		}
		if got := len(workspaces); got != 1 {
			t.Errorf("workspace count after restore = %d, want 1", got)
		}
		if got := len(files); got != 2 {
			t.Errorf("file count after restore = %d, want 2", got)
		}
		readme, err := f.store.GetFile(ctx, "w1", "readme.md")
		if err != nil || readme == nil {
			t.Fatalf("GetFile(readme.md) = %v, %v; want restored file", readme, err)
		}
		if got := readme.Content; got != "content of readme.md" {
			t.Errorf("restored content = %q, want %q", got, "content of readme.md")
		}
	})

	t.Run("upload with no local data still restores cleanly", func(t *testing.T) {
		f := newSyncFixture(t, nil)

		if !f.sync.Upload(ctx, "u1") {
			t.Fatal("Upload() = false, want true")
		}
		if !f.sync.Restore(ctx, "u1") {
			t.Error("Restore() of empty snapshot = false, want true")
		}
	})

	t.Run("missing remote snapshot is a no-op success", func(t *testing.T) {
		f := newSyncFixture(t, nil)
		f.seedWorkspace(t, "u1", "w1", "a.txt")

		if !f.sync.Restore(ctx, "u1") {
			t.Error("Restore() with no snapshot = false, want true")
		}
		if got, err := f.store.GetFile(ctx, "w1", "a.txt"); err != nil || got == nil {
			t.Errorf("local file after no-op restore = %v, %v; want kept", got, err)
		}
	})

	t.Run("gate disabled skips both directions", func(t *testing.T) {
		f := newSyncFixture(t, nil)
		f.gate.Enabled = false
		f.seedWorkspace(t, "u1", "w1", "a.txt")

		if f.sync.Upload(ctx, "u1") {
			t.Error("Upload() with sync disabled = true, want false")
		}
		if got := f.remote.PutCount(); got != 0 {
			t.Errorf("PutCount() = %d, want 0", got)
		}
		if f.sync.Restore(ctx, "u1") {
			t.Error("Restore() with sync disabled = true, want false")
		}
	})
}

func TestCloudSync_RestoreRejects(t *testing.T) {
	ctx := context.Background()

	putRaw := func(t *testing.T, f *syncFixture, userID string, raw []byte) {
		t.Helper()
		if err := f.remote.PutSnapshot(ctx, userID, bytes.NewReader(raw), int64(len(raw))); err != nil {
			t.Fatalf("PutSnapshot() failed: %v", err)
		}
	}

	t.Run("malformed snapshot keeps local state", func(t *testing.T) {
		f := newSyncFixture(t, nil)
		f.seedWorkspace(t, "u1", "w1", "a.txt")
		putRaw(t, f, "u1", []byte(`{"schema_version": 99}`))

		if f.sync.Restore(ctx, "u1") {
			t.Error("Restore() of malformed snapshot = true, want false")
		}
		if got, err := f.store.GetFile(ctx, "w1", "a.txt"); err != nil || got == nil {
			t.Errorf("local file after failed restore = %v, %v; want kept", got, err)
		}
		if got := f.notifier.Count(); got != 1 {
			t.Errorf("notification count = %d, want 1", got)
		}
	})

	t.Run("snapshot for a different user is rejected", func(t *testing.T) {
		f := newSyncFixture(t, nil)
		snap := &model.Snapshot{
			SchemaVersion: model.SnapshotSchemaVersion,
			UserID:        "intruder",
			Workspaces:    []*model.Workspace{},
			Files:         []*model.File{},
		}
		raw, err := json.Marshal(snap)
		if err != nil {
			t.Fatalf("Marshal() failed: %v", err)
		}
		putRaw(t, f, "u1", raw)

		if f.sync.Restore(ctx, "u1") {
			t.Error("Restore() of foreign snapshot = true, want false")
		}
	})

	t.Run("workspace owned by another user is rejected", func(t *testing.T) {
		f := newSyncFixture(t, nil)
		f.seedWorkspace(t, "u1", "w1", "a.txt")
		// Envelope claims u1, but the row inside belongs to someone else.
		snap := &model.Snapshot{
			SchemaVersion: model.SnapshotSchemaVersion,
			UserID:        "u1",
			Workspaces: []*model.Workspace{{
				ID: "w9", OwnerID: "intruder", Name: "Smuggled", Slug: "smuggled",
			}},
			Files: []*model.File{},
		}
		raw, err := json.Marshal(snap)
		if err != nil {
			t.Fatalf("Marshal() failed: %v", err)
		}
		putRaw(t, f, "u1", raw)

		if f.sync.Restore(ctx, "u1") {
			t.Error("Restore() with foreign-owned workspace = true, want false")
		}
		if got, err := f.store.GetFile(ctx, "w1", "a.txt"); err != nil || got == nil {
			t.Errorf("local file after failed restore = %v, %v; want kept", got, err)
		}
		if got, err := f.store.GetWorkspace(ctx, "w9"); err != nil || got != nil {
			t.Errorf("GetWorkspace(w9) = %v, %v; foreign row must not be inserted", got, err)
		}
	})

	t.Run("file referencing a workspace outside the snapshot is rejected", func(t *testing.T) {
		f := newSyncFixture(t, nil)
		snap := &model.Snapshot{
			SchemaVersion: model.SnapshotSchemaVersion,
			UserID:        "u1",
			Workspaces:    []*model.Workspace{},
			Files: []*model.File{{
				ID: "f9", WorkspaceID: "w-elsewhere", Path: "stray.txt", Name: "stray.txt",
			}},
		}
		raw, err := json.Marshal(snap)
		if err != nil {
			t.Fatalf("Marshal() failed: %v", err)
		}
		putRaw(t, f, "u1", raw)

		if f.sync.Restore(ctx, "u1") {
			t.Error("Restore() with stray file = true, want false")
		}
	})

	t.Run("non-JSON payload keeps local state", func(t *testing.T) {
		f := newSyncFixture(t, nil)
		f.seedWorkspace(t, "u1", "w1", "a.txt")
		putRaw(t, f, "u1", []byte("definitely not json"))

		if f.sync.Restore(ctx, "u1") {
			t.Error("Restore() of garbage = true, want false")
		}
		if got, err := f.store.GetFile(ctx, "w1", "a.txt"); err != nil || got == nil {
			t.Errorf("local file after failed restore = %v, %v; want kept", got, err)
		}
	})
}

func TestCloudSync_Encryption(t *testing.T) {
	ctx := context.Background()

	t.Run("encrypted round trip", func(t *testing.T) {
		f := newSyncFixture(t, crypt.NewTestEncryptor())
		f.seedWorkspace(t, "u1", "w1", "secret.txt")

		if !f.sync.Upload(ctx, "u1") {
			t.Fatal("Upload() = false, want true")
		}

		// The remote payload must not be readable as a snapshot document.
		var stored bytes.Buffer
		if err := f.remote.GetLatestSnapshot(ctx, "u1", &stored); err != nil {
			t.Fatalf("GetLatestSnapshot() failed: %v", err)
		}
		var probe model.Snapshot
		if err := json.Unmarshal(stored.Bytes(), &probe); err == nil {
			t.Error("stored payload decoded as plaintext JSON, want ciphertext")
		}

		if err := f.store.DeleteFile(ctx, "w1", "secret.txt"); err != nil {
			t.Fatalf("DeleteFile() failed: %v", err)
		}
		if !f.sync.Restore(ctx, "u1") {
			t.Fatal("Restore() = false, want true")
		}
		if got, err := f.store.GetFile(ctx, "w1", "secret.txt"); err != nil || got == nil {
			t.Errorf("GetFile() after encrypted restore = %v, %v; want file back", got, err)
		}
	})

	t.Run("plaintext snapshot fails decryption and keeps local state", func(t *testing.T) {
		f := newSyncFixture(t, crypt.NewTestEncryptor())
		f.seedWorkspace(t, "u1", "w1", "a.txt")
		raw := []byte(`{"schema_version": 1, "user_id": "u1", "workspaces": [], "files": []}`)
		if err := f.remote.PutSnapshot(ctx, "u1", bytes.NewReader(raw), int64(len(raw))); err != nil {
			t.Fatalf("PutSnapshot() failed: %v", err)
		}

		if f.sync.Restore(ctx, "u1") {
			t.Error("Restore() of unencrypted payload = true, want false")
		}
		if got, err := f.store.GetFile(ctx, "w1", "a.txt"); err != nil || got == nil {
			t.Errorf("local file after failed restore = %v, %v; want kept", got, err)
		}
	})
}
