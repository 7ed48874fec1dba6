package ws_test

import (
	"context"
	"testing"
	"time"

	"wsync-go/internal/model"
	"wsync-go/internal/store"
	"wsync-go/internal/testutil"
	"wsync-go/internal/ws"
)

type serviceFixture struct {
	store    *store.MemoryStore
	backups  *backupRecorder
	clock    *testutil.StubClock
	logger   *testutil.CaptureLogger
	notifier *testutil.CaptureNotifier
	coord    *ws.Coordinator
	svc      *ws.Service
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		store:    testutil.NewTestStore(),
		backups:  newBackupRecorder(),
		clock:    testutil.FixedClock(),
		logger:   &testutil.CaptureLogger{},
		notifier: &testutil.CaptureNotifier{},
	}
	scheduler := ws.NewScheduler(f.backups.run, ws.NewNopLogger(), ws.NopNotifier{})
	t.Cleanup(scheduler.Stop)
	f.coord = newTestCoordinator(&testutil.StubGate{Enabled: true}, f.clock)
	f.svc = ws.NewService(f.store, scheduler, f.coord, ws.NewBus(),
		f.clock, testutil.NewStubIDGenerator(), f.logger, f.notifier,
		20*time.Millisecond)
	return f
}

func (f *serviceFixture) createWorkspace(t *testing.T, name string) *model.Workspace {
	t.Helper()
	w, err := f.svc.CreateWorkspace(context.Background(), ws.CreateWorkspaceRequest{
		OwnerID: "u1",
		Name:    name,
	})
	if err != nil {
		t.Fatalf("CreateWorkspace(%q) failed: %v", name, err)
	}
	return w
}

func (f *serviceFixture) createFile(t *testing.T, wsID, path string, dir bool) *model.File {
	t.Helper()
	file, err := f.svc.CreateFile(context.Background(), ws.CreateFileRequest{
		WorkspaceID: wsID,
		Path:        path,
		Content:     "body of " + path,
		IsDirectory: dir,
	})
	if err != nil {
		t.Fatalf("CreateFile(%q) failed: %v", path, err)
	}
	return file
}

func TestService_CreateWorkspace(t *testing.T) {
	ctx := context.Background()

	t.Run("fills derived fields", func(t *testing.T) {
		f := newServiceFixture(t)
		w := f.createWorkspace(t, "My Project")

		if w.ID != "id-1" {
			t.Errorf("ID = %q, want %q", w.ID, "id-1")
		}
		if w.Slug != "my-project" {
			t.Errorf("Slug = %q, want %q", w.Slug, "my-project")
		}
		if w.DeployStatus != model.DeployNone {
			t.Errorf("DeployStatus = %q, want %q", w.DeployStatus, model.DeployNone)
		}
		if !w.CreatedAt.Equal(f.clock.Now()) {
			t.Errorf("CreatedAt = %v, want %v", w.CreatedAt, f.clock.Now())
		}
	})

	t.Run("duplicate name gets a suffixed slug", func(t *testing.T) {
		f := newServiceFixture(t)
		f.createWorkspace(t, "My Project")
		second := f.createWorkspace(t, "My Project")

		if second.Slug != "my-project-2" {
			t.Errorf("Slug = %q, want %q", second.Slug, "my-project-2")
		}
	})

	t.Run("blank name is rejected", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.CreateWorkspace(ctx, ws.CreateWorkspaceRequest{OwnerID: "u1", Name: "   "})
		if !ws.IsValidation(err) {
			t.Errorf("err = %v, want ValidationError", err)
		}
	})

	t.Run("triggers an instant backup and suppresses restore", func(t *testing.T) {
		f := newServiceFixture(t)
		f.createWorkspace(t, "My Project")

		if got := f.backups.waitOne(t); got != "workspace created" {
			t.Errorf("backup reason = %q, want %q", got, "workspace created")
		}
		if got := f.coord.State(); got != ws.StateSuppressed {
			t.Errorf("coordinator state = %v, want %v", got, ws.StateSuppressed)
		}
	})
}

func TestService_UpdateWorkspace(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects unknown deploy status", func(t *testing.T) {
		f := newServiceFixture(t)
		w := f.createWorkspace(t, "My Project")

		bad := model.DeployStatus("shipped")
		err := f.svc.UpdateWorkspace(ctx, w.ID, ws.WorkspaceUpdate{DeployStatus: &bad})
		if !ws.IsValidation(err) {
			t.Errorf("err = %v, want ValidationError", err)
		}
	})

	t.Run("SetDeployment records status and url", func(t *testing.T) {
		f := newServiceFixture(t)
		w := f.createWorkspace(t, "My Project")

		if err := f.svc.SetDeployment(ctx, w.ID, model.DeployDeployed, "https://example.dev"); err != nil {
			t.Fatalf("SetDeployment() failed: %v", err)
		}
		got, err := f.svc.Workspace(ctx, w.ID)
		if err != nil {
			t.Fatalf("Workspace() failed: %v", err)
		}
		if got.DeployStatus != model.DeployDeployed || got.DeployURL != "https://example.dev" {
			t.Errorf("deployment = %q %q, want %q %q",
				got.DeployStatus, got.DeployURL, model.DeployDeployed, "https://example.dev")
		}
	})

	t.Run("missing workspace is a NotFoundError", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.Workspace(ctx, "nope")
		if !ws.IsNotFound(err) {
			t.Errorf("err = %v, want NotFoundError", err)
		}
	})
}

func TestService_DeleteWorkspace(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	w := f.createWorkspace(t, "My Project")
	f.createFile(t, w.ID, "a.txt", false)
	f.createFile(t, w.ID, "docs", true)
	f.createFile(t, w.ID, "docs/b.md", false)

	var events []ws.FilesChanged
	unsub := f.svc.Bus().Subscribe(func(ev ws.FilesChanged) { events = append(events, ev) })
	defer unsub()

	if err := f.svc.DeleteWorkspace(ctx, w.ID); err != nil {
		t.Fatalf("DeleteWorkspace() failed: %v", err)
	}

	if _, err := f.svc.Workspace(ctx, w.ID); !ws.IsNotFound(err) {
		t.Errorf("Workspace() after delete: err = %v, want NotFoundError", err)
	}
	files, err := f.store.GetFiles(ctx, w.ID)
	if err != nil {
		t.Fatalf("GetFiles() failed: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("file count after delete = %d, want 0", len(files))
	}
	if len(events) != 1 || events[0].WorkspaceID != w.ID {
		t.Errorf("events = %v, want one FilesChanged for %q", events, w.ID)
	}
}

func TestService_CreateFile(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate path is rejected, not overwritten", func(t *testing.T) {
		f := newServiceFixture(t)
		w := f.createWorkspace(t, "My Project")
		f.createFile(t, w.ID, "notes.md", false)

		_, err := f.svc.CreateFile(ctx, ws.CreateFileRequest{
			WorkspaceID: w.ID, Path: "notes.md", Content: "other",
		})
		if !ws.IsValidation(err) {
			t.Fatalf("err = %v, want ValidationError", err)
		}
		got, err := f.store.GetFile(ctx, w.ID, "notes.md")
		if err != nil || got == nil {
			t.Fatalf("GetFile() = %v, %v", got, err)
		}
		if got.Content != "body of notes.md" {
			t.Errorf("Content = %q, want original kept", got.Content)
		}
	})

	t.Run("leading and trailing slashes are trimmed", func(t *testing.T) {
		f := newServiceFixture(t)
		w := f.createWorkspace(t, "My Project")
		file := f.createFile(t, w.ID, "/src/main.go/", false)

		if file.Path != "src/main.go" {
			t.Errorf("Path = %q, want %q", file.Path, "src/main.go")
		}
		if file.Name != "main.go" {
			t.Errorf("Name = %q, want %q", file.Name, "main.go")
		}
	})

	t.Run("relative segments are rejected", func(t *testing.T) {
		f := newServiceFixture(t)
		w := f.createWorkspace(t, "My Project")
		for _, p := range []string{"../escape", "a/./b", ""} {
			_, err := f.svc.CreateFile(ctx, ws.CreateFileRequest{WorkspaceID: w.ID, Path: p})
			if !ws.IsValidation(err) {
				t.Errorf("CreateFile(%q): err = %v, want ValidationError", p, err)
			}
		}
	})

	t.Run("folders carry no content", func(t *testing.T) {
		f := newServiceFixture(t)
		w := f.createWorkspace(t, "My Project")
		dir := f.createFile(t, w.ID, "docs", true)

		if dir.Content != "" || dir.Size != 0 {
			t.Errorf("folder content/size = %q/%d, want empty", dir.Content, dir.Size)
		}
		if dir.FileType != model.FileTypeFolder {
			t.Errorf("FileType = %q, want %q", dir.FileType, model.FileTypeFolder)
		}
	})

	t.Run("bumps workspace activity", func(t *testing.T) {
		f := newServiceFixture(t)
		w := f.createWorkspace(t, "My Project")

		f.clock.Advance(time.Minute)
		f.createFile(t, w.ID, "a.txt", false)

		got, err := f.svc.Workspace(ctx, w.ID)
		if err != nil {
			t.Fatalf("Workspace() failed: %v", err)
		}
		if !got.LastActivity.Equal(f.clock.Now().UTC()) {
			t.Errorf("LastActivity = %v, want %v", got.LastActivity, f.clock.Now().UTC())
		}
	})
}

func TestService_UpdateFileContent(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	w := f.createWorkspace(t, "My Project")
	f.createFile(t, w.ID, "notes.md", false)
	f.backups.waitOne(t) // workspace created
	f.backups.waitOne(t) // file created

	if err := f.svc.UpdateFileContent(ctx, w.ID, "notes.md", "v2"); err != nil {
		t.Fatalf("UpdateFileContent() failed: %v", err)
	}
	if err := f.svc.UpdateFileContent(ctx, w.ID, "notes.md", "v3"); err != nil {
		t.Fatalf("UpdateFileContent() failed: %v", err)
	}

	// Both edits coalesce into one debounced backup.
	if got := f.backups.waitOne(t); got != "file edited" {
		t.Errorf("backup reason = %q, want %q", got, "file edited")
	}
	time.Sleep(60 * time.Millisecond)
	if got := f.backups.count(); got != 3 {
		t.Errorf("backup count = %d, want 3", got)
	}

	file, err := f.store.GetFile(ctx, w.ID, "notes.md")
	if err != nil || file == nil {
		t.Fatalf("GetFile() = %v, %v", file, err)
	}
	if file.Content != "v3" || file.Size != 2 {
		t.Errorf("content/size = %q/%d, want %q/2", file.Content, file.Size, "v3")
	}
}

func TestService_RenameFile(t *testing.T) {
	ctx := context.Background()

	t.Run("renaming a folder moves descendants", func(t *testing.T) {
		f := newServiceFixture(t)
		w := f.createWorkspace(t, "My Project")
		f.createFile(t, w.ID, "docs", true)
		f.createFile(t, w.ID, "docs/a.md", false)
		f.createFile(t, w.ID, "docs/sub", true)
		f.createFile(t, w.ID, "docs/sub/b.md", false)
		f.createFile(t, w.ID, "docs-other.txt", false)

		if err := f.svc.RenameFile(ctx, w.ID, "docs", "manual"); err != nil {
			t.Fatalf("RenameFile() failed: %v", err)
		}

		for _, want := range []string{"manual", "manual/a.md", "manual/sub", "manual/sub/b.md", "docs-other.txt"} {
			got, err := f.store.GetFile(ctx, w.ID, want)
			if err != nil || got == nil {
				t.Errorf("GetFile(%q) = %v, %v; want present", want, got, err)
			}
		}
		if got, _ := f.store.GetFile(ctx, w.ID, "docs/a.md"); got != nil {
			t.Errorf("old path %q still present", "docs/a.md")
		}
	})

	t.Run("folder cannot move into its own subtree", func(t *testing.T) {
		f := newServiceFixture(t)
		w := f.createWorkspace(t, "My Project")
		f.createFile(t, w.ID, "docs", true)
		f.createFile(t, w.ID, "docs/a.md", false)

		// "docs" -> "docs/x" would fold the folder into itself; the fresh
		// target path must not slip past the occupied-target check.
		err := f.svc.RenameFile(ctx, w.ID, "docs", "docs/x")
		if !ws.IsValidation(err) {
			t.Fatalf("err = %v, want ValidationError", err)
		}

		for _, p := range []string{"docs", "docs/a.md"} {
			if got, err := f.store.GetFile(ctx, w.ID, p); err != nil || got == nil {
				t.Errorf("GetFile(%q) = %v, %v; want record unchanged", p, got, err)
			}
		}
		for _, p := range []string{"docs/x", "docs/x/x", "docs/x/a.md"} {
			if got, _ := f.store.GetFile(ctx, w.ID, p); got != nil {
				t.Errorf("unexpected record at %q after rejected rename", p)
			}
		}

		if err := f.svc.RenameFile(ctx, w.ID, "docs", "docs"); !ws.IsValidation(err) {
			t.Errorf("rename onto itself: err = %v, want ValidationError", err)
		}
	})

	t.Run("occupied target path is rejected", func(t *testing.T) {
		f := newServiceFixture(t)
		w := f.createWorkspace(t, "My Project")
		f.createFile(t, w.ID, "a.txt", false)
		f.createFile(t, w.ID, "b.txt", false)

		err := f.svc.RenameFile(ctx, w.ID, "a.txt", "b.txt")
		if !ws.IsValidation(err) {
			t.Errorf("err = %v, want ValidationError", err)
		}
	})

	t.Run("missing source is a NotFoundError", func(t *testing.T) {
		f := newServiceFixture(t)
		w := f.createWorkspace(t, "My Project")

		err := f.svc.RenameFile(ctx, w.ID, "ghost.txt", "real.txt")
		if !ws.IsNotFound(err) {
			t.Errorf("err = %v, want NotFoundError", err)
		}
	})
}

func TestService_DeleteFile(t *testing.T) {
	ctx := context.Background()

	t.Run("deleting a folder removes descendants only", func(t *testing.T) {
		f := newServiceFixture(t)
		w := f.createWorkspace(t, "My Project")
		f.createFile(t, w.ID, "docs", true)
		f.createFile(t, w.ID, "docs/a.md", false)
		f.createFile(t, w.ID, "docs/b.md", false)
		f.createFile(t, w.ID, "docs-other.txt", false)

		if err := f.svc.DeleteFile(ctx, w.ID, "docs"); err != nil {
			t.Fatalf("DeleteFile() failed: %v", err)
		}

		files, err := f.svc.Files(ctx, w.ID)
		if err != nil {
			t.Fatalf("Files() failed: %v", err)
		}
		if len(files) != 1 || files[0].Path != "docs-other.txt" {
			t.Errorf("remaining files = %v, want only docs-other.txt", files)
		}
	})

	t.Run("missing file is a NotFoundError", func(t *testing.T) {
		f := newServiceFixture(t)
		w := f.createWorkspace(t, "My Project")

		err := f.svc.DeleteFile(ctx, w.ID, "ghost.txt")
		if !ws.IsNotFound(err) {
			t.Errorf("err = %v, want NotFoundError", err)
		}
	})
}

func TestService_ContaminationGuard(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	w := f.createWorkspace(t, "My Project")
	f.createFile(t, w.ID, "mine.txt", false)

	// Simulate a store-level bug leaking a foreign record into the bucket.
	f.store.InjectFile(w.ID, &model.File{
		ID:          "foreign-1",
		WorkspaceID: "someone-elses-workspace",
		Path:        "leaked.txt",
		Name:        "leaked.txt",
	})

	files, err := f.svc.Files(ctx, w.ID)
	if err != nil {
		t.Fatalf("Files() failed: %v", err)
	}
	if len(files) != 1 || files[0].Path != "mine.txt" {
		t.Errorf("files = %v, want only mine.txt", files)
	}
	if got := f.logger.WarnCount(); got != 1 {
		t.Errorf("warning count = %d, want 1", got)
	}
	if got := f.notifier.Count(); got != 1 {
		t.Errorf("notification count = %d, want 1", got)
	}
}

func TestService_Tree(t *testing.T) {
	f := newServiceFixture(t)
	w := f.createWorkspace(t, "My Project")
	f.createFile(t, w.ID, "src/main.go", false)
	f.createFile(t, w.ID, "readme.md", false)

	nodes, err := f.svc.Tree(context.Background(), w.ID, map[string]bool{"src": true})
	if err != nil {
		t.Fatalf("Tree() failed: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("root count = %d, want 2", len(nodes))
	}
	if nodes[0].Path != "src" || !nodes[0].Expanded {
		t.Errorf("nodes[0] = %q expanded=%v, want expanded src folder", nodes[0].Path, nodes[0].Expanded)
	}
	if nodes[1].Path != "readme.md" {
		t.Errorf("nodes[1].Path = %q, want %q", nodes[1].Path, "readme.md")
	}
}
