package ws

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wsync-go/internal/model"
)

// DefaultDebounceDelay is the quiet window for routine-edit backups.
const DefaultDebounceDelay = 2 * time.Second

// Service is the consumer-facing surface over the record store. It owns
// validation, the contamination guard, activity bumps, change events and
// backup triggers. Storage errors (validation, not found) propagate to the
// caller; backup outcomes never do.
type Service struct {
	store       Store
	scheduler   *Scheduler
	coordinator *Coordinator
	bus         *Bus
	clock       Clock
	idgen       IDGenerator
	logger      Logger
	notifier    Notifier
	debounce    time.Duration
}

func NewService(store Store, scheduler *Scheduler, coordinator *Coordinator, bus *Bus, clock Clock, idgen IDGenerator, logger Logger, notifier Notifier, debounce time.Duration) *Service {
	if debounce <= 0 {
		debounce = DefaultDebounceDelay
	}
	return &Service{
		store:       store,
		scheduler:   scheduler,
		coordinator: coordinator,
		bus:         bus,
		clock:       clock,
		idgen:       idgen,
		logger:      logger,
		notifier:    notifier,
		debounce:    debounce,
	}
}

// Bus exposes the files-changed event channel for view subscriptions.
func (s *Service) Bus() *Bus { return s.bus }

// Workspace operations

// CreateWorkspaceRequest carries the caller-supplied workspace fields.
type CreateWorkspaceRequest struct {
	OwnerID     string
	Name        string
	Description string
}

// CreateWorkspace creates a workspace, suppresses automatic restore for the
// session's cool-down window, and pushes an instant backup. The suppression
// must land before anything else: the new project's files are not in any
// remote snapshot yet, and a racing restore would erase them.
func (s *Service) CreateWorkspace(ctx context.Context, req CreateWorkspaceRequest) (*model.Workspace, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if req.OwnerID == "" {
		return nil, &ValidationError{Field: "owner_id", Reason: "must not be empty"}
	}

	s.coordinator.Suppress()

	wsSlug, err := workspaceSlug(ctx, s.store, req.OwnerID, req.Name)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	w := &model.Workspace{
		ID:           s.idgen.New(),
		OwnerID:      req.OwnerID,
		Name:         req.Name,
		Description:  req.Description,
		Slug:         wsSlug,
		DeployStatus: model.DeployNone,
		CreatedAt:    now,
		LastActivity: now,
	}
	if err := s.store.CreateWorkspace(ctx, w); err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}

	s.logger.Info("workspace created", "workspace", w.ID, "slug", w.Slug)
	s.scheduler.TriggerInstant("workspace created")
	return w, nil
}

// UpdateWorkspace merges the given fields into an existing workspace.
func (s *Service) UpdateWorkspace(ctx context.Context, id string, upd WorkspaceUpdate) error {
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if upd.DeployStatus != nil && !upd.DeployStatus.Valid() {
		return &ValidationError{Field: "deploy_status", Reason: "unknown status"}
	}
	if err := s.store.UpdateWorkspace(ctx, id, upd); err != nil {
		return err
	}
	s.scheduler.TriggerInstant("workspace updated")
	return nil
}

// SetDeployment records the outcome of an external deployment.
func (s *Service) SetDeployment(ctx context.Context, id string, status model.DeployStatus, url string) error {
	return s.UpdateWorkspace(ctx, id, WorkspaceUpdate{DeployStatus: &status, DeployURL: &url})
}

// Workspaces lists all workspaces owned by the user.
func (s *Service) Workspaces(ctx context.Context, ownerID string) ([]*model.Workspace, error) {
	return s.store.GetWorkspaces(ctx, ownerID)
}

// Workspace fetches a single workspace by id.
func (s *Service) Workspace(ctx context.Context, id string) (*model.Workspace, error) {
	w, err := s.store.GetWorkspace(ctx, id)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, &NotFoundError{Kind: "workspace", Key: id}
	}
	return w, nil
}

// DeleteWorkspace removes a workspace and every file it owns. The store
// contract does not cascade, so files go first; if the second step fails
// the workspace record survives with no files, which is retryable and
// never leaves orphaned file records behind.
func (s *Service) DeleteWorkspace(ctx context.Context, id string) error {
	w, err := s.Workspace(ctx, id)
	if err != nil {
		return err
	}

	files, err := s.store.GetFiles(ctx, id)
	if err != nil {
		return fmt.Errorf("listing files for delete: %w", err)
	}
	for _, f := range files {
		if err := s.store.DeleteFile(ctx, id, f.Path); err != nil {
			return fmt.Errorf("deleting file %q: %w", f.Path, err)
		}
	}
	if err := s.store.DeleteWorkspace(ctx, id); err != nil {
		return fmt.Errorf("deleting workspace: %w", err)
	}

	s.logger.Info("workspace deleted", "workspace", id, "slug", w.Slug, "files", len(files))
	s.bus.Publish(FilesChanged{WorkspaceID: id})
	s.scheduler.TriggerInstant("workspace deleted")
	return nil
}

// File operations

// CreateFileRequest carries the caller-supplied file fields.
type CreateFileRequest struct {
	WorkspaceID string
	Path        string
	Content     string
	IsDirectory bool
}

// CreateFile creates a file or folder record. Duplicate paths within the
// workspace fail with a ValidationError, never a silent overwrite.
func (s *Service) CreateFile(ctx context.Context, req CreateFileRequest) (*model.File, error) {
	path, err := normalizePath(req.Path)
	if err != nil {
		return nil, err
	}

	if existing, err := s.store.GetFile(ctx, req.WorkspaceID, path); err != nil {
		return nil, fmt.Errorf("checking path: %w", err)
	} else if existing != nil {
		return nil, &ValidationError{Field: "path", Reason: fmt.Sprintf("%q already exists in workspace", path)}
	}

	now := s.clock.Now().UTC()
	f := &model.File{
		ID:          s.idgen.New(),
		WorkspaceID: req.WorkspaceID,
		Path:        path,
		Name:        baseName(path),
		Content:     req.Content,
		Size:        int64(len(req.Content)),
		IsDirectory: req.IsDirectory,
		FileType:    ClassifyFile(path, req.IsDirectory),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.IsDirectory {
		f.Content = ""
		f.Size = 0
	}

	if err := s.store.CreateFile(ctx, f); err != nil {
		return nil, err
	}

	s.afterFileMutation(ctx, req.WorkspaceID)
	s.scheduler.TriggerInstant("file created")
	return f, nil
}

// UpdateFileContent replaces a file's content. Routine edits are the one
// mutation that rides the debounced backup path.
func (s *Service) UpdateFileContent(ctx context.Context, workspaceID, path, content string) error {
	size := int64(len(content))
	err := s.store.UpdateFile(ctx, workspaceID, path, FileUpdate{Content: &content, Size: &size})
	if err != nil {
		return err
	}

	s.afterFileMutation(ctx, workspaceID)
	s.scheduler.ScheduleDebounced("file edited", s.debounce)
	return nil
}

// RenameFile moves a record to a new path (in-place path rewrite). Renaming
// a folder rewrites every descendant's path by prefix in the same logical
// operation. A folder can never be moved into its own subtree: the rewrite
// would fold the folder into itself.
func (s *Service) RenameFile(ctx context.Context, workspaceID, oldPath, newPath string) error {
	newPath, err := normalizePath(newPath)
	if err != nil {
		return err
	}

	f, err := s.store.GetFile(ctx, workspaceID, oldPath)
	if err != nil {
		return fmt.Errorf("loading file: %w", err)
	}
	if f == nil {
		return &NotFoundError{Kind: "file", Key: oldPath}
	}

	if f.IsDirectory && strings.HasPrefix(newPath+"/", oldPath+"/") {
		return &ValidationError{Field: "path", Reason: fmt.Sprintf("cannot move folder %q inside itself", oldPath)}
	}

	if existing, err := s.store.GetFile(ctx, workspaceID, newPath); err != nil {
		return fmt.Errorf("checking target path: %w", err)
	} else if existing != nil {
		return &ValidationError{Field: "path", Reason: fmt.Sprintf("%q already exists in workspace", newPath)}
	}

	// Snapshot the descendant set before any record moves; a refetch after
	// the folder record changed paths would see the moved record itself.
	var descendants []*model.File
	if f.IsDirectory {
		all, err := s.files(ctx, workspaceID)
		if err != nil {
			return err
		}
		for _, d := range all {
			if strings.HasPrefix(d.Path, oldPath+"/") {
				descendants = append(descendants, d)
			}
		}
	}

	newName := baseName(newPath)
	if err := s.store.UpdateFile(ctx, workspaceID, oldPath, FileUpdate{Path: &newPath, Name: &newName}); err != nil {
		return err
	}

	for _, d := range descendants {
		rewritten := newPath + strings.TrimPrefix(d.Path, oldPath)
		name := baseName(rewritten)
		if err := s.store.UpdateFile(ctx, workspaceID, d.Path, FileUpdate{Path: &rewritten, Name: &name}); err != nil {
			return fmt.Errorf("moving %q: %w", d.Path, err)
		}
	}

	s.afterFileMutation(ctx, workspaceID)
	s.scheduler.TriggerInstant("file renamed")
	return nil
}

// DeleteFile removes one file record. Deleting a folder removes every
// descendant by path-prefix match in the same logical operation.
func (s *Service) DeleteFile(ctx context.Context, workspaceID, path string) error {
	f, err := s.store.GetFile(ctx, workspaceID, path)
	if err != nil {
		return fmt.Errorf("loading file: %w", err)
	}
	if f == nil {
		return &NotFoundError{Kind: "file", Key: path}
	}

	if f.IsDirectory {
		files, err := s.files(ctx, workspaceID)
		if err != nil {
			return err
		}
		for _, desc := range files {
			if strings.HasPrefix(desc.Path, path+"/") {
				if err := s.store.DeleteFile(ctx, workspaceID, desc.Path); err != nil {
					return fmt.Errorf("deleting %q: %w", desc.Path, err)
				}
			}
		}
	}

	if err := s.store.DeleteFile(ctx, workspaceID, path); err != nil {
		return err
	}

	s.afterFileMutation(ctx, workspaceID)
	s.scheduler.TriggerInstant("file deleted")
	return nil
}

// Files returns the workspace's file records, passed through the
// contamination guard. A corrupted read yields a degraded-but-correct view
// (offenders filtered, one warning), never an error and never another
// workspace's files.
func (s *Service) Files(ctx context.Context, workspaceID string) ([]*model.File, error) {
	return s.files(ctx, workspaceID)
}

func (s *Service) files(ctx context.Context, workspaceID string) ([]*model.File, error) {
	raw, err := s.store.GetFiles(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("fetching files: %w", err)
	}

	clean, dropped := FilterContaminated(raw, workspaceID)
	if len(dropped) > 0 {
		s.logger.Warn("contaminated file records filtered",
			"workspace", workspaceID, "dropped", len(dropped),
			"sample", contaminationSample(dropped))
		s.notifier.Notify("warning", fmt.Sprintf("filtered %d foreign file records from workspace view", len(dropped)))
	}
	return clean, nil
}

// Tree returns the workspace's guarded file set as a display tree.
func (s *Service) Tree(ctx context.Context, workspaceID string, expanded map[string]bool) ([]*TreeNode, error) {
	files, err := s.files(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	return BuildTree(files, expanded), nil
}

// afterFileMutation bumps workspace activity and broadcasts the change.
// The activity bump is best-effort: a failed bump must not fail the
// mutation that already committed.
func (s *Service) afterFileMutation(ctx context.Context, workspaceID string) {
	if err := s.store.TouchWorkspace(ctx, workspaceID, s.clock.Now().UTC()); err != nil {
		s.logger.Warn("activity bump failed", "workspace", workspaceID, "error", err)
	}
	s.bus.Publish(FilesChanged{WorkspaceID: workspaceID})
}

// normalizePath validates and canonicalizes a slash-delimited record path.
func normalizePath(p string) (string, error) {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return "", &ValidationError{Field: "path", Reason: "must not be empty"}
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "" {
			return "", &ValidationError{Field: "path", Reason: "empty path segment"}
		}
		if seg == "." || seg == ".." {
			return "", &ValidationError{Field: "path", Reason: "relative path segments are not allowed"}
		}
	}
	return p, nil
}
