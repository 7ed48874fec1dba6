package ws

import (
	"context"
	"time"

	"wsync-go/internal/model"
)

// WorkspaceUpdate carries the mutable workspace fields for UpdateWorkspace.
// Nil pointers leave the corresponding field unchanged.
type WorkspaceUpdate struct {
	Name         *string
	Description  *string
	Pinned       *bool
	DeployStatus *model.DeployStatus
	DeployURL    *string
	RepoURL      *string
}

// FileUpdate carries the mutable file fields for UpdateFile.
// Nil pointers leave the corresponding field unchanged.
type FileUpdate struct {
	Path    *string // rename/move: in-place path rewrite
	Name    *string
	Content *string
	Size    *int64
}

// Store is the persistent record store for workspaces and files.
//
// GetFiles must return only records whose stored workspace id equals the
// argument; any deviation is a store-level bug. The service layer still runs
// the contamination guard over every bulk fetch to catch that class of bug
// defensively.
//
// DeleteWorkspace does not cascade: callers delete the workspace's files
// first. Recursive folder deletion is likewise caller-driven by path prefix.
type Store interface {
	// Workspace operations

	CreateWorkspace(ctx context.Context, w *model.Workspace) error
	GetWorkspace(ctx context.Context, id string) (*model.Workspace, error)
	GetWorkspaceBySlug(ctx context.Context, ownerID, slug string) (*model.Workspace, error)
	GetWorkspaces(ctx context.Context, ownerID string) ([]*model.Workspace, error)
	UpdateWorkspace(ctx context.Context, id string, upd WorkspaceUpdate) error
	// TouchWorkspace bumps LastActivity. Implementations must keep it
	// monotonically non-decreasing: an `at` earlier than the stored value
	// is ignored.
	TouchWorkspace(ctx context.Context, id string, at time.Time) error
	DeleteWorkspace(ctx context.Context, id string) error

	// File operations

	CreateFile(ctx context.Context, f *model.File) error
	GetFile(ctx context.Context, workspaceID, path string) (*model.File, error)
	GetFiles(ctx context.Context, workspaceID string) ([]*model.File, error)
	UpdateFile(ctx context.Context, workspaceID, path string, upd FileUpdate) error
	DeleteFile(ctx context.Context, workspaceID, path string) error

	// Bulk operations

	// GetAllForUser returns every workspace the user owns and every file in
	// those workspaces. Used to serialize backup snapshots.
	GetAllForUser(ctx context.Context, ownerID string) ([]*model.Workspace, []*model.File, error)

	// ReplaceAll deletes every record owned by userID and recreates local
	// state from the given rows. This is the restore path's destructive bulk
	// overwrite; implementations should make it as atomic as their backing
	// storage allows.
	ReplaceAll(ctx context.Context, userID string, workspaces []*model.Workspace, files []*model.File) error

	// Close closes the underlying storage.
	Close() error
}
