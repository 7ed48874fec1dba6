package model

import "time"

// DeployStatus tracks whether a workspace has been published anywhere.
type DeployStatus string

const (
	DeployNone       DeployStatus = "not_deployed"
	DeployInProgress DeployStatus = "in_progress"
	DeployDeployed   DeployStatus = "deployed"
	DeployFailed     DeployStatus = "failed"
)

// Valid reports whether s is one of the known deployment states.
func (s DeployStatus) Valid() bool {
	switch s {
	case DeployNone, DeployInProgress, DeployDeployed, DeployFailed:
		return true
	}
	return false
}

// Workspace is a user's project and the container for File records.
// OwnerID never changes after creation. LastActivity is bumped by every
// file mutation and is monotonically non-decreasing.
type Workspace struct {
	ID           string       `json:"id"`
	OwnerID      string       `json:"owner_id"`
	Name         string       `json:"name"`
	Description  string       `json:"description,omitempty"`
	Slug         string       `json:"slug"`
	Pinned       bool         `json:"pinned"`
	DeployStatus DeployStatus `json:"deploy_status"`
	DeployURL    string       `json:"deploy_url,omitempty"`
	RepoURL      string       `json:"repo_url,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	LastActivity time.Time    `json:"last_activity"`
}

// FileType classifies a file record for display purposes.
type FileType string

const (
	FileTypeText     FileType = "text"
	FileTypeImage    FileType = "image"
	FileTypeDocument FileType = "document"
	FileTypeFolder   FileType = "folder"
)

// File is a leaf or directory record scoped to one workspace.
// Path is slash-delimited and unique within the workspace; Name is the
// basename. WorkspaceID is never reassigned after creation.
type File struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	Path        string    `json:"path"`
	Name        string    `json:"name"`
	Content     string    `json:"content"`
	Size        int64     `json:"size"`
	IsDirectory bool      `json:"is_directory"`
	FileType    FileType  `json:"file_type"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SnapshotSchemaVersion is the current snapshot wire format version.
const SnapshotSchemaVersion = 1

// Snapshot is a point-in-time export of everything one user owns.
// It is the unit of backup and restore; restore replaces local state
// wholesale, there is no partial or merge restore.
type Snapshot struct {
	SchemaVersion int          `json:"schema_version"`
	UserID        string       `json:"user_id"`
	CreatedAt     time.Time    `json:"created_at"`
	Workspaces    []*Workspace `json:"workspaces"`
	Files         []*File      `json:"files"`
}
