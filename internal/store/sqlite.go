package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"wsync-go/internal/model"
	"wsync-go/internal/store/migrations"
	"wsync-go/internal/ws"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (and migrates) a SQLite record store.
// path can be a file path or ":memory:" for an in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection with appropriate
// PRAGMAs. Exported for tools and tests that need a configured connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// isUniqueViolation reports whether err is a SQLite unique constraint error.
func isUniqueViolation(err error) bool {
	var serr sqlite3.Error
	return errors.As(err, &serr) && serr.ExtendedCode == sqlite3.ErrConstraintUnique
}

const workspaceColumns = "id, owner_id, name, description, slug, pinned, deploy_status, deploy_url, repo_url, created_at, last_activity"

func scanWorkspace(row interface{ Scan(...any) error }) (*model.Workspace, error) {
	var w model.Workspace
	err := row.Scan(&w.ID, &w.OwnerID, &w.Name, &w.Description, &w.Slug, &w.Pinned,
		&w.DeployStatus, &w.DeployURL, &w.RepoURL, &w.CreatedAt, &w.LastActivity)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Workspace operations

func (s *SQLiteStore) CreateWorkspace(ctx context.Context, w *model.Workspace) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO workspaces (`+workspaceColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		w.ID, w.OwnerID, w.Name, w.Description, w.Slug, w.Pinned,
		string(w.DeployStatus), w.DeployURL, w.RepoURL, w.CreatedAt, w.LastActivity)
	if err != nil {
		if isUniqueViolation(err) {
			return &ws.ValidationError{Field: "slug", Reason: "slug already exists for owner"}
		}
		return fmt.Errorf("inserting workspace: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetWorkspace(ctx context.Context, id string) (*model.Workspace, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+workspaceColumns+` FROM workspaces WHERE id = ?`, id)
	w, err := scanWorkspace(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding workspace: %w", err)
	}
	return w, nil
}

func (s *SQLiteStore) GetWorkspaceBySlug(ctx context.Context, ownerID, slug string) (*model.Workspace, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+workspaceColumns+` FROM workspaces WHERE owner_id = ? AND slug = ?`, ownerID, slug)
	w, err := scanWorkspace(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding workspace by slug: %w", err)
	}
	return w, nil
}

func (s *SQLiteStore) GetWorkspaces(ctx context.Context, ownerID string) ([]*model.Workspace, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+workspaceColumns+` FROM workspaces WHERE owner_id = ? ORDER BY last_activity DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing workspaces: %w", err)
	}
	defer rows.Close()

	var out []*model.Workspace
	for rows.Next() {
		w, err := scanWorkspace(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning workspace: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpdateWorkspace(ctx context.Context, id string, upd ws.WorkspaceUpdate) error {
	var sets []string
	var args []any
	if upd.Name != nil {
		sets, args = append(sets, "name = ?"), append(args, *upd.Name)
	}
	if upd.Description != nil {
		sets, args = append(sets, "description = ?"), append(args, *upd.Description)
	}
	if upd.Pinned != nil {
		sets, args = append(sets, "pinned = ?"), append(args, *upd.Pinned)
	}
	if upd.DeployStatus != nil {
		sets, args = append(sets, "deploy_status = ?"), append(args, string(*upd.DeployStatus))
	}
	if upd.DeployURL != nil {
		sets, args = append(sets, "deploy_url = ?"), append(args, *upd.DeployURL)
	}
	if upd.RepoURL != nil {
		sets, args = append(sets, "repo_url = ?"), append(args, *upd.RepoURL)
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	res, err := s.db.ExecContext(ctx,
		`UPDATE workspaces SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("updating workspace: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if n == 0 {
		return &ws.NotFoundError{Kind: "workspace", Key: id}
	}
	return nil
}

func (s *SQLiteStore) TouchWorkspace(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE workspaces SET last_activity = ? WHERE id = ? AND last_activity < ?`, at, id, at)
	if err != nil {
		return fmt.Errorf("touching workspace: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Either unknown id or a non-advancing timestamp; only the former
		// is an error.
		w, err := s.GetWorkspace(ctx, id)
		if err != nil {
			return err
		}
		if w == nil {
			return &ws.NotFoundError{Kind: "workspace", Key: id}
		}
	}
	return nil
}

func (s *SQLiteStore) DeleteWorkspace(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM workspaces WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting workspace: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &ws.NotFoundError{Kind: "workspace", Key: id}
	}
	return nil
}

// File operations

const fileColumns = "id, workspace_id, path, name, content, size, is_directory, file_type, created_at, updated_at"

func scanFile(row interface{ Scan(...any) error }) (*model.File, error) {
	var f model.File
	err := row.Scan(&f.ID, &f.WorkspaceID, &f.Path, &f.Name, &f.Content, &f.Size,
		&f.IsDirectory, &f.FileType, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *SQLiteStore) CreateFile(ctx context.Context, f *model.File) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO files (`+fileColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		f.ID, f.WorkspaceID, f.Path, f.Name, f.Content, f.Size,
		f.IsDirectory, string(f.FileType), f.CreatedAt, f.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return &ws.ValidationError{Field: "path", Reason: "path already exists in workspace"}
		}
		return fmt.Errorf("inserting file: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetFile(ctx context.Context, workspaceID, path string) (*model.File, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE workspace_id = ? AND path = ?`, workspaceID, path)
	f, err := scanFile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding file: %w", err)
	}
	return f, nil
}

func (s *SQLiteStore) GetFiles(ctx context.Context, workspaceID string) ([]*model.File, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE workspace_id = ? ORDER BY path`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	defer rows.Close()

	var out []*model.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning file: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpdateFile(ctx context.Context, workspaceID, path string, upd ws.FileUpdate) error {
	var sets []string
	var args []any
	if upd.Path != nil {
		sets, args = append(sets, "path = ?"), append(args, *upd.Path)
	}
	if upd.Name != nil {
		sets, args = append(sets, "name = ?"), append(args, *upd.Name)
	}
	if upd.Content != nil {
		sets, args = append(sets, "content = ?"), append(args, *upd.Content)
	}
	if upd.Size != nil {
		sets, args = append(sets, "size = ?"), append(args, *upd.Size)
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), workspaceID, path)

	res, err := s.db.ExecContext(ctx,
		`UPDATE files SET `+strings.Join(sets, ", ")+` WHERE workspace_id = ? AND path = ?`, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return &ws.ValidationError{Field: "path", Reason: "path already exists in workspace"}
		}
		return fmt.Errorf("updating file: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if n == 0 {
		return &ws.NotFoundError{Kind: "file", Key: path}
	}
	return nil
}

func (s *SQLiteStore) DeleteFile(ctx context.Context, workspaceID, path string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM files WHERE workspace_id = ? AND path = ?`, workspaceID, path)
	if err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &ws.NotFoundError{Kind: "file", Key: path}
	}
	return nil
}

// Bulk operations

func (s *SQLiteStore) GetAllForUser(ctx context.Context, ownerID string) ([]*model.Workspace, []*model.File, error) {
	workspaces, err := s.GetWorkspaces(ctx, ownerID)
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+fileColumns+` FROM files
		 WHERE workspace_id IN (SELECT id FROM workspaces WHERE owner_id = ?)
		 ORDER BY workspace_id, path`, ownerID)
	if err != nil {
		return nil, nil, fmt.Errorf("listing user files: %w", err)
	}
	defer rows.Close()

	var files []*model.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("scanning file: %w", err)
		}
		files = append(files, f)
	}
	return workspaces, files, rows.Err()
}

// ReplaceAll wipes every record owned by userID and recreates state from the
// given rows, all in one transaction: the restore either lands completely or
// not at all.
func (s *SQLiteStore) ReplaceAll(ctx context.Context, userID string, workspaces []*model.Workspace, files []*model.File) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM files WHERE workspace_id IN (SELECT id FROM workspaces WHERE owner_id = ?)`, userID); err != nil {
		return fmt.Errorf("clearing files: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM workspaces WHERE owner_id = ?`, userID); err != nil {
		return fmt.Errorf("clearing workspaces: %w", err)
	}

	for _, w := range workspaces {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO workspaces (`+workspaceColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
			w.ID, w.OwnerID, w.Name, w.Description, w.Slug, w.Pinned,
			string(w.DeployStatus), w.DeployURL, w.RepoURL, w.CreatedAt, w.LastActivity); err != nil {
			return fmt.Errorf("restoring workspace %s: %w", w.ID, err)
		}
	}
	for _, f := range files {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO files (`+fileColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?)`,
			f.ID, f.WorkspaceID, f.Path, f.Name, f.Content, f.Size,
			f.IsDirectory, string(f.FileType), f.CreatedAt, f.UpdatedAt); err != nil {
			return fmt.Errorf("restoring file %s: %w", f.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Path returns the database file path (or ":memory:").
func (s *SQLiteStore) Path() string { return s.path }

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteStore implements the ws.Store interface
var _ ws.Store = (*SQLiteStore)(nil)
