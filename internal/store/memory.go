package store

import (
	"context"
	"sync"
	"time"

	"wsync-go/internal/model"
	"wsync-go/internal/ws"
)

// MemoryStore is an in-memory implementation of the Store interface, used by
// tests and the "memory" database config. Safe for concurrent use.
type MemoryStore struct {
	mu         sync.RWMutex
	workspaces map[string]*model.Workspace       // id -> workspace
	files      map[string]map[string]*model.File // workspaceID -> path -> file
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		workspaces: make(map[string]*model.Workspace),
		files:      make(map[string]map[string]*model.File),
	}
}

func cloneWorkspace(w *model.Workspace) *model.Workspace {
	c := *w
	return &c
}

func cloneFile(f *model.File) *model.File {
	c := *f
	return &c
}

func (m *MemoryStore) CreateWorkspace(_ context.Context, w *model.Workspace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w.Name == "" {
		return &ws.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	m.workspaces[w.ID] = cloneWorkspace(w)
	if _, ok := m.files[w.ID]; !ok {
		m.files[w.ID] = make(map[string]*model.File)
	}
	return nil
}

func (m *MemoryStore) GetWorkspace(_ context.Context, id string) (*model.Workspace, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.workspaces[id]
	if !ok {
		return nil, nil
	}
	return cloneWorkspace(w), nil
}

func (m *MemoryStore) GetWorkspaceBySlug(_ context.Context, ownerID, slug string) (*model.Workspace, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, w := range m.workspaces {
		if w.OwnerID == ownerID && w.Slug == slug {
			return cloneWorkspace(w), nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) GetWorkspaces(_ context.Context, ownerID string) ([]*model.Workspace, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Workspace
	for _, w := range m.workspaces {
		if w.OwnerID == ownerID {
			out = append(out, cloneWorkspace(w))
		}
	}
	return out, nil
}

func (m *MemoryStore) UpdateWorkspace(_ context.Context, id string, upd ws.WorkspaceUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workspaces[id]
	if !ok {
		return &ws.NotFoundError{Kind: "workspace", Key: id}
	}
	if upd.Name != nil {
		w.Name = *upd.Name
	}
	if upd.Description != nil {
		w.Description = *upd.Description
	}
	if upd.Pinned != nil {
		w.Pinned = *upd.Pinned
	}
	if upd.DeployStatus != nil {
		w.DeployStatus = *upd.DeployStatus
	}
	if upd.DeployURL != nil {
		w.DeployURL = *upd.DeployURL
	}
	if upd.RepoURL != nil {
		w.RepoURL = *upd.RepoURL
	}
	return nil
}

func (m *MemoryStore) TouchWorkspace(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workspaces[id]
	if !ok {
		return &ws.NotFoundError{Kind: "workspace", Key: id}
	}
	if at.After(w.LastActivity) {
		w.LastActivity = at
	}
	return nil
}

func (m *MemoryStore) DeleteWorkspace(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.workspaces[id]; !ok {
		return &ws.NotFoundError{Kind: "workspace", Key: id}
	}
	delete(m.workspaces, id)
	delete(m.files, id)
	return nil
}

func (m *MemoryStore) CreateFile(_ context.Context, f *model.File) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byPath, ok := m.files[f.WorkspaceID]
	if !ok {
		byPath = make(map[string]*model.File)
		m.files[f.WorkspaceID] = byPath
	}
	if _, exists := byPath[f.Path]; exists {
		return &ws.ValidationError{Field: "path", Reason: "path already exists in workspace"}
	}
	byPath[f.Path] = cloneFile(f)
	return nil
}

func (m *MemoryStore) GetFile(_ context.Context, workspaceID, path string) (*model.File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[workspaceID][path]
	if !ok {
		return nil, nil
	}
	return cloneFile(f), nil
}

func (m *MemoryStore) GetFiles(_ context.Context, workspaceID string) ([]*model.File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.File
	for _, f := range m.files[workspaceID] {
		out = append(out, cloneFile(f))
	}
	return out, nil
}

func (m *MemoryStore) UpdateFile(_ context.Context, workspaceID, path string, upd ws.FileUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byPath := m.files[workspaceID]
	f, ok := byPath[path]
	if !ok {
		return &ws.NotFoundError{Kind: "file", Key: path}
	}
	if upd.Path != nil && *upd.Path != path {
		if _, exists := byPath[*upd.Path]; exists {
			return &ws.ValidationError{Field: "path", Reason: "path already exists in workspace"}
		}
		delete(byPath, path)
		f.Path = *upd.Path
		byPath[f.Path] = f
	}
	if upd.Name != nil {
		f.Name = *upd.Name
	}
	if upd.Content != nil {
		f.Content = *upd.Content
	}
	if upd.Size != nil {
		f.Size = *upd.Size
	}
	f.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryStore) DeleteFile(_ context.Context, workspaceID, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byPath := m.files[workspaceID]
	if _, ok := byPath[path]; !ok {
		return &ws.NotFoundError{Kind: "file", Key: path}
	}
	delete(byPath, path)
	return nil
}

func (m *MemoryStore) GetAllForUser(_ context.Context, ownerID string) ([]*model.Workspace, []*model.File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var workspaces []*model.Workspace
	var files []*model.File
	for _, w := range m.workspaces {
		if w.OwnerID != ownerID {
			continue
		}
		workspaces = append(workspaces, cloneWorkspace(w))
		for _, f := range m.files[w.ID] {
			files = append(files, cloneFile(f))
		}
	}
	return workspaces, files, nil
}

func (m *MemoryStore) ReplaceAll(_ context.Context, userID string, workspaces []*model.Workspace, files []*model.File) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, w := range m.workspaces {
		if w.OwnerID == userID {
			delete(m.workspaces, id)
			delete(m.files, id)
		}
	}
	for _, w := range workspaces {
		m.workspaces[w.ID] = cloneWorkspace(w)
		m.files[w.ID] = make(map[string]*model.File)
	}
	for _, f := range files {
		byPath, ok := m.files[f.WorkspaceID]
		if !ok {
			byPath = make(map[string]*model.File)
			m.files[f.WorkspaceID] = byPath
		}
		byPath[f.Path] = cloneFile(f)
	}
	return nil
}

func (m *MemoryStore) Close() error { return nil }

// InjectFile places a raw file record directly into a workspace's bucket,
// bypassing ownership checks. Test hook for simulating store-level
// contamination bugs.
func (m *MemoryStore) InjectFile(workspaceID string, f *model.File) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byPath, ok := m.files[workspaceID]
	if !ok {
		byPath = make(map[string]*model.File)
		m.files[workspaceID] = byPath
	}
	byPath[f.Path] = cloneFile(f)
}

// Compile-time check that MemoryStore implements the ws.Store interface
var _ ws.Store = (*MemoryStore)(nil)
