package library

import (
	"context"
	"fmt"
	"sync"
)

type fakeStore struct {
	mu      sync.Mutex
	folders map[string]*Folder
	files   map[string]*File
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		folders: make(map[string]*Folder),
		files:   make(map[string]*File),
	}
}

func copyFile(f *File) *File {
	c := *f
	return &c
}

func (s *fakeStore) ListFolders(ctx context.Context) ([]*Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Folder, 0, len(s.folders))
	for _, f := range s.folders {
		c := *f
		out = append(out, &c)
	}
	return out, nil
}

func (s *fakeStore) GetFolder(ctx context.Context, id string) (*Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.folders[id]
	if !ok {
		return nil, fmt.Errorf("folder %s: %w", id, ErrNotFound)
	}
	c := *f
	return &c, nil
}

func (s *fakeStore) GetTrashFolder(ctx context.Context) (*Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.folders {
		if f.IsTrash {
			c := *f
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (s *fakeStore) CreateFolder(ctx context.Context, folder *Folder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.folders[folder.ID]; exists {
		return fmt.Errorf("folder %s already exists", folder.ID)
	}
	c := *folder
	s.folders[folder.ID] = &c
	return nil
}

func (s *fakeStore) RenameFolder(ctx context.Context, id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.folders[id]
	if !ok {
		return ErrNotFound
	}
	f.Name = name
	return nil
}

func (s *fakeStore) DeleteFolderCascade(ctx context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.folders[id]; !ok {
		return 0, ErrNotFound
	}
	var removed int64
	for fileID, f := range s.files {
		if f.OriginalFolderID == id {
			delete(s.files, fileID)
			removed++
		}
	}
	delete(s.folders, id)
	return removed, nil
}

func (s *fakeStore) CreateFile(ctx context.Context, file *File) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[file.ID] = copyFile(file)
	return nil
}

func (s *fakeStore) GetFile(ctx context.Context, id string) (*File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("file %s: %w", id, ErrNotFound)
	}
	return copyFile(f), nil
}

func (s *fakeStore) ListFiles(ctx context.Context, filter FileFilter) ([]*File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*File, 0)
	for _, f := range s.files {
		if filter.FolderID != "" && f.OriginalFolderID != filter.FolderID {
			continue
		}
		if filter.State != "" && f.State != filter.State {
			continue
		}
		if filter.Type != "" && f.Type != filter.Type {
			continue
		}
		out = append(out, copyFile(f))
	}
	return out, nil
}

func (s *fakeStore) UpdateFile(ctx context.Context, file *File) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.files[file.ID]
	if !ok {
		return ErrNotFound
	}
	c := copyFile(file)
	if c.Data == "" {
		c.Data = existing.Data
	}
	s.files[file.ID] = c
	return nil
}

func (s *fakeStore) DeleteFile(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[id]; !ok {
		return ErrNotFound
	}
	delete(s.files, id)
	return nil
}

func (s *fakeStore) DeleteFilesByState(ctx context.Context, state FileState) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for id, f := range s.files {
		if f.State == state {
			delete(s.files, id)
			removed++
		}
	}
	return removed, nil
}

type fakeExtractor struct {
	mu    sync.Mutex
	calls int
	data  InvoiceData
}

func (e *fakeExtractor) ExtractInvoice(ctx context.Context, pdf []byte) InvoiceData {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	return e.data
}

func newTestService(t interface{ Helper() }, extractor InvoiceExtractor) (*Service, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	return NewService(store, store, extractor, Options{TrashName: "Trash", AcceptCSV: true}), store
}
