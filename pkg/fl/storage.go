package fl

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	pkgerrors "github.com/absmach/fedavg/pkg/errors"
	"github.com/absmach/fedavg/pkg/params"
)

const filePermission = 0o644

var _ StateStore = (*FileStore)(nil)

// FileStore keeps the latest global model in a single file holding its
// round-tagged parameter set encoding.
type FileStore struct {
	path string
	mu   sync.RWMutex
}

func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty state file path", pkgerrors.ErrEmptyKey)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	return &FileStore{path: path}, nil
}

// Path returns the location of the state file.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load(_ context.Context) (GlobalModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return GlobalModel{}, pkgerrors.ErrNotFound
	case err != nil:
		return GlobalModel{}, fmt.Errorf("failed to read state file: %w", err)
	}

	snap, err := params.Unmarshal(data)
	if err != nil {
		return GlobalModel{}, fmt.Errorf("state file %s: %w", s.path, err)
	}
	if snap.Round == nil {
		return GlobalModel{}, fmt.Errorf("state file %s: %w: missing round", s.path, params.ErrDecode)
	}

	model := GlobalModel{Round: *snap.Round, Params: snap.Params}
	if info, err := os.Stat(s.path); err == nil {
		model.UpdatedAt = info.ModTime().UTC()
	}

	return model, nil
}

// Save replaces the state file atomically: readers see either the previous
// model or the new one, never a partial write.
func (s *FileStore) Save(_ context.Context, model GlobalModel) error {
	data, err := params.Marshal(params.Snapshot{Round: params.RoundOf(model.Round), Params: model.Params})
	if err != nil {
		return errors.Join(ErrPersistence, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := WriteFileAtomic(s.path, data, filePermission); err != nil {
		return errors.Join(ErrPersistence, err)
	}

	return nil
}

// WriteFileAtomic writes data to a temporary file in the target directory,
// syncs it and renames it over filename.
func WriteFileAtomic(filename string, data []byte, perm fs.FileMode) error {
	dir, name := filepath.Split(filename)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, name+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		tmp.Close()
		os.Remove(tmpName)
	}()

	n, err := tmp.Write(data)
	if err != nil {
		return err
	}
	if n < len(data) {
		return errors.New("short write")
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, filename); err != nil {
		return err
	}

	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		d.Close()
	}

	return nil
}
