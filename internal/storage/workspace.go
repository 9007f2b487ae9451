package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Workspace is a private scratch directory for one classification run.
type Workspace struct {
	dir  string
	once sync.Once
	err  error
}

// NewWorkspace creates root/<uuid> with an empty frames subdirectory.
func NewWorkspace(root string) (*Workspace, error) {
	dir := filepath.Join(root, uuid.New().String())
	if err := os.MkdirAll(filepath.Join(dir, "frames"), 0755); err != nil {
		return nil, fmt.Errorf("create workdir: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

func (w *Workspace) Dir() string {
	return w.dir
}

func (w *Workspace) FramesDir() string {
	return filepath.Join(w.dir, "frames")
}

// SaveUpload copies r into the workspace, keeping the extension of
// filename, and returns the written path.
func (w *Workspace) SaveUpload(r io.Reader, filename string) (string, error) {
	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".mp4"
	}
	path := filepath.Join(w.dir, "upload"+ext)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, r); err != nil {
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	return path, nil
}

// Cleanup removes the workspace. Safe to call more than once.
func (w *Workspace) Cleanup() error {
	w.once.Do(func() {
		w.err = os.RemoveAll(w.dir)
	})
	return w.err
}
