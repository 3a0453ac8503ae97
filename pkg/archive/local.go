package archive

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Local stores objects as files below a root directory. Objects are written
// to a temporary file first and renamed into place, so readers never see a
// partial object.
type Local struct {
	root string
}

var _ Store = (*Local)(nil)

// NewLocal creates a Local store rooted at dir, creating it if needed.
func NewLocal(dir string) (*Local, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &Local{root: abs}, nil
}

func (l *Local) resolve(name string) string {
	return filepath.Join(l.root, filepath.FromSlash(name))
}

// Put implements Store.
func (l *Local) Put(_ context.Context, name, _ string, r io.Reader) error {
	full := l.resolve(name)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(full), ".put-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), full)
}

// Get implements Store.
func (l *Local) Get(_ context.Context, name string) (io.ReadCloser, error) {
	return os.Open(l.resolve(name))
}

// Exists implements Store.
func (l *Local) Exists(_ context.Context, name string) (bool, error) {
	_, err := os.Stat(l.resolve(name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
