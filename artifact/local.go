package artifact

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore serves artifacts straight off the filesystem the worker wrote
// them to. Location tokens are paths relative to the root.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root}
}

func (s *LocalStore) Open(ctx context.Context, location string) (io.ReadCloser, int64, error) {
	path := location
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.root, location)
	}
	// keep path traversal out of the root
	if s.root != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, 0, err
		}
		rootAbs, err := filepath.Abs(s.root)
		if err != nil {
			return nil, 0, err
		}
		if abs != rootAbs && !strings.HasPrefix(abs, rootAbs+string(filepath.Separator)) {
			return nil, 0, ErrNotFound
		}
		path = abs
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, err
	}
	if info.IsDir() {
		return nil, 0, ErrNotFound
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, err
	}
	return f, info.Size(), nil
}
