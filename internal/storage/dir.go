package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// DirStore serves theme files from a local directory, for development
// against a theme checked out on disk. Object keys keep the
// templates/{storeID}/ prefix used by the bucket layout; the store id
// segment is ignored since the directory holds a single theme.
type DirStore struct {
	root string
}

// NewDirStore creates a store rooted at a local theme directory.
func NewDirStore(root string) *DirStore {
	return &DirStore{root: root}
}

// Get reads a theme file from disk.
func (d *DirStore) Get(_ context.Context, key string) ([]byte, error) {
	rel := key
	if parts := strings.SplitN(key, "/", 3); len(parts) == 3 && parts[0] == "templates" {
		rel = parts[2]
	}
	rel = filepath.FromSlash(rel)

	path := filepath.Join(d.root, rel)
	if !strings.HasPrefix(path, filepath.Clean(d.root)+string(os.PathSeparator)) {
		return nil, &NotFoundError{Key: key}
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, &NotFoundError{Key: key}
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Root returns the watched directory.
func (d *DirStore) Root() string {
	return d.root
}
