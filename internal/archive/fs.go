package archive

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FS is a directory-backed Archive storing one file per key.
type FS struct {
	root string
}

// NewFS creates (if needed) the root directory and returns an FS archive.
func NewFS(root string) (*FS, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("archive root is required")
	}
	info, err := os.Stat(root)
	switch {
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(root, 0o750); mkErr != nil {
			return nil, fmt.Errorf("create archive root: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("stat archive root: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("archive root %s is not a directory", root)
	}
	return &FS{root: root}, nil
}

// Root returns the directory backing this archive.
func (a *FS) Root() string {
	return a.root
}

func (a *FS) resolve(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("key is required")
	}
	full := filepath.Join(a.root, filepath.FromSlash(key))
	cleanRoot := filepath.Clean(a.root)
	if !strings.HasPrefix(filepath.Clean(full), cleanRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("key %q escapes archive root", key)
	}
	return full, nil
}

// Contains reports whether a file exists for key.
func (a *FS) Contains(_ context.Context, key string) (bool, error) {
	full, err := a.resolve(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(full); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", key, err)
	}
	return true, nil
}

// Get reads the file stored for key.
func (a *FS) Get(_ context.Context, key string) ([]byte, error) {
	full, err := a.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full) // #nosec G304 -- resolve rejects keys outside the root.
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// Put writes data to the file for key, creating parent directories.
// The write goes through a temp file plus rename so that a crash mid-write
// never leaves a key that looks complete.
func (a *FS) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context canceled: %w", err)
	}
	full, err := a.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return fmt.Errorf("create parent dirs for %s: %w", key, err)
	}
	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := os.Rename(tmp, full); err != nil {
		return fmt.Errorf("finalize %s: %w", key, err)
	}
	return nil
}

// Keys walks the root and returns every stored key in lexical order.
func (a *FS) Keys(_ context.Context) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(a.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(path, ".tmp") {
			return nil
		}
		rel, relErr := filepath.Rel(a.root, path)
		if relErr != nil {
			return relErr
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk archive root: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}
