package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Local stores artifacts under a base directory.
type Local struct {
	basePath string
}

// NewLocal creates basePath if needed.
func NewLocal(basePath string) (*Local, error) {
	if basePath == "" {
		basePath = "."
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, eris.Wrapf(err, "storage: create directory %s", basePath)
	}
	return &Local{basePath: basePath}, nil
}

// Put writes body to basePath/key and returns the file path. A partially
// written file is removed on error.
func (l *Local) Put(ctx context.Context, key string, body io.Reader, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", eris.Errorf("storage: invalid key %q", key)
	}
	full := filepath.Join(l.basePath, clean)

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", eris.Wrap(err, "storage: create directory")
	}
	f, err := os.Create(full)
	if err != nil {
		return "", eris.Wrap(err, "storage: create file")
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		_ = os.Remove(full)
		return "", eris.Wrap(err, "storage: write file")
	}
	if err := f.Close(); err != nil {
		return "", eris.Wrap(err, "storage: close file")
	}
	return full, nil
}
