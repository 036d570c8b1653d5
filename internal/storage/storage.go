// Package storage writes exported reports to a local directory or S3.
package storage

import (
	"context"
	"io"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/compliance-cli/internal/config"
)

// Storage persists report artifacts. Put returns a location string that
// identifies the stored object (a file path or an s3:// URI).
type Storage interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

// New returns the backend selected by cfg.Type ("local" or "s3").
func New(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch cfg.Type {
	case "", "local":
		return NewLocal(cfg.LocalPath)
	case "s3":
		return NewS3(ctx, cfg)
	default:
		return nil, eris.Errorf("storage: unknown type %q", cfg.Type)
	}
}

var unsafeNameRe = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// NewKey builds a unique, date-partitioned object key for a report about
// document, e.g. "2026/10/15/<uuid>-policy.txt".
func NewKey(now time.Time, document, ext string) string {
	base := strings.TrimSuffix(filepath.Base(document), filepath.Ext(document))
	base = strings.Trim(unsafeNameRe.ReplaceAllString(base, "-"), "-.")
	if base == "" {
		base = "document"
	}
	return path.Join(now.UTC().Format("2006/01/02"), uuid.NewString()+"-"+base+ext)
}
