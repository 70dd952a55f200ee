// Package files is the file-ingestion layer: it stores uploaded files on
// local disk and hands out read streams over them.
package files

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"ledger/internal/ledger"
)

var _ ledger.FileOpener = (*LocalStore)(nil)

// LocalStore keeps uploads under a single directory.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// Dir returns the upload directory.
func (s *LocalStore) Dir() string {
	return s.dir
}

// OpenReadStream opens path for sequential reading. Relative paths are
// resolved against the upload directory.
func (s *LocalStore) OpenReadStream(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.resolve(path))
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

// Save copies r into a new uniquely named file and returns its path
// relative to the upload directory. The original name only contributes
// its extension.
func (s *LocalStore) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	stored := uuid.NewString() + strings.ToLower(filepath.Ext(filepath.Base(name)))
	path := filepath.Join(s.dir, stored)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write upload file: %w", err)
	}

	slog.InfoContext(ctx, "Upload stored", "path", path, "size_bytes", n)
	return stored, nil
}

// Remove deletes a stored file. Missing files are not an error.
func (s *LocalStore) Remove(ctx context.Context, path string) error {
	if err := os.Remove(s.resolve(path)); err != nil && !os.IsNotExist(err) {
		slog.WarnContext(ctx, "Failed to remove upload", "path", path, "error", err)
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

func (s *LocalStore) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.dir, path)
}
