package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"pdf-page-server/internal/domain"
)

// ErrInvalidKey indicates an empty key or one escaping the storage root.
var ErrInvalidKey = errors.New("storage: invalid key")

// LocalStorage keeps document bytes as files under a base directory.
type LocalStorage struct {
	basePath string
	logger   domain.Logger
}

// NewStorageService creates the base directory and returns a local store.
func NewStorageService(basePath string, logger domain.Logger) (*LocalStorage, error) {
	if basePath == "" {
		return nil, fmt.Errorf("upload path required")
	}

	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve upload path: %w", err)
	}
	if err := os.MkdirAll(absPath, 0o755); err != nil {
		return nil, fmt.Errorf("create upload path: %w", err)
	}
	// Stored paths must match the canonical form the append pipeline locks on.
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		absPath = resolved
	}

	return &LocalStorage{
		basePath: absPath,
		logger:   logger,
	}, nil
}

// Store writes content at key through a temp file and rename, returning the
// number of bytes written.
func (s *LocalStorage) Store(ctx context.Context, key string, content io.Reader) (int64, error) {
	path, err := s.Path(key)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.upload")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	n, err := io.Copy(tmp, content)
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("write file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("rename temp file: %w", err)
	}

	s.logger.Debug("Stored blob", "key", key, "size_bytes", n)
	return n, nil
}

// Open returns a reader over the bytes at key.
func (s *LocalStorage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := s.Path(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

// Delete removes key. Missing keys are not an error.
func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	path, err := s.Path(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

// Rename moves the bytes at from to to.
func (s *LocalStorage) Rename(ctx context.Context, from, to string) error {
	src, err := s.Path(from)
	if err != nil {
		return err
	}
	dst, err := s.Path(to)
	if err != nil {
		return err
	}

	if err := os.Rename(src, dst); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.ErrDocumentNotFound
		}
		return fmt.Errorf("rename file: %w", err)
	}
	return nil
}

// Path maps key to its absolute file path, rejecting traversal.
func (s *LocalStorage) Path(key string) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}

	cleaned := filepath.Clean(key)
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", ErrInvalidKey
	}

	full := filepath.Join(s.basePath, cleaned)
	if !strings.HasPrefix(full, s.basePath+string(filepath.Separator)) {
		return "", ErrInvalidKey
	}
	return full, nil
}
