package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/snagtrack/snag/pkg/apperr"
)

// FilesystemBlobStore stores attachment content on the local filesystem.
// Blobs are sharded into subdirectories by locator prefix to keep
// directory sizes bounded.
type FilesystemBlobStore struct {
	rootDir string
}

// NewFilesystemBlobStore creates a new filesystem-based blob store
func NewFilesystemBlobStore(rootDir string) (*FilesystemBlobStore, error) {
	if err := os.MkdirAll(rootDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create root directory: %w", err)
	}
	return &FilesystemBlobStore{rootDir: rootDir}, nil
}

func (s *FilesystemBlobStore) path(locator string) string {
	shard := "00"
	if len(locator) >= 2 {
		shard = locator[:2]
	}
	return filepath.Join(s.rootDir, shard, locator)
}

// Put writes blob content under the locator
func (s *FilesystemBlobStore) Put(ctx context.Context, locator string, content io.Reader) error {
	path := s.path(locator)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create blob directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create blob file: %w", err)
	}
	if _, err := io.Copy(f, content); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("failed to write blob: %w", err)
	}
	return f.Close()
}

// Open returns the blob content for streaming
func (s *FilesystemBlobStore) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(locator))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.New(apperr.KindNotFound, "blob not found")
		}
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}
	return f, nil
}

// Delete removes the blob. Deleting a missing blob is not an error.
func (s *FilesystemBlobStore) Delete(ctx context.Context, locator string) error {
	if err := os.Remove(s.path(locator)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// List returns every stored locator. Used by the janitor to find blobs
// without a metadata row.
func (s *FilesystemBlobStore) List(ctx context.Context) ([]string, error) {
	var locators []string
	err := filepath.WalkDir(s.rootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			locators = append(locators, d.Name())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list blobs: %w", err)
	}
	return locators, nil
}
