package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
)

// LocalStore keeps one file per image under a single directory.
//
// There is no internal locking: every object is written exactly once under a
// unique id, so per-file operations never contend.
type LocalStore struct {
	dir string
}

// NewLocalStore creates a local blob store rooted at dir, creating the
// directory if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage directory is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStore{dir: abs}, nil
}

// Dir returns the storage root.
func (s *LocalStore) Dir() string {
	return s.dir
}

func (s *LocalStore) objectPath(id, ext string) string {
	return filepath.Join(s.dir, id+"."+ext)
}

func (s *LocalStore) Write(ctx context.Context, id, ext string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := s.objectPath(id, ext)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write blob: %w", err)
	}
	return path, nil
}

// MoveIn renames srcPath into the store. When the source lives on a
// different filesystem the rename fails with EXDEV and the store falls back
// to copy-then-unlink.
func (s *LocalStore) MoveIn(ctx context.Context, id, ext, srcPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dst := s.objectPath(id, ext)

	err := os.Rename(srcPath, dst)
	if err == nil {
		return dst, nil
	}
	if !isCrossDevice(err) {
		return "", fmt.Errorf("failed to move blob: %w", err)
	}

	data, err := os.ReadFile(srcPath)
	if err != nil {
		return "", fmt.Errorf("failed to read source for cross-device move: %w", err)
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return "", fmt.Errorf("failed to copy blob: %w", err)
	}
	if err := os.Remove(srcPath); err != nil {
		// The copy succeeded; the leftover source is cosmetic.
		return dst, nil
	}
	return dst, nil
}

func (s *LocalStore) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	return data, nil
}

func (s *LocalStore) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// isCrossDevice reports whether a rename failed because source and
// destination are on different filesystems.
func isCrossDevice(err error) bool {
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		return errors.Is(linkErr.Err, syscall.EXDEV)
	}
	return errors.Is(err, syscall.EXDEV)
}
