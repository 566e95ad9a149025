package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

var (
	// ErrNotFound is returned when the target file does not exist
	ErrNotFound = errors.New("file not found")
	// ErrPermissionDenied is returned when the process may not touch the target file
	ErrPermissionDenied = errors.New("permission denied")
)

// Filesystem interface defines the contract for clip storage operations
type Filesystem interface {
	// BaseDir is the well-known writable directory clips are recorded into
	BaseDir() string

	// ListDirectory returns the names of the regular files in path
	ListDirectory(ctx context.Context, path string) ([]string, error)

	// Stat returns file information for path
	Stat(ctx context.Context, path string) (fs.FileInfo, error)

	// DeleteFile removes path, failing with ErrNotFound or ErrPermissionDenied
	DeleteFile(ctx context.Context, path string) error
}

// LocalFilesystem implements Filesystem on the local disk
type LocalFilesystem struct {
	baseDir string
}

// NewLocalFilesystem creates the base directory if needed and returns a filesystem rooted at it
func NewLocalFilesystem(baseDir string) (*LocalFilesystem, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("storage directory cannot be empty")
	}

	absDir, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage directory: %w", err)
	}

	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", translate(err))
	}

	return &LocalFilesystem{baseDir: absDir}, nil
}

// BaseDir returns the absolute storage directory
func (l *LocalFilesystem) BaseDir() string {
	return l.baseDir
}

// ListDirectory returns regular file names in path sorted by name; hidden files are skipped
func (l *LocalFilesystem) ListDirectory(ctx context.Context, path string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", path, translate(err))
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if isHidden(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	return names, nil
}

// Stat returns file information for path
func (l *LocalFilesystem) Stat(ctx context.Context, path string) (fs.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, translate(err)
	}
	return info, nil
}

// DeleteFile removes a single regular file
func (l *LocalFilesystem) DeleteFile(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := os.Lstat(path)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", filepath.Base(path), translate(err))
	}
	if info.IsDir() {
		return fmt.Errorf("failed to delete %s: is a directory", filepath.Base(path))
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete %s: %w", filepath.Base(path), translate(err))
	}
	return nil
}

// translate maps os errors onto the package sentinels while keeping the original cause
func translate(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
	default:
		return err
	}
}

func isHidden(name string) bool {
	return len(name) > 0 && name[0] == '.'
}
