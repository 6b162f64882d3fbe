package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// File permissions
const (
	DefaultDirPermissions = 0755
)

// Working directory naming
const (
	WorkDirPattern = "job-*"
)

// File extensions to skip when looking for an artifact
var (
	SkippedExtensions = []string{".part", ".ytdl", ".temp", ".json"}
)

// ErrArtifactMissing is returned when no file exists at the expected path
var ErrArtifactMissing = errors.New("artifact missing")

// SizeVerdict is the outcome of the upload size policy
type SizeVerdict struct {
	OK   bool
	Size int64
}

// CreateDirectoryIfNotExists creates directory if it doesn't exist
func CreateDirectoryIfNotExists(dirPath string) error {
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		return os.MkdirAll(dirPath, DefaultDirPermissions)
	}
	return nil
}

// NewWorkDir creates a private working directory under parent
func NewWorkDir(parent string) (string, error) {
	if err := CreateDirectoryIfNotExists(parent); err != nil {
		return "", fmt.Errorf("failed to create temp root %s: %w", parent, err)
	}
	dir, err := os.MkdirTemp(parent, WorkDirPattern)
	if err != nil {
		return "", fmt.Errorf("failed to create working directory: %w", err)
	}
	return dir, nil
}

// RemoveWorkDir deletes dir with everything inside and verifies it is gone
func RemoveWorkDir(dir string) error {
	if dir == "" {
		return nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove %s: %w", dir, err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		return fmt.Errorf("directory still exists: %s", dir)
	}
	return nil
}

// ValidateSize checks the artifact at path against limit bytes. It never
// modifies the file; deleting a rejected artifact is the caller's job.
func ValidateSize(path string, limit int64) (SizeVerdict, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return SizeVerdict{}, fmt.Errorf("%w: %s", ErrArtifactMissing, path)
		}
		return SizeVerdict{}, err
	}
	if info.IsDir() {
		return SizeVerdict{}, fmt.Errorf("%w: %s is a directory", ErrArtifactMissing, path)
	}
	return SizeVerdict{OK: info.Size() <= limit, Size: info.Size()}, nil
}

// ReplaceExt swaps the extension of path for ext (with or without a leading dot)
func ReplaceExt(path, ext string) string {
	if ext == "" {
		return path
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

// FindArtifact returns the largest finished file in dir
func FindArtifact(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var best string
	var bestSize int64 = -1
	for _, entry := range entries {
		if entry.IsDir() || isSkippedFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.Size() > bestSize {
			best = filepath.Join(dir, entry.Name())
			bestSize = info.Size()
		}
	}
	if best == "" {
		return "", fmt.Errorf("%w: no file in %s", ErrArtifactMissing, dir)
	}
	return best, nil
}

// isSkippedFile reports temporary and metadata files left by the engine
func isSkippedFile(filename string) bool {
	for _, ext := range SkippedExtensions {
		if strings.HasSuffix(filename, ext) {
			return true
		}
	}
	return false
}
