package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrOutsideDir is returned by ResolveWithin for paths that escape the directory.
var ErrOutsideDir = errors.New("path outside project directory")

// ResolveWithin resolves filePath against dir and returns its absolute form.
// Relative paths are taken from dir. Paths that leave dir through ".." or an
// absolute path elsewhere are rejected.
func ResolveWithin(filePath, dir string) (string, error) {
	target := filePath
	if !filepath.IsAbs(target) {
		target = filepath.Join(dir, target)
	}

	absPath, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve directory: %w", err)
	}

	// Trailing separator keeps /project-evil from matching /project
	prefix := absDir
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	if absPath != absDir && !strings.HasPrefix(absPath, prefix) {
		return "", fmt.Errorf("%s: %w", filePath, ErrOutsideDir)
	}
	return absPath, nil
}
