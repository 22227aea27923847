package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/aymanbagabas/go-udiff"
)

// ErrAlreadyExists is returned by WriteText when CreateNew is set and the
// file is present.
var ErrAlreadyExists = errors.New("file already exists")

// WriteOptions controls WriteText.
type WriteOptions struct {
	// CreateNew refuses to overwrite an existing file.
	CreateNew bool
}

// ReadText returns the contents of a file.
func ReadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// WriteText writes text to path, creating parent directories.
func WriteText(path, text string, opts WriteOptions) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if opts.CreateNew {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%s: %w", path, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	if _, err := f.WriteString(text); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// Diff returns a unified diff between the original and modified text, with
// three lines of context. Equal texts give an empty string.
func Diff(filename, original, modified string) string {
	edits := udiff.Strings(original, modified)
	if len(edits) == 0 {
		return ""
	}
	unified, err := udiff.ToUnified("a/"+filename, "b/"+filename, original, edits, 3)
	if err != nil {
		return fmt.Sprintf("--- a/%s\n+++ b/%s\n(diff generation failed)\n", filename, filename)
	}
	return unified
}
