package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// ErrCrossDeviceCleanup reports that a cross-device move copied the data but
// could not remove the source afterwards.
var ErrCrossDeviceCleanup = errors.New("source not removed after cross-device copy")

// Move renames source to target without ever replacing an existing target.
// An existing target yields an error satisfying errors.Is(err, fs.ErrExist).
// Moves across filesystems fall back to a verified copy followed by removal
// of the source.
func Move(source, target string) error {
	err := renameNoReplace(source, target)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrExist) {
		return err
	}
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) || !errors.Is(linkErr.Err, syscall.EXDEV) {
		return err
	}

	if _, statErr := os.Lstat(target); statErr == nil {
		return &os.LinkError{Op: "rename", Old: source, New: target, Err: fs.ErrExist}
	}
	info, statErr := os.Lstat(source)
	if statErr != nil {
		return statErr
	}
	if info.IsDir() {
		if copyErr := copyTree(source, target); copyErr != nil {
			_ = os.RemoveAll(target)
			return fmt.Errorf("copy directory across devices: %w", copyErr)
		}
		if rmErr := os.RemoveAll(source); rmErr != nil {
			return fmt.Errorf("%w: %w", ErrCrossDeviceCleanup, rmErr)
		}
		return nil
	}
	if copyErr := CopyFileVerified(source, target); copyErr != nil {
		return fmt.Errorf("copy file across devices: %w", copyErr)
	}
	if rmErr := os.Remove(source); rmErr != nil {
		return fmt.Errorf("%w: %w", ErrCrossDeviceCleanup, rmErr)
	}
	return nil
}

// renameChecked is the portable no-clobber rename: it refuses when the target
// already exists and otherwise renames. The check and rename are not atomic.
func renameChecked(source, target string) error {
	if _, err := os.Lstat(target); err == nil {
		return &os.LinkError{Op: "rename", Old: source, New: target, Err: fs.ErrExist}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.Rename(source, target)
}

// UniquePath returns dir/name when free, otherwise the first free
// "stem (n)ext" variant.
func UniquePath(dir, name string) (string, error) {
	const maxAttempts = 10000
	candidate := filepath.Join(dir, name)
	if _, err := os.Lstat(candidate); errors.Is(err, fs.ErrNotExist) {
		return candidate, nil
	} else if err != nil {
		return "", err
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if stem == "" {
		stem, ext = name, ""
	}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, attempt, ext))
		if _, err := os.Lstat(candidate); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return candidate, nil
			}
			return "", err
		}
	}
	return "", fmt.Errorf("exhausted filename slots for %s in %s", name, dir)
}
