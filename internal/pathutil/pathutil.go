// Package pathutil canonicalizes the paths carried in queue entries before
// they touch the filesystem.
package pathutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// spaceVariants are characters that macOS and document producers emit in
// place of an ASCII space (notably U+202F in screenshot names).
var spaceVariants = strings.NewReplacer(
	"\u202f", " ",
	"\u00a0", " ",
	"\u2007", " ",
	"\u2009", " ",
	"\u200a", " ",
)

// ExpandHome replaces a leading "~" with the current user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}

// Normalize expands the home directory and composes the path to Unicode NFC.
func Normalize(path string) (string, error) {
	expanded, err := ExpandHome(strings.TrimSpace(path))
	if err != nil {
		return "", err
	}
	if expanded == "" {
		return "", errors.New("empty path")
	}
	return norm.NFC.String(filepath.Clean(expanded)), nil
}

// Resolve finds the on-disk spelling of an existing path. It tries the path
// as given, its NFC form, its NFD form, and the form with exotic spaces
// replaced. When none exist it returns the NFC form and exists=false.
func Resolve(path string) (resolved string, exists bool, err error) {
	expanded, err := ExpandHome(strings.TrimSpace(path))
	if err != nil {
		return "", false, err
	}
	if expanded == "" {
		return "", false, errors.New("empty path")
	}
	expanded = filepath.Clean(expanded)
	nfc := norm.NFC.String(expanded)

	candidates := []string{expanded, nfc, norm.NFD.String(expanded)}
	if replaced := spaceVariants.Replace(nfc); replaced != nfc {
		candidates = append(candidates, replaced)
	}
	for _, candidate := range candidates {
		_, statErr := os.Lstat(candidate)
		if statErr == nil {
			return candidate, true, nil
		}
		if !errors.Is(statErr, fs.ErrNotExist) {
			return "", false, statErr
		}
	}
	return nfc, false, nil
}
