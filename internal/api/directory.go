package api

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"filemanager/internal/pathutil"
)

// ErrNotDirectory reports a listing request for a path that is not a directory.
var ErrNotDirectory = errors.New("path is not a directory")

const listingTimeFormat = "2006-01-02 15:04:05"

// ListDirectory lists the regular files in dir, newest first. A directory that
// does not exist yields a listing with Success=false rather than an error.
func ListDirectory(dir string) (DirectoryListing, error) {
	expanded, err := pathutil.ExpandHome(dir)
	if err != nil {
		return DirectoryListing{}, err
	}
	listing := DirectoryListing{Directory: expanded, Files: []DirectoryFile{}}

	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			listing.Error = "Directory does not exist"
			return listing, nil
		}
		return DirectoryListing{}, err
	}
	if !info.IsDir() {
		return DirectoryListing{}, fmt.Errorf("%w: %s", ErrNotDirectory, expanded)
	}

	entries, err := os.ReadDir(expanded)
	if err != nil {
		return DirectoryListing{}, err
	}
	type dated struct {
		file DirectoryFile
		mod  int64
	}
	files := make([]dated, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, dated{
			file: DirectoryFile{Name: entry.Name(), Size: fi.Size(), Modified: fi.ModTime().Format(listingTimeFormat)},
			mod:  fi.ModTime().UnixNano(),
		})
	}
	sort.SliceStable(files, func(i, j int) bool { return files[i].mod > files[j].mod })
	for _, f := range files {
		listing.Files = append(listing.Files, f.file)
	}
	listing.Success = true
	listing.TotalCount = len(listing.Files)
	return listing, nil
}
