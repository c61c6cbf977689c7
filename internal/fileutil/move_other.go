//go:build !linux

package fileutil

func renameNoReplace(source, target string) error {
	return renameChecked(source, target)
}
