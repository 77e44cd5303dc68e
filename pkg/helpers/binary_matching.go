package helpers

import (
	"fmt"
	"os/exec"
	"path/filepath"
)

// BinaryInfo stores information about the located binary
type BinaryInfo struct {
	Name       string
	PathInPATH string
	RealPath   string
	IsSymlink  bool
	Error      error
}

// FindBinary locates a binary and resolves the file it points at
func FindBinary(name string) BinaryInfo {
	info := BinaryInfo{Name: name}

	path, err := exec.LookPath(name)
	if err != nil {
		info.Error = fmt.Errorf("binary not found in PATH: %w", err)
		return info
	}
	info.PathInPATH = path

	realPath, err := filepath.EvalSymlinks(path)
	if err != nil {
		info.Error = fmt.Errorf("error resolving symlinks: %w", err)
		return info
	}
	info.RealPath = realPath
	info.IsSymlink = path != realPath

	return info
}

// MissingBinaries returns the names from the list that cannot be found.
func MissingBinaries(names ...string) []string {
	var missing []string
	for _, name := range names {
		if FindBinary(name).Error != nil {
			missing = append(missing, name)
		}
	}
	return missing
}
