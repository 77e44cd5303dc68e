package files

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"Airlock/pkg/logger"
)

const (
	filePermissions = 0600
	dirPermissions  = 0700
)

func FileLinesToSlice(path string) ([]string, error) {
	var result []string
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		result = append(result, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func CreateDir(dirPath string) error {
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		if err := os.MkdirAll(dirPath, dirPermissions); err != nil {
			return err
		}
		logger.DebugIfEnabled("Directory created: %s", dirPath)
	}
	return nil
}

// Exists reports whether path names a regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// ExpandHome resolves a leading ~ to the invoking user's home directory.
// Under sudo that is the home of SUDO_USER, not root's.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" {
		if u, lookupErr := user.Lookup(sudoUser); lookupErr == nil {
			home, err = u.HomeDir, nil
		}
	}
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// MoveFile renames src to dst, falling back to copy and delete when they are
// on different filesystems.
func MoveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) || !errors.Is(linkErr.Err, syscall.EXDEV) {
		return err
	}
	if err := CopyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

// CopyFile writes a copy of src to dst through a temporary file, so dst is
// never observed half written.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), filePermissions); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

func WriteFile(fullPath string, content []string) error {
	file, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermissions)
	if err != nil {
		return err
	}
	defer file.Close()

	for _, line := range content {
		if _, err := file.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return nil
}

// SetFileAndDirPermsRecursive hands a tree created as root back to a regular user.
func SetFileAndDirPermsRecursive(nonRootUser, walkPath string) error {
	usr, err := user.Lookup(nonRootUser)
	if err != nil {
		return fmt.Errorf("failed to look up user %q: %w", nonRootUser, err)
	}

	uid, err := strconv.Atoi(usr.Uid)
	if err != nil {
		return fmt.Errorf("failed to convert UID (%s) to integer: %w", usr.Uid, err)
	}
	gid, err := strconv.Atoi(usr.Gid)
	if err != nil {
		return fmt.Errorf("failed to convert GID (%s) to integer: %w", usr.Gid, err)
	}

	err = filepath.WalkDir(walkPath, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := os.Chown(path, uid, gid); err != nil {
			return err
		}
		mode := os.FileMode(filePermissions)
		if d.IsDir() {
			mode = dirPermissions
		}
		return os.Chmod(path, mode)
	})
	if err != nil {
		return fmt.Errorf("error walking the path %q: %w", walkPath, err)
	}

	logger.Infof("Changed ownership of %q to user %q", walkPath, nonRootUser)
	return nil
}
