// Package target keeps what is known about a network on disk, one directory
// per network, so campaigns can resume and skip solved networks.
package target

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"Airlock/internal/files"
	"Airlock/pkg/logger"
	"Airlock/pkg/models"

	"github.com/gofrs/flock"
)

// Artifact names one slot of a target directory.
type Artifact int

const (
	Handshake Artifact = iota
	ARPCapture
	Keystream
	Key
)

func (a Artifact) String() string {
	switch a {
	case Handshake:
		return "handshake"
	case ARPCapture:
		return "arp-capture"
	case Keystream:
		return "keystream"
	case Key:
		return "key"
	}
	return fmt.Sprintf("artifact(%d)", int(a))
}

var (
	ErrArtifactMissing = errors.New("artifact file does not exist")
	ErrLocked          = errors.New("target is locked by another campaign")
)

// Target is an access point bound to its directory. Slot state is never
// cached: every query looks at the filesystem.
type Target struct {
	models.AccessPoint
	dir string
}

// New binds ap to dir, creating the directory if needed.
func New(ap models.AccessPoint, dir string) (*Target, error) {
	if err := files.CreateDir(dir); err != nil {
		return nil, fmt.Errorf("create target dir: %w", err)
	}
	return &Target{AccessPoint: ap, dir: dir}, nil
}

// Dir is the persistent directory of the target.
func (t *Target) Dir() string { return t.dir }

func (t *Target) slot(a Artifact) string {
	switch a {
	case Handshake:
		return filepath.Join(t.dir, "handshake.cap")
	case ARPCapture:
		return filepath.Join(t.dir, "arp-replay.cap")
	case Keystream:
		return filepath.Join(t.dir, "keystream.xor")
	case Key:
		if t.Encryption == models.WEP {
			return filepath.Join(t.dir, "key.hex")
		}
		return filepath.Join(t.dir, "key.txt")
	}
	panic(fmt.Sprintf("unknown artifact %d", int(a)))
}

// Path returns where the artifact lives and whether it is present.
func (t *Target) Path(a Artifact) (string, bool) {
	p := t.slot(a)
	return p, files.Exists(p)
}

func (t *Target) Has(a Artifact) bool {
	_, ok := t.Path(a)
	return ok
}

// Save moves the file at src into the artifact slot. src must exist.
func (t *Target) Save(a Artifact, src string) error {
	if !files.Exists(src) {
		return fmt.Errorf("save %s from %s: %w", a, src, ErrArtifactMissing)
	}
	dst := t.slot(a)
	if err := files.MoveFile(src, dst); err != nil {
		return fmt.Errorf("save %s: %w", a, err)
	}
	logger.Infof("[+] Saved %s of %s to %s", a, t, dst)
	return nil
}

// Delete removes an artifact. Removing an absent artifact is not an error.
func (t *Target) Delete(a Artifact) error {
	err := os.Remove(t.slot(a))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// IsCracked is true exactly when the recovered key file exists.
func (t *Target) IsCracked() bool {
	return t.Has(Key)
}

// Key reads the recovered key.
func (t *Target) Key() (string, error) {
	p, ok := t.Path(Key)
	if !ok {
		return "", fmt.Errorf("key of %s: %w", t, ErrArtifactMissing)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

// Lock takes an exclusive, non-blocking lock on the target directory that
// is shared with other airlock processes. The returned func releases it.
func (t *Target) Lock() (func() error, error) {
	fl := flock.New(filepath.Join(t.dir, ".lock"))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", t.dir, err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", t, ErrLocked)
	}
	return fl.Unlock, nil
}
