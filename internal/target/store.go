package target

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"Airlock/internal/files"
	"Airlock/pkg/helpers"
	"Airlock/pkg/logger"
	"Airlock/pkg/models"
	"Airlock/pkg/serializers"
	"Airlock/pkg/validators"
)

const infoFile = "info.yaml"

// Store is the root of all target directories.
type Store struct {
	root string
}

// NewStore opens (and creates) the store below root. A leading ~ is resolved.
func NewStore(root string) (*Store, error) {
	expanded, err := files.ExpandHome(root)
	if err != nil {
		return nil, err
	}
	if err := files.CreateDir(filepath.Join(expanded, "networks")); err != nil {
		return nil, err
	}
	return &Store{root: expanded}, nil
}

func (s *Store) Root() string { return s.root }

// Target returns the persistent handle for ap and records its metadata.
func (s *Store) Target(ap models.AccessPoint) (*Target, error) {
	if err := validators.ValidateAccessPoint(&ap); err != nil {
		return nil, err
	}
	name := helpers.SafeDirName(ap.ESSID, ap.BSSID)
	t, err := New(ap, filepath.Join(s.root, "networks", name))
	if err != nil {
		return nil, err
	}
	if err := serializers.WriteYAML(filepath.Join(t.Dir(), infoFile), ap); err != nil {
		return nil, fmt.Errorf("record %s: %w", ap.BSSID, err)
	}
	return t, nil
}

// Known lists every target recorded so far.
func (s *Store) Known() ([]*Target, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, "networks"))
	if err != nil {
		return nil, err
	}
	var known []*Target
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(s.root, "networks", e.Name())
		var ap models.AccessPoint
		if err := serializers.ReadYAML(filepath.Join(dir, infoFile), &ap); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				logger.Warnf("Skipping %s: %v", dir, err)
			}
			continue
		}
		known = append(known, &Target{AccessPoint: ap, dir: dir})
	}
	return known, nil
}
