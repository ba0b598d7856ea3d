// Package store persists structure trees as snapshot files and as a
// SQLite snapshot history.
package store

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/agentic-research/shape/api"
	"github.com/agentic-research/shape/internal/structure"
)

// Take captures the current state of s.
func Take(name string, s *structure.Structure) api.Snapshot {
	return api.Snapshot{
		Version:            api.SnapshotVersion,
		Name:               name,
		Created:            time.Now().UTC(),
		AutoUpgradeToArray: s.AutoUpgradeToArray(),
		Data:               s.GetData(),
	}
}

// Restore builds a tree from snap. The snapshot's auto-upgrade setting is
// applied first, so an explicit option in opts overrides it.
func Restore(snap api.Snapshot, opts ...structure.Option) (*structure.Structure, error) {
	if snap.Version != "" && snap.Version != api.SnapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %q", snap.Version)
	}
	opts = append([]structure.Option{structure.WithAutoUpgradeToArray(snap.AutoUpgradeToArray)}, opts...)
	s := structure.New(opts...)
	if err := s.Load(snap.Data); err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", snap.Name, err)
	}
	return s, nil
}

type format int

const (
	formatJSON format = iota
	formatYAML
)

func formatOf(path string) (format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return formatJSON, nil
	case ".yaml", ".yml":
		return formatYAML, nil
	}
	return 0, fmt.Errorf("unsupported snapshot file %s: want .json, .yaml or .yml", path)
}

// Encode renders snap in the format implied by path's extension.
func Encode(path string, snap api.Snapshot) ([]byte, error) {
	f, err := formatOf(path)
	if err != nil {
		return nil, err
	}
	if f == formatYAML {
		return yaml.Marshal(snap)
	}
	return json.MarshalIndent(snap, "", "  ")
}

// WriteFile writes snap to path on fs.
func WriteFile(fs billy.Filesystem, path string, snap api.Snapshot) error {
	b, err := Encode(path, snap)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := util.WriteFile(fs, path, b, 0o644); err != nil {
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	return nil
}

// ReadFile reads a snapshot written by WriteFile.
func ReadFile(fs billy.Filesystem, path string) (api.Snapshot, error) {
	var snap api.Snapshot
	f, err := formatOf(path)
	if err != nil {
		return snap, err
	}
	b, err := util.ReadFile(fs, path)
	if err != nil {
		return snap, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	if f == formatYAML {
		err = yaml.Unmarshal(b, &snap)
	} else {
		err = json.Unmarshal(b, &snap)
	}
	if err != nil {
		return snap, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	return snap, nil
}
