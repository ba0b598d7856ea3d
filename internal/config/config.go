// Package config loads the HCL configuration file of the shape tool.
package config

import (
	"errors"
	"fmt"
	"os"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/hashicorp/hcl/v2/hclsimple"

	"github.com/agentic-research/shape/internal/analyzer"
	"github.com/agentic-research/shape/internal/structure"
)

// DefaultFile is looked up in the working directory when no --config is given.
const DefaultFile = "shape.hcl"

// Config is the fully resolved configuration.
type Config struct {
	RootType           string
	AutoUpgradeToArray bool
	StrictTypes        bool
	OnError            analyzer.ErrorPolicy
	// Selector is an optional JSONPath applied to every record.
	Selector     string
	MetadataKeys []string
	Store        StoreConfig
	Server       ServerConfig
}

type StoreConfig struct {
	// Path of the SQLite snapshot database.
	Path string
	// Name snapshots are saved under.
	Name string
}

type ServerConfig struct {
	Listen string
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		RootType:           "root",
		AutoUpgradeToArray: true,
		OnError:            analyzer.Abort,
		MetadataKeys:       append([]string(nil), structure.DefaultMetadataKeys...),
		Store: StoreConfig{
			Path: "shape.db",
			Name: "default",
		},
		Server: ServerConfig{
			Listen: ":8080",
		},
	}
}

// file mirrors the HCL layout. Pointers tell absent attributes apart
// from zero values.
type file struct {
	RootType           *string      `hcl:"root_type,optional"`
	AutoUpgradeToArray *bool        `hcl:"auto_upgrade_to_array,optional"`
	StrictTypes        *bool        `hcl:"strict_types,optional"`
	OnError            *string      `hcl:"on_error,optional"`
	Selector           *string      `hcl:"selector,optional"`
	MetadataKeys       *[]string    `hcl:"metadata_keys,optional"`
	Store              *storeBlock  `hcl:"store,block"`
	Server             *serverBlock `hcl:"server,block"`
}

type storeBlock struct {
	Path *string `hcl:"path,optional"`
	Name *string `hcl:"name,optional"`
}

type serverBlock struct {
	Listen *string `hcl:"listen,optional"`
}

// Load reads path from fs and applies it over Default. A missing file is
// an error only when required is set.
func Load(fs billy.Filesystem, path string, required bool) (Config, error) {
	cfg := Default()
	src, err := util.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(path, src)
}

// Parse decodes HCL source over Default. filename is used in diagnostics
// and must end in .hcl.
func Parse(filename string, src []byte) (Config, error) {
	cfg := Default()
	var f file
	if err := hclsimple.Decode(filename, src, nil, &f); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	setString(&cfg.RootType, f.RootType)
	setBool(&cfg.AutoUpgradeToArray, f.AutoUpgradeToArray)
	setBool(&cfg.StrictTypes, f.StrictTypes)
	setString(&cfg.Selector, f.Selector)
	if f.OnError != nil {
		cfg.OnError = analyzer.ErrorPolicy(*f.OnError)
	}
	if f.MetadataKeys != nil {
		cfg.MetadataKeys = *f.MetadataKeys
	}
	if f.Store != nil {
		setString(&cfg.Store.Path, f.Store.Path)
		setString(&cfg.Store.Name, f.Store.Name)
	}
	if f.Server != nil {
		setString(&cfg.Server.Listen, f.Server.Listen)
	}
	return cfg, cfg.Validate()
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// Validate rejects settings no component can work with.
func (c Config) Validate() error {
	if c.RootType == "" {
		return errors.New("root_type must not be empty")
	}
	if _, err := analyzer.ParseErrorPolicy(string(c.OnError)); err != nil {
		return fmt.Errorf("on_error: %w", err)
	}
	return nil
}

// StructureOptions configures a new tree.
func (c Config) StructureOptions() []structure.Option {
	return []structure.Option{
		structure.WithAutoUpgradeToArray(c.AutoUpgradeToArray),
		structure.WithMetadataKeys(c.MetadataKeys...),
	}
}

// Analyzer returns the analyzer settings.
func (c Config) Analyzer() analyzer.Config {
	return analyzer.Config{
		RootType:    c.RootType,
		StrictTypes: c.StrictTypes,
		OnError:     c.OnError,
	}
}
