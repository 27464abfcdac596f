// Package config persists the archon inventory (sites, domains, nodes and
// console settings) as a YAML document on local disk.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"archon/internal/models"

	"gopkg.in/yaml.v3"
)

// ErrConfig marks every failure to read, parse or write the inventory file.
var ErrConfig = errors.New("config error")

// Inventory is the on-disk document.
type Inventory struct {
	Version  string          `yaml:"version"`
	Sites    []models.Site   `yaml:"sites"`
	Domains  []models.Domain `yaml:"domains"`
	Nodes    []models.Node   `yaml:"nodes"`
	Settings Settings        `yaml:"settings"`
}

// Settings are console preferences stored alongside the inventory.
type Settings struct {
	AutoSave                   bool   `yaml:"auto_save"`
	HealthCheckIntervalSeconds uint64 `yaml:"health_check_interval_seconds"`
	DefaultDNSTTL              uint32 `yaml:"default_dns_ttl"`
	Theme                      string `yaml:"theme"`

	env *envOverrides
}

// envOverrides records which settings came from the environment and what the
// file said, so Save writes the file's values back.
type envOverrides struct {
	autoSave     *bool
	fileAutoSave bool
	theme        string
	fileTheme    string
}

// persisted returns the settings as they belong on disk: a value still equal
// to its environment override is replaced by the file's own value.
func (s Settings) persisted() Settings {
	out := s
	out.env = nil
	if o := s.env; o != nil {
		if o.autoSave != nil && s.AutoSave == *o.autoSave {
			out.AutoSave = o.fileAutoSave
		}
		if o.theme != "" && s.Theme == o.theme {
			out.Theme = o.fileTheme
		}
	}
	return out
}

// DefaultSettings returns auto-save on, five minute health checks and a
// five minute default TTL.
func DefaultSettings() Settings {
	return Settings{
		AutoSave:                   true,
		HealthCheckIntervalSeconds: 300,
		DefaultDNSTTL:              300,
		Theme:                      "default",
	}
}

// DefaultInventory returns an empty inventory stamped with the running version.
func DefaultInventory() *Inventory {
	return &Inventory{
		Version:  Version,
		Sites:    []models.Site{},
		Domains:  []models.Domain{},
		Nodes:    []models.Node{},
		Settings: DefaultSettings(),
	}
}

// DefaultPath resolves the inventory location: $ARCHON_CONFIG if set,
// otherwise archon/archon.yaml under the user config directory.
func DefaultPath() string {
	if p := os.Getenv("ARCHON_CONFIG"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "archon", "archon.yaml")
}

// Load reads the inventory at path. A missing file is replaced by the
// default inventory, which is written before Load returns.
func Load(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			inv := DefaultInventory()
			if _, err := inv.Save(path); err != nil {
				return nil, err
			}
			inv.applyEnvOverrides()
			return inv, nil
		}
		return nil, fmt.Errorf("%w: failed to read %s: %v", ErrConfig, path, err)
	}

	inv, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfig, path, err)
	}
	inv.applyEnvOverrides()
	return inv, nil
}

// Parse decodes an inventory document. Missing settings fall back to defaults.
func Parse(data []byte) (*Inventory, error) {
	inv := DefaultInventory()
	if err := yaml.Unmarshal(data, inv); err != nil {
		return nil, fmt.Errorf("failed to parse inventory: %w", err)
	}
	return inv, nil
}

// Save writes the inventory to path, creating parent directories. The write
// goes through a temp file and rename so a crash never leaves a torn file.
// It returns the bytes written.
func (inv *Inventory) Save(path string) ([]byte, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("%w: failed to create config directory: %v", ErrConfig, err)
	}

	doc := *inv
	doc.Settings = inv.Settings.persisted()
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal inventory: %v", ErrConfig, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return nil, fmt.Errorf("%w: failed to write %s: %v", ErrConfig, tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("%w: failed to replace %s: %v", ErrConfig, path, err)
	}
	return data, nil
}

// applyEnvOverrides applies ARCHON_AUTO_SAVE and ARCHON_THEME for this run
// only; Save keeps writing the file's values.
func (inv *Inventory) applyEnvOverrides() {
	s := &inv.Settings
	o := &envOverrides{fileAutoSave: s.AutoSave, fileTheme: s.Theme}
	applied := false
	if v := os.Getenv("ARCHON_AUTO_SAVE"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			o.autoSave = &b
			s.AutoSave = b
			applied = true
		}
	}
	if v := os.Getenv("ARCHON_THEME"); v != "" {
		o.theme = v
		s.Theme = v
		applied = true
	}
	if applied {
		s.env = o
	}
}
