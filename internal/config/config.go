// Package config loads the per-project configuration, the process
// environment (.env files and the NOTION_TOKEN / NOTION_API_KEY bridge), and
// resolves the project's root page URL.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/livyn-inc/cursor-to-notion/internal/index"
)

// Sync modes.
const (
	ModeHierarchy = "hierarchy"
	ModeFlat      = "flat"
)

const configFile = "config.json"

// DefaultParallelism bounds concurrent remote calls in push and pull.
const DefaultParallelism = 8

// Project is the .c2n/config.json document.
type Project struct {
	DefaultParentURL string `json:"default_parent_url"`
	SyncMode         string `json:"sync_mode"`
	PullApply        bool   `json:"pull_apply_default"`
	PushChangedOnly  bool   `json:"push_changed_only_default"`
	NoDirUpdate      bool   `json:"no_dir_update_default"`
	Parallelism      int    `json:"parallelism,omitempty"`

	// WorkspaceURL is the workspace page above the project root, when the
	// operator provided one at init time.
	WorkspaceURL string `json:"workspace_url,omitempty"`

	// Legacy key, read for resolution but never re-authored.
	ProjectURL string `json:"project_url,omitempty"`
}

// ConfigPath returns the config file location for a project directory.
func ConfigPath(projectDir string) string {
	return filepath.Join(projectDir, index.MetaDirName, configFile)
}

// Load reads and validates .c2n/config.json. A missing file yields a default
// config so that read-only commands work in an uninitialized directory.
func Load(projectDir string) (*Project, error) {
	data, err := os.ReadFile(ConfigPath(projectDir))
	if err != nil {
		if os.IsNotExist(err) {
			cfg := &Project{}
			applyDefaults(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Project
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config JSON: %w", err)
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

// Save writes the config with stable formatting.
func (c *Project) Save(projectDir string) error {
	dir := filepath.Join(projectDir, index.MetaDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(ConfigPath(projectDir), data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func applyDefaults(cfg *Project) {
	if cfg.SyncMode == "" {
		cfg.SyncMode = ModeHierarchy
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = DefaultParallelism
	}
}

func validate(cfg *Project) error {
	if cfg.SyncMode != ModeHierarchy && cfg.SyncMode != ModeFlat {
		return fmt.Errorf("sync_mode must be %q or %q, got %q", ModeHierarchy, ModeFlat, cfg.SyncMode)
	}
	return nil
}
