// Package project manages a context-engine project's on-disk layout
// and configuration file.
package project

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// ToolVersion is the engine's own version, recorded on every Run and
// compared (via golang.org/x/mod/semver) against a project's recorded
// compatibility floor.
const ToolVersion = "v1.0.0"

// Layout describes the directory invariants of a project rooted at Dir.
type Layout struct {
	Dir string
}

// NewLayout returns the Layout for a project rooted at dir.
func NewLayout(dir string) Layout {
	return Layout{Dir: dir}
}

func (l Layout) SrcDir() string      { return filepath.Join(l.Dir, "src") }
func (l Layout) OutputDir() string   { return filepath.Join(l.Dir, "output") }
func (l Layout) LogsDir() string     { return filepath.Join(l.Dir, "logs") }
func (l Layout) ExamplesDir() string { return filepath.Join(l.Dir, "examples") }
func (l Layout) ConfigPath() string  { return filepath.Join(l.Dir, "dce.ini") }
func (l Layout) LegacyConfigPath() string {
	return filepath.Join(l.Dir, "nemory.ini")
}
func (l Layout) DatabasePath() string {
	return filepath.Join(l.OutputDir(), "dce.duckdb")
}
func (l Layout) AllResultsPath() string {
	return filepath.Join(l.OutputDir(), "all_results.yaml")
}

// AnyConfigPath returns whichever of dce.ini / nemory.ini exists, or
// the canonical dce.ini path if neither does.
func (l Layout) AnyConfigPath() string {
	if _, err := os.Stat(l.ConfigPath()); err == nil {
		return l.ConfigPath()
	}
	if _, err := os.Stat(l.LegacyConfigPath()); err == nil {
		return l.LegacyConfigPath()
	}
	return l.ConfigPath()
}

// Exists reports whether this looks like an initialised project (a
// config file is present).
func (l Layout) Exists() bool {
	if _, err := os.Stat(l.ConfigPath()); err == nil {
		return true
	}
	_, err := os.Stat(l.LegacyConfigPath())
	return err == nil
}

// Init scaffolds a new project at l.Dir. It fails if src/, examples/,
// or any config file already exist.
func Init(dir string) (*Config, error) {
	l := NewLayout(dir)

	for _, p := range []string{l.SrcDir(), l.ExamplesDir(), l.ConfigPath(), l.LegacyConfigPath()} {
		if _, err := os.Stat(p); err == nil {
			return nil, fmt.Errorf("project already initialised: %s already exists", p)
		}
	}

	for _, d := range []string{
		filepath.Join(l.SrcDir(), "databases"),
		filepath.Join(l.SrcDir(), "files"),
		l.LogsDir(),
		l.ExamplesDir(),
		l.OutputDir(),
	} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", d, err)
		}
	}

	cfg := &Config{ProjectID: uuid.NewString(), ToolVersion: ToolVersion}
	if err := cfg.Save(l.ConfigPath()); err != nil {
		return nil, fmt.Errorf("writing config: %w", err)
	}

	return cfg, nil
}

// Config is the project configuration stored in dce.ini under a
// [DEFAULT] section, the layout the legacy nemory.ini also uses
// (viper's ini support flattens sections into dotted keys, so the
// values are read back as default.<key>).
type Config struct {
	ProjectID        string
	ToolVersion      string
	EmbeddingModelID string
	EmbedderName     string
}

// LoadConfig reads a project's config file (dce.ini, falling back to
// the legacy nemory.ini name) via viper's INI support.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("ini")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading project config %s: %w", path, err)
	}

	cfg := &Config{
		ProjectID:        v.GetString("default.project-id"),
		ToolVersion:      v.GetString("default.tool-version"),
		EmbeddingModelID: v.GetString("default.embedding-model-id"),
		EmbedderName:     v.GetString("default.embedder-name"),
	}
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("project config %s is missing project-id", path)
	}
	return cfg, nil
}

// Save writes the config to path in INI form under [DEFAULT].
func (c *Config) Save(path string) error {
	lines := fmt.Sprintf("[DEFAULT]\nproject-id = %s\ntool-version = %s\n", c.ProjectID, c.ToolVersion)
	if c.EmbeddingModelID != "" {
		lines += fmt.Sprintf("embedding-model-id = %s\n", c.EmbeddingModelID)
	}
	if c.EmbedderName != "" {
		lines += fmt.Sprintf("embedder-name = %s\n", c.EmbedderName)
	}
	return os.WriteFile(path, []byte(lines), 0o644)
}
