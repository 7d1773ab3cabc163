// Package discovery walks a project's src/ tree, classifies each
// entry as a CONFIG or FILE datasource descriptor, and renders CONFIG
// descriptors through a sandboxed template engine before parsing them
// as YAML (spec.md §4.5).
package discovery

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// Kind is the descriptor classification discover assigns each entry.
type Kind int

const (
	KindFile Kind = iota
	KindConfig
)

// backupMatcher skips editor backup files ("*~") the way the teacher
// does in its own ignore-pattern handling (internal/daemon.go's
// loadGitignore), via the same library; Discover also applies a plain
// "~" suffix check alongside it.
var backupMatcher = ignore.CompileIgnoreLines("*~")

// Descriptor is one discovered src/ entry, not yet prepared.
type Descriptor struct {
	// MainType is the first path segment under src/ (e.g. "databases",
	// "files").
	MainType string
	// Kind is CONFIG (a YAML file outside files/) or FILE (everything
	// under files/, or a non-YAML file elsewhere).
	Kind Kind
	// Path is the absolute filesystem path to the entry.
	Path string
	// RelPath is the path relative to src/, forward-slash separated,
	// used as the canonical datasource_id.
	RelPath string
}

// Discover walks srcDir and returns descriptors sorted by relative
// path, case-insensitive, per spec.md §4.5.
func Discover(srcDir string) ([]Descriptor, error) {
	var descriptors []Descriptor

	err := filepath.WalkDir(srcDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if backupMatcher != nil && backupMatcher.MatchesPath(rel) {
			return nil
		}
		if strings.HasSuffix(rel, "~") {
			return nil
		}

		parts := strings.SplitN(rel, "/", 2)
		mainType := parts[0]
		if len(parts) == 1 {
			// A file directly under src/ (no main_type subdirectory) has
			// no classification rule in spec.md §4.5; skip it rather than
			// guess a main_type.
			return nil
		}

		if mainType == "files" {
			if filepath.Ext(rel) == "" {
				return nil
			}
			descriptors = append(descriptors, Descriptor{
				MainType: mainType,
				Kind:     KindFile,
				Path:     path,
				RelPath:  rel,
			})
			return nil
		}

		ext := strings.ToLower(filepath.Ext(rel))
		switch ext {
		case ".yaml", ".yml":
			descriptors = append(descriptors, Descriptor{
				MainType: mainType,
				Kind:     KindConfig,
				Path:     path,
				RelPath:  rel,
			})
		case "":
			// no-extension files are skipped
		default:
			descriptors = append(descriptors, Descriptor{
				MainType: mainType,
				Kind:     KindFile,
				Path:     path,
				RelPath:  rel,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(descriptors, func(i, j int) bool {
		return strings.ToLower(descriptors[i].RelPath) < strings.ToLower(descriptors[j].RelPath)
	})

	return descriptors, nil
}
