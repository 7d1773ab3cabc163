package discovery

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"contextengine/internal/apperr"
)

// PreparedFile is the prepared form of a FILE descriptor.
type PreparedFile struct {
	DatasourceType string // "{main_type}/{extension}"
	DatasourceName string
	DatasourceID   string
	Path           string
}

// PreparedConfig is the prepared form of a CONFIG descriptor: the
// rendered, parsed YAML document plus its routing identity.
type PreparedConfig struct {
	DatasourceType string // "{main_type}/{type}"
	DatasourceName string
	DatasourceID   string
	Raw            map[string]any
}

// Prepared is the union PreparedFile/PreparedConfig; exactly one of
// File or Config is non-nil.
type Prepared struct {
	File   *PreparedFile
	Config *PreparedConfig
}

// Prepare renders and validates d, returning a Prepared value.
// projectDir and srcDir are exposed to CONFIG templates as PROJECT_DIR
// and SRC_DIR.
func Prepare(d Descriptor, projectDir, srcDir string) (*Prepared, error) {
	stem := strings.TrimSuffix(filepath.Base(d.RelPath), filepath.Ext(d.RelPath))

	switch d.Kind {
	case KindFile:
		ext := strings.TrimPrefix(filepath.Ext(d.RelPath), ".")
		return &Prepared{File: &PreparedFile{
			DatasourceType: d.MainType + "/" + ext,
			DatasourceName: stem,
			DatasourceID:   d.RelPath,
			Path:           d.Path,
		}}, nil

	case KindConfig:
		raw, err := os.ReadFile(d.Path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", d.Path, err)
		}

		rendered, err := renderTemplate(string(raw), projectDir, srcDir)
		if err != nil {
			return nil, fmt.Errorf("%w: rendering template for %s: %v", apperr.ErrValidation, d.RelPath, err)
		}

		var doc map[string]any
		if err := yaml.Unmarshal([]byte(rendered), &doc); err != nil {
			return nil, fmt.Errorf("%w: parsing YAML for %s: %v", apperr.ErrValidation, d.RelPath, err)
		}

		typeVal, ok := doc["type"].(string)
		if !ok || typeVal == "" {
			return nil, fmt.Errorf("%w: %s missing string \"type\" key", apperr.ErrValidation, d.RelPath)
		}

		return &Prepared{Config: &PreparedConfig{
			DatasourceType: d.MainType + "/" + typeVal,
			DatasourceName: stem,
			DatasourceID:   d.RelPath,
			Raw:            doc,
		}}, nil

	default:
		return nil, fmt.Errorf("%w: unknown descriptor kind", apperr.ErrValidation)
	}
}

// renderTemplate executes text through a sandboxed text/template whose
// only exposed capabilities are env_var, PROJECT_DIR, and SRC_DIR
// (spec.md §4.5/§8): no function in the FuncMap reaches further host
// state than an environment variable lookup, and there are no pipeline
// functions for file I/O, exec, or arbitrary Go reflection beyond what
// text/template itself allows on the supplied data.
func renderTemplate(text, projectDir, srcDir string) (string, error) {
	funcs := template.FuncMap{
		"env_var": func(name string, fallback ...string) string {
			if v, ok := os.LookupEnv(name); ok {
				return v
			}
			if len(fallback) > 0 {
				return fallback[0]
			}
			return ""
		},
	}

	tmpl, err := template.New("config").Funcs(funcs).Parse(text)
	if err != nil {
		return "", err
	}

	data := struct {
		PROJECT_DIR string
		SRC_DIR     string
	}{PROJECT_DIR: projectDir, SRC_DIR: srcDir}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
