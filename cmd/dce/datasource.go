package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"contextengine/internal/apperr"
	"contextengine/internal/discovery"
	"contextengine/internal/plugin"
	"contextengine/internal/pluginlib"
	"contextengine/internal/project"
)

var datasourceCmd = &cobra.Command{
	Use:   "datasource",
	Short: "Manage src/ datasource config files",
}

func init() {
	datasourceCmd.AddCommand(datasourceAddCmd)
	datasourceCmd.AddCommand(datasourceValidateCmd)
}

var datasourceAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Interactively scaffold a new src/<main_type>/<name>.yaml datasource",
	RunE: func(cmd *cobra.Command, args []string) error {
		var mainType, dsType, name, pairs string

		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Main type").
					Description("Top-level src/ subdirectory, e.g. databases").
					Placeholder("databases").
					Value(&mainType).
					Validate(func(s string) error {
						if strings.TrimSpace(s) == "" {
							return fmt.Errorf("main type is required")
						}
						return nil
					}),

				huh.NewInput().
					Title("Plugin type").
					Description("The \"type\" key routed to a registered plugin, e.g. postgres").
					Placeholder("postgres").
					Value(&dsType).
					Validate(func(s string) error {
						if strings.TrimSpace(s) == "" {
							return fmt.Errorf("type is required")
						}
						return nil
					}),

				huh.NewInput().
					Title("Datasource name").
					Description("File stem under src/<main_type>/, e.g. analytics_db").
					Value(&name).
					Validate(func(s string) error {
						if strings.TrimSpace(s) == "" {
							return fmt.Errorf("name is required")
						}
						return nil
					}),

				huh.NewText().
					Title("Config key=value pairs").
					Description("One per line, e.g. dsn=postgres://localhost/app").
					Value(&pairs),
			),
		)
		if err := form.Run(); err != nil {
			return err
		}

		doc := map[string]any{"type": dsType}
		for _, line := range strings.Split(pairs, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			k, v, ok := strings.Cut(line, "=")
			if !ok {
				return fmt.Errorf("%w: malformed key=value pair %q", apperr.ErrValidation, line)
			}
			doc[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}

		out, err := yaml.Marshal(doc)
		if err != nil {
			return err
		}

		layout := project.NewLayout(projectDir)
		dest := filepath.Join(layout.SrcDir(), mainType, name+".yaml")
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		if _, err := os.Stat(dest); err == nil {
			return fmt.Errorf("%s already exists", dest)
		}
		if err := os.WriteFile(dest, out, 0o644); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", okStyle.Render("wrote"), dest)
		return nil
	},
}

var validateIDs []string

var datasourceValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check connectivity for CONFIG-kind datasources",
	RunE: func(cmd *cobra.Command, args []string) error {
		layout := project.NewLayout(projectDir)

		registry := plugin.NewRegistry()
		if err := registry.RegisterAll(builtinPlugins()...); err != nil {
			return err
		}

		descriptors, err := discovery.Discover(layout.SrcDir())
		if err != nil {
			return err
		}

		wanted := datasourceFilter(validateIDs)
		out := cmd.OutOrStdout()
		var anyFailed bool

		for _, d := range descriptors {
			if d.Kind != discovery.KindConfig {
				continue
			}
			if wanted != nil && !wanted[d.RelPath] {
				continue
			}

			prepared, err := discovery.Prepare(d, layout.Dir, layout.SrcDir())
			if err != nil {
				fmt.Fprintf(out, "%s %s: %s\n", failStyle.Render("invalid"), d.RelPath, err)
				anyFailed = true
				continue
			}

			rawPlugin, ok := registry.Lookup(prepared.Config.DatasourceType)
			if !ok {
				fmt.Fprintf(out, "%s %s: no plugin for %s\n", dimStyle.Render("skipped"), d.RelPath, prepared.Config.DatasourceType)
				continue
			}
			dsPlugin, ok := rawPlugin.(pluginlib.BuildDatasourcePlugin)
			if !ok {
				fmt.Fprintf(out, "%s %s: plugin does not build datasources\n", dimStyle.Render("skipped"), d.RelPath)
				continue
			}

			validated, err := decodeDatasourceConfig(dsPlugin, prepared.Config.Raw)
			if err != nil {
				fmt.Fprintf(out, "%s %s: %s\n", failStyle.Render("invalid"), d.RelPath, err)
				anyFailed = true
				continue
			}

			if err := plugin.CheckConnection(cmd.Context(), dsPlugin, validated); err != nil {
				fmt.Fprintf(out, "%s %s: %s\n", failStyle.Render("unreachable"), d.RelPath, err)
				anyFailed = true
				continue
			}
			fmt.Fprintf(out, "%s %s\n", okStyle.Render("ok"), d.RelPath)
		}

		if anyFailed {
			return fmt.Errorf("one or more datasources failed validation")
		}
		return nil
	},
}

func init() {
	datasourceValidateCmd.Flags().StringArrayVar(&validateIDs, "id", nil, "restrict to this datasource id (repeatable)")
}

func datasourceFilter(ids []string) map[string]bool {
	if len(ids) == 0 {
		return nil
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

// decodeDatasourceConfig maps raw YAML-decoded config onto p's
// declared schema, the same round-trip internal/buildpipeline uses to
// cross the plugin boundary.
func decodeDatasourceConfig(p pluginlib.BuildDatasourcePlugin, raw map[string]any) (any, error) {
	schema := p.ConfigSchema()

	out, err := yaml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: re-marshaling config: %v", apperr.ErrValidation, err)
	}
	if err := yaml.Unmarshal(out, schema); err != nil {
		return nil, fmt.Errorf("%w: decoding config for plugin %q: %v", apperr.ErrValidation, p.ID(), err)
	}
	return schema, nil
}
