package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"contextengine/internal/project"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print project identity, paths, and tool version",
	RunE: func(cmd *cobra.Command, args []string) error {
		layout := project.NewLayout(projectDir)
		out := cmd.OutOrStdout()

		if !layout.Exists() {
			fmt.Fprintf(out, "%s no project at %s\n", dimStyle.Render("info"), projectDir)
			return nil
		}
		cfg, err := project.LoadConfig(layout.AnyConfigPath())
		if err != nil {
			return err
		}

		fmt.Fprintln(out, headingStyle.Render("dce"), project.ToolVersion)
		fmt.Fprintf(out, "  project-id:   %s\n", cfg.ProjectID)
		fmt.Fprintf(out, "  tool-version: %s\n", cfg.ToolVersion)
		if cfg.EmbedderName != "" {
			fmt.Fprintf(out, "  embedder:     %s (%s)\n", cfg.EmbedderName, cfg.EmbeddingModelID)
		}
		fmt.Fprintf(out, "  dir:          %s\n", layout.Dir)
		fmt.Fprintf(out, "  src:          %s\n", layout.SrcDir())
		fmt.Fprintf(out, "  output:       %s\n", layout.OutputDir())
		fmt.Fprintf(out, "  logs:         %s\n", layout.LogsDir())
		return nil
	},
}
