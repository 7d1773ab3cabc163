package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"contextengine/internal/export"
	"contextengine/internal/progress"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Discover src/ datasources, embed them, and write output/",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine(projectDir)
		if err != nil {
			return err
		}
		defer e.Close()

		exportWriter, err := export.NewWriter(e.Layout.OutputDir())
		if err != nil {
			return err
		}
		defer exportWriter.Close()

		pipeline := e.newBuildPipeline(exportWriter)

		out := cmd.OutOrStdout()
		cb := func(ev progress.Event) {
			switch ev.Kind {
			case progress.DatasourceFinished:
				switch ev.Status {
				case progress.StatusOK:
					fmt.Fprintf(out, "%s %s\n", okStyle.Render("ok"), ev.DatasourceID)
				case progress.StatusFailed:
					fmt.Fprintf(out, "%s %s: %s\n", failStyle.Render("failed"), ev.DatasourceID, ev.Error)
				case progress.StatusSkipped:
					fmt.Fprintf(out, "%s %s\n", dimStyle.Render("skipped"), ev.DatasourceID)
				}
			case progress.TaskFinished:
				fmt.Fprintf(out, "%s %s\n", headingStyle.Render("done"), ev.Message)
			}
		}

		_, tally, err := pipeline.BuildLocked(cmd.Context(), e.Layout, cb)
		if err != nil {
			return err
		}
		if tally.Failed > 0 {
			return fmt.Errorf("build completed with %d failed source(s)", tally.Failed)
		}
		return nil
	},
}
