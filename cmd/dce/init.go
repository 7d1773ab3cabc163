package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"contextengine/internal/project"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold a new project in the current (or --project) directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := project.Init(projectDir)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s project %s (%s)\n",
			okStyle.Render("initialised"), cfg.ProjectID, projectDir)
		return nil
	},
}
