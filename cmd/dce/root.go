package main

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// projectDir is the root flag every subcommand resolves its
// project.Layout against.
var projectDir string

var rootCmd = &cobra.Command{
	Use:           "dce",
	Short:         "Context build & retrieval engine",
	Long:          "dce turns heterogeneous data sources under src/ into a searchable vector index and answers semantic queries against it.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

func init() {
	rootCmd.PersistentFlags().StringVar(&projectDir, "project", ".", "project root directory")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(datasourceCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(retrieveCmd)
	rootCmd.AddCommand(infoCmd)
}
