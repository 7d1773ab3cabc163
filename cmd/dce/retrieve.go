package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"contextengine/internal/retrieval"
)

var (
	retrieveLimit int
	retrieveDS    []string
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [text...]",
	Short: "Run a semantic query against the project's vector index",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine(projectDir)
		if err != nil {
			return err
		}
		defer e.Close()

		query := strings.Join(args, " ")
		results, err := e.newRetrievalPipeline().Retrieve(cmd.Context(), query, retrieveLimit, retrieveDS, retrieval.DirectQuery)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(results) == 0 {
			fmt.Fprintln(out, dimStyle.Render("no matches"))
			return nil
		}
		for i, r := range results {
			fmt.Fprintf(out, "%s  %s  %s\n",
				headingStyle.Render(fmt.Sprintf("%d.", i+1)),
				dimStyle.Render(fmt.Sprintf("dist=%.4f %s", r.Distance, r.DatasourceID)),
				r.FullType)
			fmt.Fprintln(out, r.DisplayText)
			fmt.Fprintln(out)
		}
		return nil
	},
}

func init() {
	retrieveCmd.Flags().IntVarP(&retrieveLimit, "limit", "l", retrieval.DefaultLimit, "maximum number of results")
	retrieveCmd.Flags().StringArrayVar(&retrieveDS, "ds", nil, "restrict to this datasource id (repeatable)")
}
