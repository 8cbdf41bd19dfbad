package main

import (
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	addSessionFlags(searchCmd, false)
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <title...>",
	Short: "Find works on OpenAlex by title",
	Long: `Search OpenAlex for works matching a title and list the best matches.
Use the returned IDs with 'citegraph node add'.

Examples:
  citegraph search -u admin "attention is all you need"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	db, _ := mustAuthenticate(ctx)
	defer db.Close()

	query := strings.Join(args, " ")
	results, err := newClient(nil).SearchByTitle(ctx, query)
	exitOnError(err, "searching %q", query)

	if humanOutput {
		printSearchResultsHuman(results)
		return nil
	}
	return outputJSON(results)
}
