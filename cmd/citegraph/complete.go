package main

import (
	"github.com/matsen/citegraph/internal/graph"
	"github.com/spf13/cobra"
)

func init() {
	addSessionFlags(completeCmd, true)
	rootCmd.AddCommand(completeCmd)
}

// CompleteResult is the response for the complete command.
type CompleteResult struct {
	Added int         `json:"added"`
	Stats graph.Stats `json:"stats"`
}

var completeCmd = &cobra.Command{
	Use:   "complete",
	Short: "Add every citation edge between papers in the graph",
	Long: `Look up each paper's references on OpenAlex and add an edge wherever one
paper in the graph cites another. Existing edges are kept; running it again
adds nothing new. Papers whose lookup fails are skipped.`,
	Args: cobra.NoArgs,
	RunE: runComplete,
}

func runComplete(cmd *cobra.Command, args []string) error {
	s := mustOpenSession(cmd.Context())
	defer s.Close()

	added, err := s.engine.AutoComplete(cmd.Context())
	if err != nil {
		logger.Error().Err(err).Int("added", added).Msg("auto-completion stopped")
	}
	exitOnError(err, "completing graph (%d edges added before failure)", added)

	result := CompleteResult{Added: added, Stats: s.engine.Stats()}
	if humanOutput {
		outputHuman("Added %d edges (%d papers, %d edges in %s)\n",
			result.Added, result.Stats.Nodes, result.Stats.Edges, s.topic.Name)
		return nil
	}
	return outputJSON(result)
}
