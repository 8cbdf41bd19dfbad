package main

import (
	"fmt"
	"os"

	"github.com/matsen/citegraph/internal/viz"
	"github.com/spf13/cobra"
)

var vizOutput string
var vizLayout string

func init() {
	addSessionFlags(vizCmd, true)
	vizCmd.Flags().StringVarP(&vizOutput, "output", "o", "", "Output file path (default: stdout)")
	vizCmd.Flags().StringVar(&vizLayout, "layout", "force", "Layout algorithm: force, circle, grid, or hierarchy")
	rootCmd.AddCommand(vizCmd)
}

var vizCmd = &cobra.Command{
	Use:   "viz",
	Short: "Generate citation graph visualization",
	Long: `Generate an interactive HTML visualization of a topic's citation graph.

Arrows point from the cited paper to the citing paper; larger nodes are
cited more often within the graph. Hover for details, click a paper to
open its link.

Examples:
  # Generate HTML to stdout
  citegraph viz -u admin > graph.html

  # Generate to file with a hierarchical layout
  citegraph viz -u admin --layout hierarchy --output graph.html`,
	Args: cobra.NoArgs,
	RunE: runViz,
}

func runViz(cmd *cobra.Command, args []string) error {
	s := mustOpenSession(cmd.Context())
	defer s.Close()

	opts := viz.HTMLOptions{
		Layout: vizLayout,
		Title:  s.topic.Name,
	}
	html, err := viz.GenerateHTML(viz.FromGraph(s.engine.Snapshot()), opts)
	if err != nil {
		exitWithError(ExitDataError, "generating HTML: %v", err)
	}

	if vizOutput == "" {
		fmt.Print(html)
		return nil
	}

	if err := os.WriteFile(vizOutput, []byte(html), 0o644); err != nil {
		return fmt.Errorf("writing output file: %w", err)
	}
	if humanOutput {
		outputHuman("Visualization written to %s\n", vizOutput)
		return nil
	}
	return outputJSON(StatusResponse{Status: "written", Path: vizOutput})
}
