package main

import (
	"github.com/matsen/citegraph/internal/paper"
	"github.com/spf13/cobra"
)

func init() {
	addSessionFlags(edgeAddCmd, true)
	addSessionFlags(edgeRemoveCmd, true)
	addSessionFlags(edgeListCmd, true)
	edgeListCmd.Flags().String("node", "", "Only list edges touching this paper")

	edgeCmd.AddCommand(edgeAddCmd, edgeRemoveCmd, edgeListCmd)
	rootCmd.AddCommand(edgeCmd)
}

var edgeCmd = &cobra.Command{
	Use:   "edge",
	Short: "Manage citation edges",
	Long: `Citation edges point from the cited paper to the citing paper:
"edge add A B" records that B cites A.`,
}

// EdgeResult is the response for the edge add and remove commands.
type EdgeResult struct {
	Action string     `json:"action"` // "added", "exists" or "removed"
	Edge   paper.Edge `json:"edge"`
}

var edgeAddCmd = &cobra.Command{
	Use:   "add <cited-id> <citing-id>",
	Short: "Add a citation edge",
	Args:  cobra.ExactArgs(2),
	RunE:  runEdgeAdd,
}

func runEdgeAdd(cmd *cobra.Command, args []string) error {
	s := mustOpenSession(cmd.Context())
	defer s.Close()

	e := paper.Edge{SourceID: args[0], TargetID: args[1]}
	added, err := s.engine.AddEdge(cmd.Context(), e.SourceID, e.TargetID)
	exitOnError(err, "adding edge")

	action := "exists"
	if added {
		action = "added"
	}
	if humanOutput {
		outputHuman("%s: %s -> %s\n", action, describeNode(s, e.SourceID), describeNode(s, e.TargetID))
		return nil
	}
	return outputJSON(EdgeResult{Action: action, Edge: e})
}

var edgeRemoveCmd = &cobra.Command{
	Use:   "remove <cited-id> <citing-id>",
	Short: "Remove a citation edge",
	Args:  cobra.ExactArgs(2),
	RunE:  runEdgeRemove,
}

func runEdgeRemove(cmd *cobra.Command, args []string) error {
	s := mustOpenSession(cmd.Context())
	defer s.Close()

	e := paper.Edge{SourceID: args[0], TargetID: args[1]}
	exitOnError(s.engine.RemoveEdge(cmd.Context(), e.SourceID, e.TargetID), "removing edge")

	if humanOutput {
		outputHuman("Removed %s\n", formatEdge(e))
		return nil
	}
	return outputJSON(EdgeResult{Action: "removed", Edge: e})
}

var edgeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List citation edges",
	Args:  cobra.NoArgs,
	RunE:  runEdgeList,
}

func runEdgeList(cmd *cobra.Command, args []string) error {
	nodeID, _ := cmd.Flags().GetString("node")

	s := mustOpenSession(cmd.Context())
	defer s.Close()

	edges := filterEdges(s.engine.Edges(), nodeID)
	if humanOutput {
		if len(edges) == 0 {
			outputHuman("No edges\n")
		}
		for _, e := range edges {
			outputHuman("%s -> %s\n", describeNode(s, e.SourceID), describeNode(s, e.TargetID))
		}
		return nil
	}
	return outputJSON(edges)
}

// filterEdges keeps the edges touching id; an empty id keeps all.
func filterEdges(edges []paper.Edge, id string) []paper.Edge {
	out := make([]paper.Edge, 0, len(edges))
	for _, e := range edges {
		if id == "" || e.Touches(id) {
			out = append(out, e)
		}
	}
	return out
}
