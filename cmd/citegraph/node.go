package main

import (
	"context"
	"fmt"

	"github.com/matsen/citegraph/internal/openalex"
	"github.com/matsen/citegraph/internal/paper"
	"github.com/matsen/citegraph/internal/pdf"
	"github.com/spf13/cobra"
)

func init() {
	addSessionFlags(nodeAddCmd, true)
	addSessionFlags(nodeAddPDFCmd, true)
	nodeAddPDFCmd.Flags().Bool("first", false, "Without a DOI, add the best title match instead of listing candidates")
	addSessionFlags(nodeListCmd, true)
	addSessionFlags(nodeUpdateCmd, true)
	addNodeFieldFlags(nodeUpdateCmd)
	addSessionFlags(nodeRemoveCmd, true)

	nodeCmd.AddCommand(nodeAddCmd, nodeAddPDFCmd, nodeListCmd, nodeUpdateCmd, nodeRemoveCmd)
	rootCmd.AddCommand(nodeCmd)
}

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Manage papers in a topic's graph",
}

// NodeRemoveResult is the response for the node remove command.
type NodeRemoveResult struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

var nodeAddCmd = &cobra.Command{
	Use:   "add <openalex-id>",
	Short: "Add a paper by OpenAlex work ID",
	Long: `Add a paper to the topic's graph. The label, title, authors and link
are taken from OpenAlex. The ID may be given as W123 or as a full
https://openalex.org/W123 URL.`,
	Args: cobra.ExactArgs(1),
	RunE: runNodeAdd,
}

func runNodeAdd(cmd *cobra.Command, args []string) error {
	id := openalex.NormalizeID(args[0])
	if !openalex.IsWorkID(id) {
		exitWithError(ExitDataError, "%v: %q", openalex.ErrInvalidID, args[0])
	}

	ctx := cmd.Context()
	s := mustOpenSession(ctx)
	defer s.Close()

	if s.engine.HasNode(id) {
		exitOnError(&paper.ScopeConflictError{ExternalID: id}, "adding node")
	}

	meta, err := s.cache.GetMetadata(ctx, id)
	exitOnError(err, "looking up %s", id)

	return addNode(ctx, s, meta.Node())
}

// addNode adds n to the session's graph and reports it.
func addNode(ctx context.Context, s *cliSession, n paper.Node) error {
	exitOnError(s.engine.AddNode(ctx, n), "adding node")

	if humanOutput {
		outputHuman("Added to %s:\n%s", s.topic.Name, formatNodeHuman(n))
		return nil
	}
	return outputJSON(n)
}

var nodeAddPDFCmd = &cobra.Command{
	Use:   "add-pdf <file>",
	Short: "Add a paper from its PDF",
	Long: `Extract the DOI from a PDF's first pages, resolve it on OpenAlex and add
the work to the topic's graph.

When no DOI is found the extracted title is searched instead and the
candidates are listed; pass --first to add the best match directly.`,
	Args: cobra.ExactArgs(1),
	RunE: runNodeAddPDF,
}

func runNodeAddPDF(cmd *cobra.Command, args []string) error {
	path := args[0]
	first, _ := cmd.Flags().GetBool("first")

	doi, err := pdf.ExtractDOI(path)
	if err != nil {
		exitWithError(ExitDataError, "reading %s: %v", path, err)
	}

	ctx := cmd.Context()
	s := mustOpenSession(ctx)
	defer s.Close()

	if doi != "" {
		logger.Debug().Str("doi", doi).Str("file", path).Msg("found DOI")
		w, err := s.client.GetWorkByDOI(ctx, doi)
		exitOnError(err, "resolving DOI %s", doi)

		meta := openalex.ToMetadata(*w, cfg.ReferenceCap)
		if s.engine.HasNode(meta.ID) {
			exitOnError(&paper.ScopeConflictError{ExternalID: meta.ID}, "adding node")
		}
		return addNode(ctx, s, meta.Node())
	}

	title, err := pdf.ExtractTitle(path)
	if err != nil || title == "" {
		exitWithError(ExitDataError, "no DOI or title found in %s", path)
	}

	results, err := s.client.SearchByTitle(ctx, title)
	exitOnError(err, "searching %q", title)
	if len(results) == 0 {
		exitWithError(ExitNotFound, "no DOI in %s and no work matches title %q", path, title)
	}

	if !first {
		if humanOutput {
			outputHuman("No DOI found; works matching %q:\n", title)
			printSearchResultsHuman(results)
			return nil
		}
		return outputJSON(results)
	}

	meta, err := s.cache.GetMetadata(ctx, results[0].ID)
	exitOnError(err, "looking up %s", results[0].ID)
	return addNode(ctx, s, meta.Node())
}

var nodeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the papers in the graph",
	Args:  cobra.NoArgs,
	RunE:  runNodeList,
}

func runNodeList(cmd *cobra.Command, args []string) error {
	s := mustOpenSession(cmd.Context())
	defer s.Close()

	nodes := s.engine.Nodes()
	if humanOutput {
		if len(nodes) == 0 {
			outputHuman("No papers in %s\n", s.topic.Name)
		}
		for _, n := range nodes {
			outputHuman("%s", formatNodeHuman(n))
		}
		return nil
	}
	return outputJSON(nodes)
}

var nodeUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Edit a paper's label, title, authors, link or memo",
	Long: `Edit a paper's fields. Only the flags given are changed; pass an empty
value to clear an optional field.

Examples:
  citegraph node update -u admin W2741809807 --memo "start here"`,
	Args: cobra.ExactArgs(1),
	RunE: runNodeUpdate,
}

// addNodeFieldFlags registers one flag per editable node field.
func addNodeFieldFlags(cmd *cobra.Command) {
	cmd.Flags().String("label", "", "Display label")
	cmd.Flags().String("title", "", "Title")
	cmd.Flags().String("authors", "", "Authors, comma-separated")
	cmd.Flags().String("link", "", "URL opened when the node is clicked")
	cmd.Flags().String("memo", "", "Free-form note")
}

// nodeFieldsFromFlags builds a partial update from the flags that were set.
func nodeFieldsFromFlags(cmd *cobra.Command) paper.NodeFields {
	get := func(name string) *string {
		if !cmd.Flags().Changed(name) {
			return nil
		}
		v, _ := cmd.Flags().GetString(name)
		return &v
	}
	return paper.NodeFields{
		Label:   get("label"),
		Title:   get("title"),
		Authors: get("authors"),
		Link:    get("link"),
		Memo:    get("memo"),
	}
}

func runNodeUpdate(cmd *cobra.Command, args []string) error {
	fields := nodeFieldsFromFlags(cmd)
	if fields.IsEmpty() {
		exitWithError(ExitDataError, "nothing to update: pass at least one of --label, --title, --authors, --link, --memo")
	}

	s := mustOpenSession(cmd.Context())
	defer s.Close()

	n, err := s.engine.UpdateNode(cmd.Context(), args[0], fields)
	exitOnError(err, "updating node")

	if humanOutput {
		outputHuman("Updated:\n%s", formatNodeHuman(n))
		return nil
	}
	return outputJSON(n)
}

var nodeRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a paper and its citation edges",
	Args:  cobra.ExactArgs(1),
	RunE:  runNodeRemove,
}

func runNodeRemove(cmd *cobra.Command, args []string) error {
	s := mustOpenSession(cmd.Context())
	defer s.Close()

	id := args[0]
	exitOnError(s.engine.RemoveNode(cmd.Context(), id), "removing node")

	if humanOutput {
		outputHuman("Removed %s\n", id)
		return nil
	}
	return outputJSON(NodeRemoveResult{Status: "removed", ID: id})
}

// describeNode is the short form used in edge listings.
func describeNode(s *cliSession, id string) string {
	if n, ok := s.engine.Node(id); ok {
		return fmt.Sprintf("%s (%s)", id, n.Label)
	}
	return id
}
