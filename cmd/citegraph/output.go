package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/matsen/citegraph/internal/openalex"
	"github.com/matsen/citegraph/internal/paper"
)

// Title truncation lengths by context
const (
	SearchTitleMaxLen = 80
	ListTitleMaxLen   = 60
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputHuman writes a human-readable string to stdout.
func outputHuman(format string, args ...any) {
	fmt.Printf(format, args...)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is a generic response for commands that return status.
type StatusResponse struct {
	Status string `json:"status"`
	ID     string `json:"id,omitempty"`
	Path   string `json:"path,omitempty"`
}

// truncateString truncates a string to maxLen runes, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

// formatNodeHuman formats a node for human-readable output.
func formatNodeHuman(n paper.Node) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s  %s\n", n.ExternalID, n.Label)
	if n.Title != "" {
		fmt.Fprintf(&sb, "  Title: %s\n", truncateString(n.Title, ListTitleMaxLen))
	}
	if n.Authors != "" {
		fmt.Fprintf(&sb, "  Authors: %s\n", truncateString(n.Authors, ListTitleMaxLen))
	}
	if n.Link != "" {
		fmt.Fprintf(&sb, "  Link: %s\n", n.Link)
	}
	if n.Memo != "" {
		fmt.Fprintf(&sb, "  Memo: %s\n", n.Memo)
	}
	return sb.String()
}

// printSearchResultsHuman prints numbered search results.
func printSearchResultsHuman(results []openalex.SearchResult) {
	if len(results) == 0 {
		outputHuman("No matching works\n")
		return
	}
	for i, r := range results {
		outputHuman("%d. %s  %s\n", i+1, r.ID, truncateString(r.Title, SearchTitleMaxLen))
	}
}

// formatEdge renders an edge as "cited -> citing".
func formatEdge(e paper.Edge) string {
	return e.SourceID + " -> " + e.TargetID
}
