package main

import (
	"strings"
	"testing"

	"github.com/matsen/citegraph/internal/paper"
)

func TestTruncateString(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"a longer title here", 10, "a longe..."},
		{"Müller über alles", 8, "Mülle..."},
	}

	for _, tt := range tests {
		if got := truncateString(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}

func TestFormatNodeHuman(t *testing.T) {
	n := paper.Node{
		ExternalID: "W1",
		Label:      "Smith (2020)",
		Title:      "A study",
		Link:       "https://doi.org/10.1/x",
	}
	got := formatNodeHuman(n)

	for _, want := range []string{"W1  Smith (2020)", "Title: A study", "Link: https://doi.org/10.1/x"} {
		if !strings.Contains(got, want) {
			t.Errorf("formatNodeHuman() = %q, missing %q", got, want)
		}
	}
	if strings.Contains(got, "Memo:") || strings.Contains(got, "Authors:") {
		t.Errorf("formatNodeHuman() printed empty fields: %q", got)
	}
}

func TestFormatEdge(t *testing.T) {
	if got := formatEdge(paper.Edge{SourceID: "W2", TargetID: "W1"}); got != "W2 -> W1" {
		t.Errorf("formatEdge() = %q", got)
	}
}
