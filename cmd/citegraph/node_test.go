package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/matsen/citegraph/internal/paper"
	"github.com/matsen/citegraph/internal/storage"
	"github.com/spf13/cobra"
)

func TestNodeFieldsFromFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "update"}
	addNodeFieldFlags(cmd)
	if err := cmd.ParseFlags([]string{"--memo", "read first", "--link", ""}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}

	fields := nodeFieldsFromFlags(cmd)
	if fields.Memo == nil || *fields.Memo != "read first" {
		t.Errorf("Memo = %v, want %q", fields.Memo, "read first")
	}
	if fields.Link == nil || *fields.Link != "" {
		t.Errorf("Link = %v, want explicit empty value", fields.Link)
	}
	if fields.Label != nil || fields.Title != nil || fields.Authors != nil {
		t.Errorf("unset flags produced fields: %+v", fields)
	}
}

func TestNodeFieldsFromFlags_None(t *testing.T) {
	cmd := &cobra.Command{Use: "update"}
	addNodeFieldFlags(cmd)
	if err := cmd.ParseFlags(nil); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	if !nodeFieldsFromFlags(cmd).IsEmpty() {
		t.Error("expected empty update")
	}
}

func TestFilterEdges(t *testing.T) {
	edges := []paper.Edge{
		{SourceID: "W1", TargetID: "W2"},
		{SourceID: "W2", TargetID: "W3"},
		{SourceID: "W4", TargetID: "W5"},
	}

	if got := filterEdges(edges, ""); len(got) != 3 {
		t.Errorf("filterEdges(all) = %v", got)
	}
	got := filterEdges(edges, "W2")
	if len(got) != 2 || got[0] != edges[0] || got[1] != edges[1] {
		t.Errorf("filterEdges(W2) = %v", got)
	}
	if got := filterEdges(edges, "W9"); got == nil || len(got) != 0 {
		t.Errorf("filterEdges(W9) = %#v, want empty non-nil", got)
	}
}

func TestResolveTopic(t *testing.T) {
	db, err := storage.OpenDB(filepath.Join(t.TempDir(), "citegraph.db"))
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	u, err := db.CreateUser(ctx, "admin", "hash", true)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	def, err := resolveTopic(ctx, db, u.ID, "")
	if err != nil {
		t.Fatalf("resolveTopic(default): %v", err)
	}
	if def.Name != storage.DefaultTopic {
		t.Errorf("Name = %q, want %q", def.Name, storage.DefaultTopic)
	}

	if _, err := resolveTopic(ctx, db, u.ID, "review"); !paper.IsNotFound(err) {
		t.Errorf("resolveTopic(missing) = %v, want not found", err)
	}

	created, err := db.CreateTopic(ctx, u.ID, "review")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}
	got, err := resolveTopic(ctx, db, u.ID, " review ")
	if err != nil {
		t.Fatalf("resolveTopic(review): %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("ID = %d, want %d", got.ID, created.ID)
	}
}

func TestNewLogger(t *testing.T) {
	if _, err := newLogger("debug", false); err != nil {
		t.Errorf("newLogger(debug): %v", err)
	}
	if _, err := newLogger("warn", true); err != nil {
		t.Errorf("newLogger(warn, human): %v", err)
	}
	for _, bad := range []string{"", "loud"} {
		if _, err := newLogger(bad, false); err == nil {
			t.Errorf("newLogger(%q) succeeded", bad)
		}
	}
}
