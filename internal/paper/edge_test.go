package paper

import (
	"errors"
	"testing"
)

func TestEdge_Validate(t *testing.T) {
	tests := []struct {
		name    string
		edge    Edge
		wantErr error
	}{
		{
			name:    "valid edge",
			edge:    Edge{SourceID: "W2741809807", TargetID: "W2100837269"},
			wantErr: nil,
		},
		{
			name:    "empty source_id",
			edge:    Edge{SourceID: "", TargetID: "W2100837269"},
			wantErr: ErrEmptySourceID,
		},
		{
			name:    "empty target_id",
			edge:    Edge{SourceID: "W2741809807", TargetID: ""},
			wantErr: ErrEmptyTargetID,
		},
		{
			name:    "self edge",
			edge:    Edge{SourceID: "W2741809807", TargetID: "W2741809807"},
			wantErr: ErrSelfEdge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.edge.Validate()
			if err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestEdge_Key(t *testing.T) {
	e := Edge{SourceID: "P1", TargetID: "P2"}
	key := e.Key()
	if key.SourceID != "P1" {
		t.Errorf("SourceID = %q, want %q", key.SourceID, "P1")
	}
	if key.TargetID != "P2" {
		t.Errorf("TargetID = %q, want %q", key.TargetID, "P2")
	}
	if key.Edge() != e {
		t.Errorf("Key().Edge() = %v, want %v", key.Edge(), e)
	}

	reversed := Edge{SourceID: "P2", TargetID: "P1"}
	if reversed.Key() == key {
		t.Error("keys of reversed edges must differ")
	}
}

func TestDetectOrphanedEdges(t *testing.T) {
	valid := map[string]bool{"A": true, "B": true}
	edges := []Edge{
		{SourceID: "A", TargetID: "B"},
		{SourceID: "X", TargetID: "B"},
		{SourceID: "A", TargetID: "Y"},
		{SourceID: "X", TargetID: "Y"},
	}

	orphaned, ok := DetectOrphanedEdges(edges, valid)
	if len(ok) != 1 || ok[0] != edges[0] {
		t.Fatalf("valid = %v, want only A->B", ok)
	}

	wantReasons := []string{"missing_source", "missing_target", "missing_both"}
	if len(orphaned) != len(wantReasons) {
		t.Fatalf("got %d orphaned edges, want %d", len(orphaned), len(wantReasons))
	}
	for i, want := range wantReasons {
		if orphaned[i].Reason != want {
			t.Errorf("orphaned[%d].Reason = %q, want %q", i, orphaned[i].Reason, want)
		}
	}
}

func TestNodeFields_Apply(t *testing.T) {
	n := Node{ExternalID: "W1", Label: "Smith (2020)", Title: "Old", Memo: "keep"}
	label := "Smith et al. (2020)"
	link := "https://doi.org/10.1/x"
	NodeFields{Label: &label, Link: &link}.Apply(&n)

	if n.Label != label {
		t.Errorf("Label = %q, want %q", n.Label, label)
	}
	if n.Link != link {
		t.Errorf("Link = %q, want %q", n.Link, link)
	}
	if n.Title != "Old" || n.Memo != "keep" {
		t.Errorf("unset fields changed: %+v", n)
	}
}

func TestNodeFields_Validate(t *testing.T) {
	blank := "  "
	if err := (NodeFields{Label: &blank}).Validate(); err != ErrEmptyLabel {
		t.Errorf("Validate() = %v, want %v", err, ErrEmptyLabel)
	}
	if !(NodeFields{}).IsEmpty() {
		t.Error("zero NodeFields should be empty")
	}
}

func TestErrors(t *testing.T) {
	err := NodeNotFound("W1")
	if !IsNotFound(err) {
		t.Errorf("IsNotFound(%v) = false", err)
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.ID != "W1" {
		t.Errorf("errors.As did not recover NotFoundError: %v", err)
	}

	conflict := &ScopeConflictError{ExternalID: "W1"}
	if !IsConflict(conflict) {
		t.Error("IsConflict(ScopeConflictError) = false")
	}
	if !IsConflict(errors.Join(errors.New("insert"), ErrDuplicate)) {
		t.Error("IsConflict(ErrDuplicate) = false")
	}
	if IsConflict(err) {
		t.Error("IsConflict(NotFoundError) = true")
	}
}
