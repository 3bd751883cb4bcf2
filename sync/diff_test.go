package sync

import (
	"testing"
)

// ============================================
// Test: Diff tra documenti
// ============================================

func TestDiffNoChanges(t *testing.T) {
	doc := mustParse(t, "## a: A\n@start\ntesto. The End.\n")

	diff := ComputeDiff(doc, doc)

	if diff.HasChanges() {
		t.Errorf("Expected no changes, got %+v", diff)
	}

	t.Log("✅ Identical documents produce an empty diff")
}

func TestDiffAdded(t *testing.T) {
	oldDoc := mustParse(t, "## a: A\n@start\ntesto. The End.\n")
	newDoc := mustParse(t, "## a: A\n@start\ntesto. The End.\n## b: B\nnuova. The End.\n")

	diff := ComputeDiff(oldDoc, newDoc)

	if len(diff.Added) != 1 || diff.Added[0].ID != "b" {
		t.Errorf("Expected added 'b', got %+v", diff.Added)
	}
	if len(diff.Removed) != 0 || len(diff.Modified) != 0 {
		t.Errorf("Unexpected removed/modified: %+v", diff)
	}
}

func TestDiffRemoved(t *testing.T) {
	oldDoc := mustParse(t, "## a: A\n@start\ntesto. The End.\n## b: B\nvecchia. The End.\n")
	newDoc := mustParse(t, "## a: A\n@start\ntesto. The End.\n")

	diff := ComputeDiff(oldDoc, newDoc)

	if len(diff.Removed) != 1 || diff.Removed[0] != "b" {
		t.Errorf("Expected removed 'b', got %+v", diff.Removed)
	}
}

func TestDiffModifiedFields(t *testing.T) {
	oldDoc := mustParse(t, "## a: A\n@start\n@speaker: Mago\ntesto. The End.\n")
	newDoc := mustParse(t, "## a: Altro Titolo\n@start\n@speaker: Strega\ntesto. The End.\n")

	diff := ComputeDiff(oldDoc, newDoc)

	if len(diff.Modified) != 1 {
		t.Fatalf("Expected 1 modified, got %d", len(diff.Modified))
	}
	modified := diff.Modified[0]
	if modified.Fields["title"] != "Altro Titolo" {
		t.Errorf("Expected title change, got %+v", modified.Fields)
	}
	if modified.Fields["speaker"] != "Strega" {
		t.Errorf("Expected speaker change, got %+v", modified.Fields)
	}
	if modified.ChoicesChanged {
		t.Error("Choices did not change")
	}

	t.Logf("✅ Modified fields: %v", modified.Fields)
}

func TestDiffChoicesChanged(t *testing.T) {
	oldDoc := mustParse(t, "## a: A\n@start\ntesto\n-> vai -> b\n## b: B\nfine. The End.\n")
	newDoc := mustParse(t, "## a: A\n@start\ntesto\n-> corri -> b\n## b: B\nfine. The End.\n")

	diff := ComputeDiff(oldDoc, newDoc)

	if len(diff.Modified) != 1 {
		t.Fatalf("Expected 1 modified, got %d", len(diff.Modified))
	}
	modified := diff.Modified[0]
	if !modified.ChoicesChanged {
		t.Error("Expected choices changed")
	}
	// La lista nuova intera, non un diff per-scelta
	if len(modified.Choices) != 1 || modified.Choices[0].Label != "corri" {
		t.Errorf("Expected new choice list, got %+v", modified.Choices)
	}
	if len(modified.Fields) != 0 {
		t.Errorf("No field changes expected, got %+v", modified.Fields)
	}
}

func TestDiffChoiceReorderDetected(t *testing.T) {
	oldDoc := mustParse(t, "## a: A\n@start\ntesto\n-> uno -> b\n-> due -> b\n## b: B\nfine. The End.\n")
	newDoc := mustParse(t, "## a: A\n@start\ntesto\n-> due -> b\n-> uno -> b\n## b: B\nfine. The End.\n")

	diff := ComputeDiff(oldDoc, newDoc)

	if len(diff.Modified) != 1 || !diff.Modified[0].ChoicesChanged {
		t.Error("Choice reorder must be detected")
	}
}

func TestDiffStartChanged(t *testing.T) {
	oldDoc := mustParse(t, "## a: A\n@start\ntesto\n-> vai -> b\n## b: B\nfine. The End.\n")
	newDoc := mustParse(t, "## a: A\ntesto\n-> vai -> b\n## b: B\n@start\nfine. The End.\n")

	diff := ComputeDiff(oldDoc, newDoc)

	if !diff.StartChanged {
		t.Error("Expected start changed")
	}
}

func TestDiffNilDocuments(t *testing.T) {
	doc := mustParse(t, "## a: A\n@start\ntesto. The End.\n")

	fromNil := ComputeDiff(nil, doc)
	if len(fromNil.Added) != 1 {
		t.Errorf("Expected 1 added from nil, got %d", len(fromNil.Added))
	}
	if !fromNil.StartChanged {
		t.Error("Start goes from '' to 'a': changed")
	}

	toNil := ComputeDiff(doc, nil)
	if len(toNil.Removed) != 1 {
		t.Errorf("Expected 1 removed to nil, got %d", len(toNil.Removed))
	}
}
