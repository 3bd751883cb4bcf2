package sync

import (
	"strings"
	"testing"

	"story-editor/model"
)

// ============================================
// Test: Stato di sincronizzazione
// ============================================

func seedGraph() (model.StoryStack, []model.StoryCard, []model.StoryChoice) {
	stack := model.StoryStack{
		ID:          "stack-1",
		Name:        "Storia",
		FirstCardID: "uuid-a",
	}
	cards := []model.StoryCard{
		{ID: "uuid-a", Title: "A", Content: "testo a", IsStart: true, OrderIndex: 0},
		{ID: "uuid-b", Title: "B", Content: "testo b. The End.", OrderIndex: 1},
	}
	choices := []model.StoryChoice{
		{ID: "choice-1", StoryCardID: "uuid-a", TargetCardID: "uuid-b", Label: "vai", OrderIndex: 0},
	}
	return stack, cards, choices
}

func TestCreateSyncState(t *testing.T) {
	stack, cards, choices := seedGraph()

	state := CreateSyncState(stack, cards, choices)

	if state.IsDirty {
		t.Error("Fresh state must not be dirty")
	}
	if state.Text == "" {
		t.Error("Expected serialized text")
	}
	if !strings.Contains(state.Text, "# Story: Storia") {
		t.Errorf("Missing header in text:\n%s", state.Text)
	}
	if state.Document == nil || len(state.Document.Cards) != 2 {
		t.Fatalf("Expected parsed document with 2 cards")
	}
	if state.IdMapping == nil || state.IdMapping.Len() != 2 {
		t.Error("Expected id mapping for both cards")
	}
	if len(state.ParseErrors) != 0 {
		t.Errorf("Serialized text must reparse cleanly: %v", state.ParseErrors)
	}
	if state.LastSyncAt.IsZero() {
		t.Error("Expected sync timestamp")
	}

	t.Logf("✅ State created, %d mapping pairs", state.IdMapping.Len())
}

func TestUpdateFromDsl(t *testing.T) {
	stack, cards, choices := seedGraph()
	state := CreateSyncState(stack, cards, choices)
	mappingBefore := state.IdMapping.Len()

	UpdateFromDsl(state, "## nuova: Nuova\n@start\naltro testo. The End.\n")

	if !state.IsDirty {
		t.Error("Edit must mark state dirty")
	}
	if len(state.Document.Cards) != 1 {
		t.Errorf("Expected reparsed document, got %d cards", len(state.Document.Cards))
	}
	// La mapping non viene toccata: si aggiorna solo con apply
	if state.IdMapping.Len() != mappingBefore {
		t.Error("UpdateFromDsl must not touch the mapping")
	}
}

func TestUpdateFromDslKeepsDiagnostics(t *testing.T) {
	stack, cards, choices := seedGraph()
	state := CreateSyncState(stack, cards, choices)

	UpdateFromDsl(state, "-> scelta orfana -> x\n")

	if len(state.ParseErrors) == 0 {
		t.Error("Expected parse errors surfaced in state")
	}
	if !state.IsDirty {
		t.Error("State must stay dirty on broken text")
	}
}

func TestUpdateFromGraphResetsDirty(t *testing.T) {
	stack, cards, choices := seedGraph()
	state := CreateSyncState(stack, cards, choices)

	UpdateFromDsl(state, "## x: X\ntesto. The End.\n")
	if !state.IsDirty {
		t.Fatal("Precondition: state dirty")
	}

	cards[0].Content = "testo cambiato dal canvas"
	UpdateFromGraph(state, stack, cards, choices)

	if state.IsDirty {
		t.Error("Graph sync must reset dirty flag")
	}
	if !strings.Contains(state.Text, "testo cambiato dal canvas") {
		t.Error("Text must reflect the new graph")
	}
}
