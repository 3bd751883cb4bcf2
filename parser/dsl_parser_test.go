package parser

import (
	"strings"
	"testing"
)

// ============================================
// Test: Esempio end-to-end
// ============================================

func TestParseEndToEnd(t *testing.T) {
	text := "# Story: Test\n## start: Start\n@start\nHello\n-> Go -> end_path\n---\n## end_path: End\nBye\n"

	result := Parse(text, Options{ValidateTargets: true})

	if !result.Success {
		t.Fatalf("Expected success, got errors: %v", result.Errors)
	}

	doc := result.Document
	if doc.Metadata.Title != "Test" {
		t.Errorf("Expected title 'Test', got '%s'", doc.Metadata.Title)
	}

	if len(doc.Cards) != 2 {
		t.Fatalf("Expected 2 cards, got %d", len(doc.Cards))
	}

	if doc.StartCardID != "start" {
		t.Errorf("Expected start card 'start', got '%s'", doc.StartCardID)
	}

	first := doc.Cards[0]
	if !first.IsStart {
		t.Error("Expected first card to be start")
	}
	if first.Content != "Hello" {
		t.Errorf("Expected content 'Hello', got '%s'", first.Content)
	}
	if len(first.Choices) != 1 {
		t.Fatalf("Expected 1 choice, got %d", len(first.Choices))
	}
	choice := first.Choices[0]
	if choice.Label != "Go" {
		t.Errorf("Expected label 'Go', got '%s'", choice.Label)
	}
	if choice.Target.IsEnd() || choice.Target.CardID != "end_path" {
		t.Errorf("Expected target 'end_path', got %+v", choice.Target)
	}

	second := doc.Cards[1]
	if second.Content != "Bye" {
		t.Errorf("Expected content 'Bye', got '%s'", second.Content)
	}
	if len(second.Choices) != 0 {
		t.Errorf("Expected no choices, got %d", len(second.Choices))
	}

	// end_path è raggiungibile ma senza scelte: un dead_end, zero orfani
	deadEnds := countWarnings(result.Warnings, WarnDeadEnd)
	orphans := countWarnings(result.Warnings, WarnOrphanedCard)
	if deadEnds != 1 {
		t.Errorf("Expected 1 dead_end warning, got %d", deadEnds)
	}
	if orphans != 0 {
		t.Errorf("Expected 0 orphaned_card warnings, got %d", orphans)
	}

	t.Logf("✅ End-to-end: %d card, start='%s'", len(doc.Cards), doc.StartCardID)
}

// ============================================
// Test: Normalizzazione target terminali
// ============================================

func TestTerminalNormalization(t *testing.T) {
	tests := []struct {
		line string
		name string
	}{
		{"-> Go -> end", "lowercase end"},
		{"-> Go -> Terminal", "capitalized terminal"},
		{"-> Go -> FINISH", "uppercase finish"},
	}

	for _, test := range tests {
		text := "## c: Card\n" + test.line + "\n"
		result := Parse(text, Options{})

		if len(result.Document.Cards) != 1 {
			t.Fatalf("[%s] Expected 1 card", test.name)
		}
		choices := result.Document.Cards[0].Choices
		if len(choices) != 1 {
			t.Fatalf("[%s] Expected 1 choice, got %d", test.name, len(choices))
		}
		if !choices[0].Target.IsEnd() {
			t.Errorf("[%s] Expected terminal target", test.name)
		}
		if choices[0].Target.DSL() != EndSentinel {
			t.Errorf("[%s] Expected DSL target 'END', got '%s'", test.name, choices[0].Target.DSL())
		}
	}

	t.Log("✅ All terminal aliases normalize to END")
}

// ============================================
// Test: Id duplicati
// ============================================

func TestDuplicateExplicitIds(t *testing.T) {
	text := "## Intro: A\ncontenuto a\n## Intro: B\ncontenuto b\n"

	result := Parse(text, Options{})

	if len(result.Document.Cards) != 2 {
		t.Fatalf("Expected 2 cards, got %d", len(result.Document.Cards))
	}

	if result.Document.Cards[0].ID != "intro" {
		t.Errorf("Expected first id 'intro', got '%s'", result.Document.Cards[0].ID)
	}
	if result.Document.Cards[1].ID != "intro_1" {
		t.Errorf("Expected second id 'intro_1', got '%s'", result.Document.Cards[1].ID)
	}

	if countWarnings(result.Warnings, WarnDuplicateID) != 1 {
		t.Errorf("Expected 1 duplicate_id warning, got %v", result.Warnings)
	}

	t.Logf("✅ Duplicate ids: '%s' e '%s'", result.Document.Cards[0].ID, result.Document.Cards[1].ID)
}

func TestAutoGeneratedIdsDisambiguated(t *testing.T) {
	text := "## La Porta\nuno\n## La Porta\ndue\n"

	result := Parse(text, Options{})

	if len(result.Document.Cards) != 2 {
		t.Fatalf("Expected 2 cards, got %d", len(result.Document.Cards))
	}
	if result.Document.Cards[0].ID != "la_porta" {
		t.Errorf("Expected 'la_porta', got '%s'", result.Document.Cards[0].ID)
	}
	if result.Document.Cards[1].ID != "la_porta_1" {
		t.Errorf("Expected 'la_porta_1', got '%s'", result.Document.Cards[1].ID)
	}
}

// ============================================
// Test: Errori
// ============================================

func TestChoiceOutsideCardIsFatal(t *testing.T) {
	result := Parse("-> Go -> x\n", Options{})

	if result.Success {
		t.Error("Expected success=false")
	}
	if len(result.Errors) != 1 {
		t.Fatalf("Expected 1 error, got %d", len(result.Errors))
	}
	if result.Errors[0].Type != ErrChoiceOutsideCard {
		t.Errorf("Expected choice_outside_card, got '%s'", result.Errors[0].Type)
	}
	if len(result.Document.Cards) != 0 {
		t.Errorf("Expected 0 cards, got %d", len(result.Document.Cards))
	}

	t.Log("✅ Choice outside card: success=false, 0 card")
}

func TestEmptyCardHeaderIsError(t *testing.T) {
	text := "##\ncontenuto perso\n## ok: Card\ntesto\n"

	result := Parse(text, Options{})

	if result.Success {
		t.Error("Expected success=false")
	}
	if countIssues(result.Errors, ErrInvalidCardHeader) != 1 {
		t.Errorf("Expected 1 invalid_card_header_format error, got %v", result.Errors)
	}
	// L'header invalido non apre nessuna card: il contenuto dopo è perso
	if len(result.Document.Cards) != 1 {
		t.Fatalf("Expected 1 card, got %d", len(result.Document.Cards))
	}
	if result.Document.Cards[0].ID != "ok" {
		t.Errorf("Expected card 'ok', got '%s'", result.Document.Cards[0].ID)
	}
}

// ============================================
// Test: Metadata
// ============================================

func TestMetadata(t *testing.T) {
	text := "# Story: Il Bosco\n# Description: Una storia\n# Author: Anna\n## c: Card\ntesto\n"

	result := Parse(text, Options{})

	meta := result.Document.Metadata
	if meta.Title != "Il Bosco" {
		t.Errorf("Expected title 'Il Bosco', got '%s'", meta.Title)
	}
	if meta.Description != "Una storia" {
		t.Errorf("Expected description 'Una storia', got '%s'", meta.Description)
	}
	if meta.Properties["author"] != "Anna" {
		t.Errorf("Expected property author='Anna', got '%s'", meta.Properties["author"])
	}
}

// ============================================
// Test: Attributi
// ============================================

func TestAttributes(t *testing.T) {
	text := "## c: Card\n@speaker: Mago\n@speaker_type: character\n@message: un messaggio\n@image_prompt: una torre\n@image_description: torre al tramonto\n@ignorato: x\ntesto\n"

	result := Parse(text, Options{})

	card := result.Document.Cards[0]
	if card.Speaker != "Mago" {
		t.Errorf("Expected speaker 'Mago', got '%s'", card.Speaker)
	}
	if card.SpeakerType != "character" {
		t.Errorf("Expected speaker_type 'character', got '%s'", card.SpeakerType)
	}
	if card.Message != "un messaggio" {
		t.Errorf("Expected message, got '%s'", card.Message)
	}
	if card.ImagePrompt != "una torre" {
		t.Errorf("Expected image_prompt, got '%s'", card.ImagePrompt)
	}
	if card.ImageDescription != "torre al tramonto" {
		t.Errorf("Expected image_description, got '%s'", card.ImageDescription)
	}
}

func TestSpeakerTypeWhitelist(t *testing.T) {
	text := "## c: Card\n@speaker_type: robot\ntesto\n"

	result := Parse(text, Options{})

	if result.Document.Cards[0].SpeakerType != "" {
		t.Errorf("Expected speaker_type ignored, got '%s'", result.Document.Cards[0].SpeakerType)
	}
}

func TestStartAttributeAliases(t *testing.T) {
	for _, alias := range []string{"@start", "@first", "@entry"} {
		text := "## a: A\ntesto\n-> vai -> b\n## b: B\n" + alias + "\naltro\n"
		result := Parse(text, Options{})

		if result.Document.StartCardID != "b" {
			t.Errorf("[%s] Expected start card 'b', got '%s'", alias, result.Document.StartCardID)
		}
		if !result.Document.Cards[1].IsStart {
			t.Errorf("[%s] Expected card b IsStart", alias)
		}
	}
}

func TestAttributeOutsideCardIgnored(t *testing.T) {
	text := "@speaker: Nessuno\n## c: Card\ntesto\n"

	result := Parse(text, Options{})

	if !result.Success {
		t.Errorf("Expected success, got %v", result.Errors)
	}
	if result.Document.Cards[0].Speaker != "" {
		t.Errorf("Expected no speaker, got '%s'", result.Document.Cards[0].Speaker)
	}
}

// ============================================
// Test: Scelte
// ============================================

func TestMalformedChoiceDroppedSilently(t *testing.T) {
	text := "## c: Card\ntesto\n-> senza target\n"

	result := Parse(text, Options{})

	if !result.Success {
		t.Errorf("Expected success, got %v", result.Errors)
	}
	if len(result.Document.Cards[0].Choices) != 0 {
		t.Errorf("Expected choice dropped, got %d", len(result.Document.Cards[0].Choices))
	}
}

func TestChoiceTargetNormalization(t *testing.T) {
	text := "## c: Card\ntesto\n-> Vai -> La Stanza Segreta\n"

	result := Parse(text, Options{})

	choice := result.Document.Cards[0].Choices[0]
	if choice.Target.CardID != "la_stanza_segreta" {
		t.Errorf("Expected 'la_stanza_segreta', got '%s'", choice.Target.CardID)
	}
}

// ============================================
// Test: Separatore e contenuto
// ============================================

func TestSeparatorClosesCard(t *testing.T) {
	text := "## a: A\nprima\n---\ncontenuto perso fuori card\n## b: B\nseconda\n"

	result := Parse(text, Options{})

	if len(result.Document.Cards) != 2 {
		t.Fatalf("Expected 2 cards, got %d", len(result.Document.Cards))
	}
	if result.Document.Cards[0].Content != "prima" {
		t.Errorf("Expected 'prima', got '%s'", result.Document.Cards[0].Content)
	}
	if strings.Contains(result.Document.Cards[1].Content, "perso") {
		t.Error("Content outside card should be dropped")
	}
}

func TestEscapedContentUnescaped(t *testing.T) {
	// Una riga di contenuto che inizierebbe come scelta, protetta
	// dall'escape del serializer
	text := "## c: Card\n\u200b-> non è una scelta\n"

	result := Parse(text, Options{})

	card := result.Document.Cards[0]
	if len(card.Choices) != 0 {
		t.Fatalf("Expected 0 choices, got %d", len(card.Choices))
	}
	if card.Content != "-> non è una scelta" {
		t.Errorf("Expected unescaped content, got '%s'", card.Content)
	}

	t.Logf("✅ Escape zero-width-space rimosso: '%s'", card.Content)
}

// ============================================
// Test: Warning di finalizzazione
// ============================================

func TestEmptyContentWarning(t *testing.T) {
	result := Parse("## c: Card\n", Options{})

	if countWarnings(result.Warnings, WarnEmptyContent) != 1 {
		t.Errorf("Expected empty_content warning, got %v", result.Warnings)
	}
}

func TestDeadEndSuppressedByTheEnd(t *testing.T) {
	result := Parse("## c: Card\nE vissero felici. The End.\n", Options{})

	if countWarnings(result.Warnings, WarnDeadEnd) != 0 {
		t.Errorf("Expected no dead_end warning, got %v", result.Warnings)
	}
}

// ============================================
// Test: Validazione target e reachability
// ============================================

func TestInvalidTargetWarning(t *testing.T) {
	text := "## a: A\ntesto\n-> vai -> inesistente\n"

	result := Parse(text, Options{ValidateTargets: true})

	if !result.Success {
		t.Errorf("Expected success (warning only), got %v", result.Errors)
	}
	if countWarnings(result.Warnings, WarnInvalidTarget) != 1 {
		t.Errorf("Expected 1 invalid_target warning, got %v", result.Warnings)
	}
}

func TestOrphanedCardWarning(t *testing.T) {
	text := "## a: A\n@start\ntesto\n-> vai -> b\n## b: B\nfine. The End.\n## isolata: Isolata\nnessuno arriva qui. The End.\n"

	result := Parse(text, Options{ValidateTargets: true})

	if countWarnings(result.Warnings, WarnOrphanedCard) != 1 {
		t.Errorf("Expected 1 orphaned_card warning, got %v", result.Warnings)
	}
}

func TestStartFallbackMutatesFirstCard(t *testing.T) {
	text := "## a: A\ntesto\n-> vai -> b\n## b: B\nfine. The End.\n"

	result := Parse(text, Options{ValidateTargets: true})

	if !result.Document.Cards[0].IsStart {
		t.Error("Expected fallback to mark first card as start")
	}
	if countWarnings(result.Warnings, WarnOrphanedCard) != 0 {
		t.Errorf("Expected no orphans, got %v", result.Warnings)
	}
}

func TestTerminalChoicesDoNotCountForReachability(t *testing.T) {
	text := "## a: A\n@start\ntesto\n-> fine -> end\n## b: B\nmai visitata. The End.\n"

	result := Parse(text, Options{ValidateTargets: true})

	if countWarnings(result.Warnings, WarnOrphanedCard) != 1 {
		t.Errorf("Expected 1 orphaned_card warning, got %v", result.Warnings)
	}
}

// ============================================
// Helpers
// ============================================

func countWarnings(warnings []Issue, issueType string) int {
	return countIssues(warnings, issueType)
}

func countIssues(issues []Issue, issueType string) int {
	count := 0
	for _, issue := range issues {
		if issue.Type == issueType {
			count++
		}
	}
	return count
}
