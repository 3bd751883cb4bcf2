package sync

import (
	"strings"

	"story-editor/parser"
)

// ModifiedCard descrive una card cambiata tra due documenti
type ModifiedCard struct {
	ID             string            `json:"id"`
	Fields         map[string]string `json:"fields,omitempty"`
	ChoicesChanged bool              `json:"choices_changed"`
	// Choices è l'intera nuova lista quando ChoicesChanged è true:
	// le scelte non hanno identità DSL, quindi niente diff per-scelta
	Choices []parser.Choice `json:"choices,omitempty"`
}

// DslDiff differenze tra due documenti, chiave = id DSL della card
type DslDiff struct {
	Added        []*parser.Card `json:"added"`
	Removed      []string       `json:"removed"`
	Modified     []ModifiedCard `json:"modified"`
	StartChanged bool           `json:"start_changed"`
}

// HasChanges verifica se il diff contiene differenze
func (d *DslDiff) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0 || len(d.Modified) > 0 || d.StartChanged
}

// ComputeDiff confronta due documenti parsati
func ComputeDiff(oldDoc, newDoc *parser.Document) *DslDiff {
	diff := &DslDiff{
		Added:    []*parser.Card{},
		Removed:  []string{},
		Modified: []ModifiedCard{},
	}

	oldByID := make(map[string]*parser.Card)
	if oldDoc != nil {
		for _, card := range oldDoc.Cards {
			oldByID[card.ID] = card
		}
	}
	newByID := make(map[string]*parser.Card)
	if newDoc != nil {
		for _, card := range newDoc.Cards {
			newByID[card.ID] = card
		}
	}

	if newDoc != nil {
		for _, card := range newDoc.Cards {
			oldCard, exists := oldByID[card.ID]
			if !exists {
				diff.Added = append(diff.Added, card)
				continue
			}
			if modified, changed := diffCard(oldCard, card); changed {
				diff.Modified = append(diff.Modified, modified)
			}
		}
	}

	if oldDoc != nil {
		for _, card := range oldDoc.Cards {
			if _, exists := newByID[card.ID]; !exists {
				diff.Removed = append(diff.Removed, card.ID)
			}
		}
	}

	oldStart := ""
	if oldDoc != nil {
		oldStart = oldDoc.StartCardID
	}
	newStart := ""
	if newDoc != nil {
		newStart = newDoc.StartCardID
	}
	diff.StartChanged = oldStart != newStart

	return diff
}

// diffCard confronta campo per campo due card con lo stesso id
func diffCard(oldCard, newCard *parser.Card) (ModifiedCard, bool) {
	modified := ModifiedCard{
		ID:     newCard.ID,
		Fields: map[string]string{},
	}

	fields := []struct {
		name     string
		old, new string
	}{
		{"title", oldCard.Title, newCard.Title},
		{"content", oldCard.Content, newCard.Content},
		{"speaker", oldCard.Speaker, newCard.Speaker},
		{"speaker_type", oldCard.SpeakerType, newCard.SpeakerType},
		{"message", oldCard.Message, newCard.Message},
		{"image_prompt", oldCard.ImagePrompt, newCard.ImagePrompt},
	}
	for _, f := range fields {
		if f.old != f.new {
			modified.Fields[f.name] = f.new
		}
	}

	if choiceSignature(oldCard) != choiceSignature(newCard) {
		modified.ChoicesChanged = true
		modified.Choices = newCard.Choices
	}

	changed := len(modified.Fields) > 0 || modified.ChoicesChanged
	if len(modified.Fields) == 0 {
		modified.Fields = nil
	}
	return modified, changed
}

// choiceSignature firma ordinata della lista scelte: label:target|...
func choiceSignature(card *parser.Card) string {
	parts := make([]string, 0, len(card.Choices))
	for _, choice := range card.Choices {
		parts = append(parts, choice.Label+":"+choice.Target.DSL())
	}
	return strings.Join(parts, "|")
}
