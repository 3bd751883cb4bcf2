package parser

import (
	"fmt"

	"story-editor/graph"
)

// validate esegue la post-validazione sul documento parsato:
// target inesistenti e card non raggiungibili dalla start card
func (p *dslParser) validate() {
	byID := make(map[string]*Card, len(p.doc.Cards))
	for _, card := range p.doc.Cards {
		byID[card.ID] = card
	}

	// Target non risolvibili (solo scelte non terminali)
	for _, card := range p.doc.Cards {
		for _, choice := range card.Choices {
			if choice.Target.IsEnd() {
				continue
			}
			if _, ok := byID[choice.Target.CardID]; !ok {
				p.warnings = append(p.warnings, Issue{
					Type:    WarnInvalidTarget,
					Message: fmt.Sprintf("la scelta '%s' nella card '%s' punta a '%s' che non esiste", choice.Label, card.ID, choice.Target.CardID),
					Line:    choice.SourceLine,
				})
			}
		}
	}

	if len(p.doc.Cards) == 0 {
		return
	}

	// Risolvi la start card: quella marcata @start, altrimenti la prima.
	// Nel fallback il documento viene mutato per riflettere la scelta.
	startID := p.doc.StartCardID
	if startID == "" {
		first := p.doc.Cards[0]
		first.IsStart = true
		startID = first.ID
	}

	// Reachability in ampiezza seguendo solo le scelte non terminali
	_, visited := graph.BFS(startID, func(id string) []string {
		card, ok := byID[id]
		if !ok {
			return nil
		}
		targets := []string{}
		for _, choice := range card.Choices {
			if !choice.Target.IsEnd() {
				targets = append(targets, choice.Target.CardID)
			}
		}
		return targets
	})

	for _, card := range p.doc.Cards {
		if !visited[card.ID] {
			p.warnings = append(p.warnings, Issue{
				Type:    WarnOrphanedCard,
				Message: fmt.Sprintf("card '%s' non raggiungibile dalla start card", card.ID),
				Line:    card.SourceLine,
			})
		}
	}
}
