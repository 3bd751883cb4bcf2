package sync

import (
	"fmt"

	"github.com/google/uuid"

	"story-editor/model"
	"story-editor/parser"
)

// ApplyResult è il piano di riconciliazione: cosa creare, aggiornare
// e cancellare. Questo engine non esegue mai scritture; il layer di
// persistenza deve creare le card prima delle scelte che le puntano
// e cancellare le scelte prima delle card che referenziano.
type ApplyResult struct {
	Success        bool                `json:"success"`
	Created        []model.StoryCard   `json:"created"`
	Updated        []model.StoryCard   `json:"updated"`
	Deleted        []string            `json:"deleted"`
	ChoicesCreated []model.StoryChoice `json:"choices_created"`
	ChoicesUpdated []model.StoryChoice `json:"choices_updated"`
	ChoicesDeleted []string            `json:"choices_deleted"`
	Errors         []string            `json:"errors"`
	IdMapping      *model.IdMapping    `json:"id_mapping"`
	// StartCardID è l'UUID risolto della start card, per permettere
	// al chiamante di aggiornare StoryStack.FirstCardID
	StartCardID string `json:"start_card_id,omitempty"`
}

// ApplyToGraph riconcilia un documento parsato con il grafo live.
// Pura e senza side effect: l'ordine del documento diventa il nuovo
// orderIndex, applicarla due volte di seguito produce un piano vuoto.
func ApplyToGraph(doc *parser.Document, stack model.StoryStack, existingCards []model.StoryCard, existingChoices []model.StoryChoice, mapping *model.IdMapping) *ApplyResult {
	result := &ApplyResult{
		Created:        []model.StoryCard{},
		Updated:        []model.StoryCard{},
		Deleted:        []string{},
		ChoicesCreated: []model.StoryChoice{},
		ChoicesUpdated: []model.StoryChoice{},
		ChoicesDeleted: []string{},
		Errors:         []string{},
	}

	existingByID := make(map[string]model.StoryCard, len(existingCards))
	for _, card := range existingCards {
		existingByID[card.ID] = card
	}

	// Copia di lavoro della mapping: la versione del chiamante non
	// viene mai toccata
	working := model.NewIdMapping()
	if mapping != nil {
		working = mapping.Clone()
	}

	// 1. Card del documento in ordine: l'ordine testuale è autoritativo
	touched := make(map[string]bool)
	for i, card := range doc.Cards {
		if dbID, ok := working.Db(card.ID); ok {
			if existing, alive := existingByID[dbID]; alive {
				touched[dbID] = true
				merged := mergeCard(existing, card, i)
				if merged != existing {
					result.Updated = append(result.Updated, merged)
				}
				continue
			}
		}

		// Nessuna entry valida in mapping: card nuova
		newCard := model.StoryCard{
			ID:      uuid.NewString(),
			StackID: stack.ID,
		}
		newCard = mergeCard(newCard, card, i)
		working.Put(card.ID, newCard.ID)
		touched[newCard.ID] = true
		result.Created = append(result.Created, newCard)
	}

	// 2. Card esistenti mai toccate: cancellazioni (+ pulizia mapping)
	for _, existing := range existingCards {
		if !touched[existing.ID] {
			result.Deleted = append(result.Deleted, existing.ID)
			working.DeleteByDb(existing.ID)
		}
	}

	// 3. Scelte: la label è l'identità stabile (chiave sourceUUID:label)
	existingChoiceByKey := make(map[string]model.StoryChoice, len(existingChoices))
	for _, choice := range existingChoices {
		existingChoiceByKey[choiceKey(choice.StoryCardID, choice.Label)] = choice
	}

	touchedChoices := make(map[string]bool)
	for _, card := range doc.Cards {
		sourceID, ok := working.Db(card.ID)
		if !ok {
			continue
		}

		orderIndex := 0
		for _, choice := range card.Choices {
			if choice.Target.IsEnd() {
				// Le scelte terminali non vengono mai persistite:
				// vivono solo nel testo DSL
				continue
			}

			targetID, resolved := working.Db(choice.Target.CardID)
			if !resolved {
				result.Errors = append(result.Errors, fmt.Sprintf("la scelta '%s' della card '%s' punta a '%s' che non è risolvibile", choice.Label, card.ID, choice.Target.CardID))
				continue
			}

			key := choiceKey(sourceID, choice.Label)
			if existing, found := existingChoiceByKey[key]; found {
				touchedChoices[key] = true
				if existing.TargetCardID != targetID || existing.OrderIndex != orderIndex {
					existing.TargetCardID = targetID
					existing.OrderIndex = orderIndex
					result.ChoicesUpdated = append(result.ChoicesUpdated, existing)
				}
			} else {
				result.ChoicesCreated = append(result.ChoicesCreated, model.StoryChoice{
					ID:           uuid.NewString(),
					StoryCardID:  sourceID,
					TargetCardID: targetID,
					Label:        choice.Label,
					OrderIndex:   orderIndex,
				})
			}
			orderIndex++
		}
	}

	for _, choice := range existingChoices {
		if !touchedChoices[choiceKey(choice.StoryCardID, choice.Label)] {
			result.ChoicesDeleted = append(result.ChoicesDeleted, choice.ID)
		}
	}

	// Start card risolta, per l'aggiornamento dello stack a valle
	startDsl := doc.StartCardID
	if startDsl == "" && len(doc.Cards) > 0 {
		startDsl = doc.Cards[0].ID
	}
	if startDsl != "" {
		if startID, ok := working.Db(startDsl); ok {
			result.StartCardID = startID
		}
	}

	result.Success = len(result.Errors) == 0
	result.IdMapping = working
	return result
}

// mergeCard sovrascrive i campi DSL sul record persistito
func mergeCard(existing model.StoryCard, card *parser.Card, orderIndex int) model.StoryCard {
	existing.Title = card.Title
	existing.Content = card.Content
	existing.Speaker = card.Speaker
	existing.SpeakerType = card.SpeakerType
	existing.ImagePrompt = card.ImagePrompt
	existing.ImageDescription = card.ImageDescription
	existing.Message = card.Message
	existing.IsStart = card.IsStart
	existing.OrderIndex = orderIndex
	return existing
}

// choiceKey chiave stabile di una scelta persistita
func choiceKey(sourceID, label string) string {
	return sourceID + ":" + label
}
