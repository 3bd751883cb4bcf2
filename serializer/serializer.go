package serializer

import (
	"fmt"
	"strings"

	"story-editor/graph"
	"story-editor/model"
	"story-editor/slug"
)

// zeroWidthSpace escape per le righe di contenuto che collidono con
// la sintassi DSL. Senza questo il round-trip corromperebbe contenuti
// tipo "-> non è una scelta".
const zeroWidthSpace = "\u200b"

// maxSlugLen lunghezza massima della parte slug degli id generati
const maxSlugLen = 30

// unknownTarget emesso quando la mapping non risolve un target:
// segnala una mapping inconsistente invece di crashare
const unknownTarget = "unknown"

// Options opzioni per la serializzazione
type Options struct {
	IncludeDebugInfo    bool // Emette commenti # ID: / # Order:
	IncludeImagePrompts bool // Emette @image_prompt / @image_description
}

// Result risultato della serializzazione
type Result struct {
	Text      string           `json:"text"`
	IdMapping *model.IdMapping `json:"id_mapping"`
}

// GenerateSlugID genera lo slug id DSL per una card persistita.
// Dipende solo da titolo+uuid, quindi è stabile tra serializzazioni
// ripetute della stessa card e unico anche con titoli duplicati.
func GenerateSlugID(title, cardUUID string) string {
	hex := strings.ReplaceAll(cardUUID, "-", "")
	if len(hex) > 8 {
		hex = hex[:8]
	}
	return slug.Make(title, maxSlugLen) + "_" + hex
}

// BuildIdMapping costruisce la biiezione slug↔UUID per le card date
func BuildIdMapping(cards []model.StoryCard) *model.IdMapping {
	mapping := model.NewIdMapping()
	for _, card := range cards {
		mapping.Put(GenerateSlugID(card.Title, card.ID), card.ID)
	}
	return mapping
}

// orderCards ordina le card con una BFS sul grafo delle scelte
// persistite. Le card mai visitate (orfane) vengono accodate
// nell'ordine originale, mai scartate.
func orderCards(cards []model.StoryCard, choices []model.StoryChoice, firstCardID string) []model.StoryCard {
	if len(cards) == 0 {
		return nil
	}

	if firstCardID == "" {
		firstCardID = cards[0].ID
	}

	byID := make(map[string]model.StoryCard, len(cards))
	for _, card := range cards {
		byID[card.ID] = card
	}

	edges := make(map[string][]string)
	for _, choice := range choices {
		edges[choice.StoryCardID] = append(edges[choice.StoryCardID], choice.TargetCardID)
	}

	order, visited := graph.BFS(firstCardID, func(id string) []string {
		return edges[id]
	})

	ordered := make([]model.StoryCard, 0, len(cards))
	for _, id := range order {
		if card, ok := byID[id]; ok {
			ordered = append(ordered, card)
		}
	}
	for _, card := range cards {
		if !visited[card.ID] {
			ordered = append(ordered, card)
		}
	}

	return ordered
}

// EscapeContent protegge le righe di contenuto che inizierebbero
// come sintassi DSL anteponendo uno zero-width-space
func EscapeContent(content string) string {
	if content == "" {
		return content
	}

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") ||
			strings.HasPrefix(trimmed, "->") ||
			strings.HasPrefix(trimmed, "@") ||
			trimmed == "---" {
			lines[i] = zeroWidthSpace + line
		}
	}
	return strings.Join(lines, "\n")
}

// Serialize converte il grafo persistito in testo DSL + id mapping.
// Funzione pura: non muta mai i suoi input.
func Serialize(stack model.StoryStack, cards []model.StoryCard, choices []model.StoryChoice, opts Options) *Result {
	mapping := BuildIdMapping(cards)
	ordered := orderCards(cards, choices, stack.FirstCardID)

	choicesByCard := make(map[string][]model.StoryChoice)
	for _, choice := range choices {
		choicesByCard[choice.StoryCardID] = append(choicesByCard[choice.StoryCardID], choice)
	}

	var sb strings.Builder

	// Header del documento
	if stack.Name != "" {
		sb.WriteString(fmt.Sprintf("# Story: %s\n", stack.Name))
	}
	if stack.Description != "" {
		sb.WriteString(fmt.Sprintf("# Description: %s\n", stack.Description))
	}
	if stack.Name != "" || stack.Description != "" {
		sb.WriteString("\n")
	}

	for _, card := range ordered {
		writeCard(&sb, card, choicesByCard[card.ID], mapping, opts)
	}

	return &Result{
		Text:      sb.String(),
		IdMapping: mapping,
	}
}

// SerializeCards serializza un set parziale di card sintetizzando
// uno stack placeholder, per export senza contesto storia completo
func SerializeCards(cards []model.StoryCard, choices []model.StoryChoice, firstCardID string) *Result {
	stack := model.StoryStack{
		Name:        "Untitled Story",
		FirstCardID: firstCardID,
	}
	return Serialize(stack, cards, choices, Options{})
}

// writeCard emette il blocco DSL di una singola card
func writeCard(sb *strings.Builder, card model.StoryCard, cardChoices []model.StoryChoice, mapping *model.IdMapping, opts Options) {
	dslID, ok := mapping.Dsl(card.ID)
	if !ok {
		dslID = unknownTarget
	}

	if card.IsStart {
		sb.WriteString("@start\n")
	}

	if opts.IncludeDebugInfo {
		sb.WriteString(fmt.Sprintf("# ID: %s\n", card.ID))
		sb.WriteString(fmt.Sprintf("# Order: %d\n", card.OrderIndex))
	}

	sb.WriteString(fmt.Sprintf("## %s: %s\n", dslID, card.Title))

	if card.Speaker != "" {
		sb.WriteString(fmt.Sprintf("@speaker: %s\n", card.Speaker))
	}
	if card.SpeakerType != "" {
		sb.WriteString(fmt.Sprintf("@speaker_type: %s\n", card.SpeakerType))
	}
	if card.Message != "" {
		sb.WriteString(fmt.Sprintf("@message: %s\n", card.Message))
	}
	if opts.IncludeImagePrompts {
		if card.ImagePrompt != "" {
			sb.WriteString(fmt.Sprintf("@image_prompt: %s\n", card.ImagePrompt))
		}
		if card.ImageDescription != "" {
			sb.WriteString(fmt.Sprintf("@image_description: %s\n", card.ImageDescription))
		}
	}

	if card.Content != "" {
		sb.WriteString(EscapeContent(card.Content))
		sb.WriteString("\n")
	}

	if card.Content != "" && len(cardChoices) > 0 {
		sb.WriteString("\n")
	}

	for _, choice := range cardChoices {
		target, ok := mapping.Dsl(choice.TargetCardID)
		if !ok {
			target = unknownTarget
		}
		sb.WriteString(fmt.Sprintf("-> %s -> %s\n", choice.Label, target))
	}

	sb.WriteString("\n")
}
