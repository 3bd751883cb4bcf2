package parser

import (
	"fmt"
	"strings"

	"story-editor/slug"
)

// zeroWidthSpace è l'escape usato dal serializer per le righe di
// contenuto che altrimenti verrebbero lette come sintassi DSL
const zeroWidthSpace = "\u200b"

// maxSlugLen lunghezza massima degli slug auto-generati dal parser
const maxSlugLen = 50

// attrKind enum chiuso degli attributi riconosciuti
type attrKind int

const (
	attrUnknown attrKind = iota
	attrStart
	attrSpeaker
	attrSpeakerType
	attrImagePrompt
	attrImageDesc
	attrMessage
)

// resolveAttrKey normalizza una chiave attributo nel suo kind.
// Le chiavi non riconosciute cadono su attrUnknown e vengono ignorate:
// il parser resta permissivo senza switch su stringhe sparsi in giro.
func resolveAttrKey(key string) attrKind {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "start", "first", "entry":
		return attrStart
	case "speaker":
		return attrSpeaker
	case "speakertype", "speaker_type":
		return attrSpeakerType
	case "image", "imageprompt", "image_prompt":
		return attrImagePrompt
	case "imagedesc", "image_description":
		return attrImageDesc
	case "message":
		return attrMessage
	default:
		return attrUnknown
	}
}

// terminalTargets alias riconosciuti per il target terminale
var terminalTargets = map[string]bool{
	"end":      true,
	"terminal": true,
	"finish":   true,
}

// dslParser stato del parsing di un singolo testo
type dslParser struct {
	doc      *Document
	errors   []Issue
	warnings []Issue

	current      *Card
	contentLines []string
	seenIDs      map[string]bool
}

// Parse trasforma il testo DSL in un ParseResult.
// Success è true se e solo se non ci sono errori; i warning non
// bloccano mai.
func Parse(text string, opts Options) *ParseResult {
	p := &dslParser{
		doc: &Document{
			Metadata: Metadata{Properties: make(map[string]string)},
			Cards:    []*Card{},
		},
		errors:   []Issue{},
		warnings: []Issue{},
		seenIDs:  make(map[string]bool),
	}

	lines := strings.Split(text, "\n")

	// Primo passaggio: solo metadata
	p.parseMetadata(lines)

	// Secondo passaggio: card, attributi, scelte e contenuto
	for i, line := range lines {
		p.parseLine(line, i+1)
	}

	// Fine input: finalizza la card ancora aperta
	p.finalizeCard()

	if opts.ValidateTargets {
		p.validate()
	}

	return &ParseResult{
		Success:  len(p.errors) == 0,
		Document: p.doc,
		Errors:   p.errors,
		Warnings: p.warnings,
	}
}

// parseMetadata raccoglie le righe `# chiave: valore`
func (p *dslParser) parseMetadata(lines []string) {
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !isMetadataLine(trimmed) {
			continue
		}

		rest := strings.TrimPrefix(trimmed, "#")
		colon := strings.Index(rest, ":")
		if colon < 0 {
			continue
		}

		key := strings.ToLower(strings.TrimSpace(rest[:colon]))
		value := strings.TrimSpace(rest[colon+1:])

		switch key {
		case "story", "title":
			p.doc.Metadata.Title = value
		case "description":
			p.doc.Metadata.Description = value
		default:
			if key != "" {
				p.doc.Metadata.Properties[key] = value
			}
		}
	}
}

// isMetadataLine riconosce `#` singolo (non `##`)
func isMetadataLine(trimmed string) bool {
	return strings.HasPrefix(trimmed, "#") && !strings.HasPrefix(trimmed, "##")
}

// parseLine processa una singola riga nel passaggio principale
func (p *dslParser) parseLine(line string, lineNo int) {
	trimmed := strings.TrimSpace(line)

	switch {
	case trimmed == "---":
		// Separatore: chiude la card corrente
		p.finalizeCard()

	case strings.HasPrefix(trimmed, "##"):
		p.parseCardHeader(trimmed, lineNo)

	case isMetadataLine(trimmed):
		// Già gestita nel primo passaggio

	case strings.HasPrefix(trimmed, "@"):
		p.parseAttribute(trimmed)

	case strings.HasPrefix(trimmed, "->"):
		p.parseChoice(trimmed, lineNo)

	case trimmed != "":
		// Contenuto: accumulato solo dentro una card aperta
		if p.current != nil {
			p.contentLines = append(p.contentLines, unescapeContentLine(line))
		}
	}
}

// parseCardHeader apre una nuova card da una riga `##`
func (p *dslParser) parseCardHeader(trimmed string, lineNo int) {
	// Un header chiude sempre la card precedente
	p.finalizeCard()

	header := strings.TrimSpace(strings.TrimPrefix(trimmed, "##"))
	if header == "" {
		p.errors = append(p.errors, Issue{
			Type:    ErrInvalidCardHeader,
			Message: fmt.Sprintf("header della card vuoto alla riga %d", lineNo),
			Line:    lineNo,
		})
		return
	}

	var id, title string
	if colon := strings.Index(header, ":"); colon >= 0 {
		// Formato esplicito `## id: Titolo`
		id = normalizeID(header[:colon])
		title = strings.TrimSpace(header[colon+1:])
	} else {
		// Solo titolo: genera lo slug e disambigua subito
		title = header
		id = slug.Disambiguate(slug.Make(title, maxSlugLen), p.seenIDs)
	}

	p.current = &Card{
		ID:         id,
		Title:      title,
		Choices:    []Choice{},
		SourceLine: lineNo,
	}
}

// parseAttribute processa una riga `@chiave` o `@chiave: valore`
func (p *dslParser) parseAttribute(trimmed string) {
	if p.current == nil {
		// Attributo fuori da una card: ignorato in silenzio
		return
	}

	rest := strings.TrimPrefix(trimmed, "@")
	key := rest
	value := ""
	if colon := strings.Index(rest, ":"); colon >= 0 {
		key = rest[:colon]
		value = strings.TrimSpace(rest[colon+1:])
	}

	switch resolveAttrKey(key) {
	case attrStart:
		p.current.IsStart = true
		p.doc.StartCardID = p.current.ID
	case attrSpeaker:
		p.current.Speaker = value
	case attrSpeakerType:
		switch value {
		case "character", "narrator", "system":
			p.current.SpeakerType = value
		}
		// Valori fuori whitelist: ignorati
	case attrImagePrompt:
		p.current.ImagePrompt = value
	case attrImageDesc:
		p.current.ImageDescription = value
	case attrMessage:
		p.current.Message = value
	case attrUnknown:
		// Chiave non riconosciuta: ignorata
	}
}

// parseChoice processa una riga `-> Label -> target`
func (p *dslParser) parseChoice(trimmed string, lineNo int) {
	if p.current == nil {
		p.errors = append(p.errors, Issue{
			Type:    ErrChoiceOutsideCard,
			Message: fmt.Sprintf("scelta fuori da una card alla riga %d", lineNo),
			Line:    lineNo,
		})
		return
	}

	rest := strings.TrimPrefix(trimmed, "->")
	parts := strings.Split(rest, "->")
	if len(parts) < 2 {
		// Riga malformata: scartata in silenzio
		return
	}

	label := strings.TrimSpace(parts[0])
	rawTarget := normalizeID(parts[1])

	target := CardTarget(rawTarget)
	if terminalTargets[rawTarget] {
		target = EndTarget()
	}

	p.current.Choices = append(p.current.Choices, Choice{
		Label:      label,
		Target:     target,
		SourceLine: lineNo,
	})
}

// finalizeCard chiude la card corrente e la aggiunge al documento
func (p *dslParser) finalizeCard() {
	if p.current == nil {
		return
	}

	card := p.current
	card.Content = strings.TrimSpace(strings.Join(p.contentLines, "\n"))

	if card.Content == "" && len(card.Choices) == 0 {
		p.warnings = append(p.warnings, Issue{
			Type:    WarnEmptyContent,
			Message: fmt.Sprintf("card '%s' senza contenuto né scelte", card.ID),
			Line:    card.SourceLine,
		})
	}

	if len(card.Choices) == 0 && !strings.Contains(strings.ToLower(card.Content), "the end") {
		p.warnings = append(p.warnings, Issue{
			Type:    WarnDeadEnd,
			Message: fmt.Sprintf("card '%s' senza scelte: vicolo cieco", card.ID),
			Line:    card.SourceLine,
		})
	}

	if p.seenIDs[card.ID] {
		original := card.ID
		card.ID = slug.Disambiguate(card.ID, p.seenIDs)
		p.warnings = append(p.warnings, Issue{
			Type:    WarnDuplicateID,
			Message: fmt.Sprintf("id duplicato '%s', rinominato in '%s'", original, card.ID),
			Line:    card.SourceLine,
		})
	}

	p.seenIDs[card.ID] = true
	p.doc.Cards = append(p.doc.Cards, card)

	p.current = nil
	p.contentLines = nil
}

// normalizeID normalizza un id DSL: trim, minuscole, spazi→underscore
func normalizeID(raw string) string {
	id := strings.ToLower(strings.TrimSpace(raw))
	return strings.ReplaceAll(id, " ", "_")
}

// unescapeContentLine rimuove l'escape zero-width-space del serializer
func unescapeContentLine(line string) string {
	if strings.HasPrefix(strings.TrimSpace(line), zeroWidthSpace) {
		return strings.Replace(line, zeroWidthSpace, "", 1)
	}
	return line
}
