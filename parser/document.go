package parser

// Metadata contiene le proprietà a livello di documento
type Metadata struct {
	Title       string            `json:"title,omitempty"`
	Description string            `json:"description,omitempty"`
	Properties  map[string]string `json:"properties"`
}

// Document rappresenta una storia parsata dal DSL.
// È un value object: ogni Parse ne produce uno nuovo, mai mutato dopo
// il ritorno (con l'unica eccezione documentata del fallback start).
type Document struct {
	Metadata    Metadata `json:"metadata"`
	Cards       []*Card  `json:"cards"`
	StartCardID string   `json:"start_card_id,omitempty"`
}

// Card rappresenta una singola card nello spazio id DSL
type Card struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Content          string   `json:"content"`
	IsStart          bool     `json:"is_start"`
	Choices          []Choice `json:"choices"`
	Speaker          string   `json:"speaker,omitempty"`
	SpeakerType      string   `json:"speaker_type,omitempty"`
	ImagePrompt      string   `json:"image_prompt,omitempty"`
	ImageDescription string   `json:"image_description,omitempty"`
	Message          string   `json:"message,omitempty"`
	SourceLine       int      `json:"source_line,omitempty"`
}

// Choice rappresenta una scelta che collega due card
type Choice struct {
	Label      string       `json:"label"`
	Target     ChoiceTarget `json:"target"`
	SourceLine int          `json:"source_line,omitempty"`
}

// ChoiceTarget è la variante tipata del target di una scelta:
// o un'altra card, o la fine della storia. Niente stringhe magiche.
type ChoiceTarget struct {
	CardID string `json:"card_id,omitempty"`
	End    bool   `json:"end"`
}

// CardTarget crea un target verso un'altra card
func CardTarget(id string) ChoiceTarget {
	return ChoiceTarget{CardID: id}
}

// EndTarget crea un target terminale (fine della storia)
func EndTarget() ChoiceTarget {
	return ChoiceTarget{End: true}
}

// IsEnd verifica se il target è terminale
func (t ChoiceTarget) IsEnd() bool {
	return t.End
}

// DSL restituisce la forma testuale del target nel DSL
func (t ChoiceTarget) DSL() string {
	if t.End {
		return EndSentinel
	}
	return t.CardID
}

// EndSentinel forma testuale del target terminale nel DSL
const EndSentinel = "END"

// Codici errore del parser (bloccano l'apply)
const (
	ErrInvalidCardHeader = "invalid_card_header_format"
	ErrChoiceOutsideCard = "choice_outside_card"
)

// Codici warning del parser (solo advisory, non bloccano mai)
const (
	WarnEmptyContent  = "empty_content"
	WarnDeadEnd       = "dead_end"
	WarnDuplicateID   = "duplicate_id"
	WarnInvalidTarget = "invalid_target"
	WarnOrphanedCard  = "orphaned_card"
)

// Issue rappresenta un errore o warning di parsing
type Issue struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// ParseResult risultato completo del parsing
type ParseResult struct {
	Success  bool      `json:"success"`
	Document *Document `json:"document"`
	Errors   []Issue   `json:"errors"`
	Warnings []Issue   `json:"warnings"`
}

// Options opzioni per il parsing
type Options struct {
	// ValidateTargets abilita la post-validazione: target inesistenti
	// e card non raggiungibili dalla start card
	ValidateTargets bool
}
