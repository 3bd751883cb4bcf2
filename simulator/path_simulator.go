package simulator

import (
	"fmt"

	"story-editor/parser"
)

// PathSimulator simula un percorso di lettura attraverso la storia
type PathSimulator struct {
	doc  *parser.Document
	byID map[string]*parser.Card
}

// StepResult risultato di un singolo step del percorso
type StepResult struct {
	CardID           string   `json:"card_id"`
	CardTitle        string   `json:"card_title"`
	StepIndex        int      `json:"step_index"`
	ChoiceTaken      string   `json:"choice_taken,omitempty"`
	AvailableChoices []string `json:"available_choices"`
	CanEnd           bool     `json:"can_end"`
}

// SimulationResult risultato completo della simulazione
type SimulationResult struct {
	Success    bool         `json:"success"`
	Path       []string     `json:"path"`
	Steps      []StepResult `json:"steps"`
	ReachedEnd bool         `json:"reached_end"`
	Errors     []string     `json:"errors,omitempty"`
}

// NewPathSimulator crea un nuovo simulatore su un documento parsato
func NewPathSimulator(doc *parser.Document) *PathSimulator {
	byID := make(map[string]*parser.Card, len(doc.Cards))
	for _, card := range doc.Cards {
		byID[card.ID] = card
	}
	return &PathSimulator{doc: doc, byID: byID}
}

// ValidatePath verifica che il path sia valido (card collegate)
func (ps *PathSimulator) ValidatePath(path []string) []string {
	errors := []string{}

	// Verifica che tutte le card esistano
	for i, cardID := range path {
		if _, exists := ps.byID[cardID]; !exists {
			errors = append(errors, fmt.Sprintf("Step %d: card '%s' non esiste", i+1, cardID))
		}
	}

	// Verifica che le card siano collegate da una scelta
	for i := 0; i < len(path)-1; i++ {
		currentID := path[i]
		nextID := path[i+1]

		card, exists := ps.byID[currentID]
		if !exists {
			continue // Già segnalato sopra
		}

		targets := cardTargets(card)

		linked := false
		for _, target := range targets {
			if target == nextID {
				linked = true
				break
			}
		}

		if !linked {
			errors = append(errors, fmt.Sprintf(
				"Step %d→%d: '%s' non ha una scelta verso '%s'. Target disponibili: %v",
				i+1, i+2, currentID, nextID, targets,
			))
		}
	}

	return errors
}

// SimulatePath simula l'attraversamento di un percorso
func (ps *PathSimulator) SimulatePath(path []string) *SimulationResult {
	result := &SimulationResult{
		Success: true,
		Path:    path,
		Steps:   []StepResult{},
		Errors:  []string{},
	}

	// Valida il path prima di simulare
	validationErrors := ps.ValidatePath(path)
	if len(validationErrors) > 0 {
		result.Success = false
		result.Errors = validationErrors
		return result
	}

	for i, cardID := range path {
		card, exists := ps.byID[cardID]
		if !exists {
			// Non dovrebbe mai succedere dopo la validazione
			continue
		}

		step := StepResult{
			CardID:           cardID,
			CardTitle:        card.Title,
			StepIndex:        i + 1,
			AvailableChoices: []string{},
		}

		for _, choice := range card.Choices {
			step.AvailableChoices = append(step.AvailableChoices, choice.Label)
			if choice.Target.IsEnd() {
				step.CanEnd = true
			}
		}

		// Registra la scelta che porta allo step successivo
		if i < len(path)-1 {
			for _, choice := range card.Choices {
				if !choice.Target.IsEnd() && choice.Target.CardID == path[i+1] {
					step.ChoiceTaken = choice.Label
					break
				}
			}
		}

		result.Steps = append(result.Steps, step)
	}

	// Il percorso raggiunge una fine se l'ultima card può terminare
	// o non ha più scelte
	if len(path) > 0 {
		if last, exists := ps.byID[path[len(path)-1]]; exists {
			result.ReachedEnd = len(last.Choices) == 0
			for _, choice := range last.Choices {
				if choice.Target.IsEnd() {
					result.ReachedEnd = true
				}
			}
		}
	}

	return result
}

// GetSuggestedPaths suggerisce percorsi validi dato un punto di partenza
func (ps *PathSimulator) GetSuggestedPaths(startCard string, maxDepth int) [][]string {
	paths := [][]string{}

	// BFS per trovare tutti i percorsi possibili
	queue := [][]string{{startCard}}

	for len(queue) > 0 && len(paths) < 10 { // Limite a 10 path per non esplodere
		currentPath := queue[0]
		queue = queue[1:]

		if len(currentPath) >= maxDepth {
			paths = append(paths, currentPath)
			continue
		}

		lastID := currentPath[len(currentPath)-1]
		card, exists := ps.byID[lastID]
		if !exists {
			continue
		}

		targets := cardTargets(card)

		if len(targets) == 0 {
			// Fine del percorso
			paths = append(paths, currentPath)
		} else {
			// Espandi i percorsi
			for _, target := range targets {
				newPath := make([]string, len(currentPath))
				copy(newPath, currentPath)
				newPath = append(newPath, target)
				queue = append(queue, newPath)
			}
		}
	}

	return paths
}

// cardTargets restituisce gli id raggiungibili dalle scelte non
// terminali di una card
func cardTargets(card *parser.Card) []string {
	targets := []string{}
	for _, choice := range card.Choices {
		if !choice.Target.IsEnd() {
			targets = append(targets, choice.Target.CardID)
		}
	}
	return targets
}
