package sync

import (
	"time"

	"story-editor/model"
	"story-editor/parser"
	"story-editor/serializer"
)

// SyncState stato di sincronizzazione tra testo DSL e grafo.
// Vive per tutta la sessione dell'editor e viene mutato solo
// attraverso le operazioni esplicite di questo package.
type SyncState struct {
	Text          string           `json:"text"`
	Document      *parser.Document `json:"document"`
	IdMapping     *model.IdMapping `json:"id_mapping"`
	IsDirty       bool             `json:"is_dirty"`
	LastSyncAt    time.Time        `json:"last_sync_at"`
	ParseErrors   []parser.Issue   `json:"parse_errors"`
	ParseWarnings []parser.Issue   `json:"parse_warnings"`
}

// CreateSyncState crea lo stato iniziale da uno snapshot del grafo:
// serializza, riparsa il risultato e parte pulito (IsDirty=false)
func CreateSyncState(stack model.StoryStack, cards []model.StoryCard, choices []model.StoryChoice) *SyncState {
	state := &SyncState{}
	state.syncFromGraph(stack, cards, choices)
	return state
}

// UpdateFromDsl aggiorna lo stato dopo una modifica al testo.
// Solo parsing, nessun tocco al grafo né alla mapping: è pensata
// per girare a ogni keystroke per la diagnostica live.
func UpdateFromDsl(state *SyncState, newText string) {
	result := parser.Parse(newText, parser.Options{ValidateTargets: true})

	state.Text = newText
	state.Document = result.Document
	state.IsDirty = true
	state.ParseErrors = result.Errors
	state.ParseWarnings = result.Warnings
}

// UpdateFromGraph riallinea il testo quando il canvas cambia
// esternamente; resetta IsDirty
func UpdateFromGraph(state *SyncState, stack model.StoryStack, cards []model.StoryCard, choices []model.StoryChoice) {
	state.syncFromGraph(stack, cards, choices)
}

// syncFromGraph serializza il grafo e riparsa il testo ottenuto
func (s *SyncState) syncFromGraph(stack model.StoryStack, cards []model.StoryCard, choices []model.StoryChoice) {
	serialized := serializer.Serialize(stack, cards, choices, serializer.Options{})
	result := parser.Parse(serialized.Text, parser.Options{ValidateTargets: true})

	s.Text = serialized.Text
	s.Document = result.Document
	s.IdMapping = serialized.IdMapping
	s.IsDirty = false
	s.LastSyncAt = time.Now()
	s.ParseErrors = result.Errors
	s.ParseWarnings = result.Warnings
}
