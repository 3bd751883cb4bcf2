package test

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"story-editor/model"
	"story-editor/parser"
	"story-editor/serializer"
	"story-editor/sync"
)

// TestRunner esegue i test batch sui file .story di una cartella
type TestRunner struct {
	baseDir string
}

// ParsedOutput rappresenta l'output completo del parsing
type ParsedOutput struct {
	Filename  string           `json:"filename"`
	ParsedAt  string           `json:"parsed_at"`
	Success   bool             `json:"success"`
	CardCount int              `json:"card_count"`
	Errors    []parser.Issue   `json:"errors,omitempty"`
	Warnings  []parser.Issue   `json:"warnings,omitempty"`
	Document  *parser.Document `json:"document,omitempty"`
}

// RoundTripOutput rappresenta l'esito del round-trip
// parse → apply → serialize → reparse
type RoundTripOutput struct {
	Filename      string `json:"filename"`
	CheckedAt     string `json:"checked_at"`
	Success       bool   `json:"success"`
	Error         string `json:"error,omitempty"`
	OriginalCards int    `json:"original_cards"`
	RoundTripped  int    `json:"round_tripped_cards"`
}

// TestSummary riassunto dei test
type TestSummary struct {
	TotalFiles       int    `json:"total_files"`
	ParseSuccess     int    `json:"parse_success"`
	ParseFailed      int    `json:"parse_failed"`
	RoundTripSuccess int    `json:"round_trip_success"`
	RoundTripFailed  int    `json:"round_trip_failed"`
	Duration         string `json:"duration"`
}

// NewTestRunner crea un nuovo test runner
func NewTestRunner(baseDir string) *TestRunner {
	return &TestRunner{baseDir: baseDir}
}

// RunTests esegue i test su tutti i file .story della cartella
func (tr *TestRunner) RunTests() (*TestSummary, error) {
	startTime := time.Now()

	// Verifica che la cartella esista
	if _, err := os.Stat(tr.baseDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("cartella %s non trovata", tr.baseDir)
	}

	// Trova tutti i file .story
	storyFiles, err := tr.findStoryFiles()
	if err != nil {
		return nil, err
	}

	if len(storyFiles) == 0 {
		return nil, fmt.Errorf("nessun file .story trovato in %s", tr.baseDir)
	}

	summary := &TestSummary{
		TotalFiles: len(storyFiles),
	}

	fmt.Printf("\n📁 Trovati %d file .story in %s\n", len(storyFiles), tr.baseDir)
	fmt.Println(strings.Repeat("─", 50))

	// Processa ogni file
	for _, storyFile := range storyFiles {
		filename := filepath.Base(storyFile)
		fmt.Printf("\n📄 %s\n", filename)

		// 1. Parsing + validazione
		parseResult := tr.parseFile(storyFile)
		if parseResult.Success {
			summary.ParseSuccess++
			fmt.Printf("   ✅ Parsing OK - %d card\n", parseResult.CardCount)
			if len(parseResult.Warnings) > 0 {
				fmt.Printf("   ⚠️  %d warning(s)\n", len(parseResult.Warnings))
			}
		} else {
			summary.ParseFailed++
			fmt.Printf("   ❌ Parsing FAILED: %d errori\n", len(parseResult.Errors))
		}

		// Salva JSON parsing
		parseJSONPath := tr.getOutputPath(storyFile, "_parsed.json")
		if err := tr.saveJSON(parseJSONPath, parseResult); err != nil {
			fmt.Printf("   ⚠️  Errore salvataggio JSON: %v\n", err)
		} else {
			fmt.Printf("   💾 %s\n", filepath.Base(parseJSONPath))
		}

		// 2. Round-trip (solo se il parsing è riuscito)
		if !parseResult.Success {
			summary.RoundTripFailed++
			continue
		}

		roundTrip := tr.roundTripFile(storyFile, parseResult.Document)
		if roundTrip.Success {
			summary.RoundTripSuccess++
			fmt.Printf("   ✅ Round-trip OK - %d card\n", roundTrip.RoundTripped)
		} else {
			summary.RoundTripFailed++
			fmt.Printf("   ❌ Round-trip FAILED: %s\n", roundTrip.Error)
		}

		// Salva JSON round-trip
		rtJSONPath := tr.getOutputPath(storyFile, "_roundtrip.json")
		if err := tr.saveJSON(rtJSONPath, roundTrip); err != nil {
			fmt.Printf("   ⚠️  Errore salvataggio log: %v\n", err)
		} else {
			fmt.Printf("   💾 %s\n", filepath.Base(rtJSONPath))
		}
	}

	summary.Duration = time.Since(startTime).String()

	// Stampa riassunto
	fmt.Println()
	fmt.Println(strings.Repeat("═", 50))
	fmt.Println("📊 RIASSUNTO TEST")
	fmt.Println(strings.Repeat("═", 50))
	fmt.Printf("   File testati:     %d\n", summary.TotalFiles)
	fmt.Printf("   Parsing OK:       %d/%d\n", summary.ParseSuccess, summary.TotalFiles)
	fmt.Printf("   Round-trip OK:    %d/%d\n", summary.RoundTripSuccess, summary.TotalFiles)
	fmt.Printf("   Durata:           %s\n", summary.Duration)
	fmt.Println(strings.Repeat("═", 50))

	return summary, nil
}

// findStoryFiles trova tutti i file .story nella cartella
func (tr *TestRunner) findStoryFiles() ([]string, error) {
	var files []string

	err := filepath.Walk(tr.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(strings.ToLower(info.Name()), ".story") {
			files = append(files, path)
		}
		return nil
	})

	return files, err
}

// parseFile parsa e valida un singolo file .story
func (tr *TestRunner) parseFile(filePath string) *ParsedOutput {
	result := &ParsedOutput{
		Filename: filepath.Base(filePath),
		ParsedAt: time.Now().Format(time.RFC3339),
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Success = false
		result.Errors = []parser.Issue{{Type: "read_error", Message: err.Error()}}
		return result
	}

	parseResult := parser.Parse(string(data), parser.Options{ValidateTargets: true})

	result.Success = parseResult.Success
	result.CardCount = len(parseResult.Document.Cards)
	result.Errors = parseResult.Errors
	result.Warnings = parseResult.Warnings
	result.Document = parseResult.Document

	return result
}

// roundTripFile verifica che documento → grafo → testo → documento
// preservi la struttura della storia
func (tr *TestRunner) roundTripFile(filePath string, doc *parser.Document) *RoundTripOutput {
	result := &RoundTripOutput{
		Filename:      filepath.Base(filePath),
		CheckedAt:     time.Now().Format(time.RFC3339),
		OriginalCards: len(doc.Cards),
	}

	// Costruisci il grafo persistito applicando il documento a un
	// grafo vuoto
	stack := model.StoryStack{ID: "roundtrip", Name: doc.Metadata.Title}
	apply := sync.ApplyToGraph(doc, stack, nil, nil, nil)
	if !apply.Success {
		result.Error = fmt.Sprintf("apply fallita: %v", apply.Errors)
		return result
	}

	stack.FirstCardID = apply.StartCardID

	// Serializza e riparsa
	serialized := serializer.Serialize(stack, apply.Created, apply.ChoicesCreated, serializer.Options{})
	reparsed := parser.Parse(serialized.Text, parser.Options{ValidateTargets: true})

	result.RoundTripped = len(reparsed.Document.Cards)

	if !reparsed.Success {
		result.Error = fmt.Sprintf("reparse fallito: %d errori", len(reparsed.Errors))
		return result
	}

	if result.RoundTripped != result.OriginalCards {
		result.Error = fmt.Sprintf("card count diverso: %d vs %d", result.OriginalCards, result.RoundTripped)
		return result
	}

	result.Success = true
	return result
}

// getOutputPath genera il path per un file di output
func (tr *TestRunner) getOutputPath(inputPath, suffix string) string {
	baseName := strings.TrimSuffix(filepath.Base(inputPath), ".story")
	return filepath.Join(filepath.Dir(inputPath), baseName+suffix)
}

// saveJSON salva un oggetto come JSON
func (tr *TestRunner) saveJSON(path string, data interface{}) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, jsonData, 0644)
}
