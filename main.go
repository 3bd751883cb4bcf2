package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"story-editor/api"
	"story-editor/config"
	"story-editor/model"
	"story-editor/parser"
	"story-editor/serializer"
	"story-editor/sync"
	"story-editor/test"
)

func main() {
	fmt.Println("Story Editor Backend v0.1.0")
	fmt.Println("================================")
	fmt.Println()

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "demo":
			runDemo()
			return
		case "batch":
			if len(os.Args) < 3 {
				log.Fatal("uso: story-editor batch <cartella>")
			}
			runBatch(os.Args[2])
			return
		}
	}

	runServer()
}

// runServer carica la config e avvia il server API
func runServer() {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("❌ Errore configurazione: %v", err)
	}

	server := api.NewServer(api.ServerConfig{
		Port:       cfg.Port,
		EnableCORS: cfg.EnableCORS,
		Debug:      cfg.Debug,
	})

	if err := server.Start(); err != nil {
		log.Fatalf("❌ Errore server: %v", err)
	}
}

// runBatch esegue i test batch su una cartella di file .story
func runBatch(dir string) {
	runner := test.NewTestRunner(dir)
	if _, err := runner.RunTests(); err != nil {
		log.Fatalf("❌ Errore test batch: %v", err)
	}
}

// runDemo mostra il ciclo completo: grafo → testo → modifica → piano
func runDemo() {
	// Test del parser
	fmt.Println("📖 Testing Parser...")
	doc := testParser()

	fmt.Println("\n================================")
	fmt.Println()

	// Test del serializer e della riconciliazione
	fmt.Println("⚙️  Testing Serializer + Sync...")
	testSync(doc)
}

func testParser() *parser.Document {
	text := `# Story: La Caverna
# Description: Una breve avventura dimostrativa

## ingresso: L'Ingresso
@start
@speaker: Narratore
@speaker_type: narrator
Ti trovi davanti a una caverna buia.

-> Entra -> caverna
-> Vai via -> end

## caverna: Dentro la Caverna
Un drago dorme su un mucchio d'oro.

-> Ruba l'oro -> fuga
-> Scappa -> end

## fuga: La Fuga
Corri con l'oro tra le braccia. The End.
`

	result := parser.Parse(text, parser.Options{ValidateTargets: true})
	if !result.Success {
		log.Fatalf("Errore nel parsing: %v", result.Errors)
	}

	fmt.Println("✓ Storia parsata con successo!")
	fmt.Printf("  Titolo: %s\n", result.Document.Metadata.Title)
	fmt.Printf("  Card trovate: %d\n", len(result.Document.Cards))
	fmt.Printf("  Start card: %s\n", result.Document.StartCardID)

	for _, card := range result.Document.Cards {
		fmt.Printf("\n=== Card: %s (%s) ===\n", card.Title, card.ID)
		fmt.Printf("Contenuto: %s\n", card.Content)
		for _, choice := range card.Choices {
			fmt.Printf("Scelta: %s -> %s\n", choice.Label, choice.Target.DSL())
		}
	}

	if len(result.Warnings) > 0 {
		fmt.Printf("\n⚠️  Warning (%d):\n", len(result.Warnings))
		for _, warning := range result.Warnings {
			fmt.Printf("   - %s\n", warning.Message)
		}
	}

	return result.Document
}

func testSync(doc *parser.Document) {
	// Riconcilia il documento con un grafo vuoto: tutte create
	stack := model.StoryStack{ID: "demo-stack", Name: doc.Metadata.Title}
	plan := sync.ApplyToGraph(doc, stack, nil, nil, nil)

	fmt.Println("✓ Piano di riconciliazione calcolato!")
	fmt.Printf("  Card da creare:   %d\n", len(plan.Created))
	fmt.Printf("  Scelte da creare: %d\n", len(plan.ChoicesCreated))

	// Simula la persistenza e riserializza
	stack.FirstCardID = plan.StartCardID
	serialized := serializer.Serialize(stack, plan.Created, plan.ChoicesCreated, serializer.Options{})

	fmt.Println("\n📄 Testo DSL rigenerato dal grafo:")
	fmt.Println(serialized.Text)

	// Seconda apply: deve essere un piano vuoto (idempotenza)
	reparsed := parser.Parse(serialized.Text, parser.Options{ValidateTargets: true})
	second := sync.ApplyToGraph(reparsed.Document, stack, plan.Created, plan.ChoicesCreated, serialized.IdMapping)

	if len(second.Created)+len(second.Updated)+len(second.Deleted) == 0 {
		fmt.Println("✅ Seconda apply vuota: riconciliazione idempotente")
	} else {
		fmt.Printf("❌ Seconda apply non vuota: %d/%d/%d\n", len(second.Created), len(second.Updated), len(second.Deleted))
	}

	// Output JSON del piano (solo per debug)
	fmt.Println("\n=== JSON Output (primi 500 caratteri) ===")
	jsonData, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		log.Printf("Errore serializzazione JSON: %v", err)
		return
	}
	jsonStr := string(jsonData)
	if len(jsonStr) > 500 {
		jsonStr = jsonStr[:500] + "..."
	}
	fmt.Println(jsonStr)
}
