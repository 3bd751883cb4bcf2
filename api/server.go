package api

import (
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	gosync "sync"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"story-editor/model"
	"story-editor/parser"
	"story-editor/serializer"
	"story-editor/simulator"
	"story-editor/sync"
	"story-editor/watcher"
)

// Server rappresenta il server API
type Server struct {
	router       *gin.Engine
	watcher      *watcher.FileWatcher
	watcherMutex gosync.Mutex
	wsClients    map[*websocket.Conn]bool
	wsUpgrader   websocket.Upgrader
	port         int

	// Sessione di sync: una per server, protetta da mutex
	sessionMutex gosync.Mutex
	syncState    *sync.SyncState
	stack        model.StoryStack
	cards        []model.StoryCard
	choices      []model.StoryChoice
}

// ServerConfig configurazione del server
type ServerConfig struct {
	Port       int
	EnableCORS bool
	Debug      bool
}

// NewServer crea un nuovo server API
func NewServer(config ServerConfig) *Server {
	// Imposta modalità Gin
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// CORS se abilitato
	if config.EnableCORS {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"*"},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
		}))
	}

	server := &Server{
		router:    router,
		wsClients: make(map[*websocket.Conn]bool),
		wsUpgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins in development
			},
		},
		port: config.Port,
	}

	// Setup routes
	server.setupRoutes()

	return server
}

// setupRoutes configura tutti gli endpoint
func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		// Health check
		api.GET("/health", s.healthCheck)

		// Story endpoints
		api.POST("/story/parse", s.parseStory)
		api.POST("/story/validate", s.validateStory)
		api.POST("/story/serialize", s.serializeStory)
		api.POST("/story/diff", s.diffStory)

		// Sync endpoints
		api.POST("/sync/create", s.createSync)
		api.POST("/sync/text", s.updateSyncText)
		api.POST("/sync/graph", s.updateSyncGraph)
		api.POST("/sync/apply", s.applySync)
		api.GET("/sync/state", s.getSyncState)

		// Path Simulator endpoints
		api.POST("/simulator/validate", s.validatePath)
		api.POST("/simulator/simulate", s.simulatePath)
		api.POST("/simulator/suggest", s.suggestPaths)

		// Watcher endpoints
		api.POST("/watch/start", s.startWatcher)
		api.POST("/watch/stop", s.stopWatcher)
		api.GET("/watch/status", s.getWatcherStatus)

		// Utils endpoints
		api.GET("/version", s.getVersion)
	}

	// WebSocket endpoint
	s.router.GET("/ws", s.handleWebSocket)
}

// Start avvia il server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	log.Printf("🚀 Server avviato su http://localhost%s", addr)
	log.Printf("📚 API disponibile su http://localhost%s/api", addr)
	log.Printf("🔌 WebSocket su ws://localhost%s/ws", addr)
	return s.router.Run(addr)
}

// ============================================
// Handlers
// ============================================

// healthCheck verifica lo stato del server
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": "0.1.0",
	})
}

// getVersion ottiene la versione del backend
func (s *Server) getVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"version": "0.1.0",
	})
}

// ParseStoryRequest richiesta di parsing
type ParseStoryRequest struct {
	Text            string `json:"text" binding:"required"`
	ValidateTargets bool   `json:"validate_targets"`
}

// parseStory parsa un testo DSL
func (s *Server) parseStory(c *gin.Context) {
	var req ParseStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := parser.Parse(req.Text, parser.Options{ValidateTargets: req.ValidateTargets})

	c.JSON(http.StatusOK, result)
}

// ValidateStoryRequest richiesta di validazione
type ValidateStoryRequest struct {
	Text string `json:"text" binding:"required"`
}

// validateStory valida un testo DSL (parse + validazione target)
func (s *Server) validateStory(c *gin.Context) {
	var req ValidateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := parser.Parse(req.Text, parser.Options{ValidateTargets: true})

	c.JSON(http.StatusOK, gin.H{
		"valid":    result.Success,
		"errors":   result.Errors,
		"warnings": result.Warnings,
	})
}

// SerializeStoryRequest richiesta di serializzazione
type SerializeStoryRequest struct {
	Stack               model.StoryStack    `json:"stack"`
	Cards               []model.StoryCard   `json:"cards" binding:"required"`
	Choices             []model.StoryChoice `json:"choices"`
	IncludeDebugInfo    bool                `json:"include_debug_info"`
	IncludeImagePrompts bool                `json:"include_image_prompts"`
}

// serializeStory serializza un grafo persistito in testo DSL
func (s *Server) serializeStory(c *gin.Context) {
	var req SerializeStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := serializer.Serialize(req.Stack, req.Cards, req.Choices, serializer.Options{
		IncludeDebugInfo:    req.IncludeDebugInfo,
		IncludeImagePrompts: req.IncludeImagePrompts,
	})

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"text":       result.Text,
		"id_mapping": result.IdMapping,
	})
}

// DiffStoryRequest richiesta di diff tra due testi
type DiffStoryRequest struct {
	OldText string `json:"old_text"`
	NewText string `json:"new_text" binding:"required"`
}

// diffStory calcola le differenze tra due versioni del testo
func (s *Server) diffStory(c *gin.Context) {
	var req DiffStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	oldResult := parser.Parse(req.OldText, parser.Options{})
	newResult := parser.Parse(req.NewText, parser.Options{})

	diff := sync.ComputeDiff(oldResult.Document, newResult.Document)

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"diff":        diff,
		"has_changes": diff.HasChanges(),
	})
}

// ============================================
// Sync Handlers
// ============================================

// GraphSnapshotRequest snapshot del grafo persistito
type GraphSnapshotRequest struct {
	Stack   model.StoryStack    `json:"stack"`
	Cards   []model.StoryCard   `json:"cards" binding:"required"`
	Choices []model.StoryChoice `json:"choices"`
}

// createSync inizializza la sessione di sync da uno snapshot
func (s *Server) createSync(c *gin.Context) {
	var req GraphSnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.sessionMutex.Lock()
	defer s.sessionMutex.Unlock()

	s.syncState = sync.CreateSyncState(req.Stack, req.Cards, req.Choices)
	s.stack = req.Stack
	s.cards = req.Cards
	s.choices = req.Choices

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"state":   s.syncState,
	})
}

// UpdateTextRequest richiesta di aggiornamento testo
type UpdateTextRequest struct {
	Text string `json:"text" binding:"required"`
}

// updateSyncText aggiorna la sessione dopo una modifica al testo
func (s *Server) updateSyncText(c *gin.Context) {
	var req UpdateTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.sessionMutex.Lock()
	defer s.sessionMutex.Unlock()

	if s.syncState == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sessione di sync non inizializzata"})
		return
	}

	sync.UpdateFromDsl(s.syncState, req.Text)

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"is_dirty": s.syncState.IsDirty,
		"errors":   s.syncState.ParseErrors,
		"warnings": s.syncState.ParseWarnings,
	})
}

// updateSyncGraph riallinea la sessione dopo una modifica al canvas
func (s *Server) updateSyncGraph(c *gin.Context) {
	var req GraphSnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.sessionMutex.Lock()
	defer s.sessionMutex.Unlock()

	if s.syncState == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sessione di sync non inizializzata"})
		return
	}

	sync.UpdateFromGraph(s.syncState, req.Stack, req.Cards, req.Choices)
	s.stack = req.Stack
	s.cards = req.Cards
	s.choices = req.Choices

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"state":   s.syncState,
	})
}

// getSyncState restituisce lo stato corrente della sessione
func (s *Server) getSyncState(c *gin.Context) {
	s.sessionMutex.Lock()
	defer s.sessionMutex.Unlock()

	if s.syncState == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "sessione di sync non inizializzata"})
		return
	}

	c.JSON(http.StatusOK, s.syncState)
}

// applySync riconcilia il documento corrente con il grafo live.
// Restituisce solo il piano: l'esecuzione spetta al chiamante.
func (s *Server) applySync(c *gin.Context) {
	s.sessionMutex.Lock()
	defer s.sessionMutex.Unlock()

	if s.syncState == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sessione di sync non inizializzata"})
		return
	}

	if len(s.syncState.ParseErrors) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "il testo contiene errori di parsing",
			"errors": s.syncState.ParseErrors,
		})
		return
	}

	if s.syncState.Document == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nessun documento parsato"})
		return
	}

	result := sync.ApplyToGraph(s.syncState.Document, s.stack, s.cards, s.choices, s.syncState.IdMapping)

	c.JSON(http.StatusOK, result)
}

// ============================================
// Path Simulator Handlers
// ============================================

// ValidatePathRequest richiesta di validazione path
type ValidatePathRequest struct {
	Text string   `json:"text" binding:"required"`
	Path []string `json:"path" binding:"required"`
}

// validatePath valida un percorso
func (s *Server) validatePath(c *gin.Context) {
	var req ValidatePathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Parse la storia
	result := parser.Parse(req.Text, parser.Options{})
	if !result.Success {
		c.JSON(http.StatusBadRequest, gin.H{"error": "testo non valido", "errors": result.Errors})
		return
	}

	// Crea simulator e valida
	sim := simulator.NewPathSimulator(result.Document)
	errors := sim.ValidatePath(req.Path)

	c.JSON(http.StatusOK, gin.H{
		"valid":  len(errors) == 0,
		"path":   req.Path,
		"errors": errors,
	})
}

// SimulatePathRequest richiesta di simulazione path
type SimulatePathRequest struct {
	Text string   `json:"text" binding:"required"`
	Path []string `json:"path" binding:"required"`
}

// simulatePath simula l'attraversamento di un percorso
func (s *Server) simulatePath(c *gin.Context) {
	var req SimulatePathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Parse la storia
	result := parser.Parse(req.Text, parser.Options{})
	if !result.Success {
		c.JSON(http.StatusBadRequest, gin.H{"error": "testo non valido", "errors": result.Errors})
		return
	}

	// Crea simulator e simula
	sim := simulator.NewPathSimulator(result.Document)
	simResult := sim.SimulatePath(req.Path)

	c.JSON(http.StatusOK, simResult)
}

// SuggestPathsRequest richiesta di suggerimento percorsi
type SuggestPathsRequest struct {
	Text      string `json:"text" binding:"required"`
	StartCard string `json:"start_card" binding:"required"`
	MaxDepth  int    `json:"max_depth"`
}

// suggestPaths suggerisce percorsi validi
func (s *Server) suggestPaths(c *gin.Context) {
	var req SuggestPathsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Default max depth
	if req.MaxDepth == 0 || req.MaxDepth > 10 {
		req.MaxDepth = 5
	}

	// Parse la storia
	result := parser.Parse(req.Text, parser.Options{})
	if !result.Success {
		c.JSON(http.StatusBadRequest, gin.H{"error": "testo non valido", "errors": result.Errors})
		return
	}

	// Crea simulator e suggerisci
	sim := simulator.NewPathSimulator(result.Document)
	paths := sim.GetSuggestedPaths(req.StartCard, req.MaxDepth)

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"start_card": req.StartCard,
		"max_depth":  req.MaxDepth,
		"paths":      paths,
		"count":      len(paths),
	})
}

// ============================================
// Watcher Handlers
// ============================================

// StartWatcherRequest richiesta avvio watcher
type StartWatcherRequest struct {
	Paths        []string `json:"paths" binding:"required"`
	AutoValidate bool     `json:"auto_validate"`
}

// startWatcher avvia il file watcher
func (s *Server) startWatcher(c *gin.Context) {
	s.watcherMutex.Lock()
	defer s.watcherMutex.Unlock()

	if s.watcher != nil && s.watcher.IsRunning() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Watcher già in esecuzione"})
		return
	}

	var req StartWatcherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Crea watcher
	config := watcher.WatcherConfig{
		Paths:        req.Paths,
		AutoValidate: req.AutoValidate,
	}

	fw, err := watcher.NewFileWatcher(config)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := fw.Start(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.watcher = fw

	// Invia eventi ai client WebSocket
	go s.broadcastWatcherEvents()

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Watcher avviato",
		"paths":   req.Paths,
	})
}

// stopWatcher ferma il file watcher
func (s *Server) stopWatcher(c *gin.Context) {
	s.watcherMutex.Lock()
	defer s.watcherMutex.Unlock()

	if s.watcher == nil || !s.watcher.IsRunning() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Watcher non in esecuzione"})
		return
	}

	if err := s.watcher.Stop(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.watcher = nil

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Watcher fermato",
	})
}

// getWatcherStatus ottiene lo stato del watcher
func (s *Server) getWatcherStatus(c *gin.Context) {
	s.watcherMutex.Lock()
	defer s.watcherMutex.Unlock()

	isRunning := s.watcher != nil && s.watcher.IsRunning()

	c.JSON(http.StatusOK, gin.H{
		"running": isRunning,
	})
}

// ============================================
// WebSocket
// ============================================

// handleWebSocket gestisce connessioni WebSocket
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Errore upgrade WebSocket: %v", err)
		return
	}
	defer conn.Close()

	s.wsClients[conn] = true
	log.Printf("🔌 Client WebSocket connesso (totale: %d)", len(s.wsClients))

	// Mantieni la connessione aperta
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			delete(s.wsClients, conn)
			log.Printf("🔌 Client WebSocket disconnesso (totale: %d)", len(s.wsClients))
			break
		}
	}
}

// broadcastWatcherEvents invia eventi del watcher ai client WebSocket
func (s *Server) broadcastWatcherEvents() {
	if s.watcher == nil {
		return
	}

	for event := range s.watcher.Events() {
		message := gin.H{
			"type":      event.Type,
			"path":      filepath.Base(event.Path),
			"full_path": event.Path,
			"timestamp": event.Timestamp,
			"errors":    event.Errors,
			"warnings":  event.Warnings,
		}

		// Broadcast a tutti i client connessi
		for client := range s.wsClients {
			if err := client.WriteJSON(message); err != nil {
				log.Printf("Errore invio WebSocket: %v", err)
				client.Close()
				delete(s.wsClients, client)
			}
		}
	}
}
