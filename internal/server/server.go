// Package server exposes the textkit tools over HTTP: the text
// converter, the chat workspace, and the lead extractor.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"textkit/internal/cache"
	"textkit/internal/config"
	"textkit/internal/extract"
	"textkit/internal/history"
	"textkit/internal/llm"
	"textkit/internal/logging"
	"textkit/internal/resource"
	"textkit/internal/stats"
	"textkit/internal/store"
	"textkit/pkg/api"
)

// Version is the server version reported on the root endpoint.
const Version = "0.3.0"

// Server wires the tool packages behind an HTTP mux.
type Server struct {
	httpServer *http.Server
	config     *config.Config
	log        *logging.Logger
	chats      *history.Store
	jobs       *store.Store
	llm        *llm.Client
	processor  *extract.Processor
	monitor    *resource.Monitor
	cache      *cache.ResponseCache
	tracker    *stats.Tracker
	limiter    *RateLimiter
	extracts   *ExtractLimiter
	startedAt  time.Time
}

// New builds a server from a validated configuration.
func New(cfg *config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log := logging.Default().
		SetLevel(logging.ParseLevel(cfg.LogLevel)).
		SetJSON(cfg.LogJSON)

	jobs, err := store.Open(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open job store: %w", err)
	}

	respCache := cache.New(cfg.CacheMaxEntries, time.Duration(cfg.CacheTTLSeconds)*time.Second)
	tracker := stats.NewTracker()

	client := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel,
		time.Duration(cfg.LLMTimeout)*time.Second)

	monitor := resource.NewMonitor(cfg.DataDir, 5*time.Second)
	monitor.Start()

	return &Server{
		config:    cfg,
		log:       log,
		chats:     history.NewStore(cfg.ChatsDir()),
		jobs:      jobs,
		llm:       client,
		processor: extract.NewProcessor(client, cfg.LLMModel, cfg.ExtractConcurrency, respCache, tracker),
		monitor:   monitor,
		cache:     respCache,
		tracker:   tracker,
		limiter:   NewRateLimiter(cfg.RateLimitPerMinute, time.Minute, cfg.RateLimitPerMinute),
		extracts:  NewExtractLimiter(1, cfg.ExtractConcurrency),
		startedAt: time.Now(),
	}, nil
}

// Start runs the HTTP server until a shutdown signal arrives.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.ServerHost, s.config.ServerPort),
		Handler:      s.loggingMiddleware(s.routes()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 300 * time.Second, // extraction jobs upload large sheets
		IdleTimeout:  60 * time.Second,
	}

	go s.handleShutdown()

	s.log.Infof("Server starting on http://%s:%d", s.config.ServerHost, s.config.ServerPort)
	s.log.Info("Endpoints", map[string]any{
		"convert": "POST /api/convert",
		"chats":   "GET/POST /api/chats",
		"leads":   "GET/POST /api/leads",
	})

	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/system", s.handleSystem)

	mux.HandleFunc("/api/convert", s.limiter.Middleware(s.handleConvert))
	mux.HandleFunc("/api/chats", s.limiter.Middleware(s.handleChats))
	mux.HandleFunc("/api/chats/", s.limiter.Middleware(s.handleChats))
	mux.HandleFunc("/api/leads", s.limiter.Middleware(s.handleLeads))
	mux.HandleFunc("/api/leads/", s.limiter.Middleware(s.handleLeads))

	return mux
}

// Close releases background resources. Safe to call once.
func (s *Server) Close() {
	s.monitor.Stop()
	if err := s.jobs.Close(); err != nil {
		s.log.Errorf("Failed to close job store: %v", err)
	}
}

func (s *Server) handleShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	s.log.Info("Shutdown signal received, gracefully stopping")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.log.Errorf("Error during shutdown: %v", err)
	}

	s.Close()
	s.log.Info("Server stopped")
}

// loggingMiddleware logs all HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("Request", map[string]any{
			"method": r.Method,
			"path":   r.URL.Path,
			"took":   time.Since(start).String(),
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"healthy"}`)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, api.VersionResponse{
		Name:    "textkit",
		Version: Version,
		Status:  "running",
	})
}

// handleSystem reports host resources, cache counters and per-model
// call statistics.
func (s *Server) handleSystem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{
		"resources":      s.monitor.GetStats(),
		"cache":          s.cache.Stats(),
		"models":         s.tracker.All(),
		"uptime_seconds": int(time.Since(s.startedAt).Seconds()),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Errorf("Error encoding response: %v", err)
	}
}

// writeError writes an error response
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := api.ErrorResponse{
		Error: api.ErrorDetail{
			Message: message,
			Type:    "api_error",
		},
	}
	json.NewEncoder(w).Encode(response)
}
