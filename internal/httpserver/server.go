package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/fdg312/dining-planner/internal/ai"
	"github.com/fdg312/dining-planner/internal/auth"
	"github.com/fdg312/dining-planner/internal/blob"
	"github.com/fdg312/dining-planner/internal/config"
	"github.com/fdg312/dining-planner/internal/export"
	"github.com/fdg312/dining-planner/internal/llmplan"
	"github.com/fdg312/dining-planner/internal/menus"
	"github.com/fdg312/dining-planner/internal/nutrition"
	"github.com/fdg312/dining-planner/internal/scraper"
	"github.com/fdg312/dining-planner/internal/storage"
	"github.com/fdg312/dining-planner/internal/storage/memory"
	"github.com/fdg312/dining-planner/internal/storage/postgres"
	"github.com/fdg312/dining-planner/internal/suggestions"
)

// Server is the planner's HTTP API.
type Server struct {
	config         *config.Config
	mux            *http.ServeMux
	storage        storage.Storage
	authMiddleware *auth.Middleware
	logger         *log.Logger
	httpServer     *http.Server
	cache          *storage.MenuCache
	stopPrune      context.CancelFunc
}

const cachePruneInterval = time.Hour

func New(cfg *config.Config) *Server {
	s := &Server{
		config: cfg,
		mux:    http.NewServeMux(),
		logger: log.Default(),
	}

	s.initStorage()
	s.routes()
	return s
}

// initStorage picks Postgres when DATABASE_URL is set and falls back to
// memory when it cannot connect.
func (s *Server) initStorage() {
	if s.config.DatabaseURL == "" {
		s.logger.Println("INFO storage: using in-memory storage")
		s.storage = memory.New()
		return
	}

	s.logger.Println("INFO storage: connecting to PostgreSQL...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pgStorage, err := postgres.New(ctx, s.config.DatabaseURL)
	if err != nil {
		s.logger.Printf("WARN storage: postgres connect failed: %v", err)
		s.logger.Println("WARN storage: fallback to in-memory storage")
		s.storage = memory.New()
		return
	}
	s.logger.Println("INFO storage: PostgreSQL connected")
	s.storage = pgStorage
}

// initArchiver returns nil when no snapshot store is configured.
func (s *Server) initArchiver() scraper.Archiver {
	store, mode, err := blob.NewBlobStore(context.Background(), s.config.Blob, s.logger)
	if err != nil {
		s.logger.Fatalf("FATAL blob: failed to initialize snapshot store: %v", err)
	}
	if store == nil {
		return nil
	}
	s.logger.Printf("INFO blob: snapshot archive mode: %s", mode)
	return blob.NewSnapshotArchiver(store)
}

func (s *Server) routes() {
	// Health check (no auth required)
	s.mux.HandleFunc("/healthz", s.handleHealthz)

	// Auth API
	authService := auth.NewService(s.config)
	s.authMiddleware = auth.NewMiddleware(s.config, authService)
	if s.config.AuthMode == config.AuthModeDev {
		authHandler := auth.NewHandlers(authService)
		// POST /v1/auth/dev - local dev token
		s.mux.HandleFunc("POST /v1/auth/dev", authHandler.HandleDevAuth)
	}

	// Menus API
	recorder := menus.NewRunRecorder(s.storage, s.logger)
	scr := scraper.New(scraper.Config{
		BaseURL:             s.config.Scraper.BaseURL,
		Timeout:             s.config.Scraper.Timeout(),
		Concurrency:         s.config.Scraper.Concurrency,
		RequestsPerSecond:   s.config.Scraper.RequestsPerSecond,
		DisableFlatFallback: s.config.Scraper.DisableFlatFallback,
		MaxRangeDays:        s.config.Scraper.MaxRangeDays,
		Location:            s.config.Scraper.Location(),
	}, scraper.Options{
		Archiver: s.initArchiver(),
		Logger:   s.logger,
		OnRun:    recorder.Record,
	})
	s.cache = storage.NewMenuCache(s.storage, time.Duration(s.config.MenuCacheTTLMinutes)*time.Minute, s.logger)
	menuService := menus.NewService(scr, s.cache, s.storage, s.config.Scraper.MaxRangeDays, s.logger)

	// GET /v1/menu?date= - one day's menu, today when omitted
	s.mux.HandleFunc("GET /v1/menu", menus.HandleGetMenu(menuService))

	// GET /v1/menus?days= - consecutive days starting today
	s.mux.HandleFunc("GET /v1/menus", menus.HandleGetRange(menuService))

	// GET /v1/scrape-runs?date=&limit= - scrape history
	s.mux.HandleFunc("GET /v1/scrape-runs", menus.HandleListRuns(menuService))

	// Suggestions API
	planner := llmplan.NewPlanner(ai.NewProvider(s.config), llmplan.Options{
		MaxTokens:       s.config.AI.MaxOutputTokens,
		MaxToolAttempts: s.config.AI.MaxToolAttempts,
		DefaultApproach: defaultApproach(s.config.AI.DefaultApproach, s.logger),
		Logger:          s.logger,
	})
	suggestionService := suggestions.NewService(menuService, planner, s.logger)

	s.mux.HandleFunc("POST /v1/suggest", suggestions.HandleSuggest(suggestionService))
	s.mux.HandleFunc("POST /v1/suggest-llm", suggestions.HandleSuggestLLM(suggestionService))
	s.mux.HandleFunc("POST /v1/swap-options", suggestions.HandleSwapOptions(suggestionService))
	s.mux.HandleFunc("POST /v1/availability", suggestions.HandleAvailability(suggestionService))

	// Targets calculator
	nutritionHandler := nutrition.NewHandler()
	s.mux.HandleFunc("POST /v1/targets/calculate", nutritionHandler.HandleCalculate)

	// POST /v1/plans/export?format=pdf|csv
	s.mux.HandleFunc("POST /v1/plans/export", export.HandleExport)
}

func defaultApproach(raw string, logger *log.Logger) llmplan.Approach {
	approach, err := llmplan.ParseApproach(raw)
	if err != nil {
		logger.Printf("WARNING: unknown LLM_DEFAULT_APPROACH=%q, fallback to %s", raw, llmplan.ApproachFullCatalog)
		return llmplan.ApproachFullCatalog
	}
	return approach
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}

// Handler returns the router wrapped in the middleware chain, outermost
// first: CORS, request log, rate limit, auth.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.mux
	if s.config.AuthMode != config.AuthModeNone && s.config.AuthMode != "" {
		handler = s.authMiddleware.RequireAuth(handler)
	}
	handler = RateLimitMiddleware(s.config, handler)
	handler = RequestLogMiddleware(s.logger, handler)
	handler = CORSMiddleware(s.config, handler)
	return handler
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Printf("INFO http: listening on http://localhost%s", addr)
	s.logger.Printf("INFO http: health check http://localhost%s/healthz", addr)

	pruneCtx, cancel := context.WithCancel(context.Background())
	s.stopPrune = cancel
	go s.pruneLoop(pruneCtx, cachePruneInterval)

	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.stopPrune != nil {
		s.stopPrune()
	}
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// pruneLoop drops expired menu snapshots every interval until ctx is done.
func (s *Server) pruneLoop(ctx context.Context, interval time.Duration) {
	if s.cache == nil || !s.cache.Enabled() {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.cache.Prune(ctx)
			if err != nil {
				s.logger.Printf("WARN cache: prune err=%v", err)
				continue
			}
			if n > 0 {
				s.logger.Printf("INFO cache: pruned %d expired snapshots", n)
			}
		}
	}
}

// Close releases the storage.
func (s *Server) Close() error {
	if s.storage != nil {
		return s.storage.Close()
	}
	return nil
}
