package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/mealminder/server/internal/adherence"
	"github.com/mealminder/server/internal/auth"
	"github.com/mealminder/server/internal/blob"
	"github.com/mealminder/server/internal/clock"
	"github.com/mealminder/server/internal/config"
	"github.com/mealminder/server/internal/events"
	"github.com/mealminder/server/internal/ledger"
	"github.com/mealminder/server/internal/meals"
	"github.com/mealminder/server/internal/plans"
	"github.com/mealminder/server/internal/reminders"
	"github.com/mealminder/server/internal/reports"
	"github.com/mealminder/server/internal/storage"
	"github.com/mealminder/server/internal/storage/memory"
	"github.com/mealminder/server/internal/storage/postgres"
)

// Storage is the aggregate surface both backends provide.
type Storage interface {
	GetPlansStorage() storage.PlansStorage
	GetLedgerStorage() storage.LedgerStorage
	GetMealsStorage() storage.MealsStorage
	GetReportsStorage() storage.ReportsStorage
	Close() error
}

// Server wires storage, services and routes behind one ServeMux.
type Server struct {
	config         *config.Config
	mux            *http.ServeMux
	storage        Storage
	authMiddleware *auth.Middleware
	notifier       *reminders.LocalNotifier
	bus            *events.Bus
}

func New(cfg *config.Config) *Server {
	s := &Server{
		config: cfg,
		mux:    http.NewServeMux(),
	}

	s.initStorage()
	s.routes()
	return s
}

// initStorage picks Postgres when DATABASE_URL is set, with fallback to the
// in-memory backend.
func (s *Server) initStorage() {
	if s.config.DatabaseURL == "" {
		log.Println("Using in-memory storage")
		s.storage = memory.New()
		return
	}

	log.Println("Connecting to PostgreSQL...")
	pgStorage, err := postgres.New(context.Background(), s.config.DatabaseURL)
	if err != nil {
		log.Printf("PostgreSQL connection failed: %v", err)
		log.Println("Falling back to in-memory storage")
		s.storage = memory.New()
		return
	}

	log.Println("PostgreSQL connected")
	s.storage = pgStorage
}

func (s *Server) routes() {
	// Health check (no auth required)
	s.mux.HandleFunc("/healthz", s.handleHealthz)

	clk := clock.New(s.config.Location)
	s.bus = events.NewBus()

	plansStorage := s.storage.GetPlansStorage()
	ledgerStorage := s.storage.GetLedgerStorage()
	mealsStorage := s.storage.GetMealsStorage()
	reportsStorage := s.storage.GetReportsStorage()

	// Auth API (no auth required)
	authService := auth.NewService(s.config)
	authHandlers := auth.NewHandlers(s.config, authService)
	s.authMiddleware = auth.NewMiddleware(s.config, authService)

	// POST /v1/auth/dev - local dev token
	s.mux.HandleFunc("POST /v1/auth/dev", authHandlers.HandleDevAuth)

	// Reminders
	s.notifier = reminders.NewLocalNotifier()
	scheduler := reminders.NewScheduler(plansStorage, ledgerStorage, s.notifier, clk, s.bus, s.config.ReminderWindowDays)
	remindersHandlers := reminders.NewHandlers(scheduler)

	s.mux.HandleFunc("POST /v1/reminders/reschedule", remindersHandlers.HandleReschedule)
	s.mux.HandleFunc("GET /v1/reminders/pending", remindersHandlers.HandlePending)
	s.mux.HandleFunc("POST /v1/reminders/authorize", remindersHandlers.HandleAuthorize)

	// Plans API
	plansService := plans.NewService(plansStorage, s.bus).WithRescheduler(scheduler)
	plansHandlers := plans.NewHandlers(plansService)

	s.mux.HandleFunc("GET /v1/plans", plansHandlers.HandleList)
	s.mux.HandleFunc("POST /v1/plans", plansHandlers.HandleCreate)
	s.mux.HandleFunc("GET /v1/plans/{id}", plansHandlers.HandleGet)
	s.mux.HandleFunc("PUT /v1/plans/{id}", plansHandlers.HandleUpdate)
	s.mux.HandleFunc("DELETE /v1/plans/{id}", plansHandlers.HandleDelete)
	s.mux.HandleFunc("POST /v1/plans/{id}/activate", plansHandlers.HandleActivate)

	// Completion ledger
	ledgerService := ledger.NewService(ledgerStorage, plansStorage, clk).WithRescheduler(scheduler)
	ledgerHandlers := ledger.NewHandlers(ledgerService)

	s.mux.HandleFunc("POST /v1/completions/skip", ledgerHandlers.HandleSkip)

	// Adherence API
	adherenceService := adherence.NewService(plansStorage, ledgerStorage, mealsStorage, clk)
	adherenceHandlers := adherence.NewHandlers(adherenceService, clk)

	s.mux.HandleFunc("GET /v1/adherence", adherenceHandlers.HandleEvaluate)
	s.mux.HandleFunc("GET /v1/adherence/trend", adherenceHandlers.HandleTrend)

	// Meals API
	mealsService := meals.NewService(mealsStorage, plansStorage, ledgerService, s.bus, clk)
	mealsHandlers := meals.NewHandlers(mealsService)

	s.mux.HandleFunc("POST /v1/meals", mealsHandlers.HandleLog)
	s.mux.HandleFunc("GET /v1/meals", mealsHandlers.HandleList)
	s.mux.HandleFunc("POST /v1/meals/{id}/link", mealsHandlers.HandleLink)

	// Reports API
	blobStore, blobMode, err := blob.NewBlobStore(s.config.Blob, log.Default())
	if err != nil {
		log.Fatalf("FATAL blob: failed to initialize store: %v", err)
	}
	log.Printf("INFO blob: reports blob mode: %s", blobMode)

	reportsService := reports.NewService(s.config, adherenceService, reports.NewGenerator(), reportsStorage, blobStore, clk)
	reportsHandlers := reports.NewHandlers(reportsService)

	s.mux.HandleFunc("POST /v1/reports", reportsHandlers.HandleCreate)
	s.mux.HandleFunc("GET /v1/reports", reportsHandlers.HandleList)
	s.mux.HandleFunc("GET /v1/reports/{id}", reportsHandlers.HandleGet)
	s.mux.HandleFunc("GET /v1/reports/{id}/download", reportsHandlers.HandleDownload)

	// Event stream
	s.mux.HandleFunc("GET /v1/events", events.HandleSSE(s.bus))
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

// Handler returns the full middleware chain for tests and Start.
// Chain (outermost first): CORS -> Rate Limit -> Auth -> Router.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.mux
	if s.authMiddleware != nil && s.config.AuthMode != config.AuthModeNone {
		if s.config.AuthRequired {
			handler = s.authMiddleware.RequireAuth(handler)
		} else {
			handler = s.authMiddleware.OptionalAuth(handler)
		}
	}
	handler = RateLimitMiddleware(s.config, handler)
	handler = CORSMiddleware(s.config, handler)
	return handler
}

// Start runs the HTTP server until it fails.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	log.Printf("Server listening on http://localhost%s\n", addr)
	log.Printf("Health check: http://localhost%s/healthz\n", addr)
	log.Printf("Plans API: http://localhost%s/v1/plans\n", addr)

	return http.ListenAndServe(addr, s.Handler())
}

// Close releases storage resources.
func (s *Server) Close() error {
	if s.storage != nil {
		return s.storage.Close()
	}
	return nil
}
