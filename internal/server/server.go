package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/kbnam33/scheduleflow-mvp-sub001/internal/auth"
	"github.com/kbnam33/scheduleflow-mvp-sub001/internal/config"
	"github.com/kbnam33/scheduleflow-mvp-sub001/internal/connect"
	"github.com/kbnam33/scheduleflow-mvp-sub001/internal/llm"
	"github.com/kbnam33/scheduleflow-mvp-sub001/internal/store"
	"github.com/kbnam33/scheduleflow-mvp-sub001/internal/throttle"
)

// Server is the scheduleflow HTTP API server.
type Server struct {
	db        *store.DB
	completer *llm.Completer
	creds     *connect.Credentials
	limiter   *throttle.Limiter
	verifier  auth.Verifier
	bypass    *auth.Bypass
	cfg       config.Config
	router    chi.Router
	version   string
	started   time.Time
}

// New creates a new Server. completer and creds may be nil; the AI and
// connect endpoints then degrade to their unavailable responses.
func New(db *store.DB, completer *llm.Completer, creds *connect.Credentials,
	limiter *throttle.Limiter, verifier auth.Verifier, bypass *auth.Bypass,
	cfg config.Config, version string) *Server {

	s := &Server{
		db:        db,
		completer: completer,
		creds:     creds,
		limiter:   limiter,
		verifier:  verifier,
		bypass:    bypass,
		cfg:       cfg,
		version:   version,
		started:   time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{s.cfg.CORS.Origin},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Load-Test"},
	}))

	r.Get("/health", s.handleHealth)

	// Everything below the identity gate. Order matters: identity first,
	// then per-group throttling keyed by the resolved identity.
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(s.verifier, s.bypass))

		throttled := func(g throttle.Group) func(http.Handler) http.Handler {
			return throttle.Middleware(s.limiter, g, s.cfg.Throttle.Enabled, s.cfg.Env == "test")
		}

		r.With(throttled(throttle.GroupGeneric)).Post("/events", s.handleCreateEvent)
		r.With(throttled(throttle.GroupGeneric)).Get("/suggestions", s.handleListSuggestions)
		r.With(throttled(throttle.GroupGeneric)).Post("/suggestions/{suggestionID}/read", s.handleMarkRead)

		r.With(throttled(throttle.GroupCalendar)).Post("/calendar/suggest-prep-slot", s.handleSuggestPrepSlot)
		r.With(throttled(throttle.GroupCalendar)).Post("/calendar/confirm-prep-slot", s.handleConfirmPrepSlot)

		r.With(throttled(throttle.GroupTasks)).Post("/tasks/generate-and-create", s.handleGenerateTasks)
		r.With(throttled(throttle.GroupGeneric)).Post("/assets/query", s.handleAssetQuery)

		r.With(throttled(throttle.GroupChat)).Post("/chat", s.handleChat)
		r.With(throttled(throttle.GroupEmail)).Post("/email/process", s.handleProcessEmail)

		r.With(throttled(throttle.GroupGeneric)).Post("/connect/exchange", s.handleConnectExchange)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
	})
}
