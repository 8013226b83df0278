// Package api exposes the arcade over HTTP: session lifecycle, replay
// verification, a websocket replay watcher, leaderboards, and the
// owner's admin surface.
package api

import (
	"crypto/subtle"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/chainarcade/replay-go/internal/leaderboard"
	"github.com/chainarcade/replay-go/internal/ledger"
	"github.com/chainarcade/replay-go/internal/ownerauth"
)

// Server handles HTTP requests
type Server struct {
	ledger    *ledger.Ledger
	scores    leaderboard.Saver
	tokens    *ownerauth.TokenStore
	owner     string
	logger    *log.Logger
	startTime time.Time
	upgrader  websocket.Upgrader
}

// NewServer creates a new API server. tokens may be nil, which
// disables the admin routes entirely.
func NewServer(led *ledger.Ledger, scores leaderboard.Saver, tokens *ownerauth.TokenStore, owner string) *Server {
	logger := log.New(os.Stdout, "[API] ", log.LstdFlags|log.Lshortfile)
	return &Server{
		ledger:    led,
		scores:    scores,
		tokens:    tokens,
		owner:     owner,
		logger:    logger,
		startTime: time.Now(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Local tooling connects from file:// and dev origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Routes sets up the HTTP routes with proper middleware
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", s.handleHealthCheck)
	r.Get("/health/ready", s.handleReadiness)
	r.Get("/health/live", s.handleLiveness)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/games", s.handleListGames)

		r.Post("/sessions/start", s.handleStart)
		r.Get("/sessions/{id}", s.handleGetSession)
		r.Get("/sessions/{id}/events", s.handleSessionEvents)
		r.Get("/sessions/{id}/verify", s.handleVerify)
		r.Get("/sessions/{id}/watch", s.handleWatch)

		r.Get("/players/{player}/active", s.handleActiveSession)
		r.Get("/players/{player}/sessions", s.handleHistory)
		r.Get("/players/{player}/games", s.handlePlayerGames)

		r.Get("/leaderboard/{game}", s.handleLeaderboardTop)
		r.Post("/leaderboard", s.handleSaveScore)

		if s.tokens != nil {
			r.Route("/admin", func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Post("/sessions/{id}/complete", s.handleComplete)
				r.Post("/fee", s.handleSetFee)
				r.Get("/balance", s.handleBalance)
				r.Post("/withdraw", s.handleWithdraw)
				r.Post("/sweep/{token}", s.handleSweep)
			})
		}
	})

	return r
}

// requireAdmin gates a route on the owner's admin token.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		want, err := s.tokens.GetToken(s.owner)
		if err != nil {
			s.writeError(w, http.StatusServiceUnavailable, ErrTypeInternal, "admin token unavailable", nil)
			return
		}
		got := r.Header.Get("X-Admin-Token")
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
			s.writeError(w, http.StatusUnauthorized, ErrTypeUnauthorized, "invalid admin token", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response with proper headers
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// writeError writes a structured error response
func (s *Server) writeError(w http.ResponseWriter, status int, errType, message string, context map[string]interface{}) {
	s.writeJSON(w, status, EngineError{
		Type:      errType,
		Message:   message,
		Context:   context,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
