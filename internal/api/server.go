// Package api exposes a running game over HTTP.
// GET endpoints read the current view; POST endpoints issue player commands.
// Reset additionally requires the admin bearer token.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/talgya/sutki/internal/economy"
	"github.com/talgya/sutki/internal/game"
	"github.com/talgya/sutki/internal/persistence"
)

// SaveHistory lists stored saves, newest first.
type SaveHistory interface {
	History(ctx context.Context) ([]persistence.Record, error)
}

// Server serves one game session over HTTP.
type Server struct {
	Session  *game.Session
	Saves    SaveHistory // optional
	Limiter  *RateLimiter
	Port     int
	AdminKey string // Bearer token for reset. Empty = reset disabled.

	// CORSOrigins may call the API from a browser. Local dev servers are
	// always allowed.
	CORSOrigins []string

	// StreamInterval is how often /stream pushes the view.
	StreamInterval time.Duration

	streamConns int32
	pongWait    time.Duration // 0 means streamPongWait
}

const maxStreamConns = 4

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/units", s.handleUnits)
	mux.HandleFunc("GET /api/v1/upgrades", s.handleUpgrades)
	mux.HandleFunc("GET /api/v1/saves", s.handleSaves)
	mux.HandleFunc("GET /api/v1/stream", s.handleStream)

	mux.HandleFunc("POST /api/v1/buy/unit", s.limited(s.indexCommand(s.Session.BuyUnit)))
	mux.HandleFunc("POST /api/v1/buy/upgrade", s.limited(s.indexCommand(s.Session.BuyUpgrade)))
	mux.HandleFunc("POST /api/v1/buy/boost", s.limited(s.indexCommand(s.Session.BuyBoost)))
	mux.HandleFunc("POST /api/v1/prestige", s.limited(s.handlePrestige))
	mux.HandleFunc("POST /api/v1/save", s.limited(s.handleSave))
	mux.HandleFunc("POST /api/v1/reset", s.limited(s.adminOnly(s.handleReset)))

	return corsMiddleware(mux, s.CORSOrigins)
}

// Start begins serving in a goroutine. The returned server can be shut down.
func (s *Server) Start() *http.Server {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	return srv
}

// corsMiddleware adds CORS headers for allowed frontend origins and answers
// preflight requests.
func corsMiddleware(next http.Handler, origins []string) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			allowedOrigins[origin] = true
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) limited(next http.HandlerFunc) http.HandlerFunc {
	if s.Limiter == nil {
		return next
	}
	return RateLimitMiddleware(s.Limiter, next)
}

func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no SUTKI_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) checkBearerToken(r *http.Request) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && subtle.ConstantTimeCompare([]byte(token), []byte(s.AdminKey)) == 1
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Session.View())
}

func (s *Server) handleUnits(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Session.View().Units)
}

func (s *Server) handleUpgrades(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Session.View().Upgrades)
}

func (s *Server) handleSaves(w http.ResponseWriter, r *http.Request) {
	if s.Saves == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	recs, err := s.Saves.History(r.Context())
	if err != nil {
		slog.Error("list saves failed", "error", err)
		http.Error(w, "list saves failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

type commandResult struct {
	Performed bool       `json:"performed"`
	Reason    string     `json:"reason,omitempty"`
	View      *game.View `json:"view,omitempty"`
}

// indexCommand adapts a command taking a slot or catalog index.
func (s *Server) indexCommand(cmd func(int) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Index *int `json:"index"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Index == nil {
			http.Error(w, `body must be {"index": n}`, http.StatusBadRequest)
			return
		}
		s.respond(w, cmd(*req.Index))
	}
}

func (s *Server) handlePrestige(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.Session.Prestige())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.Session.Reset()
	s.respond(w, nil)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	rec, err := s.Session.Save(r.Context())
	if err != nil {
		slog.Error("save failed", "error", err)
		http.Error(w, "save failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// respond reports a command outcome. Refusals are ordinary results, not
// server errors.
func (s *Server) respond(w http.ResponseWriter, err error) {
	if err != nil {
		status := http.StatusConflict
		if errors.Is(err, economy.ErrBadIndex) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, commandResult{Reason: err.Error()})
		return
	}
	v := s.Session.View()
	writeJSON(w, http.StatusOK, commandResult{Performed: true, View: &v})
}

func (s *Server) acquireStream() bool {
	if atomic.AddInt32(&s.streamConns, 1) > maxStreamConns {
		atomic.AddInt32(&s.streamConns, -1)
		return false
	}
	return true
}

func (s *Server) releaseStream() {
	atomic.AddInt32(&s.streamConns, -1)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
