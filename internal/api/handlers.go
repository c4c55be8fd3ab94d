package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/calvinwijaya/blackjack-3d/internal/db"
	"github.com/calvinwijaya/blackjack-3d/internal/game"
	"github.com/calvinwijaya/blackjack-3d/internal/store"
	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
)

// Settings configures the sessions created through the API
type Settings struct {
	Game     game.Config
	BetChips []int
}

// Handlers contains all the API handlers
type Handlers struct {
	store       store.Store
	database    *db.Database
	hub         *Hub
	settings    Settings
	logger      *log.Logger
	sessionOpts []game.Option
}

// NewHandlers creates a new instance of Handlers. database and hub may be
// nil; opts are applied to every new session.
func NewHandlers(st store.Store, database *db.Database, hub *Hub, settings Settings, logger *log.Logger, opts ...game.Option) *Handlers {
	h := &Handlers{
		store:       st,
		database:    database,
		hub:         hub,
		settings:    settings,
		logger:      logger.WithPrefix("api"),
		sessionOpts: opts,
	}
	if hub != nil {
		hub.OnCommand(h.handleSocketCommand)
	}
	return h
}

// RegisterRoutes registers all API routes
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/session", h.NewSession).Methods("POST")
	r.HandleFunc("/api/sessions", h.ListSessions).Methods("GET")
	r.HandleFunc("/api/session/{id}", h.GetSession).Methods("GET")
	r.HandleFunc("/api/session/{id}", h.DeleteSession).Methods("DELETE")

	r.HandleFunc("/api/session/{id}/bet", h.PlaceBet).Methods("POST")
	r.HandleFunc("/api/session/{id}/bet/clear", h.command((*game.Session).ClearBet)).Methods("POST")
	r.HandleFunc("/api/session/{id}/bet/allin", h.command((*game.Session).AllIn)).Methods("POST")
	r.HandleFunc("/api/session/{id}/deal", h.command((*game.Session).StartNewGame)).Methods("POST")
	r.HandleFunc("/api/session/{id}/hit", h.command((*game.Session).Hit)).Methods("POST")
	r.HandleFunc("/api/session/{id}/stand", h.command((*game.Session).Stand)).Methods("POST")
	r.HandleFunc("/api/session/{id}/next", h.command((*game.Session).NextRound)).Methods("POST")
	r.HandleFunc("/api/session/{id}/reset", h.command((*game.Session).ResetBalance)).Methods("POST")

	r.HandleFunc("/api/session/{id}/history", h.GetHistory).Methods("GET")
	r.HandleFunc("/api/session/{id}/stats", h.GetStats).Methods("GET")

	r.HandleFunc("/ws", h.WebSocket)
}

// response helper function to send JSON responses
func response(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// error response helper function
func errorResponse(w http.ResponseWriter, status int, message string) {
	response(w, status, map[string]string{"error": message})
}

// LoggingMiddleware logs every request with its duration
func LoggingMiddleware(logger *log.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("Request", "method", r.Method, "uri", r.RequestURI, "duration", time.Since(start))
		})
	}
}

func (h *Handlers) view(s *game.Session) SessionView {
	return NewSessionView(s.ID, s.Snapshot(), h.settings.BetChips)
}

// lookup finds the session named in the route, writing a 404 when missing
func (h *Handlers) lookup(w http.ResponseWriter, r *http.Request) (*game.Session, bool) {
	s, err := h.store.GetSession(mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			errorResponse(w, http.StatusNotFound, "Session not found")
		} else {
			errorResponse(w, http.StatusInternalServerError, "Failed to load session")
		}
		return nil, false
	}
	return s, true
}

// command wraps a session command that takes no arguments. Rejected
// commands still answer 200; the message in the view explains why.
func (h *Handlers) command(action func(*game.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := h.lookup(w, r)
		if !ok {
			return
		}

		action(s)
		response(w, http.StatusOK, h.view(s))
	}
}

// NewSession creates a session and wires its events to the hub and ledger
func (h *Handlers) NewSession(w http.ResponseWriter, r *http.Request) {
	opts := append([]game.Option{game.WithLogger(h.logger)}, h.sessionOpts...)
	s := game.NewSession(h.settings.Game, opts...)

	if h.hub != nil {
		s.Subscribe(h.broadcaster())
	}
	if h.database != nil {
		s.Subscribe(h.database.RoundRecorder(h.logger))
	}

	if err := h.store.SaveSession(s); err != nil {
		h.logger.Error("Failed to save session", "error", err)
		errorResponse(w, http.StatusInternalServerError, "Failed to save session")
		return
	}

	h.logger.Info("Session created", "session", s.ID, "balance", h.settings.Game.StartingBalance)
	response(w, http.StatusCreated, h.view(s))
}

// ListSessions returns a summary of every open session
func (h *Handlers) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.GetAllSessions()
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, "Error retrieving sessions")
		return
	}

	summaries := make([]SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		snap := s.Snapshot()
		summaries = append(summaries, SessionSummary{
			ID:        s.ID,
			Phase:     snap.Phase,
			Balance:   snap.Balance,
			Round:     snap.Round,
			Watchers:  h.watchers(s.ID),
			CreatedAt: s.CreatedAt,
		})
	}

	response(w, http.StatusOK, summaries)
}

func (h *Handlers) watchers(id string) int {
	if h.hub == nil {
		return 0
	}
	return h.hub.ClientCount(id)
}

// broadcaster pushes a session's events to its WebSocket clients in Seq
// order. Events that arrive after a newer one are dropped.
func (h *Handlers) broadcaster() game.Listener {
	var (
		mu   sync.Mutex
		last uint64
	)
	return func(e game.Event) {
		mu.Lock()
		defer mu.Unlock()
		if e.Snapshot.Seq <= last {
			h.logger.Debug("Dropping stale event", "session", e.SessionID, "type", e.Type, "seq", e.Snapshot.Seq, "last", last)
			return
		}
		last = e.Snapshot.Seq

		h.hub.BroadcastToSession(e.SessionID, Message{
			Type:      string(e.Type),
			SessionID: e.SessionID,
			Data:      NewSessionView(e.SessionID, e.Snapshot, h.settings.BetChips),
		})
	}
}

// GetSession returns the current state of a session
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	response(w, http.StatusOK, h.view(s))
}

// DeleteSession drops a session
func (h *Handlers) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.store.DeleteSession(id); err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			errorResponse(w, http.StatusNotFound, "Session not found")
			return
		}
		errorResponse(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}

	if h.hub != nil {
		h.hub.BroadcastToSession(id, Message{Type: "sessionClosed", SessionID: id})
	}
	response(w, http.StatusOK, map[string]string{"success": "true"})
}

// PlaceBet adds chips to the current bet
func (h *Handlers) PlaceBet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount int `json:"amount"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	s.PlaceBet(req.Amount)
	response(w, http.StatusOK, h.view(s))
}

// GetHistory returns the settled rounds of a session from the ledger
func (h *Handlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	if h.database == nil {
		errorResponse(w, http.StatusServiceUnavailable, "Database not available")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			errorResponse(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	rounds, err := h.database.GetSessionRounds(r.Context(), mux.Vars(r)["id"], limit)
	if err != nil {
		h.logger.Error("Failed to load history", "error", err)
		errorResponse(w, http.StatusInternalServerError, "Error retrieving history")
		return
	}

	response(w, http.StatusOK, rounds)
}

// GetStats returns aggregate results of a session from the ledger
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	if h.database == nil {
		errorResponse(w, http.StatusServiceUnavailable, "Database not available")
		return
	}

	stats, err := h.database.GetSessionStats(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.logger.Error("Failed to load stats", "error", err)
		errorResponse(w, http.StatusInternalServerError, "Error retrieving statistics")
		return
	}

	response(w, http.StatusOK, stats)
}

// WebSocket attaches a client to a session's event stream
func (h *Handlers) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		errorResponse(w, http.StatusServiceUnavailable, "WebSocket not available")
		return
	}

	sessionID := r.URL.Query().Get("sessionId")
	s, err := h.store.GetSession(sessionID)
	if err != nil {
		errorResponse(w, http.StatusNotFound, "Session not found")
		return
	}

	h.hub.ServeClient(w, r, sessionID, Message{
		Type:      "snapshot",
		SessionID: sessionID,
		Data:      h.view(s),
	})
}

// handleSocketCommand runs a command received over a WebSocket
func (h *Handlers) handleSocketCommand(sessionID string, cmd Command) {
	s, err := h.store.GetSession(sessionID)
	if err != nil {
		h.logger.Warn("Command for unknown session", "session", sessionID, "type", cmd.Type)
		return
	}

	switch cmd.Type {
	case "bet":
		s.PlaceBet(cmd.Amount)
	case "clearBet":
		s.ClearBet()
	case "allIn":
		s.AllIn()
	case "deal":
		s.StartNewGame()
	case "hit":
		s.Hit()
	case "stand":
		s.Stand()
	case "next":
		s.NextRound()
	case "reset":
		s.ResetBalance()
	default:
		h.logger.Warn("Unknown command", "session", sessionID, "type", cmd.Type)
	}
}
