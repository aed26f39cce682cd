// Package server wires the HTTP API, the websocket endpoint and the
// operational endpoints onto one router.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"skillswap/internal/chat"
	"skillswap/internal/config"
	"skillswap/internal/review"
	"skillswap/internal/session"
)

// HealthChecker is a storage backend that can be pinged.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// RoomCounter reports relay occupancy.
type RoomCounter interface {
	RoomCount() int
}

// ConnectionCounter reports open websocket connections.
type ConnectionCounter interface {
	Count() int
}

// Dependencies are the collaborators the router dispatches to. Database is
// nil when running on in-memory storage; Logger may be nil.
type Dependencies struct {
	Chats       *chat.Service
	Reviews     *review.Service
	Sessions    *session.Manager
	Sockets     http.Handler
	Rooms       RoomCounter
	Connections ConnectionCounter
	Metrics     *config.ServerMetrics
	Database    HealthChecker
	Logger      *slog.Logger
}

// Server is the HTTP entry point.
type Server struct {
	deps   Dependencies
	router *mux.Router
	logger *slog.Logger
}

// New builds the router.
func New(deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{deps: deps, router: mux.NewRouter(), logger: logger}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	auth := s.deps.Sessions.RequireAuth

	r.Handle("/ws", s.deps.Sockets).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/logout", s.logout).Methods(http.MethodPost)
	api.Handle("/chats", auth(http.HandlerFunc(s.postChat))).Methods(http.MethodPost)
	api.Handle("/chats/{swapRequestId:[0-9]+}", auth(http.HandlerFunc(s.listChats))).Methods(http.MethodGet)
	api.Handle("/reviews", auth(http.HandlerFunc(s.postReview))).Methods(http.MethodPost)
	api.Handle("/reviews/check/{swapRequestId:[0-9]+}", auth(http.HandlerFunc(s.checkReview))).Methods(http.MethodGet)
	api.HandleFunc("/users/{id:[0-9]+}/reviews", s.listUserReviews).Methods(http.MethodGet)

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.HandleFunc("/stats", s.stats).Methods(http.MethodGet)
}

// ServeHTTP dispatches to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok", "storage": "memory"}
	if s.deps.Database != nil {
		status["storage"] = "mongodb"
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Database.HealthCheck(ctx); err != nil {
			s.logger.Error("health check failed", "error", err)
			status["status"] = "unavailable"
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
	}
	writeJSON(w, http.StatusOK, status)
}

type statsResponse struct {
	*config.ServerMetrics
	Uptime      string `json:"uptime"`
	Rooms       int    `json:"rooms"`
	Connections int    `json:"connections"`
}

func (s *Server) stats(w http.ResponseWriter, _ *http.Request) {
	snapshot := s.deps.Metrics.GetMetrics()
	resp := statsResponse{
		ServerMetrics: snapshot,
		Uptime:        time.Since(snapshot.StartTime).Round(time.Second).String(),
	}
	if s.deps.Rooms != nil {
		resp.Rooms = s.deps.Rooms.RoomCount()
	}
	if s.deps.Connections != nil {
		resp.Connections = s.deps.Connections.Count()
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
