// Package dashboard serves a read-only status view of a running mission:
// a JSON snapshot endpoint and a websocket feed that pushes every status
// change, protected by a single bearer token and opened up to whatever
// origins the operator configures for cross-origin browser clients.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ivgtz/idrone-platform/internal/config"
	"github.com/ivgtz/idrone-platform/internal/platformlog"
)

// Server is the optional status dashboard gated by config.DashboardConfig.
type Server struct {
	httpServer *http.Server
	hub        *hub
	tokens     *tokenManager
}

// New builds a Server from cfg but does not start listening yet. logs may
// be nil, in which case /api/v1/logs always returns an empty list.
func New(cfg config.DashboardConfig, logs *platformlog.Buffer) *Server {
	h := newHub()
	go h.run()

	tokens := newTokenManager(cfg.JWTSecret, 24*time.Hour)

	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET"},
		AllowedHeaders: []string{"Authorization"},
		MaxAge:         300,
	}))

	router.Group(func(r chi.Router) {
		r.Use(tokens.requireToken)
		r.Get("/api/v1/status", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(h.snapshot())
		})
		r.Get("/api/v1/ws", h.serveWs)
		r.Get("/api/v1/logs", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			var entries []platformlog.Entry
			if logs != nil {
				entries = logs.GetLast(200)
			}
			_ = json.NewEncoder(w).Encode(entries)
		})
	})

	return &Server{
		httpServer: &http.Server{Addr: cfg.Address, Handler: router},
		hub:        h,
		tokens:     tokens,
	}
}

// Start listens in the background and logs a freshly issued bearer token.
func (s *Server) Start() error {
	token, err := s.tokens.issue()
	if err != nil {
		return fmt.Errorf("issuing dashboard token: %w", err)
	}
	log.Printf("dashboard listening on %s (bearer token: %s)", s.httpServer.Addr, token)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("dashboard server error: %v", err)
		}
	}()
	return nil
}

// Stop gracefully shuts the HTTP server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Publish pushes a new status snapshot to every connected client.
func (s *Server) Publish(snapshot StatusSnapshot) {
	s.hub.publish(snapshot)
}
