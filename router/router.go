// Copyright (c) 2026 Alignparty.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/alignparty/specvote/handlers"
	"github.com/alignparty/specvote/middleware"
	"github.com/alignparty/specvote/session"
)

func NewRouter(svc *session.Service) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	sessionHandler := handlers.NewSessionHandler(svc)
	playerHandler := handlers.NewPlayerHandler(svc)
	selectionHandler := handlers.NewSelectionHandler(svc)
	liveHandler := handlers.NewLiveHandler(svc)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Session lifecycle (host operations require X-Host-Key)
	mux.HandleFunc("POST /sessions", middleware.WithLogging(sessionHandler.CreateSession))
	mux.HandleFunc("GET /sessions/{code}", middleware.WithLogging(sessionHandler.GetSession))
	mux.HandleFunc("POST /sessions/{code}/lock", middleware.WithLogging(sessionHandler.LockSession))
	mux.HandleFunc("POST /sessions/{code}/end", middleware.WithLogging(sessionHandler.EndSession))
	mux.HandleFunc("GET /sessions/{code}/result", middleware.WithLogging(sessionHandler.GetResult))

	// Participation (public, keyed by join code)
	mux.HandleFunc("POST /sessions/{code}/join", middleware.WithLogging(playerHandler.Join))
	mux.HandleFunc("POST /sessions/{code}/heartbeat", middleware.WithLogging(playerHandler.Heartbeat))
	mux.HandleFunc("GET /sessions/{code}/players", middleware.WithLogging(playerHandler.List))

	// Selections
	mux.HandleFunc("PUT /sessions/{code}/selection", middleware.WithLogging(selectionHandler.Submit))
	mux.HandleFunc("GET /sessions/{code}/selection", middleware.WithLogging(selectionHandler.GetMine))
	mux.HandleFunc("GET /sessions/{code}/selection-count", middleware.WithLogging(selectionHandler.Count))
	mux.HandleFunc("GET /sessions/{code}/preview", middleware.WithLogging(selectionHandler.Preview))

	// Live streaming (WebSocket; logs its own lifecycle)
	mux.HandleFunc("GET /sessions/{code}/live", liveHandler.Stream)

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("specvote API v1"))
	})

	return mux
}
