package main

import (
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/alignparty/specvote/cliparse"
	"github.com/alignparty/specvote/middleware"
	"github.com/alignparty/specvote/router"
	"github.com/alignparty/specvote/session"
	"github.com/alignparty/specvote/store"
)

func main() {
	// Local dev keeps settings in a .env file; absence is fine.
	_ = godotenv.Load()

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	// Connect the session store
	var st store.Store
	switch cfg.StoreType {
	case "postgres":
		st, err = store.NewPostgresStore(cfg.StoreURL)
	default:
		st, err = store.NewRedisStore(cfg.StoreURL)
	}
	if err != nil {
		slog.Error("store connection failed", "type", cfg.StoreType, "error", err)
		os.Exit(1)
	}
	defer st.Close()
	slog.Info("Session store ready", "type", cfg.StoreType)

	// Create router
	svc := session.NewService(st)
	mux := router.NewRouter(svc)

	// Create server
	server := http.Server{
		Handler: middleware.CORS(mux),
		Addr:    ":" + strconv.Itoa(cfg.Port),
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		server.Close()
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}
}
