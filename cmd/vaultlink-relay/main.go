// Command vaultlink-relay is a standalone signaling relay.
//
// Clients register under a session ID derived from the vault
// identifier and exchange WebRTC offers, answers and ICE candidates.
// The relay routes these envelopes opaquely; no vault data ever
// transits it.
//
// Usage:
//
//	vaultlink-relay [flags]
//
// Flags:
//
//	-listen string   Listen address (default ":8787")
//	-path string     WebSocket endpoint path (default "/signal")
//	-verbose         Debug-level logging
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/vaultlink-protocol/vaultlink-go/pkg/signal"
)

func main() {
	listen := flag.String("listen", ":8787", "Listen address")
	path := flag.String("path", "/signal", "WebSocket endpoint path")
	verbose := flag.Bool("verbose", false, "Debug-level logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	mux := http.NewServeMux()
	mux.Handle(*path, signal.NewRelay(logger))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:              *listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := ossignal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("relay listening", "address", *listen, "path", *path)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("relay failed", "error", err)
		os.Exit(1)
	}
	logger.Info("relay stopped")
}
