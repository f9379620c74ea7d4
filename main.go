package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xiaot623/switchboard/internal/adapter/engine"
	"github.com/xiaot623/switchboard/internal/adapter/media"
	"github.com/xiaot623/switchboard/internal/archive"
	"github.com/xiaot623/switchboard/internal/config"
	"github.com/xiaot623/switchboard/internal/coordinator"
	"github.com/xiaot623/switchboard/internal/directory"
	"github.com/xiaot623/switchboard/internal/ledger"
	"github.com/xiaot623/switchboard/internal/registry"
	"github.com/xiaot623/switchboard/internal/session"
	"github.com/xiaot623/switchboard/internal/token"
	handler "github.com/xiaot623/switchboard/internal/transport/http"
	"github.com/xiaot623/switchboard/internal/transport/ws"
	"github.com/xiaot623/switchboard/internal/worker"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log.Printf("Starting switchboard...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Media server: %s", cfg.MediaURL)
	log.Printf("Archive: %s", cfg.ArchiveDSN)

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			log.Printf("ERROR: %s", e)
		}
		log.Fatalf("Configuration invalid, set the required environment variables")
	}

	// Initialize archive
	var arch *archive.SQLiteArchive
	if cfg.ArchiveDSN != "" {
		var err error
		arch, err = archive.NewSQLiteArchive(cfg.ArchiveDSN)
		if err != nil {
			log.Fatalf("Failed to initialize archive: %v", err)
		}
		defer arch.Close()
	}

	// Initialize stores. A typed-nil archive must not leak into the
	// interface fields.
	reg := registry.New()
	var sink ledger.Sink
	var callLog session.Archive
	if arch != nil {
		sink = arch
		callLog = arch
	}
	led := ledger.New(reg, sink)
	dir := directory.New()

	// Initialize coordinator and collaborators
	coord := coordinator.New(reg, led, dir)
	issuer := token.NewIssuer(cfg.MediaAPIKey, cfg.MediaAPISecret, cfg.TokenTTL)
	eng := engine.NewEngine(cfg.EngineURL, cfg.EngineAPIKey, cfg.EngineModel, cfg.EngineTimeout)
	provider := media.NewSimProvider()
	wrk := worker.New(provider, eng, reg, coord, callLog)

	// Initialize handlers
	h := handler.NewHandler(coord, reg, led, dir, arch, issuer, wrk, cfg)
	wsServer := ws.NewServer(cfg, dir)

	e := handler.NewServer(h, wsServer)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Switchboard started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down switchboard...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	log.Println("Switchboard stopped")
}
