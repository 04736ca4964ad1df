// Command server runs the vault cache core as a standalone process,
// exposing its cache/dedup statistics and health over a small HTTP admin
// surface. Wiring the core into an actual MCP stdio/JSON-RPC transport,
// and implementing the Obsidian Local REST API client raw handlers call
// into, are both explicitly out of scope here (spec.md §1) — this binary
// only proves out process-lifecycle concerns: config loading, structured
// logging, and graceful shutdown, the way the teacher's services expect
// their host runtime to behave.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/obsidian-mcp/vault-cache/internal/config"
	"github.com/obsidian-mcp/vault-cache/internal/events"
	"github.com/obsidian-mcp/vault-cache/internal/logging"
	"github.com/obsidian-mcp/vault-cache/internal/vault"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional)")
	addr := flag.String("addr", ":8791", "admin HTTP listen address")
	dev := flag.Bool("dev", false, "enable human-readable development logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	log, err := logging.New(logging.Options{Development: *dev, Level: cfg.LogLevel})
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	log.Info("starting vault cache core",
		zap.Int("cacheMaxSize", cfg.Cache.MaxSize),
		zap.Duration("cacheDefaultTTL", cfg.Cache.DefaultTTL),
		zap.Bool("dedupEnabled", cfg.Dedup.Enabled),
		zap.Bool("paginationOptimization", cfg.Pagination.Optimization),
	)

	bus := events.New()
	registry := vault.NewRegistry()
	handler := vault.NewHandler(registry, bus, vault.HandlerConfig{
		MaxSize:                cfg.Cache.MaxSize,
		DefaultTTL:             cfg.Cache.DefaultTTL,
		ResourceTTLs:           cfg.Cache.ResourceTTLs,
		PaginationOptimization: cfg.Pagination.Optimization,
		EnableDeduplication:    cfg.Dedup.Enabled,
		DeduplicationTTL:       cfg.Dedup.TTL,
	}, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(handler.EnhancedStats())
	})
	mux.HandleFunc("/resources", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(registry.Templates())
	})

	srv := &http.Server{
		Addr:         *addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("admin http listening", zap.String("addr", *addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("admin http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("admin http server forced shutdown", zap.Error(err))
	}
	log.Info("shutdown complete")
}
