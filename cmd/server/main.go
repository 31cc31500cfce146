package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gyaneshwarpardhi/eventbridge/internal/api"
	"github.com/gyaneshwarpardhi/eventbridge/internal/config"
	"github.com/gyaneshwarpardhi/eventbridge/internal/engine"
	"github.com/gyaneshwarpardhi/eventbridge/internal/metrics"
	"github.com/gyaneshwarpardhi/eventbridge/internal/routing"
	"github.com/gyaneshwarpardhi/eventbridge/internal/rules"
	"github.com/gyaneshwarpardhi/eventbridge/internal/transform"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	cfgPath := flag.String("config", "configs/routing.yaml", "Path to routing config YAML")
	rulesDir := flag.String("rules", "configs/rules", "Directory of transformation rule files")
	cacheTTL := flag.Duration("rule-cache-ttl", rules.DefaultCacheTTL, "Rule cache TTL")
	workers := flag.Int("workers", 16, "Event worker count")
	queueDepth := flag.Int("queue-depth", 4096, "Event queue capacity")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// ── Routing config ───────────────────────────────────────────────────────
	loader, err := config.NewLoader(*cfgPath)
	if err != nil {
		slog.Error("failed to load routing config", "err", err)
		os.Exit(1)
	}
	table := routing.NewTable()
	if err := table.SetConfig(loader.Config()); err != nil {
		slog.Error("routing config rejected", "err", err)
		os.Exit(1)
	}
	settings, _ := table.Settings()
	slog.Info("routing table loaded", "routes", len(loader.Config().Routes), "fallback", settings.FallbackBehavior)

	// ── Transformation rules ─────────────────────────────────────────────────
	registry := transform.NewRegistry()
	mapper := transform.NewMapper(registry)
	store := rules.NewStore(*rulesDir, *cacheTTL, mapper)
	loaded := store.LoadRules()
	if !loaded.Success {
		for _, e := range loaded.Errors {
			slog.Error("rule rejected", "err", e)
		}
		os.Exit(1)
	}
	slog.Info("transformation rules loaded", "rules", len(loaded.Rules))

	// ── Engine ───────────────────────────────────────────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng := engine.New(ctx, table, store, mapper, engine.Options{
		Workers:    *workers,
		QueueDepth: *queueDepth,
	})

	// ── Hot reload ───────────────────────────────────────────────────────────
	loader.OnChange(func(cfg *config.RoutingConfig) {
		if err := table.SetConfig(cfg); err != nil {
			metrics.ConfigReloads.WithLabelValues("failure").Inc()
			slog.Warn("hot-reload skipped: config invalid", "err", err)
			return
		}
		metrics.ConfigReloads.WithLabelValues("success").Inc()
		slog.Info("routing table hot-reloaded", "routes", len(cfg.Routes))
	})

	onReloadError := func(err error) {
		metrics.ConfigReloads.WithLabelValues("failure").Inc()
		slog.Warn("config reload failed, previous table kept", "err", err)
	}
	if settings.DynamicReload {
		stopWatch, err := loader.Watch(onReloadError)
		if err != nil {
			slog.Warn("config watcher unavailable", "err", err)
		} else {
			defer stopWatch()
		}
		stopTicker := loader.WatchInterval(settings.ReloadInterval(), onReloadError)
		defer stopTicker()
	}

	// ── HTTP server ──────────────────────────────────────────────────────────
	handler := api.New(eng, table, store, loader, registry)
	srv := &http.Server{
		Addr:         *addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down…")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	cancel() // stop worker pool
	eng.Shutdown()
	slog.Info("goodbye")
}
