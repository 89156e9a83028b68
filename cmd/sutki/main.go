// Command sutki hosts the sutki idle economy: one persistent game, ticked in
// real time and played over an HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/talgya/sutki/internal/api"
	"github.com/talgya/sutki/internal/config"
	"github.com/talgya/sutki/internal/engine"
	"github.com/talgya/sutki/internal/game"
	"github.com/talgya/sutki/internal/persistence"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	catalog, err := cfg.Catalog()
	if err != nil {
		slog.Error("failed to load upgrade catalog", "path", cfg.CatalogPath, "error", err)
		os.Exit(1)
	}

	// ── Database ──────────────────────────────────────────────────────
	if dir := filepath.Dir(cfg.DBPath); dir != "" {
		os.MkdirAll(dir, 0755)
	}
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	db.Keep = cfg.SaveKeep
	slog.Info("database opened", "path", cfg.DBPath, "keep", db.Keep)

	// ── Load or start a game ─────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	state, report, rec, loadErr := db.LoadLatest(ctx, catalog)
	status := ""
	switch {
	case loadErr == nil:
		slog.Info("game restored",
			"save_id", rec.SaveID,
			"saved_at", time.UnixMilli(rec.SavedAt).UTC(),
			"currency", state.Currency,
			"owned", state.TotalOwned(),
		)
		if len(report.Dropped) > 0 || len(report.Added) > 0 {
			slog.Warn("upgrade catalog changed since save", "dropped", report.Dropped, "added", report.Added)
		}
	case errors.Is(loadErr, persistence.ErrNoSave):
		slog.Info("no saved game found, starting fresh")
	default:
		slog.Error("saved game unreadable, starting fresh", "error", loadErr)
		status = "Save was unreadable, started a new game"
	}

	if last, _ := db.GetMeta("opened_at"); last != "" {
		slog.Debug("previous launch", "opened_at", last)
	}
	if err := db.SaveMeta("opened_at", time.Now().UTC().Format(time.RFC3339)); err != nil {
		slog.Warn("failed to record launch", "error", err)
	}

	session := game.NewSession(state, catalog, game.Options{
		Store:     db,
		DayOffset: cfg.DayOffset,
		MaxDelta:  cfg.MaxDelta,
	})
	if status != "" {
		session.SetStatus(status)
	}

	// ── Engine ────────────────────────────────────────────────────────
	eng := engine.NewEngine()
	eng.Interval = cfg.TickInterval
	eng.AutosaveEvery = cfg.AutosaveEvery
	eng.OnTick = func(uint64) { session.Advance() }
	eng.OnAutosave = func(tick uint64) {
		if _, err := session.Save(ctx); err != nil {
			slog.Error("autosave failed", "tick", tick, "error", err)
		}
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.AdminKey == "" {
		slog.Warn("SUTKI_ADMIN_KEY not set, reset endpoint disabled")
	}
	limiter := api.NewRateLimiter(cfg.RateLimit, cfg.RateBurst)
	limiter.TrustProxy = cfg.TrustProxy
	apiServer := &api.Server{
		Session:        session,
		Saves:          db,
		Limiter:        limiter,
		Port:           cfg.Port,
		AdminKey:       cfg.AdminKey,
		CORSOrigins:    cfg.CORSOrigins,
		StreamInterval: time.Second,
	}
	httpSrv := apiServer.Start()

	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.Port)
	fmt.Println("Running... (Ctrl+C to stop)")

	eng.Run(ctx)
	slog.Info("shutting down", "ticks", eng.Tick)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown", "error", err)
	}

	// Final save on shutdown.
	session.Advance()
	if _, err := session.Save(shutdownCtx); err != nil {
		slog.Error("final save failed", "error", err)
		os.Exit(1)
	}
	fmt.Println("Game saved.")
}
