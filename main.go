package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/danielhkuo/school-election/auth"
	"github.com/danielhkuo/school-election/cliparse"
	"github.com/danielhkuo/school-election/db"
	"github.com/danielhkuo/school-election/feed"
	"github.com/danielhkuo/school-election/live"
	"github.com/danielhkuo/school-election/metrics"
	"github.com/danielhkuo/school-election/middleware"
	"github.com/danielhkuo/school-election/ratelimit"
	"github.com/danielhkuo/school-election/router"
	"github.com/danielhkuo/school-election/store"
)

func main() {
	if err := cliparse.LoadDotEnv(".env"); err != nil {
		slog.Error("Error loading .env", "error", err)
		os.Exit(1)
	}

	args := os.Args[1:]
	printAdminKey := len(args) > 0 && args[0] == "adminkey"
	if printAdminKey {
		args = args[1:]
	}

	// Parse configuration
	cfg, err := cliparse.ParseFlags(args)
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(cfg.Logger())

	if printAdminKey {
		fmt.Println(auth.GenerateAdminKey(cfg.AdminEmail, cfg.AdminKeySalt))
		return
	}

	if err := run(cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg cliparse.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbConn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	// Create schema (tables, triggers)
	if err := db.CreateSchema(dbConn, cfg.DatabaseType); err != nil {
		return fmt.Errorf("schema creation failed: %w", err)
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	s := store.NewSQLStore(dbConn, cfg.DatabaseType)
	m := metrics.New()
	hub := live.NewHub(m)
	defer hub.Close()
	limiter := ratelimit.New(cfg.BallotRate, cfg.BallotBurst)
	defer limiter.Stop()

	notifier, err := feed.Open(cfg.DatabaseType, cfg.DatabaseURL, dbConn, cfg.FeedPollInterval)
	if err != nil {
		return fmt.Errorf("change feed failed: %w", err)
	}
	defer notifier.Close()

	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		feed.NewWatcher(s, notifier, hub, m).Run(ctx)
	}()

	server := http.Server{
		Handler:           middleware.CORS(router.NewRouter(s, cfg, hub, limiter, m)),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		// Streams end when the hub closes their channels
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Graceful shutdown failed", "error", err)
			server.Close()
		}
	}()

	slog.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	stop()
	<-watcherDone

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("Server closed")
	return nil
}
