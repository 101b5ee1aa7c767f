package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/danphilibin/ticket-waitlist/internal/config"
	"github.com/danphilibin/ticket-waitlist/internal/inventory"
	"github.com/danphilibin/ticket-waitlist/internal/metrics"
	"github.com/danphilibin/ticket-waitlist/internal/notify"
	"github.com/danphilibin/ticket-waitlist/internal/store"
	"github.com/danphilibin/ticket-waitlist/internal/watch"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	configPath := flag.String("config", "", "path to config file (default: ./waitlist.{yaml,toml,json})")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("configuration error", "err", err)
		os.Exit(1)
	}

	// --- Initialize tick archive ---
	var st store.Store
	var cleanup []func()

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := pgxpool.New(context.Background(), dbURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		st = store.NewPostgresStore(pool)
		slog.Info("tick archive on PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
			opt, err := redis.ParseURL(redisURL)
			if err != nil {
				slog.Error("invalid REDIS_URL", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			st = store.NewCachedStore(st, rdb, 30*time.Second)
			slog.Info("Redis cache enabled")
		}
	} else {
		slog.Warn("DATABASE_URL not set, tick archive is in-memory only")
		st = store.NewMemoryStore()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Inventory fetcher ---
	fetcher, err := inventory.NewHTTPFetcher(cfg.InventoryURL, cfg.InventoryTimeout)
	if err != nil {
		slog.Error("invalid inventory endpoint", "err", err)
		os.Exit(1)
	}

	// --- Notification transport ---
	var notifier notify.Notifier
	if cfg.PushoverToken != "" && cfg.PushoverUser != "" {
		notifier = notify.NewPushoverNotifier(cfg.PushoverToken, cfg.PushoverUser)
	} else {
		slog.Warn("no Pushover credentials configured, notifications are log-only")
		notifier = notify.LogNotifier{}
	}

	// --- WebSocket hub ---
	hub := watch.NewHub()
	go hub.Run()

	// --- Watcher service ---
	svc := watch.NewService(cfg, fetcher, notifier, st, hub)

	// --- Poll loop ---
	// One tick at a time: a tick fully completes before the next fires.
	loopCtx, stopLoop := context.WithCancel(context.Background())
	go func() {
		svc.Tick(loopCtx)
		ticker := time.NewTicker(cfg.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				svc.Tick(loopCtx)
			}
		}
	}()

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"ticket-waitlist"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for live tick updates.
		r.Get("/ws", hub.HandleWS)

		// Watcher state.
		r.Get("/status", svc.GetStatus)
		r.Get("/listings", svc.GetListings)
		r.Get("/history", svc.GetHistory)
		r.Get("/ticks", svc.GetTicks)
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("ticket-waitlist listening",
			"port", cfg.Port,
			"event", cfg.EventID,
			"poll_interval", cfg.PollInterval.String(),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stopLoop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down ticket-waitlist...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("ticket-waitlist stopped")
}
