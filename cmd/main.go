// vintedwatch-monitor-service
//
// Polls marketplace catalog searches on behalf of configured profiles,
// filters and deduplicates new listings, and pushes one notification per
// newly observed item to each profile's destination.
//
// Profiles come from config.json or, when DATABASE_URL is set, from
// PostgreSQL. REDIS_URL makes the per-profile seen-sets survive restarts.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vintedwatch/monitor-service/internal/config"
	"vintedwatch/monitor-service/internal/db"
	"vintedwatch/monitor-service/internal/dedup"
	"vintedwatch/monitor-service/internal/monitor"
	"vintedwatch/monitor-service/internal/notify"
	"vintedwatch/monitor-service/internal/scheduler"
	"vintedwatch/monitor-service/internal/store"
)

const version = "1.0.0"

func main() {
	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[monitor-service] Config error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Profile store ────────────────────────────────────────────────────────
	var (
		profiles  store.ProfileStore
		fileToken string
		fileCC    string
	)
	if cfg.DatabaseURL != "" {
		log.Println("[monitor-service] Connecting to PostgreSQL…")
		pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("[monitor-service] PostgreSQL: %v", err)
		}
		defer pool.Close()
		profiles = store.NewPostgresStore(pool)
		log.Println("[monitor-service] PostgreSQL connected ✓")
	} else {
		js, err := store.OpenJSONStore(cfg.ConfigPath)
		if err != nil {
			log.Fatalf("[monitor-service] Profile config: %v", err)
		}
		fileToken, fileCC = js.Settings()
		profiles = js
		log.Printf("[monitor-service] Using profile config %s", cfg.ConfigPath)
	}

	// ── Dedup store ──────────────────────────────────────────────────────────
	var seen dedup.SeenStore = dedup.NewMemoryStore()
	if cfg.RedisURL != "" {
		log.Println("[monitor-service] Connecting to Redis…")
		rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("[monitor-service] Redis: %v", err)
		}
		defer rdb.Close()
		seen = dedup.NewRedisStore(rdb)
		log.Println("[monitor-service] Redis connected ✓")
	}

	// ── Notifier ─────────────────────────────────────────────────────────────
	token := cfg.TelegramToken
	if token == "" {
		token = fileToken
	}
	var notifier notify.Notifier = notify.LogNotifier{}
	if token != "" {
		notifier = notify.NewTelegramNotifier(token)
	} else {
		log.Println("[monitor-service] No Telegram token — notifications go to the log")
	}

	// ── Marketplace session ──────────────────────────────────────────────────
	country := cfg.CountryCode
	if country == "" {
		country = fileCC
	}
	if country == "" {
		country = ".hu"
	}
	domain, err := monitor.DomainForCountry(country)
	if err != nil {
		log.Fatalf("[monitor-service] %v", err)
	}

	sessions := monitor.NewSessionManager(monitor.SessionConfig{
		RequestSpacing:   cfg.RequestSpacing,
		Jitter:           cfg.RequestJitter,
		BackoffBase:      cfg.BackoffBase,
		BackoffMax:       cfg.BackoffMax,
		FailureThreshold: cfg.FailureThreshold,
	})
	fetcher := monitor.NewFetcher(sessions, domain, cfg.PageSize)

	// ── Engine ───────────────────────────────────────────────────────────────
	ps, err := profiles.LoadProfiles(ctx)
	if err != nil {
		log.Fatalf("[monitor-service] Load profiles: %v", err)
	}
	if len(ps) == 0 {
		log.Println("[monitor-service] No search profiles configured — nothing to monitor")
	}

	worker := scheduler.NewWorker(fetcher, seen, notifier, profiles)
	engine := scheduler.New(worker, cfg.PollInterval)
	if err := engine.Start(ctx, ps); err != nil {
		log.Fatalf("[monitor-service] Scheduler: %v", err)
	}
	log.Printf("[monitor-service] v%s monitoring %d profile(s) on %s every %s",
		version, len(ps), domain, cfg.PollInterval)

	// ── HTTP health ──────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("[monitor-service] Listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[monitor-service] HTTP server error: %v", err)
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[monitor-service] Shutting down…")
	cancel()
	engine.Stop(cfg.ShutdownGrace)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[monitor-service] Shutdown error: %v", err)
	}
	log.Println("[monitor-service] Stopped.")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "monitor-service",
		"version": version,
	})
}
