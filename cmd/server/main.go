package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/VISHAAL-KUMAR-A/Lexi/internal/api"
	"github.com/VISHAAL-KUMAR-A/Lexi/internal/config"
	"github.com/VISHAAL-KUMAR-A/Lexi/internal/jagriti"
	"github.com/VISHAAL-KUMAR-A/Lexi/internal/refdata"
	"github.com/VISHAAL-KUMAR-A/Lexi/internal/refresh"
	"github.com/VISHAAL-KUMAR-A/Lexi/internal/search"
	"github.com/VISHAAL-KUMAR-A/Lexi/internal/store"
	"github.com/VISHAAL-KUMAR-A/Lexi/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := jagriti.NewClient(cfg.Jagriti.BaseURL,
		jagriti.WithTimeout(cfg.Jagriti.Timeout),
		jagriti.WithMaxRetries(cfg.Jagriti.MaxRetries),
		jagriti.WithCaptchaMarkers(cfg.Jagriti.CaptchaMarkers),
	)
	if err != nil {
		log.Fatalf("Invalid upstream configuration: %v", err)
	}

	cacheOptions := []refdata.CacheOption{
		refdata.WithTTLs(cfg.Cache.StatesTTL, cfg.Cache.CommissionsTTL),
	}

	var snapshots *store.RefDataStore
	if cfg.DatabaseURL != "" {
		db, err := store.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Database connection failed: %v", err)
		}
		defer db.Close()
		snapshots = store.NewRefDataStore(db)
		cacheOptions = append(cacheOptions, refdata.WithSnapshotStore(snapshots))
		log.Printf("Reference data snapshots enabled")
	}

	cache := refdata.NewCache(client, cacheOptions...)
	if snapshots != nil {
		seedFromSnapshots(ctx, cache, snapshots)
	}

	hub := ws.NewHub()
	go hub.Run()

	service := search.NewService(cache, client,
		search.WithPageSizes(cfg.DefaultPageSize, cfg.MaxPageSize),
		search.WithEvents(hub),
	)

	if cfg.Refresh.Enabled {
		job := refresh.NewJob(cache)
		if err := job.Start(cfg.Refresh.CronExpr); err != nil {
			log.Fatalf("Invalid refresh schedule %q: %v", cfg.Refresh.CronExpr, err)
		}
		defer job.Stop()
	}

	router := api.NewRouter(api.Dependencies{
		RefData: cache,
		Search:  service,
		Hub:     hub,
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Jagriti case search API starting on port %s (upstream %s)", cfg.Port, cfg.Jagriti.BaseURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}

// seedFromSnapshots warms the cache with whatever the last process persisted.
// Seeded entries keep their original fetch time, so an old snapshot is stale
// fallback material rather than a fresh answer.
func seedFromSnapshots(ctx context.Context, cache *refdata.Cache, snapshots *store.RefDataStore) {
	states, fetchedAt, err := snapshots.LoadStates(ctx)
	if err != nil {
		log.Printf("Loading states snapshot failed: %v", err)
	} else if len(states) > 0 {
		cache.SeedStates(states, fetchedAt)
		log.Printf("Seeded %d states from snapshot (fetched %s)", len(states), fetchedAt.Format(time.RFC3339))
	}

	commissionSets, err := snapshots.LoadCommissions(ctx)
	if err != nil {
		log.Printf("Loading commissions snapshots failed: %v", err)
		return
	}
	for _, set := range commissionSets {
		cache.SeedCommissions(set.StateID, set.Commissions, set.FetchedAt)
	}
	if len(commissionSets) > 0 {
		log.Printf("Seeded commissions for %d states from snapshots", len(commissionSets))
	}
}
