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

	"github.com/John09278606492/pos-inventory-system-sub000/internal/cache"
	"github.com/John09278606492/pos-inventory-system-sub000/internal/cart"
	"github.com/John09278606492/pos-inventory-system-sub000/internal/config"
	"github.com/John09278606492/pos-inventory-system-sub000/internal/domain"
	"github.com/John09278606492/pos-inventory-system-sub000/internal/httpapi"
	"github.com/John09278606492/pos-inventory-system-sub000/internal/pricing"
	"github.com/John09278606492/pos-inventory-system-sub000/internal/service"
	"github.com/John09278606492/pos-inventory-system-sub000/internal/store"
	"github.com/John09278606492/pos-inventory-system-sub000/internal/store/memory"
	pgstore "github.com/John09278606492/pos-inventory-system-sub000/internal/store/postgres"
)

func main() {
	cfg := config.Load()
	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatalf("invalid security configuration: %v", err)
	}

	profile, err := config.LoadStoreProfile(cfg.StoreProfilePath)
	if err != nil {
		log.Fatalf("invalid store profile: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("postgres unavailable (%v) and DATABASE_URL is set; refusing to start with in-memory fallback", err)
		}
		repo = pg
		closers = append(closers, pg.Close)
		log.Println("repository: postgres")
	} else {
		repo = memory.NewSeeded()
		log.Println("repository: in-memory")
	}

	summaries := cache.SummaryCache(cache.NoopSummaryCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisSummaryCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Printf("redis unavailable (%v), using noop summary cache", err)
		} else {
			summaries = redisCache
			closers = append(closers, redisCache.Close)
			log.Println("summary cache: redis")
		}
	} else {
		log.Println("summary cache: noop")
	}

	svc := service.New(repo, cart.NewManager(), summaries, service.Settings{
		Tax: pricing.TaxConfig{
			Name:        profile.Tax.Name,
			RatePercent: profile.Tax.RatePercent,
			Inclusive:   profile.Tax.Type == domain.TaxInclusive,
		},
		CreditTerms:        profile.CreditTerms,
		FallbackMarkupRate: profile.FallbackCreditMarkupPercent,
		SummaryTTL:         time.Duration(cfg.SummaryTTLSeconds) * time.Second,
	}, nil)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go svc.RunHoldSweeper(sweepCtx)

	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, repo)
	api := httpapi.New(svc, auth, cfg.AllowedOrigin, cfg.DefaultTerminalID)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("POS engine (%s) listening on %s", profile.StoreName, cfg.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	stopSweep()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("close error: %v", err)
		}
	}

	log.Println("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	return nil
}
