package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"repricer/internal/clock"
	"repricer/internal/config"
	"repricer/internal/infra"
	"repricer/internal/repository"
	"repricer/internal/router"
	"repricer/internal/service"
	"repricer/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: pretty in development, JSON in production
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	recommender, err := newRecommender(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure recommender")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clk := clock.Real()
	locker := newLocker(cfg, rdb)

	// ── Repositories ─────────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	historyRepo := repository.NewPriceHistoryRepository(db)

	// ── Notifications ────────────────────────────────────────────────────────
	// Notices go through the Redis job queue and are mailed by the worker
	// pool, so both Redis and SMTP must be configured.
	var notifier service.Notifier
	var dlq worker.DeadLetter = worker.LogDLQ{}
	if rdb != nil {
		dlq = worker.NewRedisDLQ(rdb)
		if mailer := infra.NewMailer(cfg); mailer != nil {
			notifier = worker.NewDispatcher(rdb)
			worker.StartWorkerPool(ctx, rdb, cfg.WorkerPoolSize, worker.NewNotificationWorker(userRepo, mailer))
		}
	}

	// ── Services ─────────────────────────────────────────────────────────────
	marketSvc := service.NewMarketService(productRepo, historyRepo)
	authSvc := service.NewAuthService(userRepo, cfg)
	productSvc := service.NewProductService(productRepo, historyRepo, marketSvc, locker, clk)
	optimizerSvc := service.NewOptimizerService(service.OptimizerOptions{
		Products:    productRepo,
		History:     historyRepo,
		Market:      marketSvc,
		Recommender: recommender,
		Locker:      locker,
		Clock:       clk,
		Notifier:    notifier,
		Timeout:     cfg.RecommenderTimeout(),
	})

	// ── Background sweeps ────────────────────────────────────────────────────
	sweeper := worker.NewSweeper(optimizerSvc, clk, dlq, cfg.SweepConcurrency)
	scheduler := worker.NewScheduler(sweeper, productRepo, cfg.SweepInterval())
	scheduler.Start(ctx)

	r := router.New(cfg, router.Deps{
		DB:        db,
		Redis:     rdb,
		Auth:      authSvc,
		Products:  productSvc,
		Optimizer: optimizerSvc,
		Sweeps:    scheduler,
		Circuit:   recommender,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RecommenderTimeout() + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("repricer listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	// Cancels in-flight sweeps and the worker pool, then waits for the sweeps.
	cancel()
	scheduler.Wait()
	if rdb != nil {
		_ = rdb.Close()
	}
	log.Info().Msg("server exited")
}
