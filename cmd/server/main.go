package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/sleeveworks/internal/config"
	"github.com/aristath/sleeveworks/internal/database"
	"github.com/aristath/sleeveworks/internal/modules/allocation"
	"github.com/aristath/sleeveworks/internal/modules/registry"
	"github.com/aristath/sleeveworks/internal/modules/snapshot"
	"github.com/aristath/sleeveworks/internal/modules/tradegen"
	"github.com/aristath/sleeveworks/internal/modules/washsale"
	"github.com/aristath/sleeveworks/internal/scheduler"
	"github.com/aristath/sleeveworks/internal/server"
	"github.com/aristath/sleeveworks/pkg/logger"
)

func main() {
	log := logger.New(logger.Config{
		Level:  "info",
		Pretty: true,
	})

	log.Info().Msg("Starting Sleeveworks")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Rebuild at the configured level now that LOG_LEVEL is known.
	log = logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Repositories
	sleeveRepo := registry.NewSleeveRepository(db.Conn(), log)
	modelRepo := registry.NewModelRepository(db.Conn(), log)
	groupRepo := registry.NewGroupRepository(db.Conn(), log)
	securityRepo := registry.NewSecurityRepository(db.Conn(), log)
	holdingsRepo := snapshot.NewHoldingsRepository(db.Conn(), log)
	washsaleRepo := washsale.NewRepository(db.Conn(), log)

	// Services
	registryService := registry.NewService(sleeveRepo, modelRepo, groupRepo, log)
	builder := snapshot.NewBuilder(log)
	calculator := allocation.NewCalculator(log)
	allocationService := allocation.NewService(registryService, securityRepo, holdingsRepo, builder, calculator, log)
	tracker := washsale.NewTracker(washsaleRepo, cfg.WashSaleScope, log)
	generator := tradegen.NewGenerator(log)
	tradegenService := tradegen.NewService(
		registryService,
		allocationService,
		tracker,
		generator,
		tradegen.NewAccountLocks(),
		cfg.MinTradeAmount,
		tradegen.HarvestThresholds{
			MinLossPct: cfg.HarvestMinLossPct,
			MinLossAbs: cfg.HarvestMinLossAbs,
		},
		log,
	)

	// Background jobs
	sched := scheduler.New(log)
	sched.Start()
	defer sched.Stop()

	if err := sched.AddJob("0 3 * * *", scheduler.NewWashSalePurgeJob(tracker)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register purge job")
	}
	staleAfter := time.Duration(cfg.PriceStaleHours) * time.Hour
	if err := sched.AddJob("@hourly", scheduler.NewPriceStalenessJob(securityRepo, staleAfter, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register staleness job")
	}

	// HTTP server
	srv := server.New(server.Config{
		Port:               cfg.Port,
		Log:                log,
		Config:             cfg,
		DevMode:            cfg.DevMode,
		RegistryHandlers:   registry.NewHandlers(registryService, log),
		AllocationHandlers: allocation.NewHandlers(allocationService, log),
		WashSaleHandlers:   washsale.NewHandlers(tracker, log),
		TradeGenHandlers:   tradegen.NewHandlers(tradegenService, log),
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
