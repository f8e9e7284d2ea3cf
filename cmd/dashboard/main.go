package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/wnt/mychain-dash/internal/api"
	"github.com/wnt/mychain-dash/internal/chain"
	"github.com/wnt/mychain-dash/internal/config"
	"github.com/wnt/mychain-dash/internal/database"
	"github.com/wnt/mychain-dash/internal/emitters"
	"github.com/wnt/mychain-dash/internal/logger"
	"github.com/wnt/mychain-dash/internal/parser"
	"github.com/wnt/mychain-dash/internal/queue"
	"github.com/wnt/mychain-dash/internal/worker"
)

func main() {
	envFile := flag.String("envFile", ".env", "Path to .env file")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		log.Printf("No .env file found at %s, using environment variables", *envFile)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logr := logger.New(cfg.LogLevel, "mychain-dashboard")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool := chain.NewPool(cfg.RESTEndpoints, chain.PoolOptions{
		Timeout:   cfg.HTTPTimeout,
		RateLimit: cfg.RateLimit,
		Burst:     chain.DefaultPoolOptions().Burst,
		Cooldown:  chain.DefaultPoolOptions().Cooldown,
	}, logr)
	client := chain.NewClient(pool, cfg.ChainID, logr)

	store, err := queue.NewClient(cfg.RedisURL, logr)
	if err != nil {
		logr.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer store.Close()

	var journal api.Journal
	if cfg.DatabaseEnabled() {
		db, err := database.Connect(cfg.DSN())
		if err != nil {
			logr.Fatal().Err(err).Msg("Failed to connect to database")
		}
		journal = database.NewJournal(db)
		logr.Info().Str("host", cfg.DBHost).Msg("Purchase journal enabled")
	}

	emitter := emitters.New(cfg.KafkaBroker, cfg.KafkaTopic, logr)
	defer emitter.Close()

	restoreWatches(ctx, cfg, store, logr)

	manager := worker.NewManager(cfg, store, client, pool, logr)
	if err := manager.Start(); err != nil {
		logr.Fatal().Err(err).Msg("Failed to start worker manager")
	}

	server := api.NewServer(api.Deps{
		Store:   store,
		Chain:   client,
		Parser:  parser.New(logr),
		Journal: journal,
		Emitter: emitter,
		Health:  pool,
	}, api.Options{
		Port:            cfg.APIPort,
		CORSAllowOrigin: cfg.CORSAllowOrigin,
		Bech32Prefix:    cfg.Bech32Prefix,
	}, logr)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	logr.Info().
		Strs("rest_endpoints", cfg.RESTEndpoints).
		Str("chain_id", cfg.ChainID).
		Dur("poll_interval", cfg.PollInterval).
		Msg("Dashboard backend started")

	select {
	case <-ctx.Done():
		logr.Info().Msg("Shutting down")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error().Err(err).Msg("API server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Error().Err(err).Msg("Failed to shut down API server")
	}
	if err := manager.Stop(); err != nil {
		logr.Error().Err(err).Msg("Failed to stop worker manager")
	}
}
