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
	"github.com/wnt/mychain-dash/internal/config"
	"github.com/wnt/mychain-dash/internal/logger"
	"github.com/wnt/mychain-dash/internal/metrics"
	"github.com/wnt/mychain-dash/internal/mockapi"
)

func main() {
	envFile := flag.String("envFile", ".env", "Path to .env file")
	fixturesFile := flag.String("fixtures", "", "JSON file of path to response body (overrides MOCK_FIXTURES)")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		log.Printf("No .env file found at %s, using environment variables", *envFile)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logr := logger.New(cfg.LogLevel, "mychain-mockapi")

	path := cfg.MockFixtures
	if *fixturesFile != "" {
		path = *fixturesFile
	}

	fixtures := mockapi.DefaultFixtures()
	if path != "" {
		fixtures, err = mockapi.LoadFixtures(path)
		if err != nil {
			logr.Fatal().Err(err).Msg("Failed to load fixtures")
		}
		logr.Info().Str("file", path).Msg("Loaded fixtures")
	}

	server := mockapi.New(cfg.MockPort, fixtures, cfg.CORSAllowOrigin, logr)

	metricsServer := metrics.NewServer(cfg.MetricsPort)
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	select {
	case <-ctx.Done():
		logr.Info().Msg("Shutting down")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error().Err(err).Msg("Mock API server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	server.Shutdown(shutdownCtx)
	metricsServer.Shutdown(shutdownCtx)
}
