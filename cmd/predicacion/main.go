package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/alfonsoemoreno/predicacion-tracker/internal/amqp"
	"github.com/alfonsoemoreno/predicacion-tracker/internal/auth"
	"github.com/alfonsoemoreno/predicacion-tracker/internal/cli"
	apphttp "github.com/alfonsoemoreno/predicacion-tracker/internal/http"
	"github.com/alfonsoemoreno/predicacion-tracker/internal/services"
	"github.com/alfonsoemoreno/predicacion-tracker/internal/store"
	"github.com/alfonsoemoreno/predicacion-tracker/internal/store/memory"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	var (
		activities store.ActivityStore
		contacts   store.ContactStore
		reports    store.ReportStore
	)

	switch cfg.DataBackend {
	case "sqlite":
		repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
		defer repo.Close()
		activities, contacts, reports = repo, repo, repo
		logger.Info("Initialized SQLite backend", "path", cfg.SQLiteDBPath)
	default:
		mem := memory.New()
		activities, contacts, reports = mem, mem, mem
		logger.Info("Initialized memory backend")
	}

	// AMQP is optional: without a broker reports still close, the export
	// worker just relies on its periodic rescan.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	aggregator := services.NewAggregator(activities)
	ledger := services.NewReportLedger(reports, aggregator, amqpClient)
	activitySvc := services.NewActivityService(activities, contacts, reports)

	srv := apphttp.NewServer(":"+cfg.Port, auth.Config{
		Secret: cfg.JWTSecret,
		Issuer: cfg.JWTIssuer,
	}, activitySvc, ledger)

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting predicacion server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
