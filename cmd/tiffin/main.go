package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tiffin/internal/amqp"
	"tiffin/internal/backend"
	"tiffin/internal/config"
	apphttp "tiffin/internal/http"
	"tiffin/internal/ledger"
	applog "tiffin/internal/log"
	"tiffin/internal/metrics"
	"tiffin/internal/services"
	"tiffin/internal/websocket"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()

	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: applog.ComponentApp,
		Output:    os.Stdout,
	})
	applog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize store", "error", err, "backend", backendCfg.Type)
		os.Exit(1)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Store cleanup failed", "error", err)
		}
	}()

	m := metrics.New()
	svc := services.NewOrderService(ledger.New(res.Store, nil), ledger.NewRoster(res.Store, nil), m)

	loadCtx, loadCancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = svc.Load(loadCtx)
	loadCancel()
	if err != nil {
		// Keep serving: the ledger stays empty and writes report storage errors.
		logger.Error("Failed to load ledger", "error", err)
	}

	hub := websocket.NewHub(logger.WithComponent(applog.ComponentWebSocket).Logger)
	svc.AddNotifier("ws", hub)

	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		svc.AddNotifier("amqp", amqpClient)
		logger.Info("Publishing ledger events", "exchange", cfg.AMQPExchange)
		if !backendCfg.Type.Shared() {
			logger.Warn("The sync worker cannot read a memory store; use sqlite or redis", "backend", backendCfg.Type)
		}
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Options{
		Service:            svc,
		Store:              res.Store,
		Hub:                hub,
		Metrics:            m,
		Logger:             logger.WithComponent(applog.ComponentHTTP),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
	})

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting tiffin server", "port", cfg.Port, "backend", backendCfg.Type)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
