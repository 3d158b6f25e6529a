package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"charging-kiosk-backend/config"
	"charging-kiosk-backend/internal/api"
	"charging-kiosk-backend/internal/db"
	"charging-kiosk-backend/internal/gateway"
	"charging-kiosk-backend/internal/kiosk"
	"charging-kiosk-backend/internal/logging"
	"charging-kiosk-backend/internal/model"
	"charging-kiosk-backend/internal/notification"
	"charging-kiosk-backend/internal/slot"
	"charging-kiosk-backend/internal/store"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %s: %v\n", configPath, err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)
	logger.Info("configuration loaded", "path", configPath)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	gormDB, err := db.Init(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	appStore := store.NewGormStore(gormDB)

	registry, err := slot.NewRegistryFromLayout(cfg.Slots.Layout)
	if err != nil {
		logger.Error("failed to build slot registry", "error", err)
		os.Exit(1)
	}
	logger.Info("slot registry ready", "slots", registry.Len())

	gw := gateway.NewClient(cfg.Gateway, logger)
	orchestrator := slot.NewOrchestrator(registry, gw, logger,
		slot.WithSanitizeDwell(cfg.Slots.SanitizeDwell),
		slot.WithObserver(func(s model.Slot) {
			logger.Debug("slot changed", "slot", s.Number, "status", s.Status, "relay", s.RelayOn, "lock", s.LockEngaged, "fault", s.Fault)
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var webpushOptions *webpush.Options
	var notifier kiosk.Notifier
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, webpushOptions, logger)
		pool.Start(ctx)
		notifier = pool
	} else {
		logger.Warn("VAPID keys are not configured, push notifications are disabled")
	}

	coins := kiosk.NewCoinAcceptor(gw, appStore, cfg.Coins.PollInterval, logger)
	if cfg.Coins.PollEnabled {
		go coins.Run(ctx)
	}

	counters, err := kiosk.NewCounterResetter(cfg.Coins, appStore, logger)
	if err != nil {
		logger.Error("failed to schedule usage counter resets", "error", err)
		os.Exit(1)
	}
	counters.Start()

	kioskSvc := kiosk.NewService(cfg.Sessions, appStore, orchestrator, coins, notifier, logger)
	go kioskSvc.Run(ctx)

	if status, err := gw.Health(ctx); err != nil {
		logger.Warn("device gateway is not reachable yet", "url", cfg.Gateway.BaseURL, "error", err)
	} else {
		logger.Info("device gateway reachable", "status", status.Status, "arduino_connected", status.ArduinoConnected)
	}

	handler := api.NewHandler(kioskSvc, appStore, gw, webpushOptions, logger)
	router := api.NewRouter(cfg.Server, handler)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP server starting", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server ListenAndServe", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info("shutdown signal received, stopping services")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Slots.SanitizeDwell+5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server Shutdown", "error", err)
	}
	counters.Stop()
	cancel()

	// Let running UV cycles finish so no light is left on.
	waitForSanitizations(shutdownCtx, orchestrator)

	if sqlDB, err := gormDB.DB(); err == nil {
		sqlDB.Close()
	}
	logger.Info("server gracefully stopped")
}

func waitForSanitizations(ctx context.Context, o *slot.Orchestrator) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for o.PendingSanitizations() > 0 {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
