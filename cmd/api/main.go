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

	"go.uber.org/zap"

	"github.com/Overland-East-Bay/mileage-tracker/internal/adapters/httpapi"
	"github.com/Overland-East-Bay/mileage-tracker/internal/platform/backend"
	"github.com/Overland-East-Bay/mileage-tracker/internal/platform/config"
	"github.com/Overland-East-Bay/mileage-tracker/internal/platform/logging"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid logging config: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	l, err := backend.OpenLedger(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("open ledger", zap.Error(err))
	}
	defer l.Close()

	api := httpapi.NewServer(l.Service, l.Stores.Idempotency, logger)
	handler := httpapi.NewRouterWithOptions(api, httpapi.RouterOptions{Logger: logger})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("api listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
