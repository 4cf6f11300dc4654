package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/lberndt/galaxytrade/internal/config"
	"github.com/lberndt/galaxytrade/internal/engine"
	"github.com/lberndt/galaxytrade/internal/gamedata"
	"github.com/lberndt/galaxytrade/internal/handler"
	"github.com/lberndt/galaxytrade/internal/ledger"
	"github.com/lberndt/galaxytrade/internal/locks"
	"github.com/lberndt/galaxytrade/internal/logging"
	"github.com/lberndt/galaxytrade/internal/service"
	"github.com/lberndt/galaxytrade/internal/store"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFile)
	slog.SetDefault(logger)

	data, err := gamedata.Load(cfg.GameDataPath)
	if err != nil {
		logger.Error("failed to load game data", slog.String("error", err.Error()))
		os.Exit(1)
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	// Stores.
	balanceStore := store.NewBalanceStore()
	orderStore := store.NewOrderStore()
	tradeStore := store.NewTradeStore()

	// Core: ledger, market locks, matching engine.
	lockSet := locks.NewSet(cfg.LockWait)
	led := ledger.New(balanceStore, lockSet)
	markets := engine.NewMarketLocks(lockSet)
	matcher := engine.NewMatcher(db, led, orderStore, tradeStore, markets)

	// Services.
	marketSvc := service.NewMarketService(data, matcher, db, orderStore, tradeStore)
	transferSvc := service.NewTransferService(db, led, balanceStore)

	// Router.
	router := handler.NewRouter(marketSvc, transferSvc, logger)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Wait for SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}
