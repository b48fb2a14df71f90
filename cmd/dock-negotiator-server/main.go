package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iwvelando/dock-negotiator/internal/config"
	"github.com/iwvelando/dock-negotiator/internal/logging"
	"github.com/iwvelando/dock-negotiator/internal/server"
	"github.com/iwvelando/dock-negotiator/internal/session"
	"github.com/iwvelando/dock-negotiator/pkg/constants"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	serverConfigLocation := flag.String("server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to negotiation configuration file")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Printf("{\"op\": \"main\", \"level\": \"warn\", \"msg\": \"failed to load .env\", \"error\": \"%v\"}\n", err)
	}

	serverConf, err := server.LoadConfig(*serverConfigLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load server configuration at %s\", \"error\": \"%v\"}\n", *serverConfigLocation, err)
		os.Exit(1)
	}

	path := *configLocation
	if path == constants.DefaultConfigFile {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}
	conf, err := config.LoadConfiguration(path)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}

	logger, err := logging.New(serverConf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning, zap.String("op", "main"))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := session.NewStore(ctx, conf.SessionStoreConfig(), logger)
	if err != nil {
		logger.Fatal("failed to create session store", zap.String("op", "main"), zap.Error(err))
	}
	defer func() {
		_ = store.Close()
	}()

	every := serverConf.SweepEvery()
	if every <= 0 {
		every = conf.SweepInterval()
	}
	go sweep(ctx, logger, store, every)

	srv := &http.Server{
		Addr:              serverConf.Address,
		Handler:           server.NewHandler(logger, store, conf.DecisionOptions(), serverConf.RequestSizeBytes(), version),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info("dock-negotiator server starting",
		zap.String("op", "main"),
		zap.String("address", serverConf.Address),
		zap.String("version", version),
	)

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received", zap.String("op", "main"))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown error", zap.String("op", "main"), zap.Error(err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server stopped", zap.String("op", "main"), zap.Error(err))
		}
	}
}

func sweep(ctx context.Context, logger *zap.Logger, store session.Store, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.Sweep(ctx)
			if err != nil {
				logger.Warn("session sweep failed", zap.String("op", "main.sweep"), zap.Error(err))
				continue
			}
			if removed > 0 {
				logger.Debug("swept expired calls", zap.String("op", "main.sweep"), zap.Int("removed", removed))
			}
		}
	}
}
