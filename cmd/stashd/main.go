package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/stashbox/stashd/internal/logger"
	"github.com/stashbox/stashd/internal/web"
	"github.com/stashbox/stashd/pkg/config"
	"github.com/stashbox/stashd/pkg/metrics"
	"github.com/stashbox/stashd/pkg/storage"
)

func main() {
	configPath := flag.String("config", "", fmt.Sprintf("Path to config file (default: %s)", config.GetDefaultConfigPath()))
	listenAddr := flag.String("listen", "", "Listen address override (e.g. :9870)")
	storageRoot := flag.String("root", "", "Storage root override")
	logLevel := flag.String("log-level", "", "Log level override (DEBUG, INFO, WARN, ERROR)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Command-line flags win over file and environment.
	if *listenAddr != "" {
		cfg.Server.ListenAddr = *listenAddr
	}
	if *storageRoot != "" {
		cfg.Storage.Root = *storageRoot
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	logger.SetLevel(cfg.Logging.Level)
	if err := logger.SetOutput(cfg.Logging.Output); err != nil {
		log.Fatalf("Failed to configure log output: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fmt.Println("stashd - password-gated file storage")
	logger.Info("Log level set to: %s", cfg.Logging.Level)

	resolver, err := storage.NewPathResolver(cfg.Storage.Root)
	if err != nil {
		log.Fatalf("Failed to initialize storage root: %v", err)
	}
	logger.Info("Storage root: %s", resolver.Root())

	privilege, err := storage.ParsePrivilege(cfg.Access.Privilege)
	if err != nil {
		log.Fatalf("Failed to parse privilege mode: %v", err)
	}
	logger.Info("Privilege mode: %s", privilege)

	var storageMetrics metrics.StorageMetrics
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		logger.Info("Metrics collection enabled")
	}
	storageMetrics = metrics.NewStorageMetrics()

	sessions, err := config.CreateSessionStore(ctx, &cfg.Sessions)
	if err != nil {
		log.Fatalf("Failed to create session store: %v", err)
	}
	defer func() {
		if err := sessions.Close(); err != nil {
			logger.Warn("Session store close error: %v", err)
		}
	}()

	archiver := storage.NewArchiver(cfg.Storage.ScratchDir)
	store := storage.NewStore(resolver, privilege, archiver, storageMetrics)

	srv, err := web.New(web.ServerConfig{
		ListenAddr:      cfg.Server.ListenAddr,
		Password:        cfg.Access.Password,
		MaxUploadBytes:  cfg.Server.MaxUploadBytes,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, store, sessions)
	if err != nil {
		log.Fatalf("Failed to create web server: %v", err)
	}

	logger.Info("Server configuration:")
	logger.Info("  Listen address: %s", cfg.Server.ListenAddr)
	logger.Info("  Max upload size: %d bytes", cfg.Server.MaxUploadBytes)
	logger.Info("  Session store: %s (ttl %v)", cfg.Sessions.Type, cfg.Sessions.TTL)
	logger.Info("  Shutdown timeout: %v", cfg.Server.ShutdownTimeout)

	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(metrics.ServerConfig{Port: cfg.Metrics.Port})
		go func() {
			if err := metricsServer.Start(ctx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
	}

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running on %s. Press Ctrl+C to stop.", cfg.Server.ListenAddr)

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
		cancel()

		if err := <-serverDone; err != nil {
			logger.Error("Server shutdown error: %v", err)
			os.Exit(1)
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		if err != nil {
			logger.Error("Server error: %v", err)
			os.Exit(1)
		}
		logger.Info("Server stopped")
	}
}
