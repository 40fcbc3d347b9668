package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fertilizer-advisor/internal/api"
	"github.com/fertilizer-advisor/internal/app"
	"github.com/fertilizer-advisor/internal/config"
	"github.com/fertilizer-advisor/internal/logging"
)

func main() {
	configFile := flag.String("config", "", "path to a config file")
	flag.Parse()

	// Load configuration
	configManager, err := config.NewManagerFromFile(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	application, err := app.New(ctx, configManager, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize")
	}
	defer application.Close()
	application.Start()

	opts := []api.Option{api.WithStatus(application)}
	if application.Accounts != nil {
		opts = append(opts, api.WithAccounts(application.Accounts))
	}
	server := api.NewServer(configManager, application.Service, application, logger, opts...)

	logger.WithField("environment", cfg.Environment).Info("Starting fertilizer advisor")
	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Error("Server failed")
		return
	}

	logger.Info("Server stopped")
}
