package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fertilizer-advisor/internal/app"
	"github.com/fertilizer-advisor/internal/config"
	"github.com/fertilizer-advisor/internal/logging"
	"github.com/fertilizer-advisor/internal/mcp"
	"github.com/fertilizer-advisor/internal/setup"
)

func main() {
	// Check for setup subcommand
	if len(os.Args) > 1 && os.Args[1] == "setup" {
		if err := setup.NewCLI(os.Stdout).Run(os.Args[2:]); err != nil {
			log.Fatalf("Setup failed: %v", err)
		}
		return
	}

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

	// stdout carries the protocol.
	cfg := configManager.GetConfig()
	if cfg.Logging.Output == "" || cfg.Logging.Output == "stdout" {
		cfg.Logging.Output = "stderr"
	}
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
		logger.Info("Shutdown signal received, gracefully shutting down MCP server...")
		cancel()
	}()

	application, err := app.New(ctx, configManager, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize")
	}
	defer application.Close()
	application.Start()

	// Start MCP server
	server := mcp.NewServer(cfg.MCP, application.Service, logger)
	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Error("MCP server failed")
		return
	}

	logger.Info("Fertilizer advisor MCP server stopped")
}
