package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/casperlundberg/offload-autoscale-env/internal/api"
	"github.com/casperlundberg/offload-autoscale-env/internal/config"
	"github.com/casperlundberg/offload-autoscale-env/internal/database"
	"github.com/casperlundberg/offload-autoscale-env/internal/logging"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to YAML config file")
		dbPath     = flag.String("db", "", "Path to SQLite database file (overrides config)")
		port       = flag.String("port", "", "Port to run API server on (overrides config)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Ensure database directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Fatal("Failed to create database directory", zap.Error(err))
	}

	logger.Info("Connecting to database", zap.String("path", cfg.Database.Path))
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	server, err := api.NewServer(database.NewRepository(db), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create server", zap.Error(err))
	}

	logger.Info("Starting analytics API server", zap.String("port", cfg.Server.Port))
	if err := server.Start(); err != nil {
		logger.Fatal("Server stopped", zap.Error(err))
	}
}
