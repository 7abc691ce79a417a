package main

import (
	"errors"
	"io/fs"
	"log"

	"github.com/farellandr/blocktix/config"
	"github.com/farellandr/blocktix/internal/logger"
	"github.com/farellandr/blocktix/internal/server"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	envFile := pflag.String("env-file", ".env", "path to the environment file")
	seed := pflag.Bool("seed", false, "insert demo users and events, then exit")
	pflag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Error loading %s: %v", *envFile, err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logr := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		ServiceName: "blocktix",
		Development: !cfg.IsProduction(),
	})
	defer logr.Sync()

	if *seed {
		db, err := config.InitDatabase(cfg, logr)
		if err != nil {
			logr.Fatal("failed to initialize database", zap.Error(err))
		}
		if err := config.Seed(db); err != nil {
			logr.Fatal("seed failed", zap.Error(err))
		}
		logr.Info("demo data seeded", zap.String("password", config.SeedPassword))
		return
	}

	if err := server.Start(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}
