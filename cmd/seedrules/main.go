package main

import (
	"context"

	"github.com/kwasik/weather-alerts/internal/database"
	"github.com/kwasik/weather-alerts/internal/logger"
	"github.com/kwasik/weather-alerts/pkg/config"
)

// Applies the bootstrap rule set for every configured city, then exits.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger.Init(cfg.LogLevel)
	log := logger.WithComponent("seedrules")

	db, err := database.Connect(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := db.RunMigrations("migrations"); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	if err := db.SeedDefaultRules(context.Background(), cfg.Collector.Cities); err != nil {
		log.Fatal().Err(err).Msg("failed to seed default rules")
	}

	log.Info().Strs("cities", cfg.Collector.Cities).Msg("default rules seeded")
}
