package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/kwasik/weather-alerts/internal/api"
	"github.com/kwasik/weather-alerts/internal/cache"
	"github.com/kwasik/weather-alerts/internal/database"
	"github.com/kwasik/weather-alerts/internal/logger"
	"github.com/kwasik/weather-alerts/internal/metrics"
	"github.com/kwasik/weather-alerts/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger.Init(cfg.LogLevel)
	log := logger.WithComponent("api_main")
	log.Info().Msg("starting API service")

	db, err := database.Connect(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	var readingCache api.ReadingCache
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Warn().Err(err).Msg("redis unavailable; serving current weather from database only")
	} else {
		readingCache = cache.NewLatest(redisClient, cfg.Redis.LatestTTL)
	}

	app := fiber.New(fiber.Config{
		AppName:               "weather-alerts-api",
		DisableStartupMessage: true,
	})
	api.RegisterRoutes(app, db, readingCache)

	go func() {
		if err := metrics.Serve(cfg.API.MetricsAddr); err != nil {
			log.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	go func() {
		log.Info().Str("addr", cfg.API.Addr).Msg("listening")
		if err := app.Listen(cfg.API.Addr); err != nil {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutting down")
	if err := app.Shutdown(); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}
