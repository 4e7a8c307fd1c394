package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/kwasik/weather-alerts/internal/alerting"
	"github.com/kwasik/weather-alerts/internal/cache"
	"github.com/kwasik/weather-alerts/internal/database"
	"github.com/kwasik/weather-alerts/internal/ingest"
	"github.com/kwasik/weather-alerts/internal/logger"
	"github.com/kwasik/weather-alerts/internal/metrics"
	"github.com/kwasik/weather-alerts/internal/queue"
	"github.com/kwasik/weather-alerts/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger.Init(cfg.LogLevel)
	log := logger.WithComponent("ingest_main")
	log.Info().Msg("starting ingest service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := db.RunMigrations("migrations"); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	var latestCache ingest.LatestCache
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis unavailable; latest-reading cache disabled")
	} else {
		latestCache = cache.NewLatest(redisClient, cfg.Redis.LatestTTL)
	}

	consumer := queue.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicReadings, cfg.Kafka.GroupID)
	defer consumer.Close()

	alertProducer := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicAlerts)
	defer alertProducer.Close()

	engine := alerting.NewEngine(db, db)
	coordinator := ingest.NewCoordinator(db, engine, latestCache)
	worker := ingest.NewWorker(consumer, coordinator, alertProducer, cfg.Kafka.ConsumeRetries, cfg.Kafka.ConsumeRetryDelay)

	go func() {
		if err := metrics.Serve(cfg.API.MetricsAddr); err != nil {
			log.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	if err := worker.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("ingest worker failed")
	}

	log.Info().Msg("ingest service stopped")
}
