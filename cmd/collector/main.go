package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/kwasik/weather-alerts/internal/collector"
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
	log := logger.WithComponent("collector_main")
	log.Info().Msg("starting collector service")

	if cfg.Collector.APIKey == "" {
		log.Fatal().Msg("OPENWEATHER_API_KEY is not set")
	}

	// Best effort; the topic usually already exists
	if err := queue.CreateTopic(cfg.Kafka.Brokers, cfg.Kafka.TopicReadings, cfg.Kafka.NumPartitions, 1); err != nil {
		log.Warn().Err(err).Str("topic", cfg.Kafka.TopicReadings).Msg("failed to create topic")
	}

	producer := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicReadings)
	defer producer.Close()

	client := collector.NewClient(cfg.Collector.BaseURL, cfg.Collector.APIKey, cfg.Collector.FetchTimeout)
	coll := collector.New(client, producer, cfg.Collector.Cities, cfg.Collector.PollInterval, cfg.Collector.FetchTimeout)

	if err := coll.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start collector")
	}
	defer coll.Stop()

	go func() {
		if err := metrics.Serve(cfg.API.MetricsAddr); err != nil {
			log.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("collector service stopped")
}
