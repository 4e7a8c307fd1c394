package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/kwasik/weather-alerts/internal/logger"
	"github.com/kwasik/weather-alerts/internal/metrics"
	"github.com/kwasik/weather-alerts/internal/protocol"
)

// Publisher is the producing side of the readings topic
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// Collector periodically fetches current weather for the configured cities
// and publishes each reading to the broker.
type Collector struct {
	client    *Client
	publisher Publisher
	cities    []string
	interval  time.Duration
	timeout   time.Duration
	scheduler *gocron.Scheduler
}

// New creates a collector
func New(client *Client, publisher Publisher, cities []string, interval, timeout time.Duration) *Collector {
	return &Collector{
		client:    client,
		publisher: publisher,
		cities:    cities,
		interval:  interval,
		timeout:   timeout,
		scheduler: gocron.NewScheduler(time.UTC),
	}
}

// Start schedules the periodic collection job and runs it once immediately
func (c *Collector) Start() error {
	log := logger.WithComponent("collector")

	if len(c.cities) == 0 {
		log.Warn().Msg("no cities configured; nothing to collect")
		return nil
	}

	seconds := int(c.interval.Seconds())
	if seconds <= 0 {
		seconds = 300
	}

	_, err := c.scheduler.Every(seconds).Seconds().Do(c.collectAll)
	if err != nil {
		return fmt.Errorf("failed to schedule collection job: %w", err)
	}

	c.scheduler.StartAsync()
	log.Info().Strs("cities", c.cities).Dur("interval", c.interval).Msg("collector started")
	return nil
}

// Stop stops the scheduler and cancels any future jobs
func (c *Collector) Stop() {
	if c.scheduler != nil {
		c.scheduler.Stop()
	}
}

// collectAll fetches and publishes every city concurrently
func (c *Collector) collectAll() {
	log := logger.WithComponent("collector")

	var wg sync.WaitGroup
	for _, city := range c.cities {
		city := city
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
			defer cancel()

			if err := c.collectCity(ctx, city); err != nil {
				metrics.CollectorFetches.WithLabelValues(city, "failed").Inc()
				log.Error().Err(err).Str("city", city).Msg("collection failed")
				return
			}
			metrics.CollectorFetches.WithLabelValues(city, "success").Inc()
		}()
	}
	wg.Wait()
}

func (c *Collector) collectCity(ctx context.Context, city string) error {
	msg, err := c.client.FetchCurrent(ctx, city)
	if err != nil {
		return fmt.Errorf("failed to fetch weather: %w", err)
	}

	data, err := protocol.EncodeReadingMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to encode reading: %w", err)
	}

	if err := c.publisher.Publish(ctx, city, data); err != nil {
		return fmt.Errorf("failed to publish reading: %w", err)
	}

	log := logger.WithComponent("collector")
	log.Info().
		Str("city", city).
		Str("message_id", msg.MessageID).
		Float64("temperature", msg.Temperature).
		Msg("reading published")
	return nil
}
