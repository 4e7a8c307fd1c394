package ingest

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/kwasik/weather-alerts/internal/database"
	"github.com/kwasik/weather-alerts/internal/logger"
	"github.com/kwasik/weather-alerts/internal/metrics"
	"github.com/kwasik/weather-alerts/internal/protocol"
)

// ReadingStore persists weather readings
type ReadingStore interface {
	InsertReading(ctx context.Context, r *database.WeatherReading) error
}

// Evaluator runs the alert rules for one reading
type Evaluator interface {
	Evaluate(ctx context.Context, reading *database.WeatherReading) ([]*database.Alert, error)
}

// LatestCache keeps the most recent reading per city for fast API reads
type LatestCache interface {
	SetLatest(ctx context.Context, r *database.WeatherReading) error
}

// Result is what one ingested message produced
type Result struct {
	ReadingID int64
	Alerts    []*database.Alert
}

// Coordinator turns one reading message into a stored reading plus the alerts
// it triggers. Each message is processed to completion or dropped; there is
// no retry state.
type Coordinator struct {
	readings ReadingStore
	engine   Evaluator
	cache    LatestCache
	clock    clockwork.Clock
}

// NewCoordinator creates an ingestion coordinator. cache may be nil.
func NewCoordinator(readings ReadingStore, engine Evaluator, cache LatestCache) *Coordinator {
	return &Coordinator{
		readings: readings,
		engine:   engine,
		cache:    cache,
		clock:    clockwork.NewRealClock(),
	}
}

// Ingest validates a raw reading message, stores the reading, and evaluates
// it. A validation failure drops the message with nothing stored and no
// evaluation. A failed reading save aborts evaluation for this reading only.
// Alerts that were created are returned even when some rules failed.
func (c *Coordinator) Ingest(ctx context.Context, data []byte) (*Result, error) {
	log := logger.WithComponent("ingest")

	msg, err := protocol.DecodeReadingMessage(data)
	if err != nil {
		metrics.ReadingsIngested.WithLabelValues("rejected").Inc()
		metrics.ValidationErrors.WithLabelValues("reading").Inc()
		return nil, fmt.Errorf("invalid reading message: %w", err)
	}

	reading := msg.ToReading(c.clock.Now().UTC())
	if err := c.readings.InsertReading(ctx, reading); err != nil {
		metrics.ReadingsIngested.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("failed to store reading for %s: %w", reading.City, err)
	}

	metrics.ReadingsIngested.WithLabelValues("stored").Inc()

	// Cache refresh is best effort; the database stays the source of truth
	if c.cache != nil {
		if err := c.cache.SetLatest(ctx, reading); err != nil {
			log.Warn().Err(err).Str("city", reading.City).Msg("failed to refresh latest-reading cache")
		}
	}

	alerts, evalErr := c.engine.Evaluate(ctx, reading)
	if evalErr != nil {
		log.Error().Err(evalErr).Str("city", reading.City).Msg("evaluation finished with errors")
	}

	for _, alert := range alerts {
		log.Info().
			Int64("alert_id", alert.ID).
			Int64("rule_id", alert.RuleID).
			Str("city", alert.City).
			Str("severity", alert.Severity).
			Float64("value", alert.Value).
			Msg("alert generated")
	}

	return &Result{ReadingID: reading.ID, Alerts: alerts}, evalErr
}
