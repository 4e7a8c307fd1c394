package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/kwasik/weather-alerts/internal/logger"
	"github.com/kwasik/weather-alerts/internal/protocol"
)

// MessageSource is the consuming side of the readings topic
type MessageSource interface {
	Consume(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, msg kafka.Message) error
}

// AlertPublisher fans generated alerts out to the alerts topic
type AlertPublisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// Worker drives the consume -> ingest -> publish -> commit loop. Broker
// errors are retried a bounded number of times with a fixed delay; when the
// retries are exhausted the worker stops with an error so process supervision
// sees the failure instead of a silent drop.
type Worker struct {
	source      MessageSource
	coordinator *Coordinator
	alerts      AlertPublisher
	maxRetries  int
	retryDelay  time.Duration
}

// NewWorker creates an ingest worker. alerts may be nil to skip notification
// fan-out.
func NewWorker(source MessageSource, coordinator *Coordinator, alerts AlertPublisher, maxRetries int, retryDelay time.Duration) *Worker {
	if maxRetries <= 0 {
		maxRetries = 5
	}
	if retryDelay <= 0 {
		retryDelay = 2 * time.Second
	}

	return &Worker{
		source:      source,
		coordinator: coordinator,
		alerts:      alerts,
		maxRetries:  maxRetries,
		retryDelay:  retryDelay,
	}
}

// Run processes messages until the context is cancelled or the broker becomes
// unreachable past the retry budget
func (w *Worker) Run(ctx context.Context) error {
	log := logger.WithComponent("ingest_worker")
	log.Info().Msg("ingest worker started")

	failures := 0

	for {
		if ctx.Err() != nil {
			log.Info().Msg("ingest worker stopping")
			return nil
		}

		msg, err := w.source.Consume(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			failures++
			log.Error().Err(err).Int("attempt", failures).Msg("failed to consume message")
			if failures > w.maxRetries {
				return fmt.Errorf("broker unreachable after %d attempts: %w", failures, err)
			}

			if !sleepWithContext(ctx, w.retryDelay) {
				return nil
			}
			continue
		}
		failures = 0

		result, err := w.coordinator.Ingest(ctx, msg.Value)
		if err != nil {
			// Validation and persistence failures drop this message;
			// the next one is processed normally
			log.Error().Err(err).Msg("failed to ingest message")
		}

		if result != nil {
			w.publishAlerts(ctx, result)
		}

		if err := w.source.Commit(ctx, msg); err != nil {
			log.Error().Err(err).Msg("failed to commit offset")
		}
	}
}

func (w *Worker) publishAlerts(ctx context.Context, result *Result) {
	if w.alerts == nil {
		return
	}

	log := logger.WithComponent("ingest_worker")

	for _, alert := range result.Alerts {
		data, err := protocol.EncodeAlertMessage(protocol.NewAlertMessage(alert))
		if err != nil {
			log.Error().Err(err).Int64("alert_id", alert.ID).Msg("failed to encode alert")
			continue
		}

		if err := w.alerts.Publish(ctx, alert.City, data); err != nil {
			log.Error().Err(err).Int64("alert_id", alert.ID).Msg("failed to publish alert")
		}
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
