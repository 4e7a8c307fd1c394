package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwasik/weather-alerts/internal/database"
	"github.com/kwasik/weather-alerts/internal/protocol"
)

type fakeSource struct {
	mu        sync.Mutex
	messages  []kafka.Message
	consumed  int
	committed []kafka.Message
	err       error
	// cancel stops the worker once the queue is drained
	cancel context.CancelFunc
}

func (f *fakeSource) Consume(_ context.Context) (kafka.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return kafka.Message{}, f.err
	}
	if f.consumed >= len(f.messages) {
		if f.cancel != nil {
			f.cancel()
		}
		return kafka.Message{}, errors.New("drained")
	}

	msg := f.messages[f.consumed]
	f.consumed++
	return msg, nil
}

func (f *fakeSource) Commit(_ context.Context, msg kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, msg)
	return nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published []string
	keys      []string
}

func (f *fakePublisher) Publish(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, string(value))
	f.keys = append(f.keys, key)
	return nil
}

func newTestWorker(t *testing.T, source *fakeSource, engine Evaluator, pub AlertPublisher) *Worker {
	t.Helper()
	coordinator := NewCoordinator(&fakeReadingStore{}, engine, nil)
	return NewWorker(source, coordinator, pub, 2, time.Millisecond)
}

func TestWorker_StopsAfterRetryBudget(t *testing.T) {
	source := &fakeSource{err: errors.New("broker down")}
	w := newTestWorker(t, source, &fakeEvaluator{}, nil)

	err := w.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker unreachable")
}

func TestWorker_StopsCleanlyOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := &fakeSource{err: errors.New("broker down")}
	w := newTestWorker(t, source, &fakeEvaluator{}, nil)

	assert.NoError(t, w.Run(ctx))
}

func TestWorker_PublishesAndCommits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	alert := &database.Alert{ID: 7, RuleID: 1, City: "Warszawa", Message: "hot", Severity: database.SeverityWarning, Value: 32.0, CreatedAt: time.Now().UTC()}
	source := &fakeSource{
		messages: []kafka.Message{{Key: []byte("Warszawa"), Value: validMessage(t)}},
		cancel:   cancel,
	}
	pub := &fakePublisher{}
	w := newTestWorker(t, source, &fakeEvaluator{alerts: []*database.Alert{alert}}, pub)

	// Run returns once the source is drained and the context cancelled, but
	// the drain path counts as consume failures, so allow the retry budget.
	require.NoError(t, w.Run(ctx))

	require.Len(t, source.committed, 1, "processed message is committed")

	require.Len(t, pub.published, 1)
	assert.Equal(t, "Warszawa", pub.keys[0], "alerts are keyed by city")

	decoded, err := protocol.DecodeAlertMessage([]byte(pub.published[0]))
	require.NoError(t, err)
	assert.Equal(t, int64(7), decoded.AlertID)
	assert.Equal(t, database.SeverityWarning, decoded.Severity)
}

func TestWorker_BadMessageIsCommittedAndSkipped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := &fakeSource{
		messages: []kafka.Message{
			{Value: []byte(`{"city":""}`)},
			{Value: validMessage(t)},
		},
		cancel: cancel,
	}
	engine := &fakeEvaluator{}
	w := newTestWorker(t, source, engine, nil)

	require.NoError(t, w.Run(ctx))

	assert.Len(t, source.committed, 2, "a rejected message is still committed")
	assert.Equal(t, 1, engine.calls, "only the valid message reaches evaluation")
}
