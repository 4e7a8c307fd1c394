package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwasik/weather-alerts/internal/alerting"
	"github.com/kwasik/weather-alerts/internal/database"
)

type fakeReadingStore struct {
	mu       sync.Mutex
	readings []*database.WeatherReading
	nextID   int64
	err      error
}

func (f *fakeReadingStore) InsertReading(_ context.Context, r *database.WeatherReading) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}

	f.nextID++
	r.ID = f.nextID
	f.readings = append(f.readings, r)
	return nil
}

type fakeEvaluator struct {
	mu     sync.Mutex
	calls  int
	alerts []*database.Alert
	err    error
}

func (f *fakeEvaluator) Evaluate(_ context.Context, _ *database.WeatherReading) ([]*database.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.alerts, f.err
}

type fakeCache struct {
	mu    sync.Mutex
	cache map[string]*database.WeatherReading
	err   error
}

func (f *fakeCache) SetLatest(_ context.Context, r *database.WeatherReading) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	if f.cache == nil {
		f.cache = make(map[string]*database.WeatherReading)
	}
	f.cache[r.City] = r
	return nil
}

func validMessage(t *testing.T) []byte {
	t.Helper()
	data, err := json.Marshal(map[string]interface{}{
		"message_id":  "msg-1",
		"city":        "Warszawa",
		"temperature": 305.15,
		"humidity":    50,
		"pressure":    1013,
		"wind_speed":  3.2,
		"weather":     "clear sky",
		"timestamp":   1770000000,
	})
	require.NoError(t, err)
	return data
}

func TestIngest_StoresReadingAndEvaluates(t *testing.T) {
	store := &fakeReadingStore{}
	engine := &fakeEvaluator{alerts: []*database.Alert{{ID: 1, RuleID: 1, Severity: database.SeverityWarning}}}
	cc := &fakeCache{}
	c := NewCoordinator(store, engine, cc)

	result, err := c.Ingest(context.Background(), validMessage(t))

	require.NoError(t, err)
	assert.Equal(t, int64(1), result.ReadingID)
	require.Len(t, result.Alerts, 1)
	assert.Equal(t, 1, engine.calls)

	require.Len(t, store.readings, 1)
	stored := store.readings[0]
	assert.Equal(t, "Warszawa", stored.City)
	assert.Equal(t, 305.15, stored.Temperature)
	assert.Equal(t, 50, stored.Humidity)
	assert.False(t, stored.ReceivedAt.IsZero())

	assert.Contains(t, cc.cache, "Warszawa")
}

func TestIngest_MissingFieldDropsMessage(t *testing.T) {
	store := &fakeReadingStore{}
	engine := &fakeEvaluator{}
	c := NewCoordinator(store, engine, nil)

	// pressure key absent
	data := []byte(`{"city":"Warszawa","temperature":305.15,"humidity":50,"wind_speed":3.2,"weather":"clear sky","timestamp":1770000000}`)

	result, err := c.Ingest(context.Background(), data)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "pressure")
	assert.Nil(t, result)
	assert.Empty(t, store.readings, "rejected message must not be stored")
	assert.Zero(t, engine.calls, "rejected message must not be evaluated")
}

func TestIngest_InvalidJSONDropsMessage(t *testing.T) {
	store := &fakeReadingStore{}
	engine := &fakeEvaluator{}
	c := NewCoordinator(store, engine, nil)

	result, err := c.Ingest(context.Background(), []byte("{not json"))

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Zero(t, engine.calls)
}

func TestIngest_ReadingSaveFailureAbortsEvaluation(t *testing.T) {
	store := &fakeReadingStore{err: errors.New("db down")}
	engine := &fakeEvaluator{}
	c := NewCoordinator(store, engine, nil)

	result, err := c.Ingest(context.Background(), validMessage(t))

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Zero(t, engine.calls, "evaluation must not run when the reading save failed")
}

func TestIngest_CacheFailureIsNonFatal(t *testing.T) {
	store := &fakeReadingStore{}
	engine := &fakeEvaluator{}
	cc := &fakeCache{err: errors.New("redis down")}
	c := NewCoordinator(store, engine, cc)

	result, err := c.Ingest(context.Background(), validMessage(t))

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 1, engine.calls)
}

func TestIngest_EvaluationErrorStillReturnsAlerts(t *testing.T) {
	store := &fakeReadingStore{}
	engine := &fakeEvaluator{
		alerts: []*database.Alert{{ID: 5, RuleID: 2}},
		err:    errors.New("rule 3: save failed"),
	}
	c := NewCoordinator(store, engine, nil)

	result, err := c.Ingest(context.Background(), validMessage(t))

	require.Error(t, err)
	require.NotNil(t, result)
	require.Len(t, result.Alerts, 1)
	assert.Equal(t, int64(5), result.Alerts[0].ID)
}

// End-to-end dedup property: many concurrent ingests of readings that all
// match the same rule must yield exactly one alert inside the window.
func TestIngest_ConcurrentIngestsSingleAlert(t *testing.T) {
	rule := &database.AlertRule{
		ID: 1, Name: "Extreme heat", City: "Warszawa",
		ConditionType: database.ConditionTemperature, Operator: ">", Threshold: 30.0, IsActive: true,
	}

	store := &fakeReadingStore{}
	alertStore := &fakeConditionalAlertStore{}
	engine := newRealEngine(t, rule, alertStore)
	c := NewCoordinator(store, engine, nil)

	const n = 16
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Ingest(context.Background(), validMessage(t))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, alertStore.count(), "exactly one alert for N concurrent matching readings")
	assert.Len(t, store.readings, n, "every valid reading is stored")
}

type fixedRuleSource struct {
	rules []*database.AlertRule
}

func (f *fixedRuleSource) ActiveRulesForCity(_ context.Context, city string) ([]*database.AlertRule, error) {
	var out []*database.AlertRule
	for _, r := range f.rules {
		if r.City == city && r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func newRealEngine(t *testing.T, rule *database.AlertRule, alerts *fakeConditionalAlertStore) *alerting.Engine {
	t.Helper()
	return alerting.NewEngine(&fixedRuleSource{rules: []*database.AlertRule{rule}}, alerts)
}

// fakeConditionalAlertStore mimics the database conditional insert
type fakeConditionalAlertStore struct {
	mu     sync.Mutex
	alerts []*database.Alert
	nextID int64
}

func (f *fakeConditionalAlertStore) MostRecentAlert(_ context.Context, ruleID int64, since time.Time) (*database.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, a := range f.alerts {
		if a.RuleID == ruleID && !a.CreatedAt.Before(since) {
			return a, nil
		}
	}
	return nil, nil
}

func (f *fakeConditionalAlertStore) InsertAlert(_ context.Context, a *database.Alert, dedupSince time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.alerts {
		if existing.RuleID == a.RuleID && !existing.CreatedAt.Before(dedupSince) {
			return database.ErrAlertSuppressed
		}
	}

	f.nextID++
	a.ID = f.nextID
	f.alerts = append(f.alerts, a)
	return nil
}

func (f *fakeConditionalAlertStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.alerts)
}
