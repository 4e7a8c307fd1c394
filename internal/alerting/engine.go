package alerting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/kwasik/weather-alerts/internal/database"
	"github.com/kwasik/weather-alerts/internal/metrics"
)

// SuppressionWindow is how long a rule stays quiet after firing. Two alerts
// for the same rule are never created less than this far apart.
const SuppressionWindow = 30 * time.Minute

// RuleSource provides the active rules for a city
type RuleSource interface {
	ActiveRulesForCity(ctx context.Context, city string) ([]*database.AlertRule, error)
}

// AlertStore persists alerts and answers the dedup-window lookup. InsertAlert
// must be atomic with respect to the window check (see database.InsertAlert)
// and return database.ErrAlertSuppressed when it skips the write.
type AlertStore interface {
	MostRecentAlert(ctx context.Context, ruleID int64, since time.Time) (*database.Alert, error)
	InsertAlert(ctx context.Context, a *database.Alert, dedupSince time.Time) error
}

// Engine evaluates one reading at a time against the active rules for its
// city. It holds no state of its own; rule and alert history access goes
// through the two store interfaces.
type Engine struct {
	rules  RuleSource
	alerts AlertStore
	clock  clockwork.Clock
	locks  ruleLocks
}

// NewEngine creates an evaluation engine
func NewEngine(rules RuleSource, alerts AlertStore) *Engine {
	return &Engine{
		rules:  rules,
		alerts: alerts,
		clock:  clockwork.NewRealClock(),
	}
}

// Evaluate runs every active rule for the reading's city and returns the
// alerts that were created. A failure on one rule is collected and evaluation
// continues with the remaining rules; the joined error is returned alongside
// whatever alerts were produced.
func (e *Engine) Evaluate(ctx context.Context, reading *database.WeatherReading) ([]*database.Alert, error) {
	start := e.clock.Now()
	defer func() {
		metrics.EvaluationDuration.Observe(e.clock.Since(start).Seconds())
	}()

	rules, err := e.rules.ActiveRulesForCity(ctx, reading.City)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rules for %s: %w", reading.City, err)
	}

	var alerts []*database.Alert
	var errs []error

	for _, rule := range rules {
		alert, err := e.evaluateRule(ctx, reading, rule)
		if err != nil {
			metrics.EvaluationErrors.Inc()
			errs = append(errs, fmt.Errorf("rule %d (%s): %w", rule.ID, rule.Name, err))
			continue
		}
		if alert != nil {
			alerts = append(alerts, alert)
		}
	}

	return alerts, errors.Join(errs...)
}

// evaluateRule returns the alert the rule produced for this reading, nil if
// the rule did not fire, or an error for repository failures. Malformed rules
// (unknown condition type or operator) never fire and never error.
func (e *Engine) evaluateRule(ctx context.Context, reading *database.WeatherReading, rule *database.AlertRule) (*database.Alert, error) {
	cond, ok := conditions[rule.ConditionType]
	if !ok {
		return nil, nil
	}

	compare, ok := operators[rule.Operator]
	if !ok {
		return nil, nil
	}

	// Converted exactly once; the same value feeds the comparison, the
	// severity band and Alert.Value.
	value := cond.convert(cond.extract(reading))

	now := e.clock.Now().UTC()
	cutoff := now.Add(-SuppressionWindow)

	// The window check and the insert form one critical section per rule;
	// without it two near-simultaneous readings could both pass the check
	// before either writes.
	mu := e.locks.forRule(rule.ID)
	mu.Lock()
	defer mu.Unlock()

	recent, err := e.alerts.MostRecentAlert(ctx, rule.ID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent alerts: %w", err)
	}
	if recent != nil {
		return nil, nil
	}

	if !compare(value, rule.Threshold) {
		return nil, nil
	}

	alert := &database.Alert{
		RuleID:    rule.ID,
		City:      reading.City,
		Message:   composeMessage(rule, cond, value, reading.City),
		Severity:  cond.severity(value),
		Value:     value,
		CreatedAt: now,
	}

	if err := e.alerts.InsertAlert(ctx, alert, cutoff); err != nil {
		// Another writer got there first inside the window
		if errors.Is(err, database.ErrAlertSuppressed) {
			metrics.AlertsSuppressed.Inc()
			return nil, nil
		}
		return nil, fmt.Errorf("failed to save alert: %w", err)
	}

	metrics.AlertsGenerated.WithLabelValues(alert.Severity).Inc()
	return alert, nil
}

func composeMessage(rule *database.AlertRule, cond condition, value float64, city string) string {
	return fmt.Sprintf("%s: %s in %s is %.1f%s, crossing the %g%s threshold",
		rule.Name, cond.label, city, value, cond.unit, rule.Threshold, cond.unit)
}
