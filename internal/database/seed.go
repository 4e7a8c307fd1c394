package database

import (
	"context"
	"fmt"

	"github.com/kwasik/weather-alerts/internal/logger"
)

// DefaultRules is the bootstrap rule set applied once per monitored city.
var DefaultRules = []AlertRule{
	{Name: "Extreme heat", ConditionType: ConditionTemperature, Operator: ">", Threshold: 30.0},
	{Name: "Extreme cold", ConditionType: ConditionTemperature, Operator: "<", Threshold: -10.0},
	{Name: "Very low humidity", ConditionType: ConditionHumidity, Operator: "<", Threshold: 30.0},
	{Name: "Very high humidity", ConditionType: ConditionHumidity, Operator: ">", Threshold: 80.0},
	{Name: "Strong wind", ConditionType: ConditionWindSpeed, Operator: ">", Threshold: 15.0},
}

// SeedDefaultRules creates the default rules for each city, skipping any rule
// that already exists. Safe to run repeatedly.
func (db *DB) SeedDefaultRules(ctx context.Context, cities []string) error {
	log := logger.WithComponent("database")

	query := `
		INSERT INTO alert_rules (name, city, condition_type, operator, threshold, is_active)
		SELECT $1, $2, $3, $4, $5, true
		WHERE NOT EXISTS (
			SELECT 1 FROM alert_rules
			WHERE city = $2 AND name = $1 AND condition_type = $3
		)
	`

	for _, city := range cities {
		for _, tmpl := range DefaultRules {
			result, err := db.ExecContext(ctx, query, tmpl.Name, city, tmpl.ConditionType, tmpl.Operator, tmpl.Threshold)
			if err != nil {
				return fmt.Errorf("failed to seed rule %q for %s: %w", tmpl.Name, city, err)
			}

			if affected, _ := result.RowsAffected(); affected > 0 {
				log.Info().Str("city", city).Str("rule", tmpl.Name).Msg("created default rule")
			}
		}
	}

	return nil
}
