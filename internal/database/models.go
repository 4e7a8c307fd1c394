package database

import (
	"time"
)

// WeatherReading is one telemetry snapshot for a city. Temperature arrives in
// Kelvin straight from the upstream API; conversion happens at evaluation time.
type WeatherReading struct {
	ID          int64
	City        string
	Temperature float64
	Humidity    int
	Pressure    int
	WindSpeed   float64
	Weather     string
	Timestamp   int64
	ReceivedAt  time.Time
}

// AlertRule is a user-defined threshold condition over one metric, scoped to a
// city. Threshold is in display units (Celsius for temperature).
type AlertRule struct {
	ID            int64
	Name          string
	City          string
	ConditionType string
	Operator      string
	Threshold     float64
	IsActive      bool
	CreatedAt     time.Time
}

// Alert is a triggered rule occurrence. Immutable after creation except IsRead.
type Alert struct {
	ID        int64
	RuleID    int64
	City      string
	Message   string
	Severity  string
	Value     float64
	IsRead    bool
	CreatedAt time.Time
}

// Condition types
const (
	ConditionTemperature = "temperature"
	ConditionHumidity    = "humidity"
	ConditionPressure    = "pressure"
	ConditionWindSpeed   = "wind_speed"
)

// Severity levels
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)
