package alerting

import (
	"github.com/kwasik/weather-alerts/internal/database"
)

// operators maps a rule operator symbol to its comparison. Built once,
// read-only afterwards. `==` is exact IEEE-754 equality with no epsilon.
var operators = map[string]func(value, threshold float64) bool{
	">":  func(a, b float64) bool { return a > b },
	"<":  func(a, b float64) bool { return a < b },
	">=": func(a, b float64) bool { return a >= b },
	"<=": func(a, b float64) bool { return a <= b },
	"==": func(a, b float64) bool { return a == b },
}

// condition describes how one condition type is read out of a reading:
// extraction, display metadata, unit conversion and severity banding.
type condition struct {
	label    string
	unit     string
	extract  func(r *database.WeatherReading) float64
	convert  func(v float64) float64
	severity func(v float64) string
}

var conditions = map[string]condition{
	database.ConditionTemperature: {
		label:    "Temperature",
		unit:     "°C",
		extract:  func(r *database.WeatherReading) float64 { return r.Temperature },
		convert:  kelvinToCelsius,
		severity: temperatureSeverity,
	},
	database.ConditionHumidity: {
		label:    "Humidity",
		unit:     "%",
		extract:  func(r *database.WeatherReading) float64 { return float64(r.Humidity) },
		convert:  identity,
		severity: humiditySeverity,
	},
	database.ConditionPressure: {
		label:    "Pressure",
		unit:     "hPa",
		extract:  func(r *database.WeatherReading) float64 { return float64(r.Pressure) },
		convert:  identity,
		severity: pressureSeverity,
	},
	database.ConditionWindSpeed: {
		label:    "Wind speed",
		unit:     "m/s",
		extract:  func(r *database.WeatherReading) float64 { return r.WindSpeed },
		convert:  identity,
		severity: windSpeedSeverity,
	},
}

// Readings carry temperature in Kelvin; rules and alerts use Celsius
func kelvinToCelsius(k float64) float64 {
	return k - 273.15
}

func identity(v float64) float64 {
	return v
}

// Severity bands are fixed per condition type and computed on the converted
// value. They are independent of the rule's own operator and threshold.

func temperatureSeverity(v float64) string {
	switch {
	case v > 35 || v < -20:
		return database.SeverityCritical
	case v > 30 || v < -10:
		return database.SeverityWarning
	default:
		return database.SeverityInfo
	}
}

func humiditySeverity(v float64) string {
	switch {
	case v < 20 || v > 90:
		return database.SeverityCritical
	case v < 30 || v > 80:
		return database.SeverityWarning
	default:
		return database.SeverityInfo
	}
}

func windSpeedSeverity(v float64) string {
	switch {
	case v > 20:
		return database.SeverityCritical
	case v > 15:
		return database.SeverityWarning
	default:
		return database.SeverityInfo
	}
}

// No graduated bands are defined for pressure
func pressureSeverity(float64) string {
	return database.SeverityInfo
}
