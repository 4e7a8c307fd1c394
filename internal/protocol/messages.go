package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kwasik/weather-alerts/internal/database"
)

// ReadingMessage is the reading payload carried on the readings topic.
// Temperature is Kelvin, humidity percent, pressure hPa, wind speed m/s and
// timestamp the source-reported epoch seconds.
type ReadingMessage struct {
	MessageID   string  `json:"message_id"`
	City        string  `json:"city"`
	Temperature float64 `json:"temperature"`
	Humidity    int     `json:"humidity"`
	Pressure    int     `json:"pressure"`
	WindSpeed   float64 `json:"wind_speed"`
	Weather     string  `json:"weather"`
	Timestamp   int64   `json:"timestamp"`
}

// readingPayload mirrors ReadingMessage with pointer fields so a missing key
// can be told apart from a zero value.
type readingPayload struct {
	MessageID   string   `json:"message_id"`
	City        *string  `json:"city"`
	Temperature *float64 `json:"temperature"`
	Humidity    *int     `json:"humidity"`
	Pressure    *int     `json:"pressure"`
	WindSpeed   *float64 `json:"wind_speed"`
	Weather     *string  `json:"weather"`
	Timestamp   *int64   `json:"timestamp"`
}

// NewReadingMessage builds a reading message with a fresh message id
func NewReadingMessage(city string, temperature float64, humidity, pressure int, windSpeed float64, weather string, timestamp int64) *ReadingMessage {
	return &ReadingMessage{
		MessageID:   uuid.NewString(),
		City:        city,
		Temperature: temperature,
		Humidity:    humidity,
		Pressure:    pressure,
		WindSpeed:   windSpeed,
		Weather:     weather,
		Timestamp:   timestamp,
	}
}

// EncodeReadingMessage encodes a ReadingMessage to JSON
func EncodeReadingMessage(msg *ReadingMessage) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeReadingMessage decodes and validates a reading message. Any missing
// required key, or an empty city, is a validation failure.
func DecodeReadingMessage(data []byte) (*ReadingMessage, error) {
	var p readingPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	if err := validateReading(&p); err != nil {
		return nil, err
	}

	return &ReadingMessage{
		MessageID:   p.MessageID,
		City:        *p.City,
		Temperature: *p.Temperature,
		Humidity:    *p.Humidity,
		Pressure:    *p.Pressure,
		WindSpeed:   *p.WindSpeed,
		Weather:     *p.Weather,
		Timestamp:   *p.Timestamp,
	}, nil
}

func validateReading(p *readingPayload) error {
	if p.City == nil || *p.City == "" {
		return fmt.Errorf("city is required")
	}
	if p.Temperature == nil {
		return fmt.Errorf("temperature is required")
	}
	if p.Humidity == nil {
		return fmt.Errorf("humidity is required")
	}
	if p.Pressure == nil {
		return fmt.Errorf("pressure is required")
	}
	if p.WindSpeed == nil {
		return fmt.Errorf("wind_speed is required")
	}
	if p.Weather == nil {
		return fmt.Errorf("weather is required")
	}
	if p.Timestamp == nil {
		return fmt.Errorf("timestamp is required")
	}
	return nil
}

// ToReading converts the message into a storable reading
func (m *ReadingMessage) ToReading(receivedAt time.Time) *database.WeatherReading {
	return &database.WeatherReading{
		City:        m.City,
		Temperature: m.Temperature,
		Humidity:    m.Humidity,
		Pressure:    m.Pressure,
		WindSpeed:   m.WindSpeed,
		Weather:     m.Weather,
		Timestamp:   m.Timestamp,
		ReceivedAt:  receivedAt,
	}
}

// AlertMessage is the notification payload published after an alert is
// created, for downstream consumers (dashboards, log sinks).
type AlertMessage struct {
	AlertID   int64     `json:"alert_id"`
	RuleID    int64     `json:"rule_id"`
	City      string    `json:"city"`
	Message   string    `json:"message"`
	Severity  string    `json:"severity"`
	Value     float64   `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

// NewAlertMessage builds an AlertMessage from a stored alert
func NewAlertMessage(a *database.Alert) *AlertMessage {
	return &AlertMessage{
		AlertID:   a.ID,
		RuleID:    a.RuleID,
		City:      a.City,
		Message:   a.Message,
		Severity:  a.Severity,
		Value:     a.Value,
		CreatedAt: a.CreatedAt,
	}
}

// EncodeAlertMessage encodes an AlertMessage to JSON
func EncodeAlertMessage(msg *AlertMessage) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeAlertMessage decodes JSON to AlertMessage
func DecodeAlertMessage(data []byte) (*AlertMessage, error) {
	var msg AlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
