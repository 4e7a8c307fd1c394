package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwasik/weather-alerts/internal/database"
)

func TestNewReadingMessage_AssignsMessageID(t *testing.T) {
	a := NewReadingMessage("Warszawa", 295.15, 60, 1013, 4.1, "overcast clouds", 1770000000)
	b := NewReadingMessage("Warszawa", 295.15, 60, 1013, 4.1, "overcast clouds", 1770000000)

	assert.NotEmpty(t, a.MessageID)
	assert.NotEqual(t, a.MessageID, b.MessageID)
}

func TestDecodeReadingMessage_Valid(t *testing.T) {
	data := []byte(`{
		"message_id": "abc",
		"city": "Yakutsk",
		"temperature": 233.15,
		"humidity": 70,
		"pressure": 1030,
		"wind_speed": 1.5,
		"weather": "snow",
		"timestamp": 1770000000
	}`)

	msg, err := DecodeReadingMessage(data)

	require.NoError(t, err)
	assert.Equal(t, "abc", msg.MessageID)
	assert.Equal(t, "Yakutsk", msg.City)
	assert.Equal(t, 233.15, msg.Temperature)
	assert.Equal(t, 70, msg.Humidity)
	assert.Equal(t, 1030, msg.Pressure)
	assert.Equal(t, 1.5, msg.WindSpeed)
	assert.Equal(t, "snow", msg.Weather)
	assert.Equal(t, int64(1770000000), msg.Timestamp)
}

func TestDecodeReadingMessage_MissingKeys(t *testing.T) {
	complete := map[string]interface{}{
		"city":        "Warszawa",
		"temperature": 295.15,
		"humidity":    60,
		"pressure":    1013,
		"wind_speed":  4.1,
		"weather":     "overcast clouds",
		"timestamp":   int64(1770000000),
	}

	for key := range complete {
		t.Run(key, func(t *testing.T) {
			partial := make(map[string]interface{}, len(complete)-1)
			for k, v := range complete {
				if k != key {
					partial[k] = v
				}
			}
			data, err := json.Marshal(partial)
			require.NoError(t, err)

			_, err = DecodeReadingMessage(data)
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestDecodeReadingMessage_ZeroValuesAccepted(t *testing.T) {
	// Present-but-zero is valid; only absent keys are rejected
	data := []byte(`{"city":"Warszawa","temperature":0,"humidity":0,"pressure":0,"wind_speed":0,"weather":"","timestamp":0}`)

	msg, err := DecodeReadingMessage(data)

	require.NoError(t, err)
	assert.Equal(t, 0.0, msg.Temperature)
}

func TestDecodeReadingMessage_EmptyCityRejected(t *testing.T) {
	data := []byte(`{"city":"","temperature":295.15,"humidity":60,"pressure":1013,"wind_speed":4.1,"weather":"clear","timestamp":1770000000}`)

	_, err := DecodeReadingMessage(data)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "city")
}

func TestDecodeReadingMessage_InvalidJSON(t *testing.T) {
	_, err := DecodeReadingMessage([]byte("not json"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON")
}

func TestReadingMessage_ToReading(t *testing.T) {
	receivedAt := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	msg := NewReadingMessage("Warszawa", 305.15, 40, 1008, 6.0, "clear sky", 1770000000)

	reading := msg.ToReading(receivedAt)

	assert.Equal(t, "Warszawa", reading.City)
	assert.Equal(t, 305.15, reading.Temperature)
	assert.Equal(t, 40, reading.Humidity)
	assert.Equal(t, 1008, reading.Pressure)
	assert.Equal(t, 6.0, reading.WindSpeed)
	assert.Equal(t, "clear sky", reading.Weather)
	assert.Equal(t, int64(1770000000), reading.Timestamp)
	assert.Equal(t, receivedAt, reading.ReceivedAt)
}

func TestAlertMessage_RoundTrip(t *testing.T) {
	created := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	alert := &database.Alert{
		ID: 9, RuleID: 3, City: "Yakutsk",
		Message:   "Extreme cold: temperature in Yakutsk is -40.0C, crossing the -20C threshold",
		Severity:  database.SeverityCritical,
		Value:     -40.0,
		CreatedAt: created,
	}

	data, err := EncodeAlertMessage(NewAlertMessage(alert))
	require.NoError(t, err)

	decoded, err := DecodeAlertMessage(data)
	require.NoError(t, err)
	assert.Equal(t, int64(9), decoded.AlertID)
	assert.Equal(t, int64(3), decoded.RuleID)
	assert.Equal(t, "Yakutsk", decoded.City)
	assert.Equal(t, database.SeverityCritical, decoded.Severity)
	assert.Equal(t, -40.0, decoded.Value)
	assert.True(t, decoded.CreatedAt.Equal(created))
}
