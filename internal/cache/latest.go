package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kwasik/weather-alerts/internal/database"
)

// Latest caches the most recent reading per city in Redis so the API can
// answer current-weather queries without hitting Postgres.
type Latest struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewLatest creates a latest-reading cache
func NewLatest(client *redis.Client, ttl time.Duration) *Latest {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Latest{redis: client, ttl: ttl}
}

func latestKey(city string) string {
	return fmt.Sprintf("latest_reading:%s", city)
}

// SetLatest stores the reading as the current value for its city
func (c *Latest) SetLatest(ctx context.Context, r *database.WeatherReading) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}

	if err := c.redis.Set(ctx, latestKey(r.City), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set latest reading in Redis: %w", err)
	}

	return nil
}

// GetLatest returns the cached reading for a city, or nil on a miss
func (c *Latest) GetLatest(ctx context.Context, city string) (*database.WeatherReading, error) {
	data, err := c.redis.Get(ctx, latestKey(city)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest reading from Redis: %w", err)
	}

	var r database.WeatherReading
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reading: %w", err)
	}

	return &r, nil
}
