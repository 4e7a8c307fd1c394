package database

import (
	"context"
	"database/sql"
)

// InsertReading stores a weather reading and assigns its id
func (db *DB) InsertReading(ctx context.Context, r *WeatherReading) error {
	query := `
		INSERT INTO weather_readings (
			city, temperature, humidity, pressure, wind_speed, weather, timestamp, received_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	return db.QueryRowContext(
		ctx,
		query,
		r.City,
		r.Temperature,
		r.Humidity,
		r.Pressure,
		r.WindSpeed,
		r.Weather,
		r.Timestamp,
		r.ReceivedAt,
	).Scan(&r.ID)
}

// LatestReadingForCity returns the most recent reading for a city, or nil if
// the city has no readings yet
func (db *DB) LatestReadingForCity(ctx context.Context, city string) (*WeatherReading, error) {
	query := `
		SELECT id, city, temperature, humidity, pressure, wind_speed, weather, timestamp, received_at
		FROM weather_readings
		WHERE city = $1
		ORDER BY id DESC
		LIMIT 1
	`

	var r WeatherReading
	err := db.QueryRowContext(ctx, query, city).Scan(
		&r.ID,
		&r.City,
		&r.Temperature,
		&r.Humidity,
		&r.Pressure,
		&r.WindSpeed,
		&r.Weather,
		&r.Timestamp,
		&r.ReceivedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &r, nil
}

// LatestReadings returns the most recent reading for every monitored city
func (db *DB) LatestReadings(ctx context.Context) ([]*WeatherReading, error) {
	query := `
		SELECT DISTINCT ON (city)
			id, city, temperature, humidity, pressure, wind_speed, weather, timestamp, received_at
		FROM weather_readings
		ORDER BY city, id DESC
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []*WeatherReading
	for rows.Next() {
		var r WeatherReading
		if err := rows.Scan(
			&r.ID,
			&r.City,
			&r.Temperature,
			&r.Humidity,
			&r.Pressure,
			&r.WindSpeed,
			&r.Weather,
			&r.Timestamp,
			&r.ReceivedAt,
		); err != nil {
			return nil, err
		}
		readings = append(readings, &r)
	}

	return readings, rows.Err()
}
