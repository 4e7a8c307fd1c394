package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	API       APIConfig
	Collector CollectorConfig
	LogLevel  string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (d DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// How long a cached latest reading stays valid
	LatestTTL time.Duration
}

type KafkaConfig struct {
	Brokers       []string
	TopicReadings string
	TopicAlerts   string
	GroupID       string
	NumPartitions int
	// Bounded consume retries before the ingest worker gives up
	ConsumeRetries    int
	ConsumeRetryDelay time.Duration
}

type APIConfig struct {
	Addr        string
	MetricsAddr string
}

type CollectorConfig struct {
	APIKey       string
	BaseURL      string
	Cities       []string
	PollInterval time.Duration
	FetchTimeout time.Duration
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "weather_user"),
			Password: getEnv("DB_PASSWORD", "weather_pass"),
			DBName:   getEnv("DB_NAME", "weather_alerts"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", "localhost:6379"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvAsInt("REDIS_DB", 0),
			LatestTTL: getEnvAsDuration("REDIS_LATEST_TTL", 30*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:           strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			TopicReadings:     getEnv("KAFKA_TOPIC_READINGS", "weather.readings"),
			TopicAlerts:       getEnv("KAFKA_TOPIC_ALERTS", "weather.alerts"),
			GroupID:           getEnv("KAFKA_GROUP_ID", "weather-ingest"),
			NumPartitions:     getEnvAsInt("KAFKA_NUM_PARTITIONS", 10),
			ConsumeRetries:    getEnvAsInt("KAFKA_CONSUME_RETRIES", 5),
			ConsumeRetryDelay: getEnvAsDuration("KAFKA_CONSUME_RETRY_DELAY", 2*time.Second),
		},
		API: APIConfig{
			Addr:        getEnv("API_ADDR", ":8080"),
			MetricsAddr: getEnv("METRICS_ADDR", ":9090"),
		},
		Collector: CollectorConfig{
			APIKey:       getEnv("OPENWEATHER_API_KEY", ""),
			BaseURL:      getEnv("OPENWEATHER_BASE_URL", "https://api.openweathermap.org/data/2.5/weather"),
			Cities:       splitNonEmpty(getEnv("COLLECTOR_CITIES", "Warszawa,Yakutsk")),
			PollInterval: getEnvAsDuration("COLLECTOR_POLL_INTERVAL", 5*time.Minute),
			FetchTimeout: getEnvAsDuration("COLLECTOR_FETCH_TIMEOUT", 15*time.Second),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func splitNonEmpty(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
