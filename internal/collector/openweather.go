package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/kwasik/weather-alerts/internal/protocol"
)

var errCircuitOpen = errors.New("circuit breaker open")

// Client fetches current weather from the OpenWeather API. Temperatures come
// back in Kelvin (no units parameter); conversion is the alert engine's job.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	circuit    *gobreaker.CircuitBreaker
	maxRetries int
	retryDelay time.Duration
}

// NewClient creates an OpenWeather client with a circuit breaker around the
// upstream API
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		circuit:    cb,
		maxRetries: 3,
		retryDelay: 2 * time.Second,
	}
}

type openWeatherResponse struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
		Pressure int     `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
}

// FetchCurrent returns the current weather for a city as a reading message
func (c *Client) FetchCurrent(ctx context.Context, city string) (*protocol.ReadingMessage, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("openweather api key is not configured")
	}

	payload, err := c.fetchWithRetry(ctx, city)
	if err != nil {
		return nil, err
	}

	description := ""
	if len(payload.Weather) > 0 {
		description = payload.Weather[0].Description
	}

	return protocol.NewReadingMessage(
		city,
		payload.Main.Temp,
		payload.Main.Humidity,
		payload.Main.Pressure,
		payload.Wind.Speed,
		description,
		payload.Dt,
	), nil
}

// fetchWithRetry makes a bounded number of attempts with a fixed delay. An
// open circuit fails fast without burning attempts.
func (c *Client) fetchWithRetry(ctx context.Context, city string) (*openWeatherResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		result, err := c.circuit.Execute(func() (interface{}, error) {
			return c.fetchOnce(ctx, city)
		})
		if err == nil {
			return result.(*openWeatherResponse), nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}

		lastErr = err
		if attempt == c.maxRetries {
			break
		}

		timer := time.NewTimer(c.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return nil, fmt.Errorf("fetch failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, city string) (*openWeatherResponse, error) {
	values := url.Values{}
	values.Set("q", city)
	values.Set("appid", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s?%s", c.baseURL, values.Encode()), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var payload openWeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &payload, nil
}
