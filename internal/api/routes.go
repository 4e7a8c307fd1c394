package api

import (
	"context"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/kwasik/weather-alerts/internal/database"
	"github.com/kwasik/weather-alerts/internal/logger"
)

var validate = validator.New()

// Store is the persistence surface the API needs
type Store interface {
	ListRules(ctx context.Context, city string) ([]*database.AlertRule, error)
	GetRule(ctx context.Context, id int64) (*database.AlertRule, error)
	InsertRule(ctx context.Context, r *database.AlertRule) error
	UpdateRule(ctx context.Context, r *database.AlertRule) (bool, error)
	SetRuleActive(ctx context.Context, id int64, active bool) (bool, error)
	DeleteRule(ctx context.Context, id int64) (bool, error)
	ListAlerts(ctx context.Context, city string, unreadOnly bool, limit int) ([]*database.Alert, error)
	MarkAlertRead(ctx context.Context, id int64) (bool, error)
	LatestReadingForCity(ctx context.Context, city string) (*database.WeatherReading, error)
	LatestReadings(ctx context.Context) ([]*database.WeatherReading, error)
}

// ReadingCache answers current-weather lookups before the database is asked
type ReadingCache interface {
	GetLatest(ctx context.Context, city string) (*database.WeatherReading, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app. cache may be nil.
func RegisterRoutes(app *fiber.App, store Store, readingCache ReadingCache) {
	h := &handlers{store: store, cache: readingCache}

	apiGroup := app.Group("/api")

	apiGroup.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": "weather-alerts-api"})
	})

	apiGroup.Get("/weather/current", h.currentWeather)

	apiGroup.Get("/rules", h.listRules)
	apiGroup.Post("/rules", h.createRule)
	apiGroup.Put("/rules/:id", h.updateRule)
	apiGroup.Patch("/rules/:id/active", h.setRuleActive)
	apiGroup.Delete("/rules/:id", h.deleteRule)

	apiGroup.Get("/alerts", h.listAlerts)
	apiGroup.Post("/alerts/:id/read", h.markAlertRead)
}

type handlers struct {
	store Store
	cache ReadingCache
}

// ruleRequest is the create/update payload for a rule
type ruleRequest struct {
	Name          string  `json:"name" validate:"required"`
	City          string  `json:"city" validate:"required"`
	ConditionType string  `json:"condition_type" validate:"required,oneof=temperature humidity pressure wind_speed"`
	Operator      string  `json:"operator" validate:"required,oneof=> < >= <= =="`
	Threshold     float64 `json:"threshold"`
	IsActive      *bool   `json:"is_active"`
}

func (h *handlers) currentWeather(c *fiber.Ctx) error {
	city := c.Query("city")

	if city == "" {
		readings, err := h.store.LatestReadings(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather data")
		}

		out := make([]fiber.Map, 0, len(readings))
		for _, r := range readings {
			out = append(out, readingJSON(r))
		}
		return c.JSON(out)
	}

	if h.cache != nil {
		if r, err := h.cache.GetLatest(c.Context(), city); err == nil && r != nil {
			return c.JSON(readingJSON(r))
		} else if err != nil {
			log := logger.WithComponent("api")
			log.Warn().Err(err).Str("city", city).Msg("cache lookup failed")
		}
	}

	r, err := h.store.LatestReadingForCity(c.Context(), city)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather data")
	}
	if r == nil {
		return fiber.NewError(fiber.StatusNotFound, "no weather data for requested city")
	}

	return c.JSON(readingJSON(r))
}

func (h *handlers) listRules(c *fiber.Ctx) error {
	rules, err := h.store.ListRules(c.Context(), c.Query("city"))
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to list rules")
	}

	out := make([]fiber.Map, 0, len(rules))
	for _, r := range rules {
		out = append(out, ruleJSON(r))
	}
	return c.JSON(out)
}

func (h *handlers) createRule(c *fiber.Ctx) error {
	var req ruleRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	rule := req.toRule()
	if err := h.store.InsertRule(c.Context(), rule); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to create rule")
	}

	return c.Status(fiber.StatusCreated).JSON(ruleJSON(rule))
}

func (h *handlers) updateRule(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	var req ruleRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	rule := req.toRule()
	rule.ID = id

	found, err := h.store.UpdateRule(c.Context(), rule)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to update rule")
	}
	if !found {
		return fiber.NewError(fiber.StatusNotFound, "rule not found")
	}

	updated, err := h.store.GetRule(c.Context(), id)
	if err != nil || updated == nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load updated rule")
	}
	return c.JSON(ruleJSON(updated))
}

func (h *handlers) setRuleActive(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	var req struct {
		IsActive *bool `json:"is_active" validate:"required"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.IsActive == nil {
		return fiber.NewError(fiber.StatusBadRequest, "is_active is required")
	}

	found, err := h.store.SetRuleActive(c.Context(), id, *req.IsActive)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to update rule")
	}
	if !found {
		return fiber.NewError(fiber.StatusNotFound, "rule not found")
	}

	return c.JSON(fiber.Map{"id": id, "is_active": *req.IsActive})
}

func (h *handlers) deleteRule(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	found, err := h.store.DeleteRule(c.Context(), id)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to delete rule")
	}
	if !found {
		return fiber.NewError(fiber.StatusNotFound, "rule not found")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handlers) listAlerts(c *fiber.Ctx) error {
	limit := 50
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 || parsed > 500 {
			return fiber.NewError(fiber.StatusBadRequest, "limit must be between 1 and 500")
		}
		limit = parsed
	}

	unreadOnly := c.Query("unread") == "true"

	alerts, err := h.store.ListAlerts(c.Context(), c.Query("city"), unreadOnly, limit)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to list alerts")
	}

	out := make([]fiber.Map, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, alertJSON(a))
	}
	return c.JSON(out)
}

func (h *handlers) markAlertRead(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	found, err := h.store.MarkAlertRead(c.Context(), id)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to mark alert read")
	}
	if !found {
		return fiber.NewError(fiber.StatusNotFound, "alert not found")
	}

	return c.JSON(fiber.Map{"id": id, "is_read": true})
}

func (r ruleRequest) toRule() *database.AlertRule {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}

	return &database.AlertRule{
		Name:          r.Name,
		City:          r.City,
		ConditionType: r.ConditionType,
		Operator:      r.Operator,
		Threshold:     r.Threshold,
		IsActive:      active,
	}
}

func parseID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func readingJSON(r *database.WeatherReading) fiber.Map {
	return fiber.Map{
		"id":          r.ID,
		"city":        r.City,
		"temperature": r.Temperature,
		"humidity":    r.Humidity,
		"pressure":    r.Pressure,
		"wind_speed":  r.WindSpeed,
		"weather":     r.Weather,
		"timestamp":   r.Timestamp,
		"received_at": r.ReceivedAt.Format(time.RFC3339),
	}
}

func ruleJSON(r *database.AlertRule) fiber.Map {
	return fiber.Map{
		"id":             r.ID,
		"name":           r.Name,
		"city":           r.City,
		"condition_type": r.ConditionType,
		"operator":       r.Operator,
		"threshold":      r.Threshold,
		"is_active":      r.IsActive,
		"created_at":     r.CreatedAt.Format(time.RFC3339),
	}
}

func alertJSON(a *database.Alert) fiber.Map {
	return fiber.Map{
		"id":         a.ID,
		"rule_id":    a.RuleID,
		"city":       a.City,
		"message":    a.Message,
		"severity":   a.Severity,
		"value":      a.Value,
		"is_read":    a.IsRead,
		"created_at": a.CreatedAt.Format(time.RFC3339),
	}
}
