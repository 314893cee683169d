package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Pinger is a dependency whose reachability is reported by /health/ready.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	checks  map[string]Pinger
	timeout time.Duration
}

// NewHealthHandler creates a HealthHandler that pings every named check on
// readiness requests.
func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: 2 * time.Second}
}

// RegisterRoutes registers the health routes. They are never authenticated.
func (h *HealthHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/health", h.HandleLive)
	router.Get("/health/ready", h.HandleReady)
}

// HandleLive reports that the process is serving requests.
func (h *HealthHandler) HandleLive(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// HandleReady pings each dependency and answers 503 if any is unreachable.
func (h *HealthHandler) HandleReady(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	status := fiber.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			results[name] = err.Error()
			status = fiber.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	overall := "ready"
	if status != fiber.StatusOK {
		overall = "unavailable"
	}
	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": results,
		"time":   time.Now().Format(time.RFC3339),
	})
}
