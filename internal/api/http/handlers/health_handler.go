package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/incident-service/internal/persistence"
)

const readinessTimeout = 2 * time.Second

// probe reports a dependency state label and whether it blocks readiness.
type probe func(ctx context.Context) (state string, healthy bool)

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	probes      map[string]probe
}

// NewHealthHandler returns a new handler instance. The incident store runs
// in memory when Postgres is unconfigured, and the sweep runs unlocked without
// Redis; neither case fails readiness.
func NewHealthHandler(serviceName, version string, postgres *persistence.Postgres, redis *persistence.Redis) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		probes: map[string]probe{
			"postgres": func(ctx context.Context) (string, bool) {
				if !postgres.Enabled() {
					return "in-memory", true
				}
				return pingState(postgres.Ping(ctx))
			},
			"redis": func(ctx context.Context) (string, bool) {
				err := redis.Ping(ctx)
				if errors.Is(err, persistence.ErrRedisDisabled) {
					return "disabled", true
				}
				return pingState(err)
			},
		},
	}
}

func pingState(err error) (string, bool) {
	if err != nil {
		return "unreachable", false
	}
	return "ok", true
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready checks every dependency and answers 503 if any configured one is down.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	states := fiber.Map{}
	ready := true
	for name, check := range h.probes {
		state, healthy := check(ctx)
		states[name] = state
		ready = ready && healthy
	}

	if !ready {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "DEPENDENCY_UNAVAILABLE",
				"message": "one or more dependencies unavailable",
				"details": states,
			},
		})
	}
	return c.JSON(fiber.Map{"status": "ready", "dependencies": states})
}
