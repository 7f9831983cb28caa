package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

const readyTimeout = 3 * time.Second

var errDisconnected = errors.New("disconnected")

// HealthHandler returns a basic liveness check.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(startedAt).String(),
			"version": "dev",
		})
	}
}

// probe checks one optional backend. A nil check means the backend is not
// configured, which does not make the service unready.
type probe struct {
	name  string
	check func(ctx context.Context) error
}

func (d *Dependencies) probes() []probe {
	out := []probe{{name: "database"}, {name: "nats"}, {name: "cache"}}
	if d.DB != nil {
		out[0].check = d.DB.Ping
	}
	if d.NATS != nil {
		nc := d.NATS
		out[1].check = func(context.Context) error {
			if !nc.IsConnected() {
				return errDisconnected
			}
			return nil
		}
	}
	if d.Cache != nil {
		out[2].check = d.Cache.Ping
	}
	return out
}

// ReadyHandler probes the configured backends. The upstream traffic and
// routing services are not probed; their failures surface per request.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), readyTimeout)
		defer cancel()

		checks := make(map[string]string)
		allOK := true
		for _, p := range deps.probes() {
			if p.check == nil {
				checks[p.name] = "not configured"
				continue
			}
			if err := p.check(ctx); err != nil {
				checks[p.name] = "error: " + err.Error()
				allOK = false
				continue
			}
			checks[p.name] = "ok"
		}

		status, code := "ready", fiber.StatusOK
		if !allOK {
			status, code = "not ready", fiber.StatusServiceUnavailable
		}
		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	}
}
