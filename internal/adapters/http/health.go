package http

import (
	"os"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
)

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

// ReadyHandler checks that track data is published and NATS is reachable.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		checks := make(map[string]string)
		allOK := true

		// Data directory
		if _, err := os.Stat(deps.DataDir); err != nil {
			checks["data_dir"] = "error: " + err.Error()
			allOK = false
		} else {
			checks["data_dir"] = "ok"
		}

		// Point stream is the core artifact; without it there is nothing to serve.
		if _, err := os.Stat(filepath.Join(deps.DataDir, pointStreamFile)); err != nil {
			checks["point_stream"] = "missing"
			allOK = false
		} else {
			checks["point_stream"] = "ok"
		}

		if _, err := os.Stat(filepath.Join(deps.DataDir, summaryFile)); err != nil {
			checks["summary"] = "missing"
		} else {
			checks["summary"] = "ok"
		}

		// NATS
		if deps.NATS != nil {
			if deps.NATS.IsConnected() {
				checks["nats"] = "ok"
			} else {
				checks["nats"] = "disconnected"
				allOK = false
			}
		} else {
			checks["nats"] = "not configured"
		}

		status := "ready"
		code := 200
		if !allOK {
			status = "not ready"
			code = 503
		}

		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	}
}
