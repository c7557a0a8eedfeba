package handlers

import (
	"os"

	"github.com/gofiber/fiber/v3"

	"permitscope/internal/dataset"
)

// ProbeHandler handles Kubernetes health probe endpoints.
type ProbeHandler struct {
	dataDir  string
	registry *dataset.Registry
}

// NewProbeHandler creates a new probe handler.
func NewProbeHandler(dataDir string, registry *dataset.Registry) *ProbeHandler {
	return &ProbeHandler{dataDir: dataDir, registry: registry}
}

// Liveness handles the /healthz endpoint for Kubernetes liveness probes.
// Returns 200 OK if the application is running.
func (h *ProbeHandler) Liveness(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
	})
}

// Readiness handles the /readyz endpoint for Kubernetes readiness probes.
// Returns 200 OK if the data directory is reachable.
func (h *ProbeHandler) Readiness(c fiber.Ctx) error {
	if _, err := os.Stat(h.dataDir); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "error",
			"error":  "data directory unavailable",
		})
	}

	return c.JSON(fiber.Map{
		"status": "ok",
		"states": len(h.registry.States()),
	})
}
