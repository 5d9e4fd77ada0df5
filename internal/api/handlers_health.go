// handlers_health.go - Health check handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version  string
	registry ReplayRegistry
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, registry ReplayRegistry) HealthHandler {
	return &HealthHandlerImpl{
		version:  version,
		registry: registry,
	}
}

// HandleHealth returns server health status
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	body := map[string]interface{}{
		"status":  "ok",
		"version": h.version,
	}
	if h.registry != nil {
		body["activeReplays"] = h.registry.Len()
		body["maxReplays"] = h.registry.Capacity()
	}
	return c.JSON(http.StatusOK, body)
}
