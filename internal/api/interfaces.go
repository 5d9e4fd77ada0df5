// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/charge-telemetry/backend/internal/models"
	"github.com/charge-telemetry/backend/internal/replay"
)

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// CANHandler handles CAN replay operations
type CANHandler interface {
	HandleChargeMonitor(c echo.Context) error
	HandleChargeSummary(c echo.Context) error
	HandleCanConfig(c echo.Context) error
	HandleListReplays(c echo.Context) error
}

// CarbonHandler handles per-user carbon ledger operations
type CarbonHandler interface {
	HandleSaveCarbonReduction(c echo.Context) error
	HandleSaveCarbonPoints(c echo.Context) error
	HandleGetCarbonReduction(c echo.Context) error
	HandleGetCarbonPoints(c echo.Context) error
}

// Replayer runs one replay and pushes its records to emit
type Replayer interface {
	Run(ctx context.Context, req replay.Request, emit replay.Emitter) replay.Result
}

// ReplayRegistry tracks active replays
type ReplayRegistry interface {
	Start(log string, skipIdle bool, duration *float64) (*models.ReplayInfo, error)
	Observe(id string, record any)
	Finish(id string, status models.ReplayStatus)
	List() []*models.ReplayInfo
	Len() int
	Capacity() int
}
