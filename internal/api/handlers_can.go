// handlers_can.go - CAN replay streaming and summary handlers
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/charge-telemetry/backend/internal/charge"
	"github.com/charge-telemetry/backend/internal/models"
	"github.com/charge-telemetry/backend/internal/replay"
	"github.com/charge-telemetry/backend/internal/session"
	"github.com/charge-telemetry/backend/internal/storage"
)

// MIMEApplicationMsgpack is the content type of MessagePack responses
const MIMEApplicationMsgpack = "application/msgpack"

// CANHandlerImpl implements the CANHandler interface
type CANHandlerImpl struct {
	engine   Replayer
	catalog  *storage.Catalog
	registry ReplayRegistry
	calc     charge.Calculator
	log      logrus.FieldLogger
}

// NewCANHandler creates a new CAN handler instance
func NewCANHandler(engine Replayer, catalog *storage.Catalog, registry ReplayRegistry, calc charge.Calculator, logger logrus.FieldLogger) CANHandler {
	return &CANHandlerImpl{
		engine:   engine,
		catalog:  catalog,
		registry: registry,
		calc:     calc,
		log:      logger,
	}
}

// parseReplayRequest reads log, skip_idle and duration query parameters
func (h *CANHandlerImpl) parseReplayRequest(c echo.Context) (replay.Request, error) {
	req := replay.Request{
		Log:      c.QueryParam("log"),
		SkipIdle: true,
	}
	if req.Log == "" {
		req.Log = h.catalog.DefaultLog()
	}

	if v := c.QueryParam("skip_idle"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return req, NewValidationError("skip_idle")
		}
		req.SkipIdle = b
	}

	if v := c.QueryParam("duration"); v != "" {
		d, err := strconv.ParseFloat(v, 64)
		if err != nil || d <= 0 || math.IsInf(d, 0) || math.IsNaN(d) {
			return req, NewValidationError("duration")
		}
		req.Duration = &d
	}

	return req, nil
}

// HandleChargeMonitor streams a replay as Server-Sent Events
func (h *CANHandlerImpl) HandleChargeMonitor(c echo.Context) error {
	req, err := h.parseReplayRequest(c)
	if err != nil {
		return err
	}

	info, err := h.registry.Start(req.Log, req.SkipIdle, req.Duration)
	if err != nil {
		if errors.Is(err, session.ErrAtCapacity) {
			return NewReplayCapacityError(h.registry.Capacity())
		}
		return NewInternalError("failed to register replay", err)
	}

	// Set SSE headers
	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	c.Response().Header().Set("X-Replay-ID", info.ID)
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Flush()

	res := h.engine.Run(c.Request().Context(), req, func(record any) error {
		if err := h.sendSSEData(c, record); err != nil {
			return err
		}
		h.registry.Observe(info.ID, record)
		return nil
	})
	h.registry.Finish(info.ID, res.Status)

	return nil
}

// HandleChargeSummary runs a replay to completion and returns only the summary
func (h *CANHandlerImpl) HandleChargeSummary(c echo.Context) error {
	req, err := h.parseReplayRequest(c)
	if err != nil {
		return err
	}

	info, err := h.registry.Start(req.Log, req.SkipIdle, req.Duration)
	if err != nil {
		if errors.Is(err, session.ErrAtCapacity) {
			return NewReplayCapacityError(h.registry.Capacity())
		}
		return NewInternalError("failed to register replay", err)
	}

	var summary *models.SummaryRecord
	res := h.engine.Run(c.Request().Context(), req, func(record any) error {
		h.registry.Observe(info.ID, record)
		if s, ok := record.(*models.SummaryRecord); ok {
			summary = s
		}
		return nil
	})
	h.registry.Finish(info.ID, res.Status)

	if res.Err != nil {
		return replayError(res.Err, req.Log, h.catalog.Names(), h.catalog.SignalDBPath())
	}
	if summary == nil {
		return NewReplayInterruptedError()
	}

	if wantsMsgpack(c) {
		data, err := encodeMsgpack(summary)
		if err != nil {
			return NewInternalError("failed to encode msgpack", err)
		}
		return c.Blob(http.StatusOK, MIMEApplicationMsgpack, data)
	}
	return c.JSON(http.StatusOK, summary)
}

// HandleCanConfig reports data locations, resource availability and conversion constants
func (h *CANHandlerImpl) HandleCanConfig(c echo.Context) error {
	dbcPath := h.catalog.SignalDBPath()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"dbc_file":                 dbcPath,
		"dbc_exists":               h.catalog.Exists(dbcPath),
		"can_data_dir":             h.catalog.DataDir(),
		"default_log":              h.catalog.DefaultLog(),
		"available_logs":           h.catalog.LogStatuses(),
		"carbon_factor_kg_per_kwh": h.calc.CarbonFactorKgPerKWh,
		"carbon_to_points_rate":    h.calc.PointsPerKgCarbon,
	})
}

// HandleListReplays lists the replays currently streaming
func (h *CANHandlerImpl) HandleListReplays(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"replays":  h.registry.List(),
		"active":   h.registry.Len(),
		"capacity": h.registry.Capacity(),
	})
}

func (h *CANHandlerImpl) sendSSEData(c echo.Context, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(c.Response(), "data: %s\n\n", jsonData); err != nil {
		return err
	}
	c.Response().Flush()
	return nil
}

func wantsMsgpack(c echo.Context) bool {
	if c.QueryParam("format") == "msgpack" {
		return true
	}
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), MIMEApplicationMsgpack)
}

// encodeMsgpack encodes v with its JSON field names so both formats share one schema
func encodeMsgpack(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
