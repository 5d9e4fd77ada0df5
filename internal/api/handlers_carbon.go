// handlers_carbon.go - Per-user carbon reduction and reward point handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/charge-telemetry/backend/internal/charge"
	"github.com/charge-telemetry/backend/internal/storage"
)

// HeaderUserID carries the caller identity. Authentication happens upstream.
const HeaderUserID = "X-User-ID"

// CarbonHandlerImpl implements the CarbonHandler interface
type CarbonHandlerImpl struct {
	ledger storage.UserLedger
	calc   charge.Calculator
	log    logrus.FieldLogger
}

// NewCarbonHandler creates a new carbon handler instance
func NewCarbonHandler(ledger storage.UserLedger, calc charge.Calculator, logger logrus.FieldLogger) CarbonHandler {
	return &CarbonHandlerImpl{
		ledger: ledger,
		calc:   calc,
		log:    logger,
	}
}

type saveCarbonReductionRequest struct {
	TotalKWh float64 `json:"total_kwh"`
}

type saveCarbonPointsRequest struct {
	CarbonKg float64 `json:"carbon_kg"`
}

type carbonReductionResponse struct {
	TotalCarbonReductionKg float64 `json:"total_carbon_reduction_kg"`
}

type carbonPointsResponse struct {
	CarbonRewardPoints float64 `json:"carbon_reward_points"`
}

func userID(c echo.Context) (string, error) {
	id := c.Request().Header.Get(HeaderUserID)
	if id == "" {
		return "", NewUnauthorizedError("missing " + HeaderUserID + " header")
	}
	return id, nil
}

// HandleSaveCarbonReduction converts charged energy to carbon reduction and adds it to the user total
func (h *CarbonHandlerImpl) HandleSaveCarbonReduction(c echo.Context) error {
	user, err := userID(c)
	if err != nil {
		return err
	}

	var req saveCarbonReductionRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if !(req.TotalKWh > 0) {
		return NewValidationError("total_kwh")
	}

	kg := h.calc.CarbonForEnergy(req.TotalKWh)
	total, err := h.ledger.AddCarbonReduction(c.Request().Context(), user, kg)
	if err != nil {
		return NewInternalError("failed to save carbon reduction", err)
	}

	h.log.WithFields(logrus.Fields{"user": user, "total_kwh": req.TotalKWh, "carbon_kg": kg}).Info("carbon reduction saved")
	return c.JSON(http.StatusOK, carbonReductionResponse{TotalCarbonReductionKg: total})
}

// HandleSaveCarbonPoints converts carbon reduction to reward points and adds them to the user total
func (h *CarbonHandlerImpl) HandleSaveCarbonPoints(c echo.Context) error {
	user, err := userID(c)
	if err != nil {
		return err
	}

	var req saveCarbonPointsRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if !(req.CarbonKg > 0) {
		return NewValidationError("carbon_kg")
	}

	points := h.calc.PointsForCarbon(req.CarbonKg)
	total, err := h.ledger.AddRewardPoints(c.Request().Context(), user, points)
	if err != nil {
		return NewInternalError("failed to save carbon points", err)
	}

	h.log.WithFields(logrus.Fields{"user": user, "carbon_kg": req.CarbonKg, "points": points}).Info("reward points saved")
	return c.JSON(http.StatusOK, carbonPointsResponse{CarbonRewardPoints: total})
}

// HandleGetCarbonReduction returns the user's accumulated carbon reduction
func (h *CarbonHandlerImpl) HandleGetCarbonReduction(c echo.Context) error {
	user, err := userID(c)
	if err != nil {
		return err
	}

	totals, err := h.ledger.Totals(c.Request().Context(), user)
	if err != nil {
		return NewInternalError("failed to read carbon reduction", err)
	}
	return c.JSON(http.StatusOK, carbonReductionResponse{TotalCarbonReductionKg: totals.TotalCarbonReductionKg})
}

// HandleGetCarbonPoints returns the user's accumulated reward points
func (h *CarbonHandlerImpl) HandleGetCarbonPoints(c echo.Context) error {
	user, err := userID(c)
	if err != nil {
		return err
	}

	totals, err := h.ledger.Totals(c.Request().Context(), user)
	if err != nil {
		return NewInternalError("failed to read carbon points", err)
	}
	return c.JSON(http.StatusOK, carbonPointsResponse{CarbonRewardPoints: totals.CarbonRewardPoints})
}
