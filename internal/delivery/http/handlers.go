package http

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/nammatraffic/backend/internal/domain"
	"github.com/nammatraffic/backend/internal/service"
)

// Handler contains all HTTP handlers
type Handler struct {
	system *service.System
}

// NewHandler creates a new handler
func NewHandler(system *service.System) *Handler {
	return &Handler{system: system}
}

// HealthCheck returns service health including control loop status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	loop := h.system.LoopHealth()

	storage := "ok"
	if err := h.system.StorageHealth(c.Context()); err != nil {
		storage = "unavailable"
	}

	status := "ok"
	if loop.Degraded() {
		status = "degraded"
	}

	return c.JSON(fiber.Map{
		"status":  status,
		"service": "nammatraffic-backend",
		"version": "1.0.0",
		"loop":    loop,
		"storage": storage,
	})
}

// GetTrafficData returns the latest published snapshots, signal states
// and system stats
func (h *Handler) GetTrafficData(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.system.Snapshot(),
	})
}

// ControlSignal applies a manual override to one signal
func (h *Handler) ControlSignal(c *fiber.Ctx) error {
	var req domain.OverrideRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.PointID) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "point_id is required")
	}

	state, err := h.system.Override(req)
	if err != nil {
		var pointErr *domain.PointError
		if errors.As(err, &pointErr) {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		var cmdErr *domain.CommandError
		if errors.As(err, &cmdErr) {
			return fiber.NewError(fiber.StatusConflict, err.Error())
		}
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to apply signal override")
	}

	return c.JSON(domain.OverrideResponse{
		Success:     true,
		SignalState: state,
	})
}

// GetAnalytics returns the monitoring report across all points
func (h *Handler) GetAnalytics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.system.Analytics(),
	})
}

// GetPoints returns the configured traffic point catalog
func (h *Handler) GetPoints(c *fiber.Ctx) error {
	points := h.system.Points()
	return c.JSON(fiber.Map{
		"success": true,
		"data":    points,
		"count":   len(points),
	})
}

// OptimizeRoute estimates current travel time between two points
func (h *Handler) OptimizeRoute(c *fiber.Ctx) error {
	var req domain.RouteRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if req.From == "" || req.To == "" {
		return fiber.NewError(fiber.StatusBadRequest, "from and to are required")
	}

	estimate, err := h.system.OptimizeRoute(req.From, req.To)
	if err != nil {
		var pointErr *domain.PointError
		if errors.As(err, &pointErr) {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to optimize route")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    estimate,
	})
}

// GetModelPerformance returns evaluation metrics for every timing model
func (h *Handler) GetModelPerformance(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.system.ModelPerformance(),
	})
}

// GetTrafficHistory returns stored snapshots for one point
func (h *Handler) GetTrafficHistory(c *fiber.Ctx) error {
	ctx := c.Context()

	pointID := c.Query("point_id")
	if pointID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "point_id is required")
	}

	hours := c.QueryInt("hours", 24)
	if hours < 1 || hours > 720 { // max 30 days
		hours = 24
	}

	data, err := h.system.History(ctx, pointID, hours)
	if err != nil {
		var pointErr *domain.PointError
		if errors.As(err, &pointErr) {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch traffic history")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
		"count":   len(data),
	})
}
