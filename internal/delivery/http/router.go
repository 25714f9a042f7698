package http

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/nammatraffic/backend/internal/metrics"
	"github.com/nammatraffic/backend/internal/service"
)

// SetupRoutes configures all HTTP routes
func SetupRoutes(app *fiber.App, system *service.System) {
	handler := NewHandler(system)

	// Health check and Prometheus metrics
	app.Get("/health", handler.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	// Live update feed
	app.Use("/ws", UpgradeRequired)
	app.Get("/ws/traffic", websocket.New(handler.StreamTraffic))

	// API v1 routes
	api := app.Group("/api/v1")
	{
		// Live state endpoints
		api.Get("/traffic", handler.GetTrafficData)
		api.Get("/points", handler.GetPoints)
		api.Get("/analytics", handler.GetAnalytics)
		api.Get("/models/performance", handler.GetModelPerformance)
		api.Get("/history/traffic", handler.GetTrafficHistory)

		// Control endpoints
		api.Post("/signals/control", handler.ControlSignal)
		api.Post("/routes/optimize", handler.OptimizeRoute)
	}
}
