package handlers

import (
	"rewards-dashboard/metrics"
	"rewards-dashboard/middleware"
	"rewards-dashboard/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

// Setup mounts every route on app. limiter may be nil.
func Setup(app *fiber.App, svc *services.Services, limiter *middleware.RateLimiter) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	var mw []fiber.Handler
	if limiter != nil {
		mw = append(mw, limiter.Handler())
	}
	api := app.Group("/api", mw...)

	SetupUserRoutes(api, svc)
	SetupRewardRoutes(api, svc)
	SetupExtensionRoutes(api, svc.Extension)
	SetupAdminRoutes(api, svc)
}
