package main

import (
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	fiberlog "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/moogar0880/problems"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// newAdminApp builds the worker's tiny admin HTTP surface: a liveness
// health check always mounted at /_health, and /metrics mounted only when
// metricsEnabled is true.
func newAdminApp(logger *slog.Logger, registry *prometheus.Registry, metricsEnabled bool) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "beamline-worker",
	})

	app.Use(cors.New())
	app.Use(fiberlog.New())
	app.Use(func(c fiber.Ctx) error {
		err := c.Next()
		if err == nil {
			return nil
		}

		prob := problems.NewDetailedProblem(fiber.StatusInternalServerError, err.Error())
		logger.Error("admin request failed", "error", err.Error(), "path", c.Path())

		return c.Status(prob.Status).JSON(prob)
	})

	app.Get("/_health", healthcheck.NewHealthChecker(healthcheck.Config{
		Probe: func(c fiber.Ctx) bool { return true },
	}))

	if metricsEnabled {
		handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
		app.Get("/metrics", adaptor.HTTPHandler(handler))
	}

	return app
}
