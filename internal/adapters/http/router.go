package http

import (
	"log/slog"
	nethttp "net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

// NewRouter assembles the Fiber application: the controller's own
// healthcheck, the metrics endpoint, the management API (token-guarded when
// a token is configured), and the subdomain proxy in front of everything.
func NewRouter(h *DeploymentHandler, p *ProxyHandler, logger *slog.Logger, apiToken string, metricsHandler nethttp.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	app.Use(RequestLogger(logger))
	if p != nil {
		app.Use(p.ProxyRequest)
	}

	app.Get("/healthcheck", h.Healthcheck)
	if metricsHandler != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metricsHandler))
	}

	api := app.Group("/api")
	if apiToken != "" {
		api.Use(BearerAuth(apiToken))
	}
	v1 := api.Group("/v1")

	deployments := v1.Group("/deployments")
	deployments.Get("/", h.ListDeployments)
	deployments.Post("/", h.CreateDeployment)
	deployments.Get("/:name", h.GetDeployment)
	deployments.Delete("/:name", h.DeleteDeployment)
	deployments.Get("/:name/logs", h.GetDeploymentLogs)
	deployments.Get("/:name/health", h.GetDeploymentHealth)

	return app
}
