package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"url-relay/internal/config"
	"url-relay/internal/metrics"
)

// OpsRoutes lists the fixed operational routes, used for metric labels.
func OpsRoutes(cfg *config.Config) []string {
	routes := []string{config.OpsPrefix + "healthz", config.OpsPrefix + "status"}
	if cfg.Metrics.Enabled {
		routes = append(routes, cfg.Metrics.Path)
	}
	return routes
}

// RegisterRoutes wires all route handlers onto the Echo instance.
func RegisterRoutes(e *echo.Echo, cfg *config.Config, relay *RelayHandler, health *HealthHandler, m *metrics.Metrics) {
	e.GET(config.OpsPrefix+"healthz", health.Healthz)
	e.GET(config.OpsPrefix+"status", health.Status)

	if cfg.Metrics.Enabled && m != nil {
		e.GET(cfg.Metrics.Path, echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	}

	e.GET(relayRoutePattern, relay.Handle)
}
