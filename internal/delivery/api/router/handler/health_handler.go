package handler

import (
	"net/http"

	"gatekeeper/internal/delivery/api/response"
	"gatekeeper/internal/infra/metrics"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

// HealthCheck is a simple handler to check if the service is up.
func HealthCheck(c echo.Context) error {
	return response.Success(c, http.StatusOK, map[string]string{"status": "ok"})
}

// MetricsHandler exposes the Prometheus registry.
func MetricsHandler(gatherer prometheus.Gatherer) echo.HandlerFunc {
	return echo.WrapHandler(metrics.Handler(gatherer))
}
