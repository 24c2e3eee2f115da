// Package handlers provides HTTP request handlers for the service.
package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jsamuelsen/quote-sync/internal/ports"
)

// BuildInfo is stamped at link time.
type BuildInfo struct {
	Service   string `json:"service"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
}

// NewBuildInfo fills in the running Go version.
func NewBuildInfo(service, version, commit, buildTime string) BuildInfo {
	return BuildInfo{Service: service, Version: version, Commit: commit, BuildTime: buildTime, GoVersion: runtime.Version()}
}

// HealthHandler serves the operator endpoints under /-/.
type HealthHandler struct {
	registry ports.HealthRegistry
	build    BuildInfo
	started  time.Time
}

func NewHealthHandler(registry ports.HealthRegistry, build BuildInfo) *HealthHandler {
	return &HealthHandler{registry: registry, build: build, started: time.Now()}
}

type liveResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// Live answers as long as the process serves requests.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, liveResponse{Status: "ok", UptimeSeconds: int64(time.Since(h.started).Seconds())})
}

// Ready runs the registered checks. Only an unhealthy result answers 503:
// a degraded service still serves the local collection.
func (h *HealthHandler) Ready(c *gin.Context) {
	result := h.registry.CheckAll(c.Request.Context())

	code := http.StatusOK
	if result.Status == ports.HealthStatusUnhealthy {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, result)
}

// Build reports the link-time build stamp.
func (h *HealthHandler) Build(c *gin.Context) {
	c.JSON(http.StatusOK, h.build)
}

// RegisterRoutes mounts live, ready, build and the Prometheus scrape
// endpoint under /-/.
func (h *HealthHandler) RegisterRoutes(engine *gin.Engine) {
	ops := engine.Group("/-")
	ops.GET("/live", h.Live)
	ops.GET("/ready", h.Ready)
	ops.GET("/build", h.Build)
	ops.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
