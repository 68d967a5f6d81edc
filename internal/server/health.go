package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerHealthRoutes(reg *prometheus.Registry) {
	s.engine.GET("/healthz", s.Healthz)
	s.engine.GET("/readyz", s.Readyz)

	// The gorm prometheus plugin registers against the default registerer, so
	// /metrics serves both registries.
	gatherers := prometheus.Gatherers{reg, prometheus.DefaultGatherer}
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{})))
}

// Healthz reports process liveness only.
func (s *Server) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz verifies the backing stores are reachable.
func (s *Server) Readyz(c *gin.Context) {
	ctx := c.Request.Context()

	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "component": "database"})
		return
	}

	if err := s.redis.Ping(ctx).Err(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "component": "redis"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
