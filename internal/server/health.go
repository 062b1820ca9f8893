package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultFailureLimit = 50

func (s *Server) Healthz(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) MetricsHandler() gin.HandlerFunc {
	if s.registry == nil {
		return gin.WrapH(promhttp.Handler())
	}
	gatherers := prometheus.Gatherers{s.registry, prometheus.DefaultGatherer}
	return gin.WrapH(promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{}))
}

// ListTaskFailures shows background task attempts that failed, newest first.
func (s *Server) ListTaskFailures(c *gin.Context) {
	if s.failures == nil {
		respondList(c, []any{}, 0)
		return
	}

	limit := defaultFailureLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			AbortWithError(c, newValidationError("limit", "invalid_limit", "limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	failures, err := s.failures.ListFailures(c.Request.Context(), strings.TrimSpace(c.Query("type")), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondList(c, failures, len(failures))
}
