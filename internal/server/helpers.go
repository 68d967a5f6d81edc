package server

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	activitydomain "github.com/stackspendlabs/stackspend/internal/activity/domain"
	"go.uber.org/zap"
)

func pageSizeFromQuery(c *gin.Context) int32 {
	raw := strings.TrimSpace(c.Query("page_size"))
	if raw == "" {
		return 0
	}
	size, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || size < 0 {
		return 0
	}
	return int32(size)
}

// invalidateReports drops cached reports after a spend-affecting mutation.
// Best-effort: a stale cache expires by TTL anyway.
func (s *Server) invalidateReports(c *gin.Context) {
	if s.reportSvc == nil {
		return
	}
	if err := s.reportSvc.Invalidate(c.Request.Context()); err != nil {
		s.log.Warn("failed to invalidate report cache", zap.Error(err))
	}
}

// recordActivity appends to the feed best-effort. A feed write must never
// fail the request that caused it.
func (s *Server) recordActivity(c *gin.Context, action, entityType, entityID string, payload map[string]any) {
	if s.activitySvc == nil {
		return
	}
	_, err := s.activitySvc.Record(c.Request.Context(), activitydomain.RecordEventRequest{
		Actor:      strings.TrimSpace(c.GetHeader("X-Actor")),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Payload:    payload,
	})
	if err != nil {
		s.log.Warn("failed to record activity event",
			zap.String("action", action),
			zap.Error(err),
		)
	}
}
