package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	activitydomain "github.com/stackspendlabs/stackspend/internal/activity/domain"
)

// @Summary      List Activity
// @Description  Recent activity events for the organization, newest first
// @Tags         activity
// @Produce      json
// @Param        X-Org-ID     header  string  true   "Organization ID"
// @Param        entity_type  query   string  false  "Filter by entity type"
// @Param        action       query   string  false  "Filter by action"
// @Success      200  {object}  ListResponse
// @Router       /activity [get]
func (s *Server) ListActivity(c *gin.Context) {
	resp, err := s.activitySvc.List(c.Request.Context(), activitydomain.ListEventRequest{
		EntityType: strings.TrimSpace(c.Query("entity_type")),
		Action:     strings.TrimSpace(c.Query("action")),
		PageToken:  c.Query("page_token"),
		PageSize:   pageSizeFromQuery(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondList(c, resp.Events, &resp.PageInfo)
}
