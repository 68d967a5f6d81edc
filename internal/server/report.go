package server

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// @Summary      Spend Summary
// @Description  Aggregate monthly and annual spend for the organization
// @Tags         reports
// @Produce      json
// @Param        X-Org-ID  header  string  true  "Organization ID"
// @Success      200  {object}  DataResponse
// @Router       /reports/summary [get]
func (s *Server) GetSpendSummary(c *gin.Context) {
	resp, err := s.reportSvc.SpendSummary(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

// @Summary      Upcoming Renewals
// @Description  Subscriptions renewing within the window, soonest first
// @Tags         reports
// @Produce      json
// @Param        X-Org-ID     header  string  true   "Organization ID"
// @Param        window_days  query   int     false  "Renewal window in days"
// @Success      200  {object}  DataResponse
// @Router       /reports/renewals [get]
func (s *Server) GetUpcomingRenewals(c *gin.Context) {
	windowDays := 0
	if raw := strings.TrimSpace(c.Query("window_days")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			AbortWithError(c, newValidationError("window_days", "invalid_window", "window_days must be a non-negative integer"))
			return
		}
		windowDays = parsed
	}

	resp, err := s.reportSvc.UpcomingRenewals(c.Request.Context(), windowDays)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

// @Summary      Category Breakdown
// @Description  Monthly-equivalent spend per category
// @Tags         reports
// @Produce      json
// @Param        X-Org-ID  header  string  true  "Organization ID"
// @Success      200  {object}  DataResponse
// @Router       /reports/categories [get]
func (s *Server) GetCategoryBreakdown(c *gin.Context) {
	resp, err := s.reportSvc.CategoryBreakdown(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}
