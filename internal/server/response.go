package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stackspendlabs/stackspend/pkg/db/pagination"
)

func respondData(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func respondList(c *gin.Context, data any, pageInfo *pagination.PageInfo) {
	if pageInfo == nil {
		c.JSON(http.StatusOK, gin.H{"data": data})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": data, "page_info": pageInfo})
}

func idempotencyKeyFromHeader(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader("Idempotency-Key"))
}
