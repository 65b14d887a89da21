package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spacetraveling/internal/logger"
	"github.com/spacetraveling/internal/trace"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

// requestFields adds the request id and path to log fields.
func requestFields(c *gin.Context, fields logger.Fields) logger.Fields {
	if fields == nil {
		fields = logger.Fields{}
	}
	fields["request_id"] = trace.RequestIDFromContext(c.Request.Context())
	fields["path"] = c.Request.URL.Path
	return fields
}
