package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spacetraveling/internal/logger"
)

// Healthz reports whether the content API answers.
func (a *API) Healthz(c *gin.Context) {
	if _, err := a.posts.ResolveRef(c.Request.Context(), ""); err != nil {
		logger.WarnWithFields("health check failed", requestFields(c, logger.Fields{"error": err.Error()}))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
