package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spacetraveling/internal/logger"
	"golang.org/x/crypto/bcrypt"
)

// revalidateRequest is the content webhook payload.
type revalidateRequest struct {
	Secret string `json:"secret" binding:"required"`
	Type   string `json:"type"`
	Domain string `json:"domain"`
}

// Revalidate drops every generated page so the next requests render fresh
// content.
func (a *API) Revalidate(c *gin.Context) {
	if a.opts.RevalidateSecretHash == "" {
		respondError(c, http.StatusNotFound, "revalidation is disabled")
		return
	}

	var req revalidateRequest
	if !bindJSON(c, &req, "invalid webhook payload") {
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.opts.RevalidateSecretHash), []byte(req.Secret)); err != nil {
		respondError(c, http.StatusUnauthorized, "invalid secret")
		return
	}

	if err := a.pages.Purge(c.Request.Context()); err != nil {
		logger.ErrorWithFields("purge generated pages failed", requestFields(c, logger.Fields{"error": err.Error()}))
		respondError(c, http.StatusInternalServerError, "could not purge pages")
		return
	}

	logger.InfoWithFields("generated pages purged", requestFields(c, logger.Fields{
		"type":   req.Type,
		"domain": req.Domain,
	}))
	c.JSON(http.StatusOK, gin.H{"revalidated": true})
}
