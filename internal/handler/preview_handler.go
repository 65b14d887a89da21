package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/spacetraveling/internal/logger"
	"github.com/spacetraveling/internal/service"
)

const previewSessionKey = "preview_ref"

// Preview enters preview mode for the ref in token and redirects to the
// previewed document.
func (a *API) Preview(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		respondError(c, http.StatusBadRequest, "missing preview token")
		return
	}

	path, err := a.posts.PreviewPath(c.Request.Context(), c.Query("documentId"), token)
	if errors.Is(err, service.ErrPostNotFound) {
		c.Header("Cache-Control", "no-store")
		a.renderHTML(c, http.StatusNotFound, "not_found.html", gin.H{"title": a.labels.NotFound})
		return
	}
	if err != nil {
		a.renderContentError(c, "/", err)
		return
	}

	session := sessions.Default(c)
	session.Set(previewSessionKey, token)
	if err := session.Save(); err != nil {
		logger.ErrorWithFields("save preview session failed", requestFields(c, logger.Fields{"error": err.Error()}))
		respondError(c, http.StatusInternalServerError, "could not start preview")
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, path)
}

// ExitPreview leaves preview mode.
func (a *API) ExitPreview(c *gin.Context) {
	session := sessions.Default(c)
	session.Delete(previewSessionKey)
	if err := session.Save(); err != nil {
		logger.ErrorWithFields("clear preview session failed", requestFields(c, logger.Fields{"error": err.Error()}))
	}
	c.Redirect(http.StatusTemporaryRedirect, "/")
}

// previewRef returns the preview ref of the session, or "" outside preview.
func (a *API) previewRef(c *gin.Context) string {
	ref, _ := sessions.Default(c).Get(previewSessionKey).(string)
	return strings.TrimSpace(ref)
}
