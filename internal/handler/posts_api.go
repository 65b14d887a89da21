package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/spacetraveling/internal/logger"
	"github.com/spacetraveling/internal/service"
)

// ListPostsAPI returns one page of summaries as {next_page, results}. Without
// a cursor it returns the first page.
func (a *API) ListPostsAPI(c *gin.Context) {
	cursor := strings.TrimSpace(c.Query("cursor"))

	var (
		page service.PostPagination
		err  error
	)
	if cursor == "" {
		page, err = a.posts.ListSummaries(c.Request.Context(), a.previewRef(c))
	} else {
		page, err = a.posts.LoadPage(c.Request.Context(), cursor)
	}

	switch {
	case err == nil:
	case errors.Is(err, service.ErrForeignCursor):
		respondError(c, http.StatusBadRequest, "invalid cursor")
		return
	default:
		logger.ErrorWithFields("list posts api failed", requestFields(c, logger.Fields{"error": err.Error()}))
		respondError(c, http.StatusBadGateway, "content service unavailable")
		return
	}

	if page.Results == nil {
		page.Results = []service.PostSummary{}
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, page)
}
