package handler

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spacetraveling/internal/locale"
	"github.com/spacetraveling/internal/logger"
	"github.com/spacetraveling/internal/pagecache"
	"github.com/spacetraveling/internal/service"
	"github.com/spacetraveling/internal/trace"
)

const pageSourceHeader = "X-Page-Source"

type postView struct {
	Title       string
	BannerURL   string
	BannerAlt   string
	Author      string
	Date        string
	DateISO     string
	ReadingTime string
	EditedAt    string
	Sections    []sectionView
}

type sectionView struct {
	Heading string
	Body    template.HTML
}

// ShowHome renders the listing page.
func (a *API) ShowHome(c *gin.Context) {
	if ref := a.previewRef(c); ref != "" {
		page, err := a.renderHome(c.Request.Context(), ref)
		a.writeFresh(c, "/", page, err)
		return
	}
	a.serveGenerated(c, "/", func(ctx context.Context) (pagecache.Page, error) {
		return a.renderHome(ctx, "")
	})
}

// LoadMorePosts returns the next batch of post cards plus a new load-more
// button for the listing page.
func (a *API) LoadMorePosts(c *gin.Context) {
	cursor := strings.TrimSpace(c.Query("cursor"))
	page, err := a.posts.LoadPage(c.Request.Context(), cursor)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrNoMorePages):
		c.Status(http.StatusNoContent)
		return
	case errors.Is(err, service.ErrForeignCursor):
		c.String(http.StatusBadRequest, "")
		return
	default:
		logger.ErrorWithFields("load more posts failed", requestFields(c, logger.Fields{"error": err.Error()}))
		a.renderHTML(c, http.StatusBadGateway, "load_more_error", gin.H{"cursor": cursor})
		return
	}

	c.Header("Cache-Control", "no-store")
	a.renderHTML(c, http.StatusOK, "post_cards", gin.H{
		"posts":    page.Results,
		"nextPage": page.NextPage,
	})
}

// ShowPostDetail renders a post, generating it on first request.
func (a *API) ShowPostDetail(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))
	route := service.PostPath(slug)
	if ref := a.previewRef(c); ref != "" {
		page, err := a.renderPost(c.Request.Context(), slug, ref)
		a.writeFresh(c, route, page, err)
		return
	}
	a.serveGenerated(c, route, func(ctx context.Context) (pagecache.Page, error) {
		return a.renderPost(ctx, slug, "")
	})
}

func (a *API) renderHome(ctx context.Context, previewRef string) (pagecache.Page, error) {
	first, err := a.posts.ListSummaries(ctx, previewRef)
	if err != nil {
		return pagecache.Page{}, err
	}
	return a.renderPage(http.StatusOK, "home.html", gin.H{
		"posts":    first.Results,
		"nextPage": first.NextPage,
	}, previewRef != "")
}

func (a *API) renderPost(ctx context.Context, slug, previewRef string) (pagecache.Page, error) {
	preview := previewRef != ""
	ref, err := a.posts.ResolveRef(ctx, previewRef)
	if err != nil {
		return pagecache.Page{}, err
	}

	post, err := a.posts.GetPost(ctx, slug, ref)
	if errors.Is(err, service.ErrPostNotFound) {
		return a.renderPage(http.StatusNotFound, "not_found.html", gin.H{"title": a.labels.NotFound}, preview)
	}
	if err != nil {
		return pagecache.Page{}, err
	}

	nav, err := a.posts.Navigation(ctx, post.ID, ref)
	if err != nil {
		logger.WarnWithFields("post navigation failed", logger.Fields{
			"slug":       slug,
			"error":      err.Error(),
			"request_id": trace.RequestIDFromContext(ctx),
		})
		nav = service.NavigationLinks{}
	}

	view, err := a.buildPostView(post)
	if err != nil {
		return pagecache.Page{}, err
	}
	return a.renderPage(http.StatusOK, "post_detail.html", gin.H{
		"title": post.Title,
		"post":  view,
		"nav":   nav,
	}, preview)
}

func (a *API) buildPostView(post *service.PostDetail) (postView, error) {
	view := postView{
		Title:       post.Title,
		BannerURL:   post.BannerURL,
		BannerAlt:   post.BannerAlt,
		Author:      post.Author,
		ReadingTime: a.readingTimeLabel(service.ReadingTime(post.Content)),
		Sections:    make([]sectionView, 0, len(post.Content)),
	}
	if view.BannerAlt == "" {
		view.BannerAlt = "banner"
	}
	if post.FirstPublicationDate != nil {
		first := post.FirstPublicationDate.In(a.loc)
		view.Date = locale.FormatDate(first, a.pref.Language)
		view.DateISO = first.Format(time.RFC3339)
	}
	if post.Edited() {
		view.EditedAt = a.editedLabel(*post.LastPublicationDate)
	}
	for _, section := range post.Content {
		body, err := section.Body.HTML()
		if err != nil {
			return postView{}, fmt.Errorf("render section %q: %w", section.Heading, err)
		}
		view.Sections = append(view.Sections, sectionView{Heading: section.Heading, Body: body})
	}
	return view, nil
}

func (a *API) readingTimeLabel(minutes int) string {
	if minutes <= 0 {
		return a.labels.Loading
	}
	return fmt.Sprintf("%d %s", minutes, a.labels.Minutes)
}

// editedLabel renders "* editado em 19 mar 2021, às 15:49".
func (a *API) editedLabel(t time.Time) string {
	t = t.In(a.loc)
	return fmt.Sprintf("* %s %s, %s %s",
		a.labels.EditedOn,
		locale.FormatDate(t, a.pref.Language),
		a.labels.At,
		locale.FormatTime(t),
	)
}

// serveGenerated answers from the page store, falling back to the loading
// page while a first render is still running.
func (a *API) serveGenerated(c *gin.Context, route string, render pagecache.RenderFunc) {
	res, err := a.pages.Serve(c.Request.Context(), route, render)
	if err != nil {
		a.renderContentError(c, route, err)
		return
	}
	c.Header(pageSourceHeader, string(res.Source))
	if res.Source == pagecache.SourceFallback {
		a.renderLoading(c)
		return
	}
	c.Data(res.Page.Status, res.Page.ContentType, res.Page.Body)
}

// writeFresh writes a page rendered for this request only.
func (a *API) writeFresh(c *gin.Context, route string, page pagecache.Page, err error) {
	if err != nil {
		a.renderContentError(c, route, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(page.Status, page.ContentType, page.Body)
}

func (a *API) renderLoading(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	seconds := int(math.Ceil(a.opts.LoadingRefresh.Seconds()))
	a.renderHTML(c, http.StatusOK, "loading.html", gin.H{
		"title":          a.labels.Loading,
		"refreshSeconds": seconds,
	})
}

func (a *API) renderContentError(c *gin.Context, route string, err error) {
	if errors.Is(err, context.Canceled) {
		c.Status(http.StatusRequestTimeout)
		return
	}
	logger.ErrorWithFields("page render failed", requestFields(c, logger.Fields{
		"route": route,
		"error": err.Error(),
	}))
	c.Header("Cache-Control", "no-store")
	a.renderHTML(c, http.StatusBadGateway, "error.html", gin.H{
		"title":     a.labels.ContentFailed,
		"retryPath": route,
	})
}

// NotFound renders the 404 page for unknown routes.
func (a *API) NotFound(c *gin.Context) {
	a.renderHTML(c, http.StatusNotFound, "not_found.html", gin.H{"title": a.labels.NotFound})
}
