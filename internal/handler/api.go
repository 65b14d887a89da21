package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spacetraveling/internal/config"
	"github.com/spacetraveling/internal/locale"
	"github.com/spacetraveling/internal/pagecache"
	"github.com/spacetraveling/internal/service"
	"github.com/spacetraveling/internal/view"
)

// Options carries deployment settings the handlers need.
type Options struct {
	// BaseURL is the public origin used in feeds and the sitemap.
	BaseURL string
	// RevalidateSecretHash is a bcrypt hash of the webhook secret. Empty
	// disables the revalidate endpoint.
	RevalidateSecretHash string
	// LoadingRefresh is how often the loading page reloads itself.
	LoadingRefresh time.Duration
}

// API bundles shared dependencies for HTTP handlers.
type API struct {
	posts  *service.PostService
	pages  *pagecache.Generator
	views  *view.Renderer
	site   config.SiteConfig
	pref   locale.Preference
	labels locale.Labels
	loc    *time.Location
	opts   Options
}

// NewAPI constructs a handler set with shared services.
func NewAPI(posts *service.PostService, pages *pagecache.Generator, views *view.Renderer, site config.SiteConfig, opts Options) *API {
	if opts.LoadingRefresh <= 0 {
		opts.LoadingRefresh = 2 * time.Second
	}
	pref := locale.PreferenceForLanguage(site.Language)
	return &API{
		posts:  posts,
		pages:  pages,
		views:  views,
		site:   site,
		pref:   pref,
		labels: locale.LabelsFor(pref.Language),
		loc:    site.Location(),
		opts:   opts,
	}
}

// pageData adds the layout fields every template expects.
func (a *API) pageData(data gin.H, preview bool) gin.H {
	payload := gin.H{}
	for key, value := range data {
		payload[key] = value
	}
	if _, exists := payload["site"]; !exists {
		payload["site"] = a.site
	}
	if _, exists := payload["labels"]; !exists {
		payload["labels"] = a.labels
	}
	if _, exists := payload["htmlLang"]; !exists {
		payload["htmlLang"] = a.pref.HTMLLang
	}
	payload["preview"] = preview
	return payload
}

func (a *API) renderHTML(c *gin.Context, status int, template string, data gin.H) {
	c.HTML(status, template, a.pageData(data, a.previewRef(c) != ""))
}

// renderPage renders a full page into memory for the page store.
func (a *API) renderPage(status int, template string, data gin.H, preview bool) (pagecache.Page, error) {
	body, err := a.views.Render(template, a.pageData(data, preview))
	if err != nil {
		return pagecache.Page{}, err
	}
	return pagecache.Page{
		Status:      status,
		ContentType: "text/html; charset=utf-8",
		Body:        body,
	}, nil
}
