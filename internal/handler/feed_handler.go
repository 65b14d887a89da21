package handler

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spacetraveling/internal/logger"
	"github.com/spacetraveling/internal/service"
)

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Language    string    `xml:"language,omitempty"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	Author      string `xml:"author,omitempty"`
	PubDate     string `xml:"pubDate,omitempty"`
	GUID        string `xml:"guid"`
}

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// collectPosts walks the listing until it is exhausted or the feed limit is
// reached.
func (a *API) collectPosts(ctx context.Context) ([]service.PostSummary, error) {
	first, err := a.posts.ListSummaries(ctx, "")
	if err != nil {
		return nil, err
	}
	return service.NewListing(a.posts, first).Collect(ctx, a.site.Feed.MaxItems)
}

func (a *API) postURL(uid string) string {
	return a.opts.BaseURL + service.PostPath(uid)
}

// Feed renders an RSS 2.0 feed of the latest posts.
func (a *API) Feed(c *gin.Context) {
	posts, err := a.collectPosts(c.Request.Context())
	if err != nil {
		logger.ErrorWithFields("build feed failed", requestFields(c, logger.Fields{"error": err.Error()}))
		c.String(http.StatusBadGateway, "")
		return
	}

	items := make([]rssItem, 0, len(posts))
	for _, p := range posts {
		link := a.postURL(p.UID)
		item := rssItem{
			Title:       p.Title,
			Link:        link,
			Description: p.Subtitle,
			Author:      p.Author,
			GUID:        link,
		}
		if p.FirstPublicationDate != nil {
			item.PubDate = p.FirstPublicationDate.UTC().Format(time.RFC1123Z)
		}
		items = append(items, item)
	}
	feed := rssXML{
		Version: "2.0",
		Channel: rssChannel{
			Title:       a.site.Name,
			Link:        a.opts.BaseURL + "/",
			Description: a.site.Description,
			Language:    a.pref.HTMLLang,
			Items:       items,
		},
	}
	writeXML(c, "application/rss+xml; charset=utf-8", feed)
}

// Sitemap lists the home page and every post.
func (a *API) Sitemap(c *gin.Context) {
	posts, err := a.collectPosts(c.Request.Context())
	if err != nil {
		logger.ErrorWithFields("build sitemap failed", requestFields(c, logger.Fields{"error": err.Error()}))
		c.String(http.StatusBadGateway, "")
		return
	}

	urls := []sitemapURL{{Loc: a.opts.BaseURL + "/"}}
	for _, p := range posts {
		entry := sitemapURL{Loc: a.postURL(p.UID)}
		if p.FirstPublicationDate != nil {
			entry.LastMod = p.FirstPublicationDate.UTC().Format("2006-01-02")
		}
		urls = append(urls, entry)
	}
	writeXML(c, "application/xml; charset=utf-8", sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	})
}

// Robots points crawlers at the sitemap.
func (a *API) Robots(c *gin.Context) {
	c.String(http.StatusOK, fmt.Sprintf("User-agent: *\nAllow: /\nDisallow: /api/\n\nSitemap: %s/sitemap.xml\n", a.opts.BaseURL))
}

func writeXML(c *gin.Context, contentType string, v any) {
	body, err := xml.Marshal(v)
	if err != nil {
		logger.ErrorWithFields("encode xml failed", requestFields(c, logger.Fields{"error": err.Error()}))
		c.String(http.StatusInternalServerError, "")
		return
	}
	c.Data(http.StatusOK, contentType, append([]byte(xml.Header), body...))
}
