package handler

import (
	"context"
	"fmt"

	"github.com/spacetraveling/internal/logger"
	"github.com/spacetraveling/internal/pagecache"
	"github.com/spacetraveling/internal/service"
)

// Prerender generates the home page and the first limit post pages into the
// page store. It returns the routes that were written.
func (a *API) Prerender(ctx context.Context, limit int) ([]string, error) {
	paths, err := a.posts.StaticPaths(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("prerender: static paths: %w", err)
	}

	routes := append([]string{"/"}, paths...)
	written := make([]string, 0, len(routes))
	for _, route := range routes {
		page, err := a.pages.Generate(ctx, route, a.renderRoute(route))
		if err != nil {
			return written, fmt.Errorf("prerender %s: %w", route, err)
		}
		if !page.Cacheable() {
			logger.WarnWithFields("prerender skipped page", logger.Fields{
				"route":  route,
				"status": page.Status,
			})
			continue
		}
		written = append(written, route)
	}
	return written, nil
}

// renderRoute maps a public route to the render used for it outside preview.
func (a *API) renderRoute(route string) pagecache.RenderFunc {
	if slug, ok := service.SlugFromPath(route); ok {
		return func(ctx context.Context) (pagecache.Page, error) {
			return a.renderPost(ctx, slug, "")
		}
	}
	return func(ctx context.Context) (pagecache.Page, error) {
		return a.renderHome(ctx, "")
	}
}
