package pagecache

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spacetraveling/internal/logger"
	"golang.org/x/sync/singleflight"
)

// RenderFunc produces the page for one route. A non-200 status is returned
// to the caller but never stored, and a 404 evicts the stored page.
type RenderFunc func(ctx context.Context) (Page, error)

// Source tells where a served page came from.
type Source string

const (
	SourceHit       Source = "hit"
	SourceStale     Source = "stale"
	SourceGenerated Source = "generated"
	// SourceFallback means generation is still running; the caller should
	// serve its loading page.
	SourceFallback Source = "fallback"
)

// Result is the outcome of Serve.
type Result struct {
	Page   Page
	Source Source
}

// Options tunes a Generator.
type Options struct {
	// Revalidate is the age after which a stored page is regenerated in the
	// background. Zero keeps pages until purged.
	Revalidate time.Duration
	// FallbackWait bounds how long a request waits for a first-time render.
	// Zero waits for the render to finish.
	FallbackWait time.Duration
	// RenderTimeout bounds one render. Defaults to 30s.
	RenderTimeout time.Duration
	Now           func() time.Time
}

// Generator serves stored pages and regenerates them. Renders of the same
// route are coalesced.
type Generator struct {
	store Store
	opts  Options
	group singleflight.Group
}

// NewGenerator creates a Generator on top of store.
func NewGenerator(store Store, opts Options) *Generator {
	if opts.RenderTimeout <= 0 {
		opts.RenderTimeout = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Generator{store: store, opts: opts}
}

// Serve returns the stored page for route, rendering it when missing. A
// stale page is served as is while a fresh one is rendered in the
// background.
func (g *Generator) Serve(ctx context.Context, route string, render RenderFunc) (Result, error) {
	page, err := g.store.Get(ctx, route)
	switch {
	case err == nil:
		if page.Stale(g.opts.Now(), g.opts.Revalidate) {
			g.revalidate(ctx, route, render)
			return Result{Page: page, Source: SourceStale}, nil
		}
		return Result{Page: page, Source: SourceHit}, nil
	case !errors.Is(err, ErrMiss):
		logger.WarnWithFields("page store read failed", logger.Fields{"route": route, "error": err.Error()})
	}

	ch := g.group.DoChan(route, func() (any, error) {
		return g.generate(context.WithoutCancel(ctx), route, render)
	})

	var timeout <-chan time.Time
	if g.opts.FallbackWait > 0 {
		timer := time.NewTimer(g.opts.FallbackWait)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case res := <-ch:
		if res.Err != nil {
			return Result{}, res.Err
		}
		return Result{Page: res.Val.(Page), Source: SourceGenerated}, nil
	case <-timeout:
		return Result{Source: SourceFallback}, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Generate renders route now and stores the result, waiting for any render
// already in flight.
func (g *Generator) Generate(ctx context.Context, route string, render RenderFunc) (Page, error) {
	v, err, _ := g.group.Do(route, func() (any, error) {
		return g.generate(ctx, route, render)
	})
	if err != nil {
		return Page{}, err
	}
	return v.(Page), nil
}

// Invalidate drops the stored page of route.
func (g *Generator) Invalidate(ctx context.Context, route string) error {
	return g.store.Delete(ctx, route)
}

// Purge drops every stored page.
func (g *Generator) Purge(ctx context.Context) error {
	return g.store.Purge(ctx)
}

func (g *Generator) revalidate(ctx context.Context, route string, render RenderFunc) {
	// DoChan buffers its result, so an unread channel does not leak.
	g.group.DoChan(route, func() (any, error) {
		page, err := g.generate(context.WithoutCancel(ctx), route, render)
		if err != nil {
			logger.WarnWithFields("background regeneration failed", logger.Fields{"route": route, "error": err.Error()})
		}
		return page, err
	})
}

func (g *Generator) generate(ctx context.Context, route string, render RenderFunc) (Page, error) {
	ctx, cancel := context.WithTimeout(ctx, g.opts.RenderTimeout)
	defer cancel()

	start := g.opts.Now()
	page, err := render(ctx)
	if err != nil {
		return Page{}, fmt.Errorf("render %s: %w", route, err)
	}
	page.Route = route
	page.GeneratedAt = g.opts.Now()

	if page.Status == http.StatusNotFound {
		if err := g.store.Delete(ctx, route); err != nil {
			logger.ErrorWithFields("page store delete failed", logger.Fields{"route": route, "error": err.Error()})
		}
		return page, nil
	}
	if !page.Cacheable() {
		return page, nil
	}
	if err := g.store.Put(ctx, page); err != nil {
		logger.ErrorWithFields("page store write failed", logger.Fields{"route": route, "error": err.Error()})
		return page, nil
	}
	logger.InfoWithFields("page generated", logger.Fields{
		"route":    route,
		"bytes":    len(page.Body),
		"duration": g.opts.Now().Sub(start).String(),
	})
	return page, nil
}
