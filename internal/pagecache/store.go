// Package pagecache keeps rendered pages and regenerates them on demand.
package pagecache

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// ErrMiss is returned by a Store when a route has no stored page.
var ErrMiss = errors.New("pagecache: page not stored")

// Page is a rendered response.
type Page struct {
	Route       string    `json:"route"`
	Status      int       `json:"status"`
	ContentType string    `json:"content_type"`
	Body        []byte    `json:"body"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Cacheable reports whether the page may be stored. Only successful renders
// are kept.
func (p Page) Cacheable() bool {
	return p.Status == http.StatusOK && len(p.Body) > 0
}

// Stale reports whether the page is older than interval. A non-positive
// interval never expires.
func (p Page) Stale(now time.Time, interval time.Duration) bool {
	if interval <= 0 {
		return false
	}
	return now.Sub(p.GeneratedAt) >= interval
}

// Store persists generated pages by route.
type Store interface {
	Get(ctx context.Context, route string) (Page, error)
	Put(ctx context.Context, page Page) error
	Delete(ctx context.Context, route string) error
	Purge(ctx context.Context) error
}
