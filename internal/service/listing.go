package service

import (
	"context"
	"sync"
)

// PageLoader follows next_page cursors.
type PageLoader interface {
	LoadPage(ctx context.Context, cursor string) (PostPagination, error)
}

// Listing accumulates summaries across pages. LoadMore calls are serialized,
// so a page is never requested twice and results are appended in order.
type Listing struct {
	mu     sync.Mutex
	loader PageLoader
	posts  []PostSummary
	next   string
}

// NewListing starts from an already fetched first page.
func NewListing(loader PageLoader, first PostPagination) *Listing {
	posts := make([]PostSummary, len(first.Results))
	copy(posts, first.Results)
	return &Listing{loader: loader, posts: posts, next: first.NextPage}
}

// Posts returns a copy of every summary loaded so far.
func (l *Listing) Posts() []PostSummary {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]PostSummary, len(l.posts))
	copy(out, l.posts)
	return out
}

// NextPage returns the pending cursor, empty once exhausted.
func (l *Listing) NextPage() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.next
}

// HasMore reports whether another page can be loaded.
func (l *Listing) HasMore() bool {
	return l.NextPage() != ""
}

// LoadMore fetches the next page and appends it. On failure the listing is
// left unchanged and the call may be retried.
func (l *Listing) LoadMore(ctx context.Context) ([]PostSummary, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.next == "" {
		return nil, ErrNoMorePages
	}
	page, err := l.loader.LoadPage(ctx, l.next)
	if err != nil {
		return nil, err
	}
	l.posts = append(l.posts, page.Results...)
	l.next = page.NextPage
	return page.Results, nil
}

// Collect loads pages until the listing is exhausted or holds at least limit
// summaries. A limit of zero or less means no limit.
func (l *Listing) Collect(ctx context.Context, limit int) ([]PostSummary, error) {
	for l.HasMore() {
		if limit > 0 && len(l.Posts()) >= limit {
			break
		}
		if _, err := l.LoadMore(ctx); err != nil {
			return nil, err
		}
	}
	posts := l.Posts()
	if limit > 0 && len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}
