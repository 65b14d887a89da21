package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spacetraveling/internal/logger"
	"github.com/spacetraveling/internal/prismic"
	"golang.org/x/sync/errgroup"
)

var (
	ErrPostNotFound  = errors.New("post not found")
	ErrNoMorePages   = errors.New("no more pages")
	ErrForeignCursor = errors.New("cursor does not belong to the content repository")
)

var summaryFetch = []string{
	PostType + ".title",
	PostType + ".subtitle",
	PostType + ".author",
}

// ContentSource is the part of the content API the post service needs.
type ContentSource interface {
	MasterRef(ctx context.Context) (string, error)
	Query(ctx context.Context, opts prismic.QueryOptions) (*prismic.Response, error)
	FetchPage(ctx context.Context, cursor string) (*prismic.Response, error)
	GetByUID(ctx context.Context, docType, uid, ref string) (*prismic.Document, error)
	GetByID(ctx context.Context, id, ref string) (*prismic.Document, error)
	OwnsURL(raw string) bool
}

// PostOptions tunes PostService queries.
type PostOptions struct {
	PageSize         int
	PreviousOrdering string
	NextOrdering     string
}

// PostService reads posts from the content repository.
type PostService struct {
	source ContentSource
	opts   PostOptions
}

// NewPostService creates a PostService instance.
func NewPostService(source ContentSource, opts PostOptions) *PostService {
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	if opts.PreviousOrdering == "" {
		opts.PreviousOrdering = "[document.first_publication_date]"
	}
	if opts.NextOrdering == "" {
		opts.NextOrdering = "[document.last_publication_date desc]"
	}
	return &PostService{source: source, opts: opts}
}

// ResolveRef returns the preview ref when set, otherwise the master ref.
func (s *PostService) ResolveRef(ctx context.Context, preview string) (string, error) {
	if ref := strings.TrimSpace(preview); ref != "" {
		return ref, nil
	}
	return s.source.MasterRef(ctx)
}

// ListSummaries returns the first page of posts in repository order.
func (s *PostService) ListSummaries(ctx context.Context, ref string) (PostPagination, error) {
	resp, err := s.source.Query(ctx, prismic.QueryOptions{
		Ref:        ref,
		Predicates: []prismic.Predicate{prismic.DocumentType(PostType)},
		Fetch:      summaryFetch,
		PageSize:   s.opts.PageSize,
	})
	if err != nil {
		return PostPagination{}, fmt.Errorf("list posts: %w", err)
	}
	return paginationFrom(resp)
}

// LoadPage follows a next_page cursor. Cursors must point at the content
// repository.
func (s *PostService) LoadPage(ctx context.Context, cursor string) (PostPagination, error) {
	cursor = strings.TrimSpace(cursor)
	if cursor == "" {
		return PostPagination{}, ErrNoMorePages
	}
	if !s.source.OwnsURL(cursor) {
		return PostPagination{}, ErrForeignCursor
	}
	resp, err := s.source.FetchPage(ctx, cursor)
	if err != nil {
		return PostPagination{}, fmt.Errorf("load page: %w", err)
	}
	return paginationFrom(resp)
}

func paginationFrom(resp *prismic.Response) (PostPagination, error) {
	results, err := MapSummaries(resp.Results)
	if err != nil {
		return PostPagination{}, err
	}
	return PostPagination{NextPage: resp.Next(), Results: results}, nil
}

// GetPost returns the post identified by slug.
func (s *PostService) GetPost(ctx context.Context, slug, ref string) (*PostDetail, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, ErrPostNotFound
	}
	doc, err := s.source.GetByUID(ctx, PostType, slug, ref)
	if err != nil {
		if errors.Is(err, prismic.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("get post %s: %w", slug, err)
	}
	return mapDetail(*doc)
}

// Navigation finds the posts adjacent to documentID. Both lookups run
// concurrently; an empty result leaves the link nil.
func (s *PostService) Navigation(ctx context.Context, documentID, ref string) (NavigationLinks, error) {
	var links NavigationLinks
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		link, err := s.neighbour(gctx, documentID, ref, s.opts.PreviousOrdering)
		links.Previous = link
		return err
	})
	g.Go(func() error {
		link, err := s.neighbour(gctx, documentID, ref, s.opts.NextOrdering)
		links.Next = link
		return err
	})
	if err := g.Wait(); err != nil {
		return NavigationLinks{}, fmt.Errorf("post navigation: %w", err)
	}
	return links, nil
}

func (s *PostService) neighbour(ctx context.Context, documentID, ref, orderings string) (*NavigationLink, error) {
	resp, err := s.source.Query(ctx, prismic.QueryOptions{
		Ref:        ref,
		Predicates: []prismic.Predicate{prismic.DocumentType(PostType)},
		Fetch:      []string{PostType + ".title"},
		PageSize:   1,
		Orderings:  orderings,
		After:      documentID,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	doc := resp.Results[0]
	data, err := decodePostData(doc)
	if err != nil {
		return nil, err
	}
	return &NavigationLink{UID: doc.UID, Title: data.Title}, nil
}

// StaticPaths lists the post pages generated ahead of time. Posts beyond
// limit are rendered on first request.
func (s *PostService) StaticPaths(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}
	resp, err := s.source.Query(ctx, prismic.QueryOptions{
		Predicates: []prismic.Predicate{prismic.DocumentType(PostType)},
		Fetch:      []string{PostType + ".uid"},
		PageSize:   limit,
	})
	if err != nil {
		return nil, fmt.Errorf("static paths: %w", err)
	}
	paths := make([]string, 0, len(resp.Results))
	for _, doc := range resp.Results {
		if strings.TrimSpace(doc.UID) == "" {
			logger.WarnWithFields("skipping post without uid", logger.Fields{"id": doc.ID})
			continue
		}
		paths = append(paths, PostPath(doc.UID))
		if len(paths) == limit {
			break
		}
	}
	return paths, nil
}

// PreviewPath resolves the page a preview link should land on.
func (s *PostService) PreviewPath(ctx context.Context, documentID, ref string) (string, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return "/", nil
	}
	doc, err := s.source.GetByID(ctx, documentID, ref)
	if err != nil {
		if errors.Is(err, prismic.ErrNotFound) {
			return "", ErrPostNotFound
		}
		return "", fmt.Errorf("resolve preview: %w", err)
	}
	if doc.Type != PostType || doc.UID == "" {
		return "/", nil
	}
	return PostPath(doc.UID), nil
}

// PostPath is the route of the post page for uid.
func PostPath(uid string) string {
	return postPathPrefix + uid
}

// SlugFromPath is the inverse of PostPath.
func SlugFromPath(path string) (string, bool) {
	slug, ok := strings.CutPrefix(path, postPathPrefix)
	if !ok || slug == "" || strings.Contains(slug, "/") {
		return "", false
	}
	return slug, true
}
