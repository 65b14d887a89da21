package prismic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrNotFound is returned when a lookup matches no document.
	ErrNotFound = errors.New("prismic: document not found")
	// ErrInvalidResponse is returned when a response body does not have the expected shape.
	ErrInvalidResponse = errors.New("prismic: invalid response")
)

// APIError describes a non-success HTTP status from the content API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("prismic: status=%d body=%s", e.Status, e.Body)
}

func (e *APIError) retryable() bool {
	return e.Status >= http.StatusInternalServerError || e.Status == http.StatusTooManyRequests
}

// Config configures a Client.
type Config struct {
	// Endpoint is the repository API root, e.g. https://repo.cdn.prismic.io/api/v2.
	Endpoint    string
	AccessToken string
	// Timeout bounds each attempt. Defaults to 10s.
	Timeout time.Duration
	// Retries is the number of extra attempts for failed idempotent calls.
	Retries int
	// HTTPClient overrides the transport, mostly for tests. Its own Timeout is left untouched.
	HTTPClient *http.Client
}

// Client talks to one content repository. It holds no per-request state and
// is safe for concurrent use.
type Client struct {
	endpoint    *url.URL
	accessToken string
	http        *http.Client
	timeout     time.Duration
	retries     int
	backoff     time.Duration
	validate    *validator.Validate
}

// QueryOptions describes a documents search.
type QueryOptions struct {
	// Ref selects the content release. Empty resolves the master ref.
	Ref        string
	Predicates []Predicate
	Fetch      []string
	PageSize   int
	Page       int
	Orderings  string
	// After positions the results after the document with this id.
	After string
}

// New builds a client bound to cfg.Endpoint.
func New(cfg Config) (*Client, error) {
	raw := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if raw == "" {
		return nil, errors.New("prismic: endpoint is required")
	}
	endpoint, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("prismic: parse endpoint: %w", err)
	}
	if endpoint.Scheme != "http" && endpoint.Scheme != "https" {
		return nil, fmt.Errorf("prismic: endpoint must be http(s), got %q", cfg.Endpoint)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Transport: NewLoggingTransport(nil)}
	}
	retries := cfg.Retries
	if retries < 0 {
		retries = 0
	}

	return &Client{
		endpoint:    endpoint,
		accessToken: strings.TrimSpace(cfg.AccessToken),
		http:        httpClient,
		timeout:     timeout,
		retries:     retries,
		backoff:     200 * time.Millisecond,
		validate:    validator.New(),
	}, nil
}

// OwnsURL reports whether raw points at the same scheme and host as the
// configured endpoint. Continuation cursors from elsewhere are rejected.
func (c *Client) OwnsURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, c.endpoint.Scheme) && strings.EqualFold(u.Host, c.endpoint.Host)
}

// MasterRef resolves the ref of the published content release.
func (c *Client) MasterRef(ctx context.Context) (string, error) {
	var info apiInfo
	if err := c.get(ctx, c.withToken(*c.endpoint), &info); err != nil {
		return "", err
	}
	for _, ref := range info.Refs {
		if ref.IsMasterRef {
			return ref.Ref, nil
		}
	}
	return "", fmt.Errorf("%w: no master ref", ErrInvalidResponse)
}

// Query runs a documents search.
func (c *Client) Query(ctx context.Context, opts QueryOptions) (*Response, error) {
	ref := strings.TrimSpace(opts.Ref)
	if ref == "" {
		master, err := c.MasterRef(ctx)
		if err != nil {
			return nil, err
		}
		ref = master
	}

	u := *c.endpoint
	u.Path = strings.TrimRight(u.Path, "/") + "/documents/search"
	q := url.Values{}
	q.Set("ref", ref)
	if encoded := encodeQuery(opts.Predicates); encoded != "" {
		q.Set("q", encoded)
	}
	if len(opts.Fetch) > 0 {
		q.Set("fetch", strings.Join(opts.Fetch, ","))
	}
	if opts.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(opts.PageSize))
	}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Orderings != "" {
		q.Set("orderings", opts.Orderings)
	}
	if opts.After != "" {
		q.Set("after", opts.After)
	}
	u.RawQuery = q.Encode()

	var out Response
	if err := c.get(ctx, c.withToken(u), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchPage follows a next_page cursor returned by an earlier query.
func (c *Client) FetchPage(ctx context.Context, cursor string) (*Response, error) {
	if !c.OwnsURL(cursor) {
		return nil, fmt.Errorf("prismic: cursor %q does not belong to %s", cursor, c.endpoint.Host)
	}
	u, err := url.Parse(strings.TrimSpace(cursor))
	if err != nil {
		return nil, fmt.Errorf("prismic: parse cursor: %w", err)
	}

	var out Response
	if err := c.get(ctx, c.withToken(*u), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetByUID fetches the document of docType identified by uid.
func (c *Client) GetByUID(ctx context.Context, docType, uid, ref string) (*Document, error) {
	return c.single(ctx, QueryOptions{
		Ref:        ref,
		Predicates: []Predicate{UID(docType, uid)},
		PageSize:   1,
	})
}

// GetByID fetches a document by its id.
func (c *Client) GetByID(ctx context.Context, id, ref string) (*Document, error) {
	return c.single(ctx, QueryOptions{
		Ref:        ref,
		Predicates: []Predicate{DocumentID(id)},
		PageSize:   1,
	})
}

func (c *Client) single(ctx context.Context, opts QueryOptions) (*Document, error) {
	resp, err := c.Query(ctx, opts)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, ErrNotFound
	}
	doc := resp.Results[0]
	return &doc, nil
}

func (c *Client) withToken(u url.URL) string {
	if c.accessToken == "" {
		return u.String()
	}
	q := u.Query()
	if q.Get("access_token") == "" {
		q.Set("access_token", c.accessToken)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// get performs an idempotent GET, retrying network failures, 429 and 5xx.
func (c *Client) get(ctx context.Context, rawURL string, out any) error {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * c.backoff):
			}
		}

		err := c.getOnce(ctx, rawURL, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !isRetryable(ctx, err) {
			return err
		}
	}
	return lastErr
}

func (c *Client) getOnce(ctx context.Context, rawURL string, out any) error {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &APIError{Status: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if err := c.validate.Struct(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

func isRetryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.retryable()
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidResponse) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF)
}
