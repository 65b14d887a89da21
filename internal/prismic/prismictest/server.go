// Package prismictest provides an in-process content API for tests.
package prismictest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spacetraveling/internal/prismic"
)

const (
	// MasterRef is the ref advertised by the fake API.
	MasterRef = "master-ref"
	apiPath   = "/api/v2"
)

var atPattern = regexp.MustCompile(`at\(([^,]+),\s*"((?:[^"\\]|\\.)*)"\)`)

// Server is a fake documents API backed by an in-memory document list.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	docs      []prismic.Document
	previews  map[string][]prismic.Document
	requests  []url.URL
	failNext  int
	failCode  int
	delay     time.Duration
	searchHit int
}

// New starts a server holding docs in their default order. It is closed
// when the test finishes.
func New(t testing.TB, docs ...prismic.Document) *Server {
	t.Helper()
	s := &Server{docs: docs, previews: map[string][]prismic.Document{}}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// Endpoint is the API root to configure a prismic.Client with.
func (s *Server) Endpoint() string {
	return s.URL + apiPath
}

// SetDocuments replaces the published documents.
func (s *Server) SetDocuments(docs ...prismic.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = docs
}

// SetPreview registers the documents visible under a preview ref.
func (s *Server) SetPreview(ref string, docs ...prismic.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previews[ref] = docs
}

// FailNext makes the next n requests answer with status code.
func (s *Server) FailNext(n, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = n
	s.failCode = code
}

// SetDelay delays every search response.
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// Requests returns the URLs received so far.
func (s *Server) Requests() []url.URL {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]url.URL, len(s.requests))
	copy(out, s.requests)
	return out
}

// SearchCount returns how many searches were answered successfully.
func (s *Server) SearchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searchHit
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, *r.URL)
	if s.failNext > 0 {
		s.failNext--
		code := s.failCode
		s.mu.Unlock()
		http.Error(w, `{"message":"unavailable"}`, code)
		return
	}
	delay := s.delay
	s.mu.Unlock()

	switch strings.TrimRight(r.URL.Path, "/") {
	case apiPath:
		writeJSON(w, map[string]any{
			"refs": []prismic.Ref{{ID: "master", Ref: MasterRef, Label: "Master", IsMasterRef: true}},
		})
	case apiPath + "/documents/search":
		if delay > 0 {
			time.Sleep(delay)
		}
		s.search(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ref := q.Get("ref")

	s.mu.Lock()
	var source []prismic.Document
	switch {
	case ref == MasterRef:
		source = append(source, s.docs...)
	case s.previews[ref] != nil:
		source = append(source, s.previews[ref]...)
	default:
		s.mu.Unlock()
		http.Error(w, `{"message":"unknown ref"}`, http.StatusBadRequest)
		return
	}
	s.searchHit++
	s.mu.Unlock()

	matched := filter(source, q.Get("q"))
	order(matched, q.Get("orderings"))
	if after := q.Get("after"); after != "" {
		for i, doc := range matched {
			if doc.ID == after {
				matched = matched[i+1:]
				break
			}
		}
	}

	pageSize := atoiDefault(q.Get("pageSize"), 20)
	page := atoiDefault(q.Get("page"), 1)
	total := len(matched)
	totalPages := (total + pageSize - 1) / pageSize
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	resp := prismic.Response{
		Page:             page,
		ResultsPerPage:   pageSize,
		ResultsSize:      end - start,
		TotalResultsSize: total,
		TotalPages:       totalPages,
		Results:          append([]prismic.Document{}, matched[start:end]...),
	}
	if page < totalPages {
		next := *r.URL
		next.Scheme = "http"
		next.Host = r.Host
		nq := next.Query()
		nq.Set("page", strconv.Itoa(page+1))
		next.RawQuery = nq.Encode()
		link := next.String()
		resp.NextPage = &link
	}
	writeJSON(w, resp)
}

func filter(docs []prismic.Document, query string) []prismic.Document {
	matches := atPattern.FindAllStringSubmatch(query, -1)
	out := make([]prismic.Document, 0, len(docs))
	for _, doc := range docs {
		ok := true
		for _, m := range matches {
			path := strings.TrimSpace(m[1])
			value, err := strconv.Unquote(`"` + m[2] + `"`)
			if err != nil {
				value = m[2]
			}
			switch {
			case path == "document.type":
				ok = ok && doc.Type == value
			case path == "document.id":
				ok = ok && doc.ID == value
			case strings.HasPrefix(path, "my.") && strings.HasSuffix(path, ".uid"):
				ok = ok && doc.UID == value
			}
		}
		if ok {
			out = append(out, doc)
		}
	}
	return out
}

func order(docs []prismic.Document, orderings string) {
	expr := strings.Trim(strings.TrimSpace(orderings), "[]")
	if expr == "" {
		return
	}
	field := expr
	desc := false
	if strings.HasSuffix(expr, " desc") {
		field = strings.TrimSuffix(expr, " desc")
		desc = true
	}
	key := func(d prismic.Document) time.Time {
		var ts *prismic.Timestamp
		switch field {
		case "document.first_publication_date":
			ts = d.FirstPublicationDate
		case "document.last_publication_date":
			ts = d.LastPublicationDate
		}
		if ts == nil {
			return time.Time{}
		}
		return ts.Time
	}
	sort.SliceStable(docs, func(i, j int) bool {
		if desc {
			return key(docs[i]).After(key(docs[j]))
		}
		return key(docs[i]).Before(key(docs[j]))
	})
}

func atoiDefault(raw string, fallback int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
