package prismic_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacetraveling/internal/prismic"
	"github.com/spacetraveling/internal/prismic/prismictest"
)

func newClient(t *testing.T, endpoint string) *prismic.Client {
	t.Helper()
	client, err := prismic.New(prismic.Config{
		Endpoint:    endpoint,
		AccessToken: "secret-token",
		Timeout:     2 * time.Second,
		Retries:     2,
	})
	require.NoError(t, err)
	return client
}

func samplePosts() []prismic.Document {
	base := time.Date(2021, time.March, 1, 12, 0, 0, 0, time.UTC)
	docs := make([]prismic.Document, 0, 5)
	for i, uid := range []string{"one", "two", "three", "four", "five"} {
		docs = append(docs, prismictest.Post(prismictest.PostFixture{
			ID:    "id-" + uid,
			UID:   uid,
			Title: "Post " + uid,
			First: base.Add(time.Duration(i) * 24 * time.Hour),
		}))
	}
	return docs
}

func TestNewValidatesEndpoint(t *testing.T) {
	_, err := prismic.New(prismic.Config{})
	assert.Error(t, err)

	_, err = prismic.New(prismic.Config{Endpoint: "ftp://example.com/api"})
	assert.Error(t, err)
}

func TestMasterRef(t *testing.T) {
	srv := prismictest.New(t)
	client := newClient(t, srv.Endpoint())

	ref, err := client.MasterRef(context.Background())
	require.NoError(t, err)
	assert.Equal(t, prismictest.MasterRef, ref)

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "secret-token", reqs[0].Query().Get("access_token"))
}

func TestQueryBuildsSearchParameters(t *testing.T) {
	srv := prismictest.New(t, samplePosts()...)
	client := newClient(t, srv.Endpoint())

	resp, err := client.Query(context.Background(), prismic.QueryOptions{
		Predicates: []prismic.Predicate{prismic.DocumentType("posts")},
		Fetch:      []string{"posts.title", "posts.author"},
		PageSize:   2,
		Page:       1,
		Orderings:  "[document.first_publication_date desc]",
	})
	require.NoError(t, err)

	require.Len(t, resp.Results, 2)
	assert.Equal(t, "five", resp.Results[0].UID)
	assert.Equal(t, "four", resp.Results[1].UID)
	assert.NotEmpty(t, resp.Next())

	reqs := srv.Requests()
	search := reqs[len(reqs)-1].Query()
	assert.Equal(t, prismictest.MasterRef, search.Get("ref"))
	assert.Equal(t, `[[at(document.type, "posts")]]`, search.Get("q"))
	assert.Equal(t, "posts.title,posts.author", search.Get("fetch"))
	assert.Equal(t, "2", search.Get("pageSize"))
}

func TestQueryWithExplicitRefSkipsMasterLookup(t *testing.T) {
	srv := prismictest.New(t, samplePosts()...)
	client := newClient(t, srv.Endpoint())

	_, err := client.Query(context.Background(), prismic.QueryOptions{Ref: prismictest.MasterRef})
	require.NoError(t, err)
	assert.Len(t, srv.Requests(), 1)
}

func TestQueryAfterCursor(t *testing.T) {
	srv := prismictest.New(t, samplePosts()...)
	client := newClient(t, srv.Endpoint())

	resp, err := client.Query(context.Background(), prismic.QueryOptions{
		Predicates: []prismic.Predicate{prismic.DocumentType("posts")},
		PageSize:   1,
		Orderings:  "[document.first_publication_date]",
		After:      "id-three",
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "four", resp.Results[0].UID)
}

func TestFetchPageFollowsCursor(t *testing.T) {
	srv := prismictest.New(t, samplePosts()...)
	client := newClient(t, srv.Endpoint())

	first, err := client.Query(context.Background(), prismic.QueryOptions{
		Predicates: []prismic.Predicate{prismic.DocumentType("posts")},
		PageSize:   3,
	})
	require.NoError(t, err)
	require.NotEmpty(t, first.Next())

	second, err := client.FetchPage(context.Background(), first.Next())
	require.NoError(t, err)
	require.Len(t, second.Results, 2)
	assert.Equal(t, "four", second.Results[0].UID)
	assert.Empty(t, second.Next())
}

func TestFetchPageRejectsForeignCursor(t *testing.T) {
	srv := prismictest.New(t)
	client := newClient(t, srv.Endpoint())

	_, err := client.FetchPage(context.Background(), "http://evil.example/api/v2/documents/search?page=2")
	assert.Error(t, err)
	assert.Empty(t, srv.Requests())
}

func TestOwnsURL(t *testing.T) {
	client := newClient(t, "https://blog.cdn.prismic.io/api/v2")
	assert.True(t, client.OwnsURL("https://blog.cdn.prismic.io/api/v2/documents/search?page=2"))
	assert.False(t, client.OwnsURL("http://blog.cdn.prismic.io/api/v2/documents/search"))
	assert.False(t, client.OwnsURL("https://other.cdn.prismic.io/api/v2"))
	assert.False(t, client.OwnsURL("::not a url"))
}

func TestGetByUID(t *testing.T) {
	srv := prismictest.New(t, samplePosts()...)
	client := newClient(t, srv.Endpoint())

	doc, err := client.GetByUID(context.Background(), "posts", "three", "")
	require.NoError(t, err)
	assert.Equal(t, "id-three", doc.ID)

	_, err = client.GetByUID(context.Background(), "posts", "missing", "")
	assert.ErrorIs(t, err, prismic.ErrNotFound)
}

func TestGetByIDWithPreviewRef(t *testing.T) {
	srv := prismictest.New(t, samplePosts()...)
	draft := prismictest.Post(prismictest.PostFixture{ID: "id-draft", UID: "draft", Title: "Draft"})
	srv.SetPreview("preview-ref", draft)
	client := newClient(t, srv.Endpoint())

	doc, err := client.GetByID(context.Background(), "id-draft", "preview-ref")
	require.NoError(t, err)
	assert.Equal(t, "draft", doc.UID)

	_, err = client.GetByID(context.Background(), "id-draft", "")
	assert.ErrorIs(t, err, prismic.ErrNotFound)
}

func TestQueryRetriesServerErrors(t *testing.T) {
	srv := prismictest.New(t, samplePosts()...)
	client := newClient(t, srv.Endpoint())
	srv.FailNext(2, http.StatusBadGateway)

	resp, err := client.Query(context.Background(), prismic.QueryOptions{Ref: prismictest.MasterRef})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 5)
	assert.Len(t, srv.Requests(), 3)
}

func TestQueryGivesUpAfterRetries(t *testing.T) {
	srv := prismictest.New(t, samplePosts()...)
	client := newClient(t, srv.Endpoint())
	srv.FailNext(10, http.StatusServiceUnavailable)

	_, err := client.Query(context.Background(), prismic.QueryOptions{Ref: prismictest.MasterRef})
	var apiErr *prismic.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
	assert.Len(t, srv.Requests(), 3)
}

func TestQueryDoesNotRetryClientErrors(t *testing.T) {
	srv := prismictest.New(t, samplePosts()...)
	client := newClient(t, srv.Endpoint())

	_, err := client.Query(context.Background(), prismic.QueryOptions{Ref: "unknown"})
	var apiErr *prismic.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Len(t, srv.Requests(), 1)
}

func TestQueryRejectsMalformedBodies(t *testing.T) {
	cases := map[string]string{
		"not json":        `<html>oops</html>`,
		"missing results": `{"page":1,"next_page":null}`,
		"document no id":  `{"results":[{"type":"posts","uid":"x"}]}`,
		"bad timestamp":   `{"results":[{"id":"1","type":"posts","first_publication_date":"yesterday"}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			client := newClient(t, srv.URL+"/api/v2")
			_, err := client.Query(context.Background(), prismic.QueryOptions{Ref: "r"})
			assert.ErrorIs(t, err, prismic.ErrInvalidResponse)
		})
	}
}

func TestQueryTimesOut(t *testing.T) {
	srv := prismictest.New(t, samplePosts()...)
	srv.SetDelay(300 * time.Millisecond)
	client, err := prismic.New(prismic.Config{
		Endpoint: srv.Endpoint(),
		Timeout:  50 * time.Millisecond,
	})
	require.NoError(t, err)

	_, err = client.Query(context.Background(), prismic.QueryOptions{Ref: prismictest.MasterRef})
	assert.Error(t, err)
}

func TestTimestampParsesContentAPILayout(t *testing.T) {
	var doc prismic.Document
	raw := `{"id":"1","type":"posts","first_publication_date":"2021-03-25T19:25:28+0000","last_publication_date":null}`
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))

	require.NotNil(t, doc.FirstPublicationDate.Ptr())
	assert.True(t, doc.FirstPublicationDate.Equal(time.Date(2021, time.March, 25, 19, 25, 28, 0, time.UTC)))
	assert.Nil(t, doc.LastPublicationDate.Ptr())

	encoded, err := json.Marshal(doc.FirstPublicationDate)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(encoded), "2021-03-25T19:25:28+0000"))
}

func TestMasterRefMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"refs":[{"id":"release","ref":"r1","isMasterRef":false}]}`))
	}))
	defer srv.Close()

	client := newClient(t, srv.URL+"/api/v2")
	_, err := client.MasterRef(context.Background())
	assert.True(t, errors.Is(err, prismic.ErrInvalidResponse))
}
