package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmcdole/gofeed"
	"github.com/spacetraveling/internal/config"
	"github.com/spacetraveling/internal/db"
	"github.com/spacetraveling/internal/handler"
	"github.com/spacetraveling/internal/pagecache"
	"github.com/spacetraveling/internal/prismic"
	"github.com/spacetraveling/internal/prismic/prismictest"
	"github.com/spacetraveling/internal/router"
	"github.com/spacetraveling/internal/service"
	"github.com/spacetraveling/internal/view"
	"golang.org/x/crypto/bcrypt"
	gormlogger "gorm.io/gorm/logger"
)

const (
	testBaseURL       = "https://blog.example.com"
	testWebhookSecret = "webhook-secret"
	allowedOrigin     = "https://example.com"
)

var ginOnce sync.Once

type testSite struct {
	content *prismictest.Server
	posts   *service.PostService
	store   *pagecache.SQLStore
	api     *handler.API
	router  *gin.Engine
}

func day(month time.Month, d int) time.Time {
	return time.Date(2021, month, d, 12, 0, 0, 0, time.UTC)
}

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("lorem ", n))
}

func samplePosts() []prismic.Document {
	return []prismic.Document{
		prismictest.Post(prismictest.PostFixture{
			ID: "a", UID: "como-utilizar-hooks", Title: "Como utilizar Hooks",
			Subtitle: "Pensando em sincronização", Author: "Joseph Oliveira",
			First: day(time.January, 10),
		}),
		prismictest.Post(prismictest.PostFixture{
			ID: "b", UID: "criando-um-app-cra", Title: "Criando um app CRA",
			Subtitle: "Tudo sobre como criar", Author: "Danilo Vieira",
			Banner: "https://images.prismic.io/banner.png",
			First:  day(time.February, 3), Last: day(time.March, 19),
			Sections: []prismictest.Section{{Heading: "Proin et varius", Paragraphs: []string{words(200)}}},
		}),
		prismictest.Post(prismictest.PostFixture{
			ID: "c", UID: "react-server-side", Title: "React server side",
			Subtitle: "Render no servidor", Author: "Ana Souza",
			First: day(time.March, 25),
		}),
	}
}

func setupSite(t *testing.T, secretHash string, docs ...prismic.Document) *testSite {
	t.Helper()
	ginOnce.Do(func() {
		gin.SetMode(gin.TestMode)
	})

	content := prismictest.New(t, docs...)
	client, err := prismic.New(prismic.Config{
		Endpoint:   content.Endpoint(),
		Timeout:    2 * time.Second,
		HTTPClient: content.Client(),
	})
	if err != nil {
		t.Fatalf("failed to create content client: %v", err)
	}

	site := config.DefaultSite()
	posts := service.NewPostService(client, service.PostOptions{
		PageSize:         2,
		PreviousOrdering: site.Navigation.PreviousOrdering,
		NextOrdering:     site.Navigation.NextOrdering,
	})

	dsn := fmt.Sprintf("file:handler-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := db.Open(dsn, gormlogger.Silent)
	if err != nil {
		t.Fatalf("failed to open page database: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	store := pagecache.NewSQLStore(gdb)
	pages := pagecache.NewGenerator(store, pagecache.Options{Revalidate: time.Hour})

	views, err := view.New(view.Options{Language: site.Language, Location: site.Location()})
	if err != nil {
		t.Fatalf("failed to parse templates: %v", err)
	}

	api := handler.NewAPI(posts, pages, views, site, handler.Options{
		BaseURL:              testBaseURL,
		RevalidateSecretHash: secretHash,
	})
	r := router.SetupRouter(api, views, router.Config{
		SessionSecret:      "test-secret",
		CORSAllowedOrigins: []string{allowedOrigin},
	})

	return &testSite{content: content, posts: posts, store: store, api: api, router: r}
}

func (s *testSite) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s *testSite) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return s.do(req)
}

func (s *testSite) stored(t *testing.T, route string) bool {
	t.Helper()
	_, err := s.store.Get(context.Background(), route)
	if err != nil && !errors.Is(err, pagecache.ErrMiss) {
		t.Fatalf("page store read failed: %v", err)
	}
	return err == nil
}

func (s *testSite) nextCursor(t *testing.T) string {
	t.Helper()
	first, err := s.posts.ListSummaries(context.Background(), "")
	if err != nil {
		t.Fatalf("list summaries: %v", err)
	}
	if first.NextPage == "" {
		t.Fatal("expected a next page cursor")
	}
	return first.NextPage
}

func TestShowHomeListsFirstPageAndStoresIt(t *testing.T) {
	site := setupSite(t, "", samplePosts()...)

	rr := site.get("/")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		`href="/post/como-utilizar-hooks"`,
		`href="/post/criando-um-app-cra"`,
		"10 jan 2021",
		"Joseph Oliveira",
		"data-load-more=",
		"Carregar mais posts",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected home page to contain %q", want)
		}
	}
	if strings.Contains(body, "react-server-side") {
		t.Fatalf("home page should only contain the first page of posts")
	}
	if got := rr.Header().Get("X-Page-Source"); got != string(pagecache.SourceGenerated) {
		t.Fatalf("expected generated page, got %q", got)
	}
	if !site.stored(t, "/") {
		t.Fatalf("expected home page to be stored")
	}

	again := site.get("/")
	if got := again.Header().Get("X-Page-Source"); got != string(pagecache.SourceHit) {
		t.Fatalf("expected stored page on second request, got %q", got)
	}
	if again.Body.String() != body {
		t.Fatalf("stored page differs from generated page")
	}
}

func TestLoadMorePostsAppendsNextPage(t *testing.T) {
	site := setupSite(t, "", samplePosts()...)
	cursor := site.nextCursor(t)

	rr := site.get("/posts/more?cursor=" + url.QueryEscape(cursor))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	if !strings.Contains(body, `href="/post/react-server-side"`) {
		t.Fatalf("expected the third post in the fragment, got %s", body)
	}
	if strings.Contains(body, "<html") {
		t.Fatalf("fragment must not include the page layout")
	}
	if strings.Contains(body, "data-load-more") {
		t.Fatalf("last page must not render a load more button")
	}
	if rr.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("expected no-store, got %q", rr.Header().Get("Cache-Control"))
	}
}

func TestLoadMorePostsWithoutCursorHasNoContent(t *testing.T) {
	site := setupSite(t, "", samplePosts()...)

	rr := site.get("/posts/more")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rr.Code)
	}
	if len(site.content.Requests()) != 0 {
		t.Fatalf("expected no content api requests")
	}
}

func TestLoadMorePostsRejectsForeignCursor(t *testing.T) {
	site := setupSite(t, "", samplePosts()...)

	rr := site.get("/posts/more?cursor=" + url.QueryEscape("https://evil.example.com/api/v2/documents/search?page=2"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
	if len(site.content.Requests()) != 0 {
		t.Fatalf("foreign cursor must not be fetched")
	}
}

func TestLoadMorePostsUpstreamFailureOffersRetry(t *testing.T) {
	site := setupSite(t, "", samplePosts()...)
	cursor := site.nextCursor(t)
	site.content.FailNext(1, http.StatusServiceUnavailable)

	rr := site.get("/posts/more?cursor=" + url.QueryEscape(cursor))
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected status %d, got %d", http.StatusBadGateway, rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Tentar novamente") {
		t.Fatalf("expected retry button, got %s", body)
	}
	if !strings.Contains(body, "cursor="+url.QueryEscape(cursor)) {
		t.Fatalf("retry button must keep the cursor, got %s", body)
	}

	retry := site.get("/posts/more?cursor=" + url.QueryEscape(cursor))
	if retry.Code != http.StatusOK {
		t.Fatalf("expected retry to succeed, got %d", retry.Code)
	}
}

func TestShowPostDetailRendersPost(t *testing.T) {
	site := setupSite(t, "", samplePosts()...)

	rr := site.get("/post/criando-um-app-cra")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	for _, want := range []string{
		"<h1 class=\"title\">Criando um app CRA</h1>",
		`src="https://images.prismic.io/banner.png"`,
		"3 fev 2021",
		"Danilo Vieira",
		"2 min",
		"* editado em 19 mar 2021, às 12:00",
		"<strong>Proin et varius</strong>",
		`class="previous" href="/post/react-server-side"`,
		`class="next" href="/post/como-utilizar-hooks"`,
		"Post anterior",
		"Próximo post",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected post page to contain %q", want)
		}
	}
	if strings.Contains(body, "utteranc.es") {
		t.Fatalf("comments must stay off without a repo")
	}
	if !site.stored(t, "/post/criando-um-app-cra") {
		t.Fatalf("expected post page to be stored")
	}
}

func TestShowPostDetailUnknownSlugIsNotFound(t *testing.T) {
	site := setupSite(t, "", samplePosts()...)

	rr := site.get("/post/does-not-exist")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Post não encontrado") {
		t.Fatalf("expected not found page, got %s", rr.Body.String())
	}
	if site.stored(t, "/post/does-not-exist") {
		t.Fatalf("not found pages must not be stored")
	}
}

func TestContentOutageRendersErrorPage(t *testing.T) {
	site := setupSite(t, "", samplePosts()...)
	site.content.FailNext(10, http.StatusServiceUnavailable)

	rr := site.get("/")
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected status %d, got %d", http.StatusBadGateway, rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "O serviço de conteúdo está indisponível no momento.") {
		t.Fatalf("expected error page, got %s", rr.Body.String())
	}
	if rr.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("error page must not be cached")
	}
	if site.stored(t, "/") {
		t.Fatalf("failed renders must not be stored")
	}
}

func TestPreviewFlow(t *testing.T) {
	site := setupSite(t, "", samplePosts()...)
	draft := prismictest.Post(prismictest.PostFixture{
		ID: "b", UID: "criando-um-app-cra", Title: "Rascunho do app CRA",
		Author: "Danilo Vieira", First: day(time.February, 3),
	})
	site.content.SetPreview("preview-ref", draft)

	missing := site.get("/api/preview")
	if missing.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d without token, got %d", http.StatusBadRequest, missing.Code)
	}

	enter := site.get("/api/preview?token=preview-ref&documentId=b")
	if enter.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected status %d, got %d", http.StatusTemporaryRedirect, enter.Code)
	}
	if loc := enter.Header().Get("Location"); loc != "/post/criando-um-app-cra" {
		t.Fatalf("unexpected redirect %q", loc)
	}
	cookies := enter.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("expected a session cookie")
	}

	preview := site.get("/post/criando-um-app-cra", cookies...)
	if preview.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, preview.Code, preview.Body.String())
	}
	body := preview.Body.String()
	if !strings.Contains(body, "Rascunho do app CRA") {
		t.Fatalf("expected draft content, got %s", body)
	}
	if !strings.Contains(body, `href="/api/exit-preview"`) {
		t.Fatalf("expected exit preview link")
	}
	if preview.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("preview pages must not be cached")
	}
	if site.stored(t, "/post/criando-um-app-cra") {
		t.Fatalf("preview pages must not be stored")
	}

	exit := site.get("/api/exit-preview", cookies...)
	if exit.Code != http.StatusTemporaryRedirect || exit.Header().Get("Location") != "/" {
		t.Fatalf("unexpected exit response %d %q", exit.Code, exit.Header().Get("Location"))
	}

	published := site.get("/post/criando-um-app-cra", exit.Result().Cookies()...)
	if !strings.Contains(published.Body.String(), "<h1 class=\"title\">Criando um app CRA</h1>") {
		t.Fatalf("expected published content after leaving preview")
	}
	if strings.Contains(published.Body.String(), "exit-preview") {
		t.Fatalf("exit link must be gone after leaving preview")
	}
}

func TestPreviewUnknownDocumentIsNotFound(t *testing.T) {
	site := setupSite(t, "", samplePosts()...)
	site.content.SetPreview("preview-ref", samplePosts()[0])

	rr := site.get("/api/preview?token=preview-ref&documentId=zzz")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
	if len(rr.Result().Cookies()) != 0 {
		t.Fatalf("preview must not start for an unknown document")
	}
}

func TestRevalidatePurgesGeneratedPages(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte(testWebhookSecret), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash secret: %v", err)
	}
	site := setupSite(t, string(hash), samplePosts()...)

	site.get("/")
	if !site.stored(t, "/") {
		t.Fatalf("expected home page to be stored")
	}

	post := func(payload string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/revalidate", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		return site.do(req)
	}

	if rr := post(`{}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d for missing secret, got %d", http.StatusBadRequest, rr.Code)
	}
	if rr := post(`{"secret":"wrong"}`); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
	}
	if !site.stored(t, "/") {
		t.Fatalf("rejected webhook must not purge pages")
	}

	rr := post(`{"secret":"webhook-secret","type":"api-update","domain":"spacetraveling"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	var payload map[string]bool
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil || !payload["revalidated"] {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}
	if site.stored(t, "/") {
		t.Fatalf("expected pages to be purged")
	}
}

func TestRevalidateDisabledWithoutSecret(t *testing.T) {
	site := setupSite(t, "", samplePosts()...)

	req := httptest.NewRequest(http.MethodPost, "/api/revalidate", strings.NewReader(`{"secret":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	if rr := site.do(req); rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
}

func TestFeedListsEveryPost(t *testing.T) {
	site := setupSite(t, "", samplePosts()...)

	rr := site.get("/feed.xml")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if !strings.HasPrefix(rr.Header().Get("Content-Type"), "application/rss+xml") {
		t.Fatalf("unexpected content type %q", rr.Header().Get("Content-Type"))
	}

	feed, err := gofeed.NewParser().ParseString(rr.Body.String())
	if err != nil {
		t.Fatalf("failed to parse feed: %v", err)
	}
	if feed.Title != "spacetraveling" {
		t.Fatalf("unexpected feed title %q", feed.Title)
	}
	if len(feed.Items) != 3 {
		t.Fatalf("expected 3 items across pages, got %d", len(feed.Items))
	}
	first := feed.Items[0]
	if first.Link != testBaseURL+"/post/como-utilizar-hooks" {
		t.Fatalf("unexpected item link %q", first.Link)
	}
	if first.PublishedParsed == nil || !first.PublishedParsed.Equal(day(time.January, 10)) {
		t.Fatalf("unexpected item date %v", first.PublishedParsed)
	}
}

func TestSitemapAndRobots(t *testing.T) {
	site := setupSite(t, "", samplePosts()...)

	rr := site.get("/sitemap.xml")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		"<loc>" + testBaseURL + "/</loc>",
		"<loc>" + testBaseURL + "/post/react-server-side</loc>",
		"<lastmod>2021-03-25</lastmod>",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected sitemap to contain %q, got %s", want, body)
		}
	}

	robots := site.get("/robots.txt")
	if !strings.Contains(robots.Body.String(), "Sitemap: "+testBaseURL+"/sitemap.xml") {
		t.Fatalf("unexpected robots.txt %q", robots.Body.String())
	}
}

func TestListPostsAPI(t *testing.T) {
	site := setupSite(t, "", samplePosts()...)

	req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	req.Header.Set("Origin", allowedOrigin)
	rr := site.do(req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != allowedOrigin {
		t.Fatalf("expected CORS header for %s, got %q", allowedOrigin, got)
	}

	var first service.PostPagination
	if err := json.Unmarshal(rr.Body.Bytes(), &first); err != nil {
		t.Fatalf("failed to decode page: %v", err)
	}
	if len(first.Results) != 2 || first.NextPage == "" {
		t.Fatalf("unexpected first page %+v", first)
	}

	next := site.get("/api/posts?cursor=" + url.QueryEscape(first.NextPage))
	var second service.PostPagination
	if err := json.Unmarshal(next.Body.Bytes(), &second); err != nil {
		t.Fatalf("failed to decode page: %v", err)
	}
	if len(second.Results) != 1 || second.Results[0].UID != "react-server-side" || second.NextPage != "" {
		t.Fatalf("unexpected second page %+v", second)
	}

	foreign := site.get("/api/posts?cursor=" + url.QueryEscape("https://evil.example.com/x"))
	if foreign.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, foreign.Code)
	}
}

func TestListPostsAPIPreflight(t *testing.T) {
	site := setupSite(t, "", samplePosts()...)

	req := httptest.NewRequest(http.MethodOptions, "/api/posts", nil)
	req.Header.Set("Origin", allowedOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := site.do(req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != allowedOrigin {
		t.Fatalf("expected CORS header, got %q", got)
	}
}

func TestHealthz(t *testing.T) {
	site := setupSite(t, "", samplePosts()...)

	if rr := site.get("/healthz"); rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	site.content.FailNext(1, http.StatusServiceUnavailable)
	if rr := site.get("/healthz"); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, rr.Code)
	}
}

func TestPrerenderStoresHomeAndStaticPaths(t *testing.T) {
	site := setupSite(t, "", samplePosts()...)

	routes, err := site.api.Prerender(context.Background(), 2)
	if err != nil {
		t.Fatalf("prerender: %v", err)
	}
	want := []string{"/", "/post/como-utilizar-hooks", "/post/criando-um-app-cra"}
	if strings.Join(routes, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected routes %v", routes)
	}
	for _, route := range want {
		if !site.stored(t, route) {
			t.Fatalf("expected %s to be stored", route)
		}
	}
	if site.stored(t, "/post/react-server-side") {
		t.Fatalf("posts past the limit are generated on demand")
	}

	rr := site.get("/post/criando-um-app-cra")
	if got := rr.Header().Get("X-Page-Source"); got != string(pagecache.SourceHit) {
		t.Fatalf("expected prerendered page to be served, got %q", got)
	}
}

func TestUnknownRouteRendersNotFound(t *testing.T) {
	site := setupSite(t, "", samplePosts()...)

	rr := site.get("/does/not/exist")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
	if rr.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected a request id header")
	}
}
