package router

import (
	"io/fs"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/spacetraveling/internal/handler"
	"github.com/spacetraveling/internal/logger"
	"github.com/spacetraveling/internal/trace"
	"github.com/spacetraveling/internal/view"
	"github.com/spacetraveling/web"
)

const sessionName = "spacetraveling_session"

// Config holds router level settings.
type Config struct {
	SessionSecret      string
	CORSAllowedOrigins []string
}

// SetupRouter wires middleware, sessions, templates and routes. An empty
// session secret is replaced by a random one for the life of the process.
func SetupRouter(api *handler.API, views *view.Renderer, cfg Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(), SecurityHeaders())

	secret := cfg.SessionSecret
	if secret == "" {
		secret = trace.GenerateID()
		logger.Log.Warn("SESSION_SECRET not set, preview sessions will not survive restarts")
	}
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))

	r.SetHTMLTemplate(views.Template())

	staticFS, _ := fs.Sub(web.StaticAssets, "static")
	r.StaticFS("/static", http.FS(staticFS))

	r.GET("/", api.ShowHome)
	r.GET("/posts/more", api.LoadMorePosts)
	r.GET("/post/:slug", api.ShowPostDetail)
	r.GET("/feed.xml", api.Feed)
	r.GET("/sitemap.xml", api.Sitemap)
	r.GET("/robots.txt", api.Robots)
	r.GET("/healthz", api.Healthz)

	apiGroup := r.Group("/api")
	{
		corsPolicy := CORS(cfg.CORSAllowedOrigins)
		apiGroup.GET("/posts", corsPolicy, api.ListPostsAPI)
		apiGroup.OPTIONS("/posts", corsPolicy)

		apiGroup.GET("/preview", api.Preview)
		apiGroup.GET("/exit-preview", api.ExitPreview)
		apiGroup.POST("/revalidate", api.Revalidate)
	}

	r.NoRoute(api.NotFound)

	return r
}
