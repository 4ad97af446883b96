package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/jimdaga/tophive/internal/auth"
	"github.com/jimdaga/tophive/internal/briefings"
	"github.com/jimdaga/tophive/internal/catalog"
	"github.com/jimdaga/tophive/internal/companies"
	"github.com/jimdaga/tophive/internal/health"
	"github.com/jimdaga/tophive/internal/metrics"
)

const sessionCookieName = "tophive_session"

// app is everything the router serves
type app struct {
	sessionSecret string
	secureCookies bool
	async         bool
	oauth         bool

	manager   *auth.Manager
	hubs      *auth.Hubs
	resolve   auth.Resolver
	briefings *briefings.Service
	catalog   *catalog.Registry
	lookups   *companies.Pool
	checks    map[string]health.Check
}

func newRouter(a *app) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), metrics.Middleware(), requestLogger())

	store := cookie.NewStore([]byte(a.sessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionCookieName, store))

	// Health
	r.GET("/health", gin.WrapF(health.Handler))
	r.GET("/ready", health.Readiness(a.checks, 2*time.Second))
	r.GET("/metrics", metrics.Handler())

	// Public
	r.GET("/", auth.HomeHandler(a.resolve))
	r.GET("/login", auth.PageHandler(a.resolve, "login"))
	r.POST("/login", auth.SignInHandler(a.manager))
	r.GET("/signup", auth.PageHandler(a.resolve, "signup"))
	r.POST("/signup", auth.SignUpHandler(a.manager))
	r.POST("/logout", auth.SignOutHandler(a.manager))
	r.GET("/api/session", auth.SessionHandler(a.resolve, a.hubs))
	if a.oauth {
		r.GET("/auth/google", auth.HandleLogin)
		r.GET("/auth/google/callback", auth.HandleCallback(a.manager))
	}

	// Guarded
	protected := r.Group("/")
	protected.Use(auth.RequireAuth(a.resolve))
	{
		protected.GET("/dashboard", briefings.DashboardHandler(a.briefings))
		protected.GET("/briefing/new", briefings.NewBriefingFormHandler(a.catalog))
		protected.POST("/briefing/new", briefings.CreateBriefingHandler(a.briefings, a.async))
		protected.GET("/briefing/:id", briefings.GetBriefingHandler(a.briefings))
		protected.PATCH("/briefing/:id/notes", briefings.UpdateNotesHandler(a.briefings))

		protected.GET("/api/companies", companies.SearchHandler(a.lookups))
		protected.GET("/api/requests/:id", briefings.RequestStatusHandler(a.briefings))
		protected.POST("/api/requests/:id/retry", briefings.RetryRequestHandler(a.briefings))
	}

	r.NoRoute(func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/")
	})

	return r
}

// requestLogger logs one line per request
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		slog.Log(c.Request.Context(), level, "HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
