package http

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkurin/huddle/internal/adapters/signal"
	"github.com/dkurin/huddle/internal/app"
	"github.com/dkurin/huddle/internal/auth"
	"github.com/dkurin/huddle/internal/config"
	"github.com/dkurin/huddle/internal/storage"
)

// Deps is everything the router hands to its handlers.
type Deps struct {
	Coord    *app.Coordinator
	Tokens   *auth.Tokens
	Users    *storage.Users
	Meetings *storage.Meetings
	Mail     *storage.MailJobs
	Signal   *signal.Controller
}

func SetupRouter(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	// Static UI. The SPA owns /login and /room/* client-side.
	r.Static("/static", cfg.StaticPath)
	for _, route := range []string{"/", "/login", "/room/:id", "/meeting/:id"} {
		r.GET(route, func(c *gin.Context) {
			c.File(cfg.StaticPath + "/index.html")
		})
	}

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	h := &handlers{deps: deps}

	api := r.Group("/api")
	api.POST("/login", h.login)

	authed := api.Group("")
	authed.Use(bearerMiddleware(deps.Tokens))
	authed.GET("/users/online", h.onlineUsers)
	authed.GET("/meetings", h.listMeetings)
	authed.POST("/meetings", h.createMeeting)
	authed.DELETE("/meetings/:id", h.deleteMeeting)

	api.GET("/ws/signal", func(c *gin.Context) {
		deps.Signal.HandleSignal(ctx, c)
	})

	return r
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
