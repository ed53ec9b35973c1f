package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pomodoro/tracker/internal/handler"
	"pomodoro/tracker/internal/middleware"
)

type Handlers struct {
	Auth    *handler.AuthHandler
	Timer   *handler.TimerHandler
	Session *handler.SessionHandler
}

func New(tokens middleware.TokenParser, handlers Handlers, corsOrigins []string) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery(), middleware.CORS(corsOrigins))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api")
	requireAuth := middleware.Auth(tokens)

	auth := api.Group("/auth")
	auth.POST("/register", handlers.Auth.Register)
	auth.POST("/login", handlers.Auth.Login)
	auth.GET("/me", requireAuth, handlers.Auth.Me)
	auth.POST("/logout", requireAuth, handlers.Auth.Logout)

	timer := api.Group("/timer")
	timer.Use(requireAuth)
	timer.GET("/state", handlers.Timer.GetState)
	timer.POST("/start", handlers.Timer.Start)
	timer.POST("/pause", handlers.Timer.Pause)
	timer.POST("/stop", handlers.Timer.Stop)
	timer.POST("/reset", handlers.Timer.Reset)
	timer.POST("/mode", handlers.Timer.SetMode)
	timer.GET("/settings", handlers.Timer.GetSettings)
	timer.PUT("/settings", handlers.Timer.UpdateSettings)
	timer.POST("/load", handlers.Timer.LoadSession)

	sessions := api.Group("/sessions")
	sessions.Use(requireAuth)
	sessions.GET("", handlers.Session.List)
	sessions.GET("/stats", handlers.Session.Stats)
	sessions.GET("/:id", handlers.Session.Get)
	sessions.DELETE("/:id", handlers.Session.Delete)

	return engine
}
