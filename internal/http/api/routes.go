// Package api registers the HTTP surface of the account gateway.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shaiyaportal/accountd/internal/http/api/handlers"
	"github.com/shaiyaportal/accountd/internal/ratelimit"
	"github.com/shaiyaportal/accountd/internal/reconcile"
	"gorm.io/gorm"
)

// Options carries the dependencies the route handlers need.
type Options struct {
	Engine         *reconcile.Engine
	DB             *gorm.DB
	Limiter        ratelimit.Limiter
	LoginRateLimit int
	Debug          bool
}

// RegisterRoutes mounts all endpoints on the gin engine.
func RegisterRoutes(router *gin.Engine, opts Options) {
	router.Use(corsMiddleware())

	authHandler := handlers.NewAuthHandler(opts.Engine, opts.Limiter, opts.LoginRateLimit, opts.Debug)
	statusHandler := handlers.NewStatusHandler(opts.DB)
	characterHandler := handlers.NewCharacterHandler(opts.DB)

	router.GET("/health", healthHandler("Game login server is running"))

	game := router.Group("/game")
	game.POST("/login", authHandler.Login)

	apiGroup := router.Group("/api")
	apiGroup.GET("/health", healthHandler("Registration API is running"))
	apiGroup.POST("/post-registration", authHandler.PostRegistration)
	apiGroup.GET("/server/status", statusHandler.ServerStatus)
	apiGroup.GET("/server/grb", statusHandler.GRB)
	apiGroup.GET("/user/:uid/characters", characterHandler.ListByUser)
	apiGroup.GET("/rankings/guilds", characterHandler.GuildRankings)
	apiGroup.GET("/rankings/:type", characterHandler.Rankings)
}

// healthHandler returns a static liveness payload.
func healthHandler(message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": message})
	}
}

// corsMiddleware allows the web frontend to call the API cross-origin.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}
