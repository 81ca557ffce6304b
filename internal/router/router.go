package router

import (
	"github.com/gin-gonic/gin"
	"github.com/tmarsden/tradescout-backend/config"
	"github.com/tmarsden/tradescout-backend/internal/app/controller"
	"github.com/tmarsden/tradescout-backend/internal/middleware"
)

type Router struct {
	searchController   *controller.SearchController
	businessController *controller.BusinessController
	exportController   *controller.ExportController
	config             *config.Config
}

func NewRouter(
	searchController *controller.SearchController,
	businessController *controller.BusinessController,
	exportController *controller.ExportController,
	cfg *config.Config,
) *Router {
	return &Router{
		searchController:   searchController,
		businessController: businessController,
		exportController:   exportController,
		config:             cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"message": "TradeScout API is running",
		})
	})

	v1 := router.Group("/api/v1")
	{
		v1.POST("/search", r.searchController.Search)

		businesses := v1.Group("/businesses")
		{
			businesses.GET("/nearby", r.businessController.Nearby)
			businesses.GET("/stats", r.businessController.Stats)
		}

		exports := v1.Group("/exports")
		{
			exports.GET("/download", r.exportController.Download)
			exports.POST("/upload", r.exportController.Upload)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
