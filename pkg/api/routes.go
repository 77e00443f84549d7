package api

import (
	"stockdrop/pkg/auth"
	"stockdrop/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, handlers *Handlers, authService *auth.Service, metrics *monitoring.MetricsCollector, requestsPerMinute int) {
	// Global middleware
	router.Use(CORSMiddleware())
	router.Use(RequestIDMiddleware())
	router.Use(MetricsMiddleware(metrics))
	router.Use(ErrorHandlerMiddleware())
	router.Use(RateLimitMiddleware(requestsPerMinute))

	// Health check endpoints (no auth required)
	router.GET("/health", handlers.Health)
	router.GET("/health/live", handlers.Health)
	router.GET("/health/ready", handlers.Health)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Ranked stock lists
		stocks := v1.Group("/stocks")
		{
			stocks.GET("/losers", handlers.GetLosers)
			stocks.GET("/gainers", handlers.GetGainers)
			stocks.POST("/screener", handlers.RunScreener)
		}

		// Market overview
		marketsGroup := v1.Group("/markets")
		{
			marketsGroup.GET("/overview", handlers.MarketsOverview)
			marketsGroup.GET("/hours", handlers.MarketHours)
		}

		// Sector browsing
		sectors := v1.Group("/sectors")
		{
			sectors.GET("", handlers.GetSectors)
			sectors.GET("/:sector", handlers.BrowseSector)
		}

		// Account endpoints
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/signup", handlers.SignUp)
			authGroup.POST("/signin", handlers.SignIn)
			authGroup.POST("/reset", handlers.RequestPasswordReset)
			authGroup.POST("/reset/confirm", handlers.ResetPassword)
		}

		// Settings endpoints (authenticated)
		settingsGroup := v1.Group("/settings")
		settingsGroup.Use(AuthMiddleware(authService))
		{
			settingsGroup.GET("", handlers.GetSettings)
			settingsGroup.PUT("", handlers.UpdateSettings)
			settingsGroup.GET("/theme", handlers.GetTheme)
		}

		// System monitoring endpoints
		system := v1.Group("/system")
		{
			system.GET("/health", handlers.Health)
			system.GET("/metrics", handlers.GetMetrics)
		}
	}
}
