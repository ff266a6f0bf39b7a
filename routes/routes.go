package routes

import (
	"github.com/Ash-333/nepse-data/config"
	"github.com/Ash-333/nepse-data/controllers"
	"github.com/Ash-333/nepse-data/middleware"
	"github.com/Ash-333/nepse-data/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps are the shared services the route handlers use
type Deps struct {
	Cache    *services.CacheService
	Tokens   services.TokenStore
	Notifier *services.NotificationService
	Realtime *services.RealtimeTickerService
}

// SetupRoutes sets up all API routes
func SetupRoutes(router *gin.Engine, db *gorm.DB, deps Deps) {
	jwtSecret := config.AppConfig.JWTSecret

	publicData := controllers.NewPublicDataController(deps.Cache)
	auth := controllers.NewAuthController(db, jwtSecret)
	alerts := controllers.NewAlertController(db)
	notifications := controllers.NewNotificationController(deps.Tokens, deps.Notifier)

	api := router.Group("/api")
	{
		// Public market data
		api.GET("/ipos", publicData.GetCombined)
		api.GET("/ipos/ongoing", publicData.GetOngoingIpos)
		api.GET("/ipos/upcoming", publicData.GetUpcomingIpos)
		api.GET("/tickers", publicData.GetTickers)
		api.GET("/ticker/:ticker", publicData.GetTicker)
		api.GET("/news", publicData.GetNews)
		api.GET("/indices", publicData.GetIndices)
		api.GET("/sector-performance", publicData.GetSectorPerformance)
		api.GET("/market-status", publicData.GetMarketStatus)
		api.GET("/trending", publicData.GetTrendingStocks)

		// Auth
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", auth.Register)
			authGroup.POST("/login", auth.Login)
		}

		// Price alerts (authenticated)
		alertGroup := api.Group("/alerts", middleware.JWTAuthMiddleware(jwtSecret))
		{
			alertGroup.GET("", alerts.ListAlerts)
			alertGroup.POST("", alerts.CreateAlert)
			alertGroup.DELETE("/:id", alerts.DeleteAlert)
		}

		// Push notifications; registration works anonymously too
		notifGroup := api.Group("/notifications", middleware.OptionalJWTAuthMiddleware(jwtSecret))
		{
			notifGroup.POST("/register", notifications.RegisterToken)
			notifGroup.POST("/unregister", notifications.UnregisterToken)
			notifGroup.POST("/test", notifications.SendTestNotification)
		}
	}

	// Live ticker stream
	if deps.Realtime != nil {
		router.GET("/ws/tickers", func(c *gin.Context) {
			deps.Realtime.HandleWebSocket(c.Writer, c.Request)
		})
	}
}
