package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ash-333/nepse-data/config"
	"github.com/Ash-333/nepse-data/models"
	"github.com/Ash-333/nepse-data/routes"
	"github.com/Ash-333/nepse-data/scheduler"
	"github.com/Ash-333/nepse-data/services"
	"github.com/Ash-333/nepse-data/services/datafetcher"
	"github.com/Ash-333/nepse-data/services/expo"

	"github.com/gin-gonic/gin"
)

func main() {
	log.Println("==============================================")
	log.Println("  NEPSE Data API - Starting...")
	log.Println("==============================================")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Config load failed: %v", err)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestLogger())

	// Health endpoints come up before the heavy initialization so the
	// platform can see the service is alive
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server listening on 0.0.0.0:%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Initialize the database, services, routes and scheduler in background
	var jobScheduler *scheduler.Scheduler
	var realtime *services.RealtimeTickerService
	go func() {
		db, err := config.InitDB()
		if err != nil {
			log.Printf("ERROR: Database connection failed: %v", err)
			log.Println("Service will continue in limited mode (health check only)")
			return
		}

		log.Println("Running database migrations...")
		if err := models.MigrateUserModels(db); err != nil {
			log.Printf("ERROR: User migration failed: %v", err)
			return
		}
		if err := models.MigrateAlertModels(db); err != nil {
			log.Printf("ERROR: Alert migration failed: %v", err)
			return
		}

		loc, err := time.LoadLocation(cfg.MarketTimezone)
		if err != nil {
			log.Printf("Unknown timezone %q, falling back to UTC: %v", cfg.MarketTimezone, err)
			loc = time.UTC
		}
		clock := services.SystemClock()

		cacheStore := buildCacheStore(cfg)
		fetcher := datafetcher.NewFetcher(cfg.FetchTimeout)
		cache := services.NewCacheService(cacheStore, fetcher, clock)

		tokens := services.NewGormTokenStore(db)
		notifier := services.NewNotificationService(expo.NewClient(30*time.Second), tokens)

		detector := services.NewChangeDetector()
		marketStatus := services.NewMarketStatusService(fetcher, detector, notifier, clock, loc)
		ipos := services.NewIpoService(fetcher, detector, notifier)

		alertStore := services.NewGormAlertStore(db)
		alerts := services.NewPriceAlertService(alertStore, cache, notifier, clock, cfg.PriceAlertCooldown)

		realtime = services.NewRealtimeTickerService()
		go realtime.Run()

		routes.SetupRoutes(router, db, routes.Deps{
			Cache:    cache,
			Tokens:   tokens,
			Notifier: notifier,
			Realtime: realtime,
		})

		marketWindow, err := services.MarketHoursWindow(cfg.MarketOpenMinute, cfg.MarketCloseMinute, loc)
		if err != nil {
			log.Printf("ERROR: Invalid market hours window: %v", err)
			return
		}
		businessWindow, err := services.BusinessDayWindow(loc)
		if err != nil {
			log.Printf("ERROR: Invalid business day window: %v", err)
			return
		}

		jobScheduler = scheduler.NewScheduler(&scheduler.Jobs{
			Cache:        cache,
			Alerts:       alerts,
			MarketStatus: marketStatus,
			Ipos:         ipos,
			Realtime:     realtime,
		}, clock, loc, marketWindow, businessWindow)
		jobScheduler.Start()

		log.Println("Application fully initialized")
	}()

	gracefulShutdown(server, func() {
		if jobScheduler != nil {
			jobScheduler.Stop()
		}
		if realtime != nil {
			realtime.Stop()
		}
	})
}

// buildCacheStore picks the cache backend: MongoDB when configured, a local
// SQLite file as the durable fallback, in-memory otherwise.
func buildCacheStore(cfg *config.Config) services.CacheStore {
	if cfg.MongoURI != "" {
		store, err := services.NewMongoCacheStore(context.Background(), cfg.MongoURI)
		if err == nil {
			return store
		}
		log.Printf("MongoDB cache store unavailable, falling back: %v", err)
	}
	if cfg.CacheDBPath != "" {
		store, err := services.NewSQLiteCacheStore(cfg.CacheDBPath)
		if err == nil {
			return store
		}
		log.Printf("SQLite cache store unavailable, falling back: %v", err)
	}
	log.Println("Using in-memory cache store")
	return services.NewMemoryCacheStore()
}

func gracefulShutdown(server *http.Server, stopBackground func()) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	stopBackground()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited")
}

// corsMiddleware allows cross-origin requests from the mobile/web clients
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// requestLogger logs one line per request
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Printf("%s %s %d %s",
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			time.Since(start),
		)
	}
}
