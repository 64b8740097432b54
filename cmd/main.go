package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"newsdesk/internal/articles"
	"newsdesk/internal/auth"
	"newsdesk/internal/cache"
	"newsdesk/internal/database"
	"newsdesk/internal/features"
	"newsdesk/internal/feeds"
	"newsdesk/internal/handlers"
	"newsdesk/internal/notify"
	"newsdesk/internal/worker"
	"newsdesk/internal/workflow"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load database configuration
	dbConfig := database.LoadConfig()

	// Connect to database
	if err := database.Connect(dbConfig); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer database.Close()

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	// Cache backend: Redis when configured, in-process memory otherwise
	store := newCacheStore()
	versions := cache.NewVersions(store)

	notifier := notify.NewClient()

	workflowService := workflow.NewService(database.DB, versions, notifier)
	articlesService := articles.NewService(database.DB, versions, notifier)
	featuresService := features.NewService(database.DB, versions)
	feedsService := feeds.NewService(database.DB, store, versions, feeds.NewCDNResolver())

	// Initialize and start the scheduled-publish worker
	workerService := worker.NewWorkerService(workflowService, sweepInterval())
	if err := workerService.Start(); err != nil {
		log.Fatal("Failed to start background workers:", err)
	}

	// Setup graceful shutdown
	setupGracefulShutdown(workerService, store)

	// Setup HTTP server
	setupServer(workflowService, articlesService, featuresService, feedsService)
}

func newCacheStore() cache.Store {
	if os.Getenv("REDIS_ADDR") != "" {
		return cache.NewRedisStore()
	}
	log.Println("REDIS_ADDR not set, using in-process cache")
	return cache.NewMemoryStore()
}

func sweepInterval() time.Duration {
	raw := os.Getenv("PUBLISH_SWEEP_INTERVAL")
	if raw == "" {
		return time.Minute
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("Invalid PUBLISH_SWEEP_INTERVAL %q, using 1m", raw)
		return time.Minute
	}
	return d
}

func setupGracefulShutdown(workerService *worker.WorkerService, store cache.Store) {
	// Setup signal handling for graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Received shutdown signal, gracefully shutting down...")

		// Stop background workers
		workerService.Stop()

		if redisStore, ok := store.(*cache.RedisStore); ok {
			redisStore.Close()
		}

		// Close database connection
		database.Close()

		log.Println("Shutdown complete")
		os.Exit(0)
	}()
}

func setupServer(
	workflowService *workflow.Service,
	articlesService *articles.Service,
	featuresService *features.Service,
	feedsService *feeds.Service,
) {
	// Set Gin mode based on environment
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create router
	r := gin.Default()

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Initialize handlers
	cmsHandler := handlers.NewCMSHandler(articlesService, workflowService)
	featureHandler := handlers.NewFeatureHandler(featuresService)
	publicHandler := handlers.NewPublicHandler(feedsService)
	docsHandler := handlers.NewDocsHandler()

	verifier := auth.NewVerifier()

	// Health check
	r.GET("/health", publicHandler.HealthCheck)

	// Serve Markdown documentation as HTML
	r.GET("/doc/:doc", docsHandler.ServeMarkdownAsHTML)

	// Public read API
	public := r.Group("/api/articles")
	{
		public.GET("", publicHandler.ListArticles)
		public.GET("/home", publicHandler.HomeFeed)
		public.GET("/trending", publicHandler.Trending)
		public.GET("/featured", featureHandler.ListFeatured)
		public.GET("/category-block", publicHandler.CategoryBlocks)
		public.GET("/published", publicHandler.PublishedArticles)
		public.GET("/filters", publicHandler.Filters)
		public.GET("/search-suggestions", publicHandler.SearchSuggestions)
		public.GET("/section/:section", publicHandler.SectionFeed)
		public.GET("/:section/:slug", publicHandler.ArticleDetail)
		public.POST("/:section/:slug/view", publicHandler.TrackView)
	}

	// Editorial API (JWT protected)
	cms := r.Group("/api/cms/articles", verifier.Middleware())
	{
		cms.GET("", cmsHandler.ListArticles)
		cms.POST("", cmsHandler.CreateArticle)
		cms.GET("/search", cmsHandler.SearchArticles)
		cms.GET("/suggestions", cmsHandler.SuggestArticles)
		cms.POST("/delete", cmsHandler.DeleteArticles)

		cms.GET("/:id", cmsHandler.GetArticle)
		cms.PATCH("/:id", cmsHandler.UpdateArticle)
		cms.DELETE("/:id", cmsHandler.DeleteArticle)

		cms.PUT("/:id/translations", cmsHandler.UpsertTranslation)
		cms.PUT("/:id/categories", cmsHandler.AssignCategories)
		cms.POST("/:id/media", cmsHandler.AttachMedia)
		cms.GET("/:id/revisions", cmsHandler.ListRevisions)

		cms.PATCH("/:id/review", cmsHandler.SubmitForReview)
		cms.PATCH("/:id/publish", cmsHandler.PublishArticle)
		cms.PATCH("/:id/direct-publish", cmsHandler.DirectPublish)
		cms.PATCH("/:id/reject", cmsHandler.RejectArticle)
		cms.PATCH("/:id/deactivate", cmsHandler.DeactivateArticle)
		cms.PATCH("/:id/activate", cmsHandler.ActivateArticle)

		cms.POST("/:id/feature", featureHandler.PinArticle)
		cms.DELETE("/:id/feature", featureHandler.UnpinArticle)
	}

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting server on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
