package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/reviewinn/backend/internal/aggregation"
	"github.com/reviewinn/backend/internal/auth"
	"github.com/reviewinn/backend/internal/cache"
	"github.com/reviewinn/backend/internal/category"
	"github.com/reviewinn/backend/internal/circles"
	"github.com/reviewinn/backend/internal/config"
	"github.com/reviewinn/backend/internal/database"
	"github.com/reviewinn/backend/internal/handlers"
	"github.com/reviewinn/backend/internal/logger"
	"github.com/reviewinn/backend/internal/middleware"
	"github.com/reviewinn/backend/internal/notifications"
	"github.com/reviewinn/backend/internal/ratelimit"
	"github.com/reviewinn/backend/internal/reactions"
	"github.com/reviewinn/backend/internal/repository"
	"github.com/reviewinn/backend/internal/views"
	"go.uber.org/zap"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	logger.Log.Info("=== ReviewInn server starting ===",
		zap.String("environment", cfg.Environment),
		zap.String("port", cfg.Port),
	)

	// Initialize database
	if err := database.Initialize(cfg); err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer database.Close()

	// Run migrations
	if err := database.Migrate(); err != nil {
		logger.Log.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Initialize cache. The server runs without it: the cache store is
	// best-effort and the limiter falls back to in-process buckets.
	var cacheStore *cache.Store
	var bucketStore ratelimit.Store
	redisClient, err := cache.NewRedisClient(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword)
	if err != nil {
		logger.Log.Warn("Redis unavailable, running without shared cache", zap.Error(err))
		cacheStore = cache.NewStore(nil, cfg.CacheTTL)
		bucketStore = ratelimit.NewMemoryStore()
	} else {
		defer redisClient.Close()
		cacheStore = cache.NewStore(redisClient, cfg.CacheTTL)
		bucketStore = ratelimit.NewCacheStore(cacheStore)
	}

	// Domain services
	authService := auth.NewService(cfg.JWTSecret, cfg.AccessTokenTTL)
	categoryEngine := category.NewEngine(database.DB)
	aggEngine := aggregation.NewEngine(database.DB, categoryEngine)
	notificationService := notifications.NewService(database.DB)
	reactionService := reactions.NewService(database.DB, aggEngine, notificationService)
	viewTracker := views.NewTracker(database.DB)
	circleService := circles.NewService(database.DB, notificationService)
	userRepo := repository.NewUserRepository(database.DB)

	policies := ratelimit.DefaultPolicies(ratelimit.Policy{
		RPM:   cfg.RateLimitRPM,
		Burst: cfg.RateLimitBurst,
	})
	limiter := ratelimit.New(bucketStore, policies, 5*time.Minute)

	h := handlers.NewHandlers(
		authService,
		categoryEngine,
		aggEngine,
		reactionService,
		viewTracker,
		circleService,
		notificationService,
		userRepo,
		cacheStore,
		cfg.IsDevelopment(),
	)

	// Hourly sweep of expired view rows and notifications.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				if n, err := viewTracker.SweepExpired(sweepCtx); err != nil {
					logger.WarnWithError("view sweep failed", err)
				} else if n > 0 {
					logger.Log.Info("swept expired views", zap.Int64("rows", n))
				}
				if n, err := notificationService.SweepExpired(sweepCtx); err != nil {
					logger.WarnWithError("notification sweep failed", err)
				} else if n > 0 {
					logger.Log.Info("swept expired notifications", zap.Int64("rows", n))
				}
			}
		}
	}()

	// Setup Gin router
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.ErrorTrap(cfg.IsDevelopment()))
	r.Use(middleware.RequestLogger())
	r.Use(middleware.Metrics())
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID", "X-Session-ID"}
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	r.Use(middleware.RateLimitIP(limiter))

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		// Authentication routes (public)
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", h.Register)
			authGroup.POST("/login", h.Login)
			authGroup.GET("/me", authService.Middleware(), h.Me)
		}

		// Category routes (public)
		categories := api.Group("/categories")
		{
			categories.GET("", h.ListRootCategories)
			categories.GET("/leaves", h.CategoryLeaves)
			categories.GET("/search", h.SearchCategories)
			categories.GET("/questions", h.CategoryQuestions)
			categories.GET("/:id/children", h.CategoryChildren)
			categories.GET("/:id/breadcrumb", h.CategoryBreadcrumb)
			categories.POST("", authService.Middleware(), middleware.RateLimitUser(limiter), h.CreateCategory)
		}

		// Entity routes. Reads are public with optional auth for
		// personalization; writes require a principal.
		entities := api.Group("/entities")
		{
			entities.GET("", h.ListEntities)
			entities.GET("/trending", h.TrendingEntities)
			entities.GET("/recently-viewed", authService.Middleware(), h.RecentlyViewedEntities)
			entities.GET("/:id", h.GetEntity)
			entities.GET("/:id/similar", h.SimilarEntities)
			entities.GET("/:id/questions", h.EntityQuestions)
			entities.POST("/:id/view", authService.OptionalMiddleware(), h.RecordEntityView)

			protected := entities.Group("")
			protected.Use(authService.Middleware(), middleware.RateLimitUser(limiter))
			protected.POST("", h.CreateEntity)
			protected.PUT("/:id", h.UpdateEntity)
			protected.DELETE("/:id", h.DeleteEntity)
		}

		// Review routes
		reviews := api.Group("/reviews")
		{
			reviews.GET("", h.ListReviews)
			reviews.GET("/:id", h.GetReview)
			reviews.GET("/:id/comments", h.ListComments)
			reviews.GET("/:id/reactions", authService.OptionalMiddleware(), h.ReviewReactions)
			reviews.POST("/:id/view", authService.OptionalMiddleware(), h.RecordReviewView)

			protected := reviews.Group("")
			protected.Use(authService.Middleware(), middleware.RateLimitUser(limiter))
			protected.POST("", h.CreateReview)
			protected.PUT("/:id", h.UpdateReview)
			protected.DELETE("/:id", h.DeleteReview)
			protected.POST("/:id/react", h.ReactToReview)
			protected.DELETE("/:id/react", h.UnreactToReview)
			protected.POST("/:id/comments", h.CreateComment)
		}

		// Comment routes
		comments := api.Group("/comments")
		{
			comments.GET("/:id/reactions", authService.OptionalMiddleware(), h.CommentReactions)

			protected := comments.Group("")
			protected.Use(authService.Middleware(), middleware.RateLimitUser(limiter))
			protected.DELETE("/:id", h.DeleteComment)
			protected.POST("/:id/react", h.ReactToComment)
			protected.DELETE("/:id/react", h.UnreactToComment)
			protected.POST("/:id/helpful", h.VoteCommentHelpful)
		}

		// Circle routes (all authenticated)
		circleGroup := api.Group("/circles")
		{
			circleGroup.Use(authService.Middleware(), middleware.RateLimitUser(limiter))
			circleGroup.GET("", h.MyCircles)
			circleGroup.POST("", h.CreateCircle)
			circleGroup.GET("/suggestions", h.CircleSuggestions)
			circleGroup.GET("/requests", h.ListCircleRequests)
			circleGroup.POST("/requests", h.SendCircleRequest)
			circleGroup.POST("/requests/:id/respond", h.RespondToCircleRequest)
			circleGroup.DELETE("/requests/:id", h.CancelCircleRequest)
			circleGroup.GET("/invites", h.ListCircleInvites)
			circleGroup.POST("/invites/:id/respond", h.RespondToCircleInvite)
			circleGroup.POST("/:id/invite", h.InviteToCircle)
			circleGroup.GET("/:id/members", h.CircleMembers)
			circleGroup.PUT("/:id/members/:userId/trust", h.UpdateMemberTrust)
			circleGroup.DELETE("/:id/members/:userId", h.RemoveCircleMember)
			circleGroup.POST("/blocks/:userId", h.BlockUser)
			circleGroup.DELETE("/blocks/:userId", h.UnblockUser)
		}

		// Notification routes (all authenticated)
		notificationGroup := api.Group("/notifications")
		{
			notificationGroup.Use(authService.Middleware(), middleware.RateLimitUser(limiter))
			notificationGroup.GET("", h.ListNotifications)
			notificationGroup.GET("/counts", h.NotificationCounts)
			notificationGroup.POST("/read", h.MarkNotificationsRead)
			notificationGroup.POST("/seen", h.MarkNotificationsSeen)
		}

		// User routes (public reads)
		users := api.Group("/users")
		{
			users.GET("/search", h.SearchUsers)
			users.GET("/top", h.TopReviewers)
			users.GET("/:id", h.GetUser)
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logger.Log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("forced shutdown", zap.Error(err))
	}
	logger.Log.Info("server stopped")
}
