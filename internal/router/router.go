package router

import (
	"log"

	"firebase.google.com/go/v4/auth"
	"github.com/corvusant/skylark/backend/internal/handlers"
	"github.com/corvusant/skylark/backend/internal/middleware"
	"github.com/corvusant/skylark/backend/internal/models"
	"github.com/corvusant/skylark/backend/internal/notifications"
	"github.com/corvusant/skylark/backend/internal/repositories"
	"github.com/corvusant/skylark/backend/pkg/config"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.Use(eMiddleware.Logger())
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	log.Println("Global middleware configured.")
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, cfg *config.Config, pgdb *gorm.DB, mgClient *mongo.Client, firebaseAuthClient *auth.Client, messenger notifications.Messenger) {
	// AutoMigrate PostgreSQL models
	err := pgdb.AutoMigrate(
		&models.User{},
		&models.Follow{},
		&models.Like{},
		&models.Repost{},
		&models.Notification{},
		&models.WebhookEndpoint{},
	)
	if err != nil {
		log.Fatalf("Failed to auto migrate models: %v", err)
	}
	log.Println("PostgreSQL auto-migrations completed for all models.")

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// --- Initialize Repositories ---
	userRepo := repositories.NewPostgresUserRepository(pgdb)
	postRepo := repositories.NewMongoPostRepository(mgClient.Database("skylark"))
	likeRepo := repositories.NewPostgresLikeRepository(pgdb)
	repostRepo := repositories.NewPostgresRepostRepository(pgdb)
	followRepo := repositories.NewPostgresFollowRepository(pgdb)
	notificationRepo := repositories.NewPostgresNotificationRepository(pgdb)
	webhookRepo := repositories.NewPostgresWebhookEndpointRepository(pgdb)

	// --- Notification engine ---
	dispatcher := notifications.NewDispatcher(webhookRepo)
	notificationService := notifications.NewService(notificationRepo, webhookRepo, userRepo, postRepo, dispatcher, messenger, cfg.PublicBaseURL)

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/v1/auth")
	authHandler := handlers.NewAuthHandler(userRepo, firebaseAuthClient, cfg.JWTSecret)
	authHandler.RegisterAuthRoutes(authGroup)
	log.Println("Auth routes configured.")

	// --- Protected routes (require JWT authentication) ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	log.Println("JWT authentication middleware applied to /api/v1 group.")

	// User profile routes
	userHandler := handlers.NewUserHandler(userRepo)
	userHandler.RegisterProfileRoutes(api)
	api.GET("/users/search", userHandler.SearchUsers)
	log.Println("User profile routes configured.")

	// Post routes
	postHandler := handlers.NewPostHandler(postRepo, userRepo, likeRepo, repostRepo, notificationService)
	postHandler.RegisterPostRoutes(api)
	log.Println("Post routes configured.")

	// Feed routes
	feedHandler := handlers.NewFeedHandler(postRepo, userRepo, followRepo, likeRepo, repostRepo)
	feedHandler.RegisterFeedRoutes(api)
	log.Println("Feed routes configured.")

	// Follow routes
	followHandler := handlers.NewFollowHandler(followRepo, userRepo, notificationService)
	followHandler.RegisterFollowRoutes(api)
	log.Println("Follow routes configured.")

	// Like routes
	likeHandler := handlers.NewLikeHandler(likeRepo, postRepo, notificationService)
	likeHandler.RegisterLikeRoutes(api)
	log.Println("Like routes configured.")

	// Repost routes
	repostHandler := handlers.NewRepostHandler(repostRepo, postRepo, notificationService)
	repostHandler.RegisterRepostRoutes(api)
	log.Println("Repost routes configured.")

	// Notification routes
	notificationHandler := handlers.NewNotificationHandler(notificationService, notificationRepo)
	notificationHandler.RegisterNotificationRoutes(api)
	log.Println("Notification routes configured.")

	// Webhook routes
	webhookHandler := handlers.NewWebhookHandler(webhookRepo, notificationService, dispatcher)
	webhookHandler.RegisterWebhookRoutes(api)
	log.Println("Webhook routes configured.")

	// Moderation routes (admin only)
	adminGroup := api.Group("/admin", middleware.AdminRequired())
	moderationHandler := handlers.NewModerationHandler(userRepo, notificationService)
	moderationHandler.RegisterModerationRoutes(adminGroup)
	log.Println("Moderation routes configured.")

	log.Println("All routes configured.")
}
