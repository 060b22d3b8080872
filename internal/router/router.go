package router

import (
	"github.com/driftwood-social/backend/internal/handlers"
	"github.com/driftwood-social/backend/internal/middleware"
	"github.com/driftwood-social/backend/internal/models"
	"github.com/driftwood-social/backend/internal/repositories"
	"github.com/driftwood-social/backend/pkg/config"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.Use(eMiddleware.Logger())
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, pgdb *gorm.DB, mgClient *mongo.Client, cfg *config.Config) {
	// AutoMigrate PostgreSQL models
	err := pgdb.AutoMigrate(
		&models.User{},
		&models.Follow{},
		&models.Like{},
		&models.Comment{},
		&models.Notification{},
	)
	if err != nil {
		logrus.Fatalf("Failed to auto migrate models: %v", err)
	}
	logrus.Info("PostgreSQL auto-migrations completed for all models.")

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// --- Initialize Repositories ---
	userRepo := repositories.NewPostgresUserRepository(pgdb)
	postRepo := repositories.NewMongoPostRepository(mgClient.Database(cfg.MongoDBName))
	commentRepo := repositories.NewPostgresCommentRepository(pgdb)
	likeRepo := repositories.NewPostgresLikeRepository(pgdb)
	followRepo := repositories.NewPostgresFollowRepository(pgdb)
	notificationRepo := repositories.NewPostgresNotificationRepository(pgdb)

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/v1/auth")
	authHandler := handlers.NewAuthHandler(userRepo, cfg.JWTSecret)
	authHandler.RegisterAuthRoutes(authGroup)
	logrus.Info("Auth routes configured.")

	// --- Protected routes (require JWT authentication) ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))

	// User profile routes
	userHandler := handlers.NewUserHandler(userRepo, postRepo)
	userHandler.RegisterProfileRoutes(api)

	// Post routes
	postHandler := handlers.NewPostHandler(postRepo, userRepo, commentRepo, likeRepo)
	postHandler.RegisterPostRoutes(api)

	// Feed routes
	feedHandler := handlers.NewFeedHandler(postRepo, userRepo, followRepo, likeRepo)
	feedHandler.RegisterFeedRoutes(api)

	// Follow routes
	followHandler := handlers.NewFollowHandler(followRepo, userRepo, notificationRepo)
	followHandler.RegisterFollowRoutes(api)

	// Comment routes
	commentHandler := handlers.NewCommentHandler(commentRepo, postRepo, userRepo, notificationRepo)
	commentHandler.RegisterCommentRoutes(api)

	// Like routes
	likeHandler := handlers.NewLikeHandler(likeRepo, postRepo, userRepo, notificationRepo)
	likeHandler.RegisterLikeRoutes(api)

	// Notification routes
	notificationHandler := handlers.NewNotificationHandler(notificationRepo, userRepo)
	notificationHandler.RegisterNotificationRoutes(api)

	logrus.Info("All routes configured.")
}
