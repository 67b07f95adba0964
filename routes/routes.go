package routes

import (
	"venuehub/config"
	"venuehub/controllers"
	"venuehub/middleware"
	"venuehub/repositories"
	"venuehub/services"
	"venuehub/utils"
	"venuehub/workers"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
)

// Dependencies carries everything the HTTP surface needs. The dispatcher is
// built in main because it outlives any single request.
type Dependencies struct {
	DB                  *mongo.Database
	Redis               *redis.Client
	Config              *config.Config
	JWTService          *utils.JWTService
	NotificationService *services.NotificationService
	SubscriptionRepo    *repositories.SubscriptionRepository
	UserRepo            *repositories.UserRepository
	Dispatcher          *workers.DispatcherWorker
	Version             string
}

// SetupRoutes initializes all application routes
func SetupRoutes(deps Dependencies) *gin.Engine {
	router := gin.New()

	ctrl := initializeControllers(deps)

	setupGlobalMiddleware(router, deps)

	setupPublicRoutes(router, ctrl)
	setupAuthenticatedRoutes(router, ctrl, deps)

	return router
}

type Controllers struct {
	Notification *controllers.NotificationController
	Subscription *controllers.SubscriptionController
	Task         *controllers.TaskController
	Health       *controllers.HealthController
}

func initializeControllers(deps Dependencies) *Controllers {
	return &Controllers{
		Notification: controllers.NewNotificationController(deps.NotificationService),
		Subscription: controllers.NewSubscriptionController(deps.SubscriptionRepo),
		Task:         controllers.NewTaskController(deps.Dispatcher),
		Health:       controllers.NewHealthController(deps.DB, deps.Redis, deps.Version),
	}
}

func setupGlobalMiddleware(router *gin.Engine, deps Dependencies) {
	errorHandler := middleware.NewErrorHandler(deps.Config.Environment, logrus.StandardLogger())

	router.Use(errorHandler.Handle())
	router.Use(middleware.DefaultLoggerMiddleware())
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		Redis:     deps.Redis,
		Requests:  deps.Config.RateLimitRequests,
		Window:    deps.Config.RateLimitWindow,
		KeyPrefix: "rate_limit",
		SkipPaths: []string{"/health"},
	})
	router.Use(rateLimiter.Middleware())
}

// Public routes (no authentication required)
func setupPublicRoutes(router *gin.Engine, ctrl *Controllers) {
	router.GET("/health", ctrl.Health.Health)
}

// Authenticated routes
func setupAuthenticatedRoutes(router *gin.Engine, ctrl *Controllers, deps Dependencies) {
	authMiddleware := middleware.NewAuthMiddleware(deps.JWTService, deps.UserRepo)

	v1 := router.Group("/api/v1")
	v1.Use(authMiddleware.RequireAuth())
	{
		push := v1.Group("/push")
		{
			push.POST("/subscriptions", ctrl.Subscription.RegisterSubscription)
			push.DELETE("/subscriptions/:id", ctrl.Subscription.UnregisterSubscription)
		}

		notifications := v1.Group("/notifications")
		{
			notifications.POST("/send", ctrl.Notification.SendNotification)
			notifications.POST("/schedule", ctrl.Notification.ScheduleNotification)
			notifications.GET("", ctrl.Notification.GetNotifications)
			notifications.GET("/:id", ctrl.Notification.GetNotification)
			notifications.GET("/:id/deliveries", ctrl.Notification.GetDeliveries)
		}

		tasks := v1.Group("/tasks")
		tasks.Use(authMiddleware.RequireRole("admin", "staff"))
		{
			tasks.POST("/dispatch", ctrl.Task.TriggerDispatch)
		}
	}
}
