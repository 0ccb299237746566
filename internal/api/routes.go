package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"hirehub/internal/api/middleware"
	"hirehub/internal/auth"
	"hirehub/internal/config"
	"hirehub/internal/identity"
)

// RegisterRoutes wires every handler under the /api prefix.
func RegisterRoutes(
	router *gin.Engine,
	db *gorm.DB,
	authService *auth.Service,
	identityClient *identity.Client,
	redisClient redis.UniversalClient,
	logger *slog.Logger,
	storageClient ObjectStorage,
	clamdAddr string,
	login config.LoginConfig,
) {
	authHandler := NewAuthHandler(db, authService, identityClient, redisClient, logger,
		login.RateLimitPerHour, login.LockThreshold, login.LockTTL)
	jobHandler := NewJobHandler(db, logger)
	applicationHandler := NewApplicationHandler(db, logger)
	resumeHandler := NewResumeHandler(db, storageClient, logger, clamdAddr)
	authMiddleware := middleware.AuthMiddleware(authService)

	api := router.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/google", authHandler.GoogleLogin)
			authGroup.GET("/me", authMiddleware, authHandler.Me)
			authGroup.PUT("/profile", authMiddleware, authHandler.UpdateProfile)
			authGroup.GET("/users", authMiddleware, authHandler.ListUsers)
			authGroup.PUT("/users/:id", authMiddleware, authHandler.UpdateUserStatus)
			authGroup.DELETE("/users/:id", authMiddleware, authHandler.DeleteUser)
		}

		jobGroup := api.Group("/jobs")
		{
			jobGroup.GET("", jobHandler.ListJobs)
			jobGroup.GET("/my-jobs", authMiddleware, jobHandler.MyJobs)
			jobGroup.GET("/stats", authMiddleware, jobHandler.Stats)
			jobGroup.POST("", authMiddleware, jobHandler.CreateJob)
			jobGroup.DELETE("/:id", authMiddleware, jobHandler.DeleteJob)

			jobGroup.POST("/:id/apply", authMiddleware, applicationHandler.Apply)
			jobGroup.GET("/my-applications", authMiddleware, applicationHandler.MyApplications)
			jobGroup.GET("/applications/all", authMiddleware, applicationHandler.AllApplications)
			jobGroup.GET("/:id/applications", authMiddleware, applicationHandler.JobApplications)
			jobGroup.PUT("/applications/:id", authMiddleware, applicationHandler.UpdateApplication)

			jobGroup.POST("/:id/save", authMiddleware, jobHandler.SaveJob)
			jobGroup.POST("/:id/unsave", authMiddleware, jobHandler.UnsaveJob)
			jobGroup.GET("/saved/all", authMiddleware, jobHandler.SavedJobs)
		}

		resumeGroup := api.Group("/resume")
		resumeGroup.Use(authMiddleware)
		{
			resumeGroup.POST("/upload", resumeHandler.Upload)
			resumeGroup.GET("/:candidateId", resumeHandler.GetURL)
		}
	}
}
