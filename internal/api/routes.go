package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"talenthub/internal/api/middleware"
	"talenthub/internal/auth"
	"talenthub/internal/config"
	"talenthub/internal/database"
	"talenthub/internal/matching"
	"talenthub/internal/storage"
)

// RegisterRoutes 注册全部 API 路由。
func RegisterRoutes(
	router *gin.Engine,
	cfg *config.Config,
	db *gorm.DB,
	asynqClient *asynq.Client,
	authService *auth.AuthService,
	redisClient *redis.Client,
	logger *slog.Logger,
	storageClient *storage.Client,
	matcher *matching.Service,
) {
	authHandler := NewAuthHandler(db, authService, redisClient, logger, cfg.API.LoginRateLimitPerHour)
	profileHandler := NewProfileHandler(db)
	resumeHandler := NewResumeHandler(db, asynqClient, storageClient, logger, cfg.Clamd.Addr, cfg.Resume.MaxPerUser)
	jobHandler := NewJobHandler(db, matcher, logger)
	applicationHandler := NewApplicationHandler(db, matcher, logger)
	wsHandler := NewWsHandler(redisClient, authService, logger, nil)
	authMiddleware := middleware.AuthMiddleware(authService)

	v1 := router.Group("/v1")
	{
		v1.GET("/ws", wsHandler.HandleConnection)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authMiddleware, authHandler.Logout)
		}

		profileGroup := v1.Group("/profile")
		profileGroup.Use(authMiddleware)
		{
			profileGroup.GET("", profileHandler.GetProfile)
			profileGroup.PUT("", profileHandler.UpdateProfile)
		}

		resumeGroup := v1.Group("/resumes")
		resumeGroup.Use(authMiddleware)
		{
			resumeGroup.POST("/upload", resumeHandler.UploadResume)
			resumeGroup.GET("", resumeHandler.ListResumes)
			resumeGroup.GET("/:id", resumeHandler.GetResume)
			resumeGroup.GET("/:id/status", resumeHandler.GetResumeStatus)
			resumeGroup.GET("/:id/download", resumeHandler.DownloadResume)
			resumeGroup.DELETE("/:id", resumeHandler.DeleteResume)
		}

		jobGroup := v1.Group("/jobs")
		jobGroup.Use(authMiddleware)
		{
			jobGroup.GET("", jobHandler.ListJobs)
			// 静态段必须先于 :id 注册
			jobGroup.GET("/ai-matches", jobHandler.AIMatches)
			jobGroup.GET("/:id", jobHandler.GetJob)
			jobGroup.POST("/:id/apply", applicationHandler.Apply)
		}

		applicationGroup := v1.Group("/applications")
		applicationGroup.Use(authMiddleware)
		{
			applicationGroup.GET("", applicationHandler.ListApplications)
		}

		recruiterGroup := v1.Group("/recruiter")
		recruiterGroup.Use(authMiddleware, middleware.RequireRole(database.RoleRecruiter))
		{
			recruiterGroup.POST("/jobs", jobHandler.CreateJob)
			recruiterGroup.PUT("/jobs/:id", jobHandler.UpdateJob)
			recruiterGroup.GET("/jobs/:id/applications", applicationHandler.ListJobApplications)
		}
	}
}
