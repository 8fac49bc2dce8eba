package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"cvstudio/internal/api/middleware"
	"cvstudio/internal/auth"
	"cvstudio/internal/config"
	"cvstudio/internal/render"
	"cvstudio/internal/store"
)

// RegisterRoutes 注册 /v1 下的全部 API 路由。
func RegisterRoutes(
	router *gin.Engine,
	cfg *config.Config,
	db *gorm.DB,
	authService *auth.AuthService,
	redisClient redis.UniversalClient,
	renderer *render.Renderer,
	logger *slog.Logger,
) {
	profileStore := store.NewProfileStore(db)
	templateStore := store.NewTemplateStore(db)

	authHandler := NewAuthHandler(db, authService, redisClient, logger,
		cfg.Auth.LoginRatePerHr, cfg.Auth.ResetTokenTTL, cfg.App.IsProduction())
	cvHandler := NewCVHandler(profileStore, templateStore, renderer, logger, cfg.App.IsProduction())
	templateHandler := NewTemplateHandler(templateStore, logger)
	userHandler := NewUserHandler(db, logger)

	authRequired := middleware.AuthMiddleware(authService, redisClient)
	authOptional := middleware.OptionalAuth(authService, redisClient)

	v1 := router.Group("/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/forgot-password", authHandler.ForgotPassword)
			authGroup.POST("/reset-password", authHandler.ResetPassword)
			authGroup.POST("/reset-token", authHandler.VerifyResetToken)
			authGroup.POST("/logout", authRequired, authHandler.Logout)
			authGroup.GET("/me", authRequired, authHandler.Me)
		}

		cvGroup := v1.Group("/cvs")
		{
			cvGroup.POST("", authOptional, cvHandler.Store)
			cvGroup.POST("/print", authOptional, cvHandler.Print)
			cvGroup.GET("", authRequired, cvHandler.Index)
			cvGroup.GET("/:id", authRequired, cvHandler.Show)
			cvGroup.PUT("/:id", authRequired, cvHandler.Update)
			cvGroup.DELETE("/:id", authRequired, cvHandler.Destroy)
		}

		v1.GET("/templates", templateHandler.ListActive)

		adminGroup := v1.Group("/admin", authRequired, middleware.AdminOnly())
		{
			adminGroup.GET("/templates", templateHandler.List)
			adminGroup.POST("/templates", templateHandler.Create)
			adminGroup.GET("/templates/:id", templateHandler.Get)
			adminGroup.PUT("/templates/:id", templateHandler.Update)
			adminGroup.DELETE("/templates/:id", templateHandler.Delete)
			adminGroup.POST("/templates/:id/default", templateHandler.SetDefault)
			adminGroup.GET("/users", userHandler.List)
			adminGroup.PUT("/users/:id/active", userHandler.SetActive)
		}
	}
}
