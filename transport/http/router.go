package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/layer-3/barong-iam/config"
	"github.com/layer-3/barong-iam/service"
)

// PermissionUserView guards the role and permission lookups
const PermissionUserView = "user:view"

// SetupRouter sets up the Gin router
func SetupRouter(authService *service.AuthService, users UserDirectory, corsCfg config.CORSConfig, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		RequestLogger(logger),
		CORS(corsCfg),
		Authenticate(authService, logger),
	)

	handlers := NewAuthHandlers(authService, users, logger)

	router.GET("/healthz", handlers.Health)

	// Auth routes
	auth := router.Group("/auth")
	{
		auth.POST("/login", handlers.Login)
		auth.POST("/logout", handlers.Logout)
		auth.POST("/refresh", handlers.Refresh)
		auth.GET("/captcha", handlers.Captcha)
	}

	api := router.Group("/api")
	{
		api.GET("/v1/captcha", handlers.CaptchaV1)
		api.GET("/me", RequireAuth(), handlers.Me)

		userRoutes := api.Group("/users", RequirePermission(PermissionUserView))
		userRoutes.GET("/:id/roles", handlers.UserRoles)
		userRoutes.GET("/:id/permissions", handlers.UserPermissions)
	}

	return router
}
