// internal/app/router.go
package app

import (
	authHandler "better-together-service/internal/handlers/auth"
	"better-together-service/internal/middleware"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	AuthHandler    *authHandler.AuthHandler
	AuthMiddleware *middleware.AuthMiddleware
}

func SetupRouter(r *gin.Engine, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "version": "1.0.0"})
	})

	// ==================== Public Auth Routes ====================
	authPublic := api.Group("/auth")
	{
		authPublic.POST("/signup", h.AuthHandler.Signup)
		authPublic.POST("/login", h.AuthHandler.Login)
		authPublic.POST("/logout", h.AuthHandler.Logout)
		authPublic.POST("/forgot-password", h.AuthHandler.ForgotPassword)
		authPublic.POST("/reset-password", h.AuthHandler.ResetPassword)
		authPublic.POST("/refresh", h.AuthHandler.Refresh)
		authPublic.POST("/oauth/:provider", h.AuthHandler.OAuth)
	}

	// ==================== Authenticated Auth Routes ====================
	authProtected := api.Group("/auth")
	authProtected.Use(h.AuthMiddleware.RequireAuth())
	{
		authProtected.GET("/me", h.AuthHandler.Me)
		authProtected.POST("/update-profile", h.AuthHandler.UpdateProfile)
	}
}
