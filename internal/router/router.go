package router

import (
	"driftwood/internal/handlers"
	"driftwood/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine) {
	authHandler := handlers.NewAuthHandler()
	postHandler := handlers.NewPostHandler()
	voteHandler := handlers.NewVoteHandler()

	api := r.Group("/api")
	api.Use(middleware.RequestLoaders())

	// Public routes
	api.GET("/posts", postHandler.List)
	api.GET("/posts/:id", postHandler.Detail)

	api.POST("/register", authHandler.Register)
	api.POST("/login", authHandler.Login)
	api.POST("/logout", authHandler.Logout)
	api.GET("/me", authHandler.Me)
	api.POST("/forgot-password", authHandler.ForgotPassword)
	api.POST("/change-password", authHandler.ChangePassword)

	// Protected routes
	authorized := api.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.POST("/posts", postHandler.Create)
		authorized.PUT("/posts/:id", postHandler.Update)
		authorized.DELETE("/posts/:id", postHandler.Delete)
		authorized.POST("/posts/:id/vote", voteHandler.Cast)
	}
}
