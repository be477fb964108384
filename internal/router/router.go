package router

import (
	"commentbox/internal/handlers"
	"commentbox/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine) {
	// Handlers
	commentHandler := handlers.NewCommentHandler()
	pageHandler := handlers.NewPageHandler(commentHandler)
	authHandler := handlers.NewAuthHandler()
	notificationHandler := handlers.NewNotificationHandler()

	// Public Routes
	r.GET("/", pageHandler.List)
	r.GET("/pages/:pid", pageHandler.Detail)

	r.GET("/signup", authHandler.ShowRegister)
	r.POST("/signup", authHandler.Register)
	r.GET("/login", authHandler.ShowLogin)
	r.POST("/login", authHandler.Login)
	r.GET("/logout", authHandler.Logout)

	// Comment endpoints. Posting is open because the anonymous variants
	// accept unauthenticated submitters; variants needing a login enforce
	// it themselves.
	comments := r.Group("/comments")
	{
		comments.POST("/post", commentHandler.PostComment)
		comments.GET("/form", commentHandler.ShowForm)
		comments.GET("/list", commentHandler.List)
		comments.GET("/lists", commentHandler.Lists)
		comments.GET("/count", commentHandler.Count)
		comments.GET("/counts", commentHandler.Counts)
	}

	// Protected Routes
	authorized := r.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.GET("/submit", pageHandler.ShowCreate)
		authorized.POST("/submit", pageHandler.Create)

		authorized.DELETE("/comments/:model/:cid", commentHandler.Delete)
		authorized.POST("/comments/:model/:cid/rate", commentHandler.Rate)

		authorized.GET("/notifications", notificationHandler.List)
		authorized.POST("/notifications/:id/read", notificationHandler.Read)
		authorized.POST("/notifications/read-all", notificationHandler.ReadAll)
	}
}
