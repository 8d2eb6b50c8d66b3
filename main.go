package main

import (
	"log"

	"namiokai-backend/config"
	"namiokai-backend/database"
	"namiokai-backend/handlers"
	"namiokai-backend/middleware"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	config.Load()

	// Connect to database
	database.Connect()

	// Connect to Redis (optional, won't crash if unavailable)
	database.ConnectRedis()

	// Setup router
	r := gin.Default()
	r.Use(middleware.CORSMiddleware())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": config.AppConfig.AppName,
		})
	})

	// ==========================================
	// AUTH ROUTES (public)
	// ==========================================
	auth := r.Group("/auth")
	{
		auth.POST("/register", handlers.Register)
		auth.POST("/login", handlers.Login)
	}

	// ==========================================
	// API ROUTES (authenticated)
	// ==========================================
	api := r.Group("/api")
	api.Use(middleware.AuthRequired())
	{
		// User
		api.GET("/users/me", handlers.GetProfile)
		api.PUT("/users/me", handlers.UpdateProfile)
		api.PUT("/users/me/fcm-token", handlers.UpdateFCMToken)
		api.POST("/users/search", handlers.SearchUsers)

		// Spaces
		api.POST("/spaces", handlers.CreateSpace)
		api.GET("/spaces", handlers.GetSpaces)
		api.GET("/spaces/:id", handlers.GetSpace)
		api.PUT("/spaces/:id", handlers.UpdateSpace)
		api.POST("/spaces/:id/members", handlers.AddMember)
		api.DELETE("/spaces/:id/members/:uid", handlers.RemoveMember)
		api.POST("/spaces/:id/invite", handlers.InviteToSpaceHandler)

		// Bills
		api.POST("/spaces/:id/bills", handlers.CreateBill)
		api.GET("/spaces/:id/bills", handlers.GetSpaceBills)
		api.DELETE("/spaces/:id/bills", handlers.ClearSpaceBills)
		api.GET("/bills/:id", handlers.GetBill)
		api.PUT("/bills/:id", handlers.UpdateBill)
		api.DELETE("/bills/:id", handlers.DeleteBill)

		// Debts
		api.GET("/spaces/:id/debts", handlers.GetSpaceDebts)
		api.GET("/debts", handlers.GetAllDebts)

		// Backup
		api.GET("/spaces/:id/export", handlers.ExportSpaceBills)
		api.POST("/spaces/:id/import", handlers.ImportSpaceBills)

		// Activity
		api.GET("/activity", handlers.GetActivity)
		api.GET("/spaces/:id/activity", handlers.GetSpaceActivity)
	}

	// Start server
	port := config.AppConfig.Port
	log.Printf("🚀 %s server starting on port %s", config.AppConfig.AppName, port)

	addr := "0.0.0.0:" + port
	if err := r.Run(addr); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
