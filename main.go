package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"chatrelay/config"
	"chatrelay/database"
	"chatrelay/handlers"
	"chatrelay/middleware"
	"chatrelay/relay"
	"chatrelay/store"
)

func main() {
	config.Load()

	if err := database.Connect(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := database.CreateTables(); err != nil {
		log.Fatalf("Failed to create tables: %v", err)
	}

	if err := os.MkdirAll(config.Cfg.AvatarDir, 0755); err != nil {
		log.Fatalf("Failed to create avatar directory: %v", err)
	}

	st := store.New(database.DB)
	relay.Init(st)
	handlers.Init(st)

	r := gin.Default()

	r.Use(middleware.CORSMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	auth := r.Group("/api/auth")
	{
		auth.POST("/register", handlers.Register)
		auth.POST("/login", handlers.Login)
	}

	users := r.Group("/api/users")
	users.Use(middleware.AuthMiddleware())
	{
		users.GET("/me", handlers.GetCurrentUser)
		users.PUT("/me", handlers.UpdateCurrentUser)
		users.POST("/me/avatar", handlers.UploadAvatar)
	}

	friends := r.Group("/api/friends")
	friends.Use(middleware.AuthMiddleware())
	{
		friends.GET("", handlers.GetFriends)
		friends.POST("", handlers.AddFriend)
		friends.DELETE("/:user_id", handlers.DeleteFriend)
	}

	r.Static("/avatars", config.Cfg.AvatarDir)

	r.GET("/ws", relay.HandleWebSocket)

	log.Printf("Server starting on %s", config.Cfg.ServerAddr)
	if err := r.Run(config.Cfg.ServerAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
