package main

import (
	"log"
	"net/http"
	"os"

	"driftwood/internal/db"
	"driftwood/internal/middleware"
	"driftwood/internal/router"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, finding env vars from system")
	}

	// Initialize Database
	db.Init()

	// Initialize Gin
	r := gin.Default()

	// Setup Sessions
	secret := os.Getenv("SESSION_SECRET")
	if secret == "" {
		secret = "secret_key_change_me"
	}
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   60 * 60 * 24 * 365 * 10,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("driftwood_session", store))

	// Middleware
	r.Use(middleware.LoadUser())

	// Routes
	router.RegisterRoutes(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Driftwood server starting on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}
