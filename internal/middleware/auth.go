package middleware

import (
	"net/http"

	"driftwood/internal/db"
	"driftwood/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const CheckUserKey = "user"

// LoadUser retrieves the session user and sets it on the context
func LoadUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID := session.Get("user_id")

		if userID != nil {
			var user models.User
			result := db.DB.First(&user, userID)
			if result.Error == nil {
				c.Set(CheckUserKey, &user)
			}
		}
		c.Next()
	}
}

// AuthRequired rejects requests without a session identity before any
// handler work happens
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(CheckUserKey); !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}
		c.Next()
	}
}
