package handlers

import (
	"net/http"

	"driftwood/internal/middleware"
	"driftwood/internal/models"
	"driftwood/internal/services"

	"github.com/gin-gonic/gin"
)

// CurrentUser returns the authenticated user loaded by the session
// middleware, or nil for anonymous requests.
func CurrentUser(c *gin.Context) *models.User {
	if v, exists := c.Get(middleware.CheckUserKey); exists {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}

// FieldErrors responds with field-level validation errors.
func FieldErrors(c *gin.Context, errs []services.FieldError) {
	c.JSON(http.StatusBadRequest, gin.H{"errors": errs})
}

// Fail responds with a single opaque error message.
func Fail(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"error": message})
}
