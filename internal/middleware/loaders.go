package middleware

import (
	"driftwood/internal/db"
	"driftwood/internal/loader"

	"github.com/gin-gonic/gin"
)

const LoadersKey = "loaders"

// RequestLoaders attaches a fresh loader bundle to every request. The bundle
// caches within the request only; a new one is built each time because votes
// and authors can change between requests.
func RequestLoaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(LoadersKey, loader.NewBundle(db.DB))
		c.Next()
	}
}

// Loaders returns the request's loader bundle.
func Loaders(c *gin.Context) *loader.Bundle {
	v, _ := c.Get(LoadersKey)
	b, _ := v.(*loader.Bundle)
	return b
}
