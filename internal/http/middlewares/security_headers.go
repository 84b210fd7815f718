package middlewares

import "github.com/gin-gonic/gin"

const apiVersion = "1.0.0"

func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("X-XSS-Protection", "0")
		c.Header("Content-Security-Policy", "default-src 'none'")
		c.Header("X-API-Version", apiVersion)
		c.Next()
	}
}
