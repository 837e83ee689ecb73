package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MaxJSONSize caps request bodies; the API only accepts single records.
const MaxJSONSize = 64 * 1024

// BodyLimit rejects bodies declared larger than max and caps the rest.
func BodyLimit(max int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > max {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": "request body too large",
			})
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
		}
		c.Next()
	}
}
