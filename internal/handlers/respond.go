package handlers

import (
	"log"

	"newsdesk/internal/apperr"

	"github.com/gin-gonic/gin"
)

// abortWithError writes the JSON error body for err using the app error
// taxonomy. Internal errors are logged and masked.
func abortWithError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	msg := err.Error()
	if status >= 500 {
		log.Printf("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		msg = "internal server error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
