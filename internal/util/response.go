package util

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the payload merged into a success body.
type Response map[string]interface{}

// Success writes 200 with {"success": true, ...data}.
func Success(c *gin.Context, data Response) {
	body := gin.H{"success": true}
	for k, v := range data {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// Error writes {"error": msg} with the given status.
func Error(c *gin.Context, httpStatus int, msg string) {
	c.JSON(httpStatus, gin.H{"error": msg})
}
