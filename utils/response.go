package utils

import (
	"github.com/gin-gonic/gin"
)

// JSONResponse sends a structured JSON success envelope
func JSONResponse(c *gin.Context, status int, data any, message string) {
	c.JSON(status, gin.H{
		"status":  status,
		"message": message,
		"data":    data,
	})
}

// JSONError sends a structured error response. The error string is included
// verbatim so validation messages (e.g. the computed bid floor) reach the
// client for display.
func JSONError(c *gin.Context, status int, err error, message string) {
	c.JSON(status, gin.H{
		"status":  status,
		"message": message,
		"error":   err.Error(),
	})
}
