package httpapi

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

func success(c *gin.Context, code int, message string, data any) {
	body := gin.H{
		"status":  "success",
		"code":    code,
		"message": message,
	}
	if data != nil {
		body["data"] = data
	}
	c.JSON(code, body)
}

func fail(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{
		"status":  "error",
		"code":    code,
		"message": message,
	})
}

func failWithCause(c *gin.Context, code int, message string, err error) {
	c.AbortWithStatusJSON(code, gin.H{
		"status":  "error",
		"code":    code,
		"message": message,
		"error":   err.Error(),
	})
}

// internalError logs the cause and returns it to the caller alongside a generic message.
func internalError(c *gin.Context, op string, err error) {
	log.Printf("%s failed: %v", op, err)
	failWithCause(c, http.StatusInternalServerError, "Internal Server Error", err)
}
