package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glefebvre/animedl/internal/logger"
	"github.com/google/uuid"
)

// requestIDMiddleware adds a unique request ID to each request
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Request = c.Request.WithContext(logger.ContextWithRequestID(c.Request.Context(), requestID))
		c.Next()
	}
}

// loggingMiddleware logs each request once it has been served
func loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.AppLogger().WithFields(map[string]interface{}{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).InfoContext(c.Request.Context(), "request served")
	}
}

// errorHandlerMiddleware handles panics and errors
func errorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.AppLogger().ErrorContext(c.Request.Context(), "panic while serving request", fmt.Errorf("%v", err))
				c.AbortWithStatusJSON(500, ErrorResponse{
					Error:   "internal server error",
					Message: "an unexpected error occurred",
				})
			}
		}()
		c.Next()
	}
}
