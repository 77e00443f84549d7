package api

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"stockdrop/pkg/auth"
	"stockdrop/pkg/monitoring"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// contextUserID is the gin context key carrying the authenticated user ID
const contextUserID = "user_id"

// CORSMiddleware handles Cross-Origin Resource Sharing
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RequestIDMiddleware adds a unique request ID to each request
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set("request_id", requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)

		c.Next()
	}
}

// MetricsMiddleware records request metrics
func MetricsMiddleware(metrics *monitoring.MetricsCollector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		metrics.RecordAPIRequest(c.FullPath(), c.Request.Method, time.Since(start), c.Writer.Status())
	}
}

// ErrorHandlerMiddleware handles panics gracefully
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return gin.Recovery()
}

// RateLimitMiddleware implements basic per-client in-memory rate limiting
func RateLimitMiddleware(requestsPerMinute int) gin.HandlerFunc {
	var mu sync.Mutex
	clients := make(map[string][]time.Time)

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		now := time.Now()

		mu.Lock()
		// Drop requests older than the window
		valid := clients[clientIP][:0]
		for _, requestTime := range clients[clientIP] {
			if now.Sub(requestTime) < time.Minute {
				valid = append(valid, requestTime)
			}
		}
		clients[clientIP] = valid

		if len(clients[clientIP]) >= requestsPerMinute {
			mu.Unlock()
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": 60,
			})
			c.Abort()
			return
		}

		clients[clientIP] = append(clients[clientIP], now)
		mu.Unlock()

		c.Next()
	}
}

// AuthMiddleware verifies the bearer token and stores the user ID in the
// request context
func AuthMiddleware(authService *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing bearer token"})
			c.Abort()
			return
		}

		userID, err := authService.VerifyToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		c.Set(contextUserID, userID)
		c.Next()
	}
}
