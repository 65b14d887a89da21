package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/spacetraveling/internal/logger"
	"github.com/spacetraveling/internal/trace"
)

// RequestLogger tags each request with an id and logs it once answered.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(trace.HeaderRequestID)
		if requestID == "" {
			requestID = trace.GenerateID()
		}
		c.Header(trace.HeaderRequestID, requestID)
		c.Request = c.Request.WithContext(trace.WithRequestID(c.Request.Context(), requestID))

		c.Next()

		status := c.Writer.Status()
		fields := logger.Fields{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"latency":    time.Since(start).String(),
			"client_ip":  c.ClientIP(),
			"body_size":  c.Writer.Size(),
		}
		if source := c.Writer.Header().Get("X-Page-Source"); source != "" {
			fields["page_source"] = source
		}
		switch {
		case status >= 500:
			logger.ErrorWithFields("request", fields)
		case status >= 400:
			logger.WarnWithFields("request", fields)
		default:
			logger.InfoWithFields("request", fields)
		}
	}
}

// SecurityHeaders adds common security headers to all responses.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("X-Frame-Options", "SAMEORIGIN")
		c.Next()
	}
}

// CORS opens a route to cross-origin GETs from the allowed origins.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	policy := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         600,
	})
	return func(c *gin.Context) {
		policy.HandlerFunc(c.Writer, c.Request)
		if c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != "" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
