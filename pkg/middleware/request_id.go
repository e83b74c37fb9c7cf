package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request correlation ID in and out
const RequestIDHeader = "X-Request-ID"

const contextKeyRequestID = "request_id"

// RequestID propagates an inbound X-Request-ID or mints one, and echoes it
// back on the response so clients can correlate logs.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(contextKeyRequestID, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID returns the correlation ID assigned to this request, or ""
// when the middleware did not run.
func GetRequestID(c *gin.Context) string {
	return c.GetString(contextKeyRequestID)
}
