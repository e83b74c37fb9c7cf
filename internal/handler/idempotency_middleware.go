package handler

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/voyago/booking-core/internal/service"
)

const (
	// IdempotencyKeyHeader is the header carrying the client's idempotency key
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotencyReplayedHeader marks a replayed response
	IdempotencyReplayedHeader = "X-Idempotency-Replayed"
)

// IdempotencyMiddleware guards mutating routes with at-most-once semantics.
// The header is optional: requests without a key run normally.
func IdempotencyMiddleware(idempotencyService service.IdempotencyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			c.Next()
			return
		}

		userID := c.GetString("user_id")

		// Read and restore the body so the downstream handler can bind it.
		var bodyBytes []byte
		if c.Request.Body != nil {
			bodyBytes, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		}

		result, err := idempotencyService.Execute(
			c.Request.Context(),
			key,
			userID,
			c.FullPath(),
			c.Request.Method,
			bodyBytes,
			func(ctx context.Context) (int, []byte, error) {
				rw := &captureWriter{
					ResponseWriter: c.Writer,
					body:           bytes.NewBuffer(nil),
					status:         http.StatusOK,
				}
				c.Writer = rw
				c.Request = c.Request.WithContext(ctx)

				c.Next()

				// Only cache successful outcomes; errors must stay retryable.
				if rw.status >= http.StatusInternalServerError {
					return 0, nil, errInternalNotCacheable
				}
				return rw.status, rw.body.Bytes(), nil
			},
		)
		if err != nil {
			if err == errInternalNotCacheable {
				// Response was already written by the handler.
				return
			}
			if !c.Writer.Written() {
				handleError(c, err)
			}
			c.Abort()
			return
		}

		if result.Replayed {
			c.Header(IdempotencyReplayedHeader, "true")
			c.Data(result.Status, "application/json", result.Body)
			c.Abort()
		}
	}
}

// errInternalNotCacheable signals that the wrapped handler failed and its
// response must not be stored for replay.
var errInternalNotCacheable = &notCacheableError{}

type notCacheableError struct{}

func (e *notCacheableError) Error() string { return "response not cacheable" }

// captureWriter duplicates the response body for idempotent storage
type captureWriter struct {
	gin.ResponseWriter
	body   *bytes.Buffer
	status int
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
