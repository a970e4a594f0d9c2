// internal/pkg/response/response.go
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorBody is the stable failure shape returned by every endpoint.
// Never carries provider-internal error text or stack traces.
type ErrorBody struct {
	Error string `json:"error"`
}

// Error sends a standardized error response.
func Error(c *gin.Context, code int, message string) {
	// Abort FIRST so downstream handlers never run after a failure is written
	c.Abort()
	c.JSON(code, ErrorBody{Error: message})
}

// ValidationError sends a 400 Bad Request response for invalid input.
func ValidationError(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// Unauthorized sends a 401 Unauthorized response.
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message)
}

// Unavailable sends a 503 when the identity provider cannot be reached.
// Kept distinct from 401 so clients do not prompt for re-login during an outage.
func Unavailable(c *gin.Context, message string) {
	Error(c, http.StatusServiceUnavailable, message)
}

// TooManyRequests sends a 429 for rate-limited attempts.
func TooManyRequests(c *gin.Context, message string) {
	Error(c, http.StatusTooManyRequests, message)
}

// JSON sends a success payload as-is.
func JSON(c *gin.Context, status int, body interface{}) {
	if status == 0 {
		status = http.StatusOK
	}
	c.JSON(status, body)
}
