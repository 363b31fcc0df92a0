package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/civicpulse/complaints-api/models"
)

var timeoutBody = func() string {
	b, _ := json.Marshal(models.NewErrorMessage("Request timeout", errors.New("The request took too long to process")))
	return string(b)
}()

// TimeoutMiddleware cancels the request context after timeout and answers 503 when the
// handler has not written a response by then. Not for websocket routes.
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, timeoutBody)
	}
}
