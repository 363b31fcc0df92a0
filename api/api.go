// Package api holds the HTTP middleware shared by the handlers: sign-in through
// go-guardian, bearer authentication, request ids, timeouts and route metrics.
package api

import (
	"context"
	"net/http"

	"github.com/lucsky/cuid"
)

// RequestIDHeader carries the request id back to the caller
const RequestIDHeader = "X-Request-Id"

type requestIDKey struct{}

// RequestID tags every request with a cuid, reusing one sent by the caller
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = cuid.New()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// RequestIDFrom returns the id assigned by RequestID, or ""
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
