// Package requesttime pins one "now" per request. Event timestamps, seal
// expiry checks and audit records written while serving a request all read
// the same instant from requestcontext.
package requesttime

import (
	"net/http"
	"time"

	"casework/pkg/requestcontext"
)

// Middleware stamps the request context with the wall clock.
func Middleware(next http.Handler) http.Handler {
	return WithClock(time.Now)(next)
}

// WithClock stamps the request context with now(). A request that already
// carries a time keeps it.
func WithClock(now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if _, ok := ctx.Value(requestcontext.ContextKeyRequestTime).(time.Time); ok {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithTime(ctx, now().UTC())))
		})
	}
}
