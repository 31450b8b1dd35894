package testutil

import (
	"net/http"
	"time"

	id "casework/pkg/domain"
	"casework/pkg/requestcontext"
)

// WithActor adds an authenticated actor to the request context.
// This simulates what the auth middleware would do for authenticated requests.
func WithActor(req *http.Request, actorID id.ActorID, name string, roles ...string) *http.Request {
	ctx := requestcontext.WithActor(req.Context(), actorID, name, roles)
	return req.WithContext(ctx)
}

// WithTime pins the request-scoped clock.
func WithTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
