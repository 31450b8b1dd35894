package admin

import (
	"log/slog"
	"net/http"
	"strings"

	dErrors "casework/pkg/domain-errors"
	"casework/pkg/platform/httputil"
	"casework/pkg/requestcontext"
)

// RequireRole lets a request through when the authenticated actor holds any
// of roles (case-insensitive). Run it after auth.RequireAuth.
func RequireRole(logger *slog.Logger, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if !holdsAny(requestcontext.ActorRoles(ctx), roles) {
				logger.WarnContext(ctx, "role check failed",
					"request_id", requestcontext.RequestID(ctx),
					"actor_id", requestcontext.ActorID(ctx).String(),
					"path", r.URL.Path,
					"required", roles,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "role not permitted"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func holdsAny(held, required []string) bool {
	for _, h := range held {
		for _, r := range required {
			if strings.EqualFold(strings.TrimSpace(h), r) {
				return true
			}
		}
	}
	return false
}
