package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"shopflow/internal/model"

	"github.com/rs/zerolog"
)

// Identity headers set by the upstream identity collaborator.
const (
	HeaderUserID      = "X-User-ID"
	HeaderPermissions = "X-User-Permissions"
)

type actorKey struct{}

// WithActor returns a copy of ctx carrying actor.
func WithActor(ctx context.Context, actor model.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the actor stored by Identity.
func ActorFrom(ctx context.Context) (model.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(model.Actor)
	return actor, ok
}

// Identity reads the caller's user id and permissions from the request headers.
// Credentials are verified upstream; requests without a valid user id are rejected.
func Identity(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := strconv.ParseInt(r.Header.Get(HeaderUserID), 10, 64)
			if err != nil || userID <= 0 {
				logger.Warn().Str("path", r.URL.Path).Msg("missing or invalid user id")
				writeError(w, r, http.StatusUnauthorized, "unauthorised: missing or invalid user id")
				return
			}

			actor := model.Actor{UserID: userID}
			for _, p := range strings.Split(r.Header.Get(HeaderPermissions), ",") {
				if p = strings.TrimSpace(p); p != "" {
					actor.Permissions = append(actor.Permissions, p)
				}
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// RequirePermission rejects actors without permission.
func RequirePermission(permission string, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFrom(r.Context())
			if !ok || !actor.Can(permission) {
				logger.Warn().
					Str("path", r.URL.Path).
					Int64("user_id", actor.UserID).
					Str("permission", permission).
					Msg("permission denied")
				writeError(w, r, http.StatusForbidden, "forbidden: missing permission "+permission)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
