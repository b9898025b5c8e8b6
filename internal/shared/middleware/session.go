package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"horizon/internal/domain/user"
)

// SessionResolver maps a session secret to its signed-in user.
type SessionResolver interface {
	GetLoggedInUser(ctx context.Context, secret string) (*user.User, error)
}

type userKey struct{}

// RequireSession resolves the session cookie and stores the user in the
// request context. Requests without a live session get 401.
func RequireSession(resolver SessionResolver, cookieName string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				writeError(w, http.StatusUnauthorized, "unauthenticated", "sign in required")
				return
			}

			u, err := resolver.GetLoggedInUser(r.Context(), cookie.Value)
			if err != nil {
				logger.DebugContext(r.Context(), "session rejected", slog.String("error", err.Error()))
				writeError(w, http.StatusUnauthorized, "unauthenticated", "sign in required")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

func WithUser(ctx context.Context, u *user.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

func UserFromContext(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(userKey{}).(*user.User)
	return u, ok && u != nil
}
