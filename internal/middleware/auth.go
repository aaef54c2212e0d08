package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ayush/finance-advisor/internal/auth"
)

// UserIDHeader carries the authenticated user's id to the handlers.
const UserIDHeader = "X-User-ID"

type ctxKey int

const sessionKey ctxKey = iota

// TokenValidator validates a bearer token.
type TokenValidator interface {
	Validate(token string) (*auth.Session, error)
}

// Authenticate resolves the bearer token, if any, into the X-User-ID header.
// A client-supplied X-User-ID is always discarded. Requests without a valid
// token pass through unauthenticated; handlers decide whether that is a 401.
func Authenticate(tokens TokenValidator, revoked auth.RevocationList, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Header.Del(UserIDHeader)

			raw, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			session, err := tokens.Validate(raw)
			if err != nil {
				logger.Debug("rejected bearer token", slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}

			isRevoked, err := revoked.IsRevoked(r.Context(), session.TokenID)
			if err != nil {
				logger.Warn("revocation check failed", slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}
			if isRevoked {
				next.ServeHTTP(w, r)
				return
			}

			r.Header.Set(UserIDHeader, session.UserID)
			ctx := context.WithValue(r.Context(), sessionKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}

// SessionFrom returns the session Authenticate stored on the request context.
func SessionFrom(ctx context.Context) (*auth.Session, bool) {
	s, ok := ctx.Value(sessionKey).(*auth.Session)
	return s, ok
}

// UserID returns the authenticated user id, or "" when the request is anonymous.
func UserID(r *http.Request) string {
	return r.Header.Get(UserIDHeader)
}
