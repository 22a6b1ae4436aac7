package auth

import (
	"context"
	"net/http"
)

type contextKey string

const sessionKey contextKey = "session"

// RequireAuth rejects requests without a valid session cookie and stores the
// session in the request context for handlers downstream.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := extractSession(r, tokens)
			if err != nil {
				http.Error(w, `{"error":"unauthorized","message":"valid authentication required"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireStaff additionally rejects authenticated sessions without the staff
// flag. Review and ledger routes sit behind it.
func RequireStaff(tokens *TokenService) func(http.Handler) http.Handler {
	requireAuth := RequireAuth(tokens)
	return func(next http.Handler) http.Handler {
		return requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := SessionFromContext(r.Context())
			if !ok || !session.Staff {
				http.Error(w, `{"error":"forbidden","message":"staff access required"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

// SessionFromContext retrieves the authenticated session, if any.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	session, ok := ctx.Value(sessionKey).(*Session)
	return session, ok && session != nil
}

func extractSession(r *http.Request, tokens *TokenService) (*Session, error) {
	cookie, err := r.Cookie("token")
	if err != nil {
		return nil, err
	}
	return tokens.Validate(cookie.Value)
}
