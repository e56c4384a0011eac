package httpapi

import (
	"context"
	"net/http"
	"strings"

	"example.com/scoreboard/internal/auth"
)

type ctxKey string

const subjectKey ctxKey = "subject"

// Verifier checks bearer tokens. *auth.Service implements it.
type Verifier interface {
	Verify(token string) (*auth.Claims, error)
}

func AuthMiddleware(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}
			token := strings.TrimPrefix(h, "Bearer ")

			claims, err := v.Verify(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), subjectKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func SubjectFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(subjectKey)
	s, ok := v.(string)
	return s, ok
}
