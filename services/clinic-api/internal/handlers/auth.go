package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/clinicore/dentbook/libs/auth"
	"github.com/clinicore/dentbook/libs/httpx"
	"github.com/clinicore/dentbook/services/clinic-api/internal/booking"
)

type actorKey struct{}

func ActorFromContext(ctx context.Context) (booking.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(booking.Actor)
	return actor, ok
}

// RequireAuth verifies the bearer token and puts the acting identity on
// the request context. Unauthenticated requests stop here.
func RequireAuth(secret string) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if !strings.HasPrefix(raw, "Bearer ") {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			claims, err := auth.ParseAndVerifyHS256(strings.TrimPrefix(raw, "Bearer "), secret)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			actor := booking.Actor{
				ID:       claims.Sub,
				Role:     booking.Role(claims.Role),
				ClientID: claims.ClientID,
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey{}, actor)))
		})
	}
}

// RequireStaff rejects non-staff actors before the handler runs. Used
// on the admin route group; the service layer still re-checks.
func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok || !actor.Staff() {
			http.Error(w, "staff access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
