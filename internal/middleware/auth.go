package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/session"
)

// Resolver maps a bearer token to the identity it was issued for.
type Resolver interface {
	Resolve(ctx context.Context, token string) (session.Identity, error)
}

// Deny writes the rejection for a request that failed authentication or
// authorization.
type Deny func(w http.ResponseWriter, r *http.Request, status int)

// RequireIdentity rejects requests without a live session with 401 and puts
// the resolved identity in the context otherwise.
func RequireIdentity(sessions Resolver, deny Deny) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				deny(w, r, http.StatusUnauthorized)
				return
			}
			id, err := sessions.Resolve(r.Context(), token)
			if err != nil {
				if !errors.Is(err, session.ErrSessionNotFound) {
					zerolog.Ctx(r.Context()).Error().Err(err).Msg("resolve session")
				}
				deny(w, r, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireAdmin must run after RequireIdentity.
func RequireAdmin(deny Deny) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := GetIdentity(r.Context())
			if !ok {
				deny(w, r, http.StatusUnauthorized)
				return
			}
			if id.Role != session.RoleAdmin {
				deny(w, r, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func BearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func WithIdentity(ctx context.Context, id session.Identity) context.Context {
	return context.WithValue(ctx, ctxIdentity, id)
}

func GetIdentity(ctx context.Context) (session.Identity, bool) {
	id, ok := ctx.Value(ctxIdentity).(session.Identity)
	return id, ok && id.UserID != ""
}
