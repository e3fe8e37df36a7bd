package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/session"
)

type staticResolver map[string]session.Identity

func (s staticResolver) Resolve(ctx context.Context, token string) (session.Identity, error) {
	id, ok := s[token]
	if !ok {
		return session.Identity{}, session.ErrSessionNotFound
	}
	return id, nil
}

func statusDeny(w http.ResponseWriter, r *http.Request, status int) {
	w.WriteHeader(status)
}

func TestCorrelationID(t *testing.T) {
	var seen string
	h := CorrelationID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetCorrelationID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderCorrelationID, "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, "abc", seen)
	require.Equal(t, "abc", rec.Header().Get(HeaderCorrelationID))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	require.NotEqual(t, "abc", seen)
	require.Equal(t, seen, rec.Header().Get(HeaderCorrelationID))
}

func TestRequireIdentityAndAdmin(t *testing.T) {
	resolver := staticResolver{
		"cust":  {UserID: "u1", Role: session.RoleCustomer},
		"admin": {UserID: "u2", Role: session.RoleAdmin},
	}
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := GetIdentity(r.Context())
		_, _ = w.Write([]byte(id.UserID))
	})
	customer := RequireIdentity(resolver, statusDeny)(ok)
	admin := RequireIdentity(resolver, statusDeny)(RequireAdmin(statusDeny)(ok))

	cases := []struct {
		name    string
		handler http.Handler
		auth    string
		status  int
		body    string
	}{
		{"missing header", customer, "", http.StatusUnauthorized, ""},
		{"wrong scheme", customer, "Basic cust", http.StatusUnauthorized, ""},
		{"unknown token", customer, "Bearer nope", http.StatusUnauthorized, ""},
		{"customer", customer, "Bearer cust", http.StatusOK, "u1"},
		{"lowercase scheme", customer, "bearer cust", http.StatusOK, "u1"},
		{"customer on admin route", admin, "Bearer cust", http.StatusForbidden, ""},
		{"admin", admin, "Bearer admin", http.StatusOK, "u2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.auth != "" {
				req.Header.Set("Authorization", tc.auth)
			}
			rec := httptest.NewRecorder()
			tc.handler.ServeHTTP(rec, req)
			require.Equal(t, tc.status, rec.Code)
			require.Equal(t, tc.body, rec.Body.String())
		})
	}
}

func TestRecover(t *testing.T) {
	h := Recover(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
