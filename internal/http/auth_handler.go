package httpapi

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/hlog"

	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/middleware"
	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/session"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	UserID    string       `json:"userId"`
	Role      session.Role `json:"role"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	u, err := h.accounts.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	hlog.FromRequest(r).Info().Str("user_id", u.ID).Msg("user registered")
	writeJSON(w, http.StatusCreated, u)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	u, err := h.accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	s, err := h.sessions.Issue(r.Context(), session.Identity{UserID: u.ID, Role: u.Role})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt,
		UserID:    u.ID,
		Role:      u.Role,
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Revoke(r.Context(), middleware.BearerToken(r)); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
