package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/basket"
	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/inventory"
	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/middleware"
	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/reservation"
	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/user"
)

const (
	codeMethodNotAllowed     = "method_not_allowed"
	codeNotFound             = "not_found"
	codeInvalidRequestBody   = "invalid_request_body"
	codeMissingRequiredField = "missing_required_field"
	codeUnauthorized         = "unauthorized"
	codeForbidden            = "forbidden"
	codeInvalidQuantity      = "invalid_quantity"
	codeInsufficientStock    = "insufficient_stock"
	codeProductNotFound      = "product_not_found"
	codeNotInBasket          = "not_in_basket"
	codeInvalidProduct       = "invalid_product"
	codeProductExists        = "product_exists"
	codeStockBelowReserved   = "stock_below_reserved"
	codeProductReserved      = "product_reserved"
	codeInvalidEmail         = "invalid_email"
	codeWeakPassword         = "weak_password"
	codeEmailTaken           = "email_taken"
	codeInvalidCredentials   = "invalid_credentials"
	codeInternalError        = "internal_error"
)

type errorResponse struct {
	Error         string `json:"error"`
	Code          string `json:"code"`
	CorrelationID string `json:"correlationId,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error:         msg,
		Code:          code,
		CorrelationID: middleware.GetCorrelationID(r.Context()),
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeDomainError maps service errors to responses. Anything unrecognised
// is logged and reported as a 500 without detail.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		hlog.FromRequest(r).Error().Err(err).Msg("request failed")
		writeError(w, r, status, code, "internal error")
		return
	}
	writeError(w, r, status, code, err.Error())
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, reservation.ErrInvalidQuantity),
		errors.Is(err, inventory.ErrInvalidAmount),
		errors.Is(err, basket.ErrInvalidQuantity):
		return http.StatusBadRequest, codeInvalidQuantity
	case errors.Is(err, reservation.ErrUserRequired):
		return http.StatusUnauthorized, codeUnauthorized
	case errors.Is(err, reservation.ErrInsufficientStock):
		return http.StatusConflict, codeInsufficientStock
	case errors.Is(err, reservation.ErrProductNotFound):
		return http.StatusNotFound, codeProductNotFound
	case errors.Is(err, reservation.ErrNotInBasket):
		return http.StatusNotFound, codeNotInBasket
	case errors.Is(err, catalog.ErrInvalidProduct):
		return http.StatusBadRequest, codeInvalidProduct
	case errors.Is(err, catalog.ErrProductExists):
		return http.StatusConflict, codeProductExists
	case errors.Is(err, catalog.ErrStockBelowReserved):
		return http.StatusConflict, codeStockBelowReserved
	case errors.Is(err, catalog.ErrProductReserved):
		return http.StatusConflict, codeProductReserved
	case errors.Is(err, user.ErrInvalidEmail):
		return http.StatusBadRequest, codeInvalidEmail
	case errors.Is(err, user.ErrWeakPassword):
		return http.StatusBadRequest, codeWeakPassword
	case errors.Is(err, user.ErrEmailTaken):
		return http.StatusConflict, codeEmailTaken
	case errors.Is(err, user.ErrInvalidCredentials):
		return http.StatusUnauthorized, codeInvalidCredentials
	default:
		return http.StatusInternalServerError, codeInternalError
	}
}

// deny is the rejection writer handed to the auth middleware.
func deny(w http.ResponseWriter, r *http.Request, status int) {
	if status == http.StatusForbidden {
		writeError(w, r, status, codeForbidden, "admin role required")
		return
	}
	writeError(w, r, http.StatusUnauthorized, codeUnauthorized, "missing or invalid bearer token")
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusNotFound, codeNotFound, "route not found")
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
}

func internalError(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusInternalServerError, codeInternalError, "internal error")
}
