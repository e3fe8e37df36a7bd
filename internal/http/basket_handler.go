package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/middleware"
)

type basketItem struct {
	ProductID string    `json:"productId"`
	Quantity  int       `json:"quantity"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type basketResponse struct {
	UserID string       `json:"userId"`
	Items  []basketItem `json:"items"`
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type setQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

type releaseResponse struct {
	ProductID string `json:"productId"`
	Released  int    `json:"released"`
}

// userID is only called behind RequireIdentity.
func userID(r *http.Request) string {
	id, _ := middleware.GetIdentity(r.Context())
	return id.UserID
}

func (h *Handler) GetBasket(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	entries, err := h.baskets.Entries(r.Context(), uid)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	resp := basketResponse{UserID: uid, Items: make([]basketItem, 0, len(entries))}
	for _, e := range entries {
		resp.Items = append(resp.Items, basketItem{ProductID: e.ProductID, Quantity: e.Quantity, UpdatedAt: e.UpdatedAt})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	if strings.TrimSpace(req.ProductID) == "" {
		writeError(w, r, http.StatusBadRequest, codeMissingRequiredField, "productId is required")
		return
	}
	res, err := h.reservations.Reserve(r.Context(), userID(r), req.ProductID, req.Quantity)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) SetItemQuantity(w http.ResponseWriter, r *http.Request) {
	var req setQuantityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	if req.Quantity == nil {
		writeError(w, r, http.StatusBadRequest, codeMissingRequiredField, "quantity is required")
		return
	}
	res, err := h.reservations.Adjust(r.Context(), userID(r), chi.URLParam(r, "productId"), *req.Quantity)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	n, err := h.reservations.Release(r.Context(), userID(r), productID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, releaseResponse{ProductID: productID, Released: n})
}

func (h *Handler) ClearBasket(w http.ResponseWriter, r *http.Request) {
	res, err := h.reservations.ClearAll(r.Context(), userID(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
