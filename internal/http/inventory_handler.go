package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type availabilityResponse struct {
	ProductID string `json:"productId"`
	Available int    `json:"available"`
}

// GetAvailability is a display read; reservations never rely on it.
func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	available, err := h.stock.GetAvailable(r.Context(), productID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, availabilityResponse{ProductID: productID, Available: available})
}
