package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/basket"
	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/reservation"
	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/session"
	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/user"
)

const maxBodyBytes = 1 << 20

type Reservations interface {
	Reserve(ctx context.Context, userID, productID string, qty int) (reservation.ReserveResult, error)
	Release(ctx context.Context, userID, productID string) (int, error)
	Adjust(ctx context.Context, userID, productID string, newQty int) (reservation.AdjustResult, error)
	ClearAll(ctx context.Context, userID string) (reservation.ClearResult, error)
}

type Baskets interface {
	Entries(ctx context.Context, userID string) ([]basket.Entry, error)
}

type Stock interface {
	GetAvailable(ctx context.Context, productID string) (int, error)
}

type Products interface {
	Create(ctx context.Context, in catalog.NewProduct) (catalog.Product, error)
	Get(ctx context.Context, id string) (catalog.Product, error)
	List(ctx context.Context, categoryID string) ([]catalog.Product, error)
	Update(ctx context.Context, id string, in catalog.ProductUpdate) (catalog.Product, error)
	Delete(ctx context.Context, id string) error
}

type Accounts interface {
	Register(ctx context.Context, email, password string) (user.User, error)
	Authenticate(ctx context.Context, email, password string) (user.User, error)
}

type Deps struct {
	Reservations Reservations
	Baskets      Baskets
	Stock        Stock
	Products     Products
	Accounts     Accounts
	Sessions     session.Store
	// Metrics serves /metrics; promhttp.Handler() when nil.
	Metrics http.Handler
}

type Handler struct {
	reservations Reservations
	baskets      Baskets
	stock        Stock
	products     Products
	accounts     Accounts
	sessions     session.Store
	metrics      http.Handler
}

func NewHandler(d Deps) *Handler {
	metrics := d.Metrics
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	return &Handler{
		reservations: d.Reservations,
		baskets:      d.Baskets,
		stock:        d.Stock,
		products:     d.Products,
		accounts:     d.Accounts,
		sessions:     d.Sessions,
		metrics:      metrics,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("request body must contain a single JSON object")
	}
	return nil
}
