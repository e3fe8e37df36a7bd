package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/middleware"
)

func NewRouter(h *Handler, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(hlog.NewHandler(logger))
	r.Use(middleware.CorrelationID)
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			return
		}
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(middleware.Recover(internalError))

	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	requireIdentity := middleware.RequireIdentity(h.sessions, deny)
	requireAdmin := middleware.RequireAdmin(deny)

	r.Get("/health", h.Health)
	r.Method(http.MethodGet, "/metrics", h.metrics)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.With(requireIdentity).Post("/logout", h.Logout)
		})

		r.Get("/inventory/{productId}", h.GetAvailability)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Get("/{id}", h.GetProduct)
			r.Group(func(r chi.Router) {
				r.Use(requireIdentity, requireAdmin)
				r.Post("/", h.CreateProduct)
				r.Put("/{id}", h.UpdateProduct)
				r.Delete("/{id}", h.DeleteProduct)
			})
		})

		r.Route("/basket", func(r chi.Router) {
			r.Use(requireIdentity)
			r.Get("/", h.GetBasket)
			r.Delete("/", h.ClearBasket)
			r.Post("/items", h.AddItem)
			r.Put("/items/{productId}", h.SetItemQuantity)
			r.Delete("/items/{productId}", h.RemoveItem)
		})
	})

	return r
}
