package reservation

import (
	"errors"

	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/basket"
	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/inventory"
)

var (
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrProductNotFound   = inventory.ErrProductNotFound
	ErrNotInBasket       = errors.New("product not in basket")
	ErrUserRequired      = errors.New("user id is required")
)

// Outcome labels the result of an operation. Anything that is not a business
// outcome is a store failure.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUserRequired):
		return "invalid_request"
	case errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, inventory.ErrInvalidAmount),
		errors.Is(err, basket.ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrProductNotFound):
		return "product_not_found"
	case errors.Is(err, ErrNotInBasket):
		return "not_in_basket"
	default:
		return "store_failure"
	}
}

// IsBusiness reports whether err is an expected outcome rather than a fault.
func IsBusiness(err error) bool {
	return err != nil && Outcome(err) != "store_failure"
}
