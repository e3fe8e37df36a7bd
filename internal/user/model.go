package user

import (
	"time"

	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/session"
)

type User struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"`
	Role         session.Role `json:"role"`
	CreatedAt    time.Time    `json:"createdAt"`
}
