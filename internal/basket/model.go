package basket

import "time"

// Entry is one product held in a user's basket. Quantity is always > 0;
// a pair with nothing held has no row at all.
type Entry struct {
	UserID    string    `json:"userId"`
	ProductID string    `json:"productId"`
	Quantity  int       `json:"quantity"`
	UpdatedAt time.Time `json:"updatedAt"`
}
