package basket

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/inventory"
)

var ErrInvalidQuantity = errors.New("basket quantity out of range")

type Store interface {
	Lock(ctx context.Context, userID string) error
	Upsert(ctx context.Context, userID, productID string, quantity int) error
	Get(ctx context.Context, userID, productID string) (int, bool, error)
	GetAll(ctx context.Context, userID string) (map[string]int, error)
	Remove(ctx context.Context, userID, productID string) error
	ClearAll(ctx context.Context, userID string) error
}

type PostgresRepository struct {
	pool db.Executor
}

func NewPostgresRepository(pool db.Executor) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Lock takes a transaction-scoped advisory lock keyed by the user, so basket
// calls of the same user run one after another while other users are not
// blocked. It must be called inside a transaction.
func (r *PostgresRepository) Lock(ctx context.Context, userID string) error {
	if db.TxFromContext(ctx) == nil {
		return errors.New("basket lock requires a transaction")
	}
	if _, err := db.Conn(ctx, r.pool).Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, userID); err != nil {
		return fmt.Errorf("lock basket: %w", err)
	}
	return nil
}

// Upsert sets the held quantity to the given absolute value.
func (r *PostgresRepository) Upsert(ctx context.Context, userID, productID string, quantity int) error {
	if quantity <= 0 || quantity > inventory.MaxUnits {
		return ErrInvalidQuantity
	}
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO basket_entries (user_id, product_id, quantity, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id, product_id) DO UPDATE
		SET quantity = EXCLUDED.quantity, updated_at = now()
	`, userID, productID, quantity)
	if err != nil {
		return fmt.Errorf("upsert basket entry: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID, productID string) (int, bool, error) {
	var qty int
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT quantity FROM basket_entries WHERE user_id = $1 AND product_id = $2`,
		userID, productID).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get basket entry: %w", err)
	}
	return qty, true, nil
}

func (r *PostgresRepository) GetAll(ctx context.Context, userID string) (map[string]int, error) {
	entries, err := r.Entries(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(entries))
	for _, e := range entries {
		out[e.ProductID] = e.Quantity
	}
	return out, nil
}

// Entries lists the user's basket ordered by product.
func (r *PostgresRepository) Entries(ctx context.Context, userID string) ([]Entry, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT user_id, product_id, quantity, updated_at
		FROM basket_entries
		WHERE user_id = $1
		ORDER BY product_id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list basket: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.UserID, &e.ProductID, &e.Quantity, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan basket entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list basket: %w", err)
	}
	return entries, nil
}

func (r *PostgresRepository) Remove(ctx context.Context, userID, productID string) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx,
		`DELETE FROM basket_entries WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return fmt.Errorf("remove basket entry: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ClearAll(ctx context.Context, userID string) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM basket_entries WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("clear basket: %w", err)
	}
	return nil
}
