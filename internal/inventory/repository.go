package inventory

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"

	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/db"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidAmount   = errors.New("amount must be positive")
)

// MaxUnits is the largest quantity a stock or basket column can hold.
const MaxUnits = math.MaxInt32

// Ledger owns the available quantity of every product. All correctness
// decisions go through TryDecrement; GetAvailable is informational only.
type Ledger interface {
	TryDecrement(ctx context.Context, productID string, amount int) (bool, error)
	Increment(ctx context.Context, productID string, amount int) error
	GetAvailable(ctx context.Context, productID string) (int, error)
}

type PostgresRepository struct {
	pool db.Executor
}

func NewPostgresRepository(pool db.Executor) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Get(ctx context.Context, productID string) (StockItem, error) {
	var item StockItem
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT id, available FROM products WHERE id=$1`, productID)
	if err := row.Scan(&item.ProductID, &item.Available); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StockItem{}, ErrProductNotFound
		}
		return StockItem{}, fmt.Errorf("get stock: %w", err)
	}
	return item, nil
}

func (r *PostgresRepository) GetAvailable(ctx context.Context, productID string) (int, error) {
	item, err := r.Get(ctx, productID)
	if err != nil {
		return 0, err
	}
	return item.Available, nil
}

// TryDecrement removes amount units in one conditional UPDATE. The predicate
// that guards the write is the one it enforces, so two concurrent decrements
// can never both succeed past zero: the second waits on the row lock and
// re-evaluates against the committed value.
func (r *PostgresRepository) TryDecrement(ctx context.Context, productID string, amount int) (bool, error) {
	if amount <= 0 {
		return false, ErrInvalidAmount
	}

	conn := db.Conn(ctx, r.pool)
	if amount > MaxUnits {
		// no row can hold that many units
		if err := r.ensureExists(ctx, conn, productID); err != nil {
			return false, err
		}
		return false, nil
	}

	tag, err := conn.Exec(ctx, `
		UPDATE products
		SET available = available - $2, updated_at = now()
		WHERE id = $1 AND available >= $2
	`, productID, amount)
	if err != nil {
		return false, fmt.Errorf("decrement stock: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	if err := r.ensureExists(ctx, conn, productID); err != nil {
		return false, err
	}
	return false, nil
}

// Increment returns units to stock. Callers only pass amounts that were
// previously decremented.
func (r *PostgresRepository) Increment(ctx context.Context, productID string, amount int) error {
	if amount <= 0 || amount > MaxUnits {
		return ErrInvalidAmount
	}

	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE products
		SET available = available + $2, updated_at = now()
		WHERE id = $1
	`, productID, amount)
	if err != nil {
		return fmt.Errorf("increment stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *PostgresRepository) ensureExists(ctx context.Context, conn db.Executor, productID string) error {
	var exists bool
	err := conn.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id=$1)`, productID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check product: %w", err)
	}
	if !exists {
		return ErrProductNotFound
	}
	return nil
}
