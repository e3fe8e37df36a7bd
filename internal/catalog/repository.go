package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/inventory"
)

var (
	ErrProductNotFound = inventory.ErrProductNotFound
	ErrProductExists   = errors.New("product already exists")
)

type Repository interface {
	Insert(ctx context.Context, p Product) error
	Get(ctx context.Context, id string) (Product, error)
	List(ctx context.Context, categoryID string) ([]Product, error)
	UpdateDetails(ctx context.Context, p Product) error
	LockAvailable(ctx context.Context, id string) (int, error)
	ReservedUnits(ctx context.Context, id string) (int, error)
	SetAvailable(ctx context.Context, id string, available int) error
	Delete(ctx context.Context, id string) error
}

type PostgresRepository struct {
	pool db.Executor
}

func NewPostgresRepository(pool db.Executor) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const productColumns = `id, name, category_id, unit_price::text, available, created_at, updated_at`

func (r *PostgresRepository) Insert(ctx context.Context, p Product) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO products (id, name, category_id, unit_price, available, created_at, updated_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7)
	`, p.ID, p.Name, p.CategoryID, p.UnitPrice.String(), p.Available, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrProductExists
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (Product, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// List returns every product, or those in categoryID when it is set.
func (r *PostgresRepository) List(ctx context.Context, categoryID string) ([]Product, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE $1 = '' OR category_id = $1
		ORDER BY name, id
	`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (r *PostgresRepository) UpdateDetails(ctx context.Context, p Product) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE products
		SET name = $2, category_id = $3, unit_price = $4::numeric, updated_at = $5
		WHERE id = $1
	`, p.ID, p.Name, p.CategoryID, p.UnitPrice.String(), p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// LockAvailable row-locks the product until the surrounding transaction ends.
func (r *PostgresRepository) LockAvailable(ctx context.Context, id string) (int, error) {
	var available int
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT available FROM products WHERE id = $1 FOR UPDATE`, id).Scan(&available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrProductNotFound
		}
		return 0, fmt.Errorf("lock product: %w", err)
	}
	return available, nil
}

// ReservedUnits sums the quantity held in all baskets for a product.
func (r *PostgresRepository) ReservedUnits(ctx context.Context, id string) (int, error) {
	var reserved int
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COALESCE(SUM(quantity), 0)::int FROM basket_entries WHERE product_id = $1`, id).Scan(&reserved)
	if err != nil {
		return 0, fmt.Errorf("sum reservations: %w", err)
	}
	return reserved, nil
}

func (r *PostgresRepository) SetAvailable(ctx context.Context, id string, available int) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE products SET available = $2, updated_at = now() WHERE id = $1`, id, available)
	if err != nil {
		return fmt.Errorf("set available: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return ErrProductReserved
		}
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (Product, error) {
	var (
		p     Product
		price string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.CategoryID, &price, &p.Available, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Product{}, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return Product{}, fmt.Errorf("parse unit price %q: %w", price, err)
	}
	p.UnitPrice = d
	return p, nil
}
