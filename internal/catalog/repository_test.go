package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var productCols = []string{"id", "name", "category_id", "unit_price", "available", "created_at", "updated_at"}

func TestPostgresRepository_GetParsesPrice(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, name, category_id, unit_price::text").
		WithArgs("p1").
		WillReturnRows(pgxmock.NewRows(productCols).AddRow("p1", "Mug", "kitchen", "12.50", 4, now, now))

	p, err := NewPostgresRepository(mock).Get(context.Background(), "p1")
	require.NoError(t, err)
	require.True(t, p.UnitPrice.Equal(decimal.RequireFromString("12.5")))
	require.Equal(t, 4, p.Available)
}

func TestPostgresRepository_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("FROM products").
		WithArgs("kitchen").
		WillReturnRows(pgxmock.NewRows(productCols).
			AddRow("p1", "Mug", "kitchen", "1.00", 1, now, now).
			AddRow("p2", "Plate", "kitchen", "2.00", 0, now, now))

	products, err := NewPostgresRepository(mock).List(context.Background(), "kitchen")
	require.NoError(t, err)
	require.Len(t, products, 2)
	require.Equal(t, "p2", products[1].ID)
}

func TestPostgresRepository_LockAndSum(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewPostgresRepository(mock)
	ctx := context.Background()

	mock.ExpectQuery("SELECT available FROM products WHERE id = \\$1 FOR UPDATE").
		WithArgs("p1").
		WillReturnRows(pgxmock.NewRows([]string{"available"}).AddRow(6))
	available, err := repo.LockAvailable(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, 6, available)

	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(quantity\\), 0\\)").
		WithArgs("p1").
		WillReturnRows(pgxmock.NewRows([]string{"sum"}).AddRow(4))
	reserved, err := repo.ReservedUnits(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, 4, reserved)

	mock.ExpectQuery("FOR UPDATE").
		WithArgs("gone").
		WillReturnRows(pgxmock.NewRows([]string{"available"}))
	_, err = repo.LockAvailable(ctx, "gone")
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestPostgresRepository_DeleteForeignKey(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM products").
		WithArgs("p1").
		WillReturnError(&pgconn.PgError{Code: "23503"})
	err = NewPostgresRepository(mock).Delete(context.Background(), "p1")
	require.ErrorIs(t, err, ErrProductReserved)
}

func TestPostgresRepository_InsertDuplicate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	p := Product{ID: "p1", Name: "Mug", UnitPrice: decimal.RequireFromString("3.10"), Available: 2, CreatedAt: now, UpdatedAt: now}
	mock.ExpectExec("INSERT INTO products").
		WithArgs("p1", "Mug", "", "3.1", 2, now, now).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	err = NewPostgresRepository(mock).Insert(context.Background(), p)
	require.ErrorIs(t, err, ErrProductExists)

	mock.ExpectExec("INSERT INTO products").
		WithArgs("p1", "Mug", "", "3.1", 2, now, now).
		WillReturnError(errors.New("boom"))
	err = NewPostgresRepository(mock).Insert(context.Background(), p)
	require.ErrorContains(t, err, "insert product")
}
