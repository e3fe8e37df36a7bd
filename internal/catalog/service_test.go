package catalog

import (
	"context"
	"errors"
	"maps"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/clock"
)

// memRepo keeps products in memory. reserved stands in for basket_entries.
type memRepo struct {
	products map[string]Product
	reserved map[string]int
	failSet  error
}

func newMemRepo() *memRepo {
	return &memRepo{products: map[string]Product{}, reserved: map[string]int{}}
}

func (m *memRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	snapshot := maps.Clone(m.products)
	if err := fn(ctx); err != nil {
		m.products = snapshot
		return err
	}
	return nil
}

func (m *memRepo) Insert(ctx context.Context, p Product) error {
	if _, ok := m.products[p.ID]; ok {
		return ErrProductExists
	}
	m.products[p.ID] = p
	return nil
}

func (m *memRepo) Get(ctx context.Context, id string) (Product, error) {
	p, ok := m.products[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return p, nil
}

func (m *memRepo) List(ctx context.Context, categoryID string) ([]Product, error) {
	out := []Product{}
	for _, p := range m.products {
		if categoryID == "" || p.CategoryID == categoryID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memRepo) UpdateDetails(ctx context.Context, p Product) error {
	cur, ok := m.products[p.ID]
	if !ok {
		return ErrProductNotFound
	}
	cur.Name, cur.CategoryID, cur.UnitPrice, cur.UpdatedAt = p.Name, p.CategoryID, p.UnitPrice, p.UpdatedAt
	m.products[p.ID] = cur
	return nil
}

func (m *memRepo) LockAvailable(ctx context.Context, id string) (int, error) {
	p, ok := m.products[id]
	if !ok {
		return 0, ErrProductNotFound
	}
	return p.Available, nil
}

func (m *memRepo) ReservedUnits(ctx context.Context, id string) (int, error) {
	return m.reserved[id], nil
}

func (m *memRepo) SetAvailable(ctx context.Context, id string, available int) error {
	if m.failSet != nil {
		return m.failSet
	}
	p := m.products[id]
	p.Available = available
	m.products[id] = p
	return nil
}

func (m *memRepo) Delete(ctx context.Context, id string) error {
	delete(m.products, id)
	return nil
}

type memCheckpoints map[string]int64

func (c memCheckpoints) Claim(ctx context.Context, consumerName, partitionKey string, seq int64) (bool, error) {
	key := consumerName + "/" + partitionKey
	if last, ok := c[key]; ok && last >= seq {
		return false, nil
	}
	c[key] = seq
	return true, nil
}

func newTestService(repo *memRepo) *Service {
	clk := clock.NewManual(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	return NewService(repo, repo, clk, zerolog.Nop())
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	svc := newTestService(repo)

	p, err := svc.Create(ctx, NewProduct{ID: "p1", Name: " Mug ", UnitPrice: decimal.RequireFromString("4.999"), Stock: 10})
	require.NoError(t, err)
	require.Equal(t, "Mug", p.Name)
	require.Equal(t, "5", p.UnitPrice.String())
	require.Equal(t, 10, repo.products["p1"].Available)

	generated, err := svc.Create(ctx, NewProduct{Name: "Plate", Stock: 0})
	require.NoError(t, err)
	require.NotEmpty(t, generated.ID)

	_, err = svc.Create(ctx, NewProduct{ID: "p1", Name: "Dup"})
	require.ErrorIs(t, err, ErrProductExists)

	cases := []NewProduct{
		{Name: ""},
		{Name: "x", UnitPrice: decimal.NewFromInt(-1)},
		{Name: "x", Stock: -1},
		{Name: "x", Stock: 3_000_000_000},
	}
	for _, in := range cases {
		_, err := svc.Create(ctx, in)
		require.ErrorIs(t, err, ErrInvalidProduct)
	}
}

func TestService_UpdateTotalStockKeepsReservations(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	svc := newTestService(repo)
	_, err := svc.Create(ctx, NewProduct{ID: "p1", Name: "Mug", Stock: 7})
	require.NoError(t, err)
	repo.reserved["p1"] = 3

	total := 20
	name := "Big mug"
	p, err := svc.Update(ctx, "p1", ProductUpdate{Name: &name, TotalStock: &total})
	require.NoError(t, err)
	require.Equal(t, 17, p.Available)
	require.Equal(t, "Big mug", repo.products["p1"].Name)
	require.Equal(t, 17, repo.products["p1"].Available)

	total = 2
	_, err = svc.Update(ctx, "p1", ProductUpdate{TotalStock: &total})
	require.ErrorIs(t, err, ErrStockBelowReserved)
	require.Equal(t, 17, repo.products["p1"].Available)

	_, err = svc.SetTotalStock(ctx, "p1", 3_000_000_000)
	require.ErrorIs(t, err, ErrInvalidProduct)
	require.Equal(t, 17, repo.products["p1"].Available)

	total = 3
	available, err := svc.SetTotalStock(ctx, "p1", total)
	require.NoError(t, err)
	require.Equal(t, 0, available)
}

func TestService_UpdateRollsBackDetailsOnStockFailure(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	svc := newTestService(repo)
	_, err := svc.Create(ctx, NewProduct{ID: "p1", Name: "Mug", Stock: 5})
	require.NoError(t, err)

	repo.failSet = errors.New("disk full")
	name, total := "Renamed", 9
	_, err = svc.Update(ctx, "p1", ProductUpdate{Name: &name, TotalStock: &total})
	require.Error(t, err)
	require.Equal(t, "Mug", repo.products["p1"].Name)
}

func TestService_UpdateMissing(t *testing.T) {
	name := "x"
	_, err := newTestService(newMemRepo()).Update(context.Background(), "nope", ProductUpdate{Name: &name})
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	svc := newTestService(repo)
	_, err := svc.Create(ctx, NewProduct{ID: "p1", Name: "Mug", Stock: 5})
	require.NoError(t, err)

	repo.reserved["p1"] = 1
	require.ErrorIs(t, svc.Delete(ctx, "p1"), ErrProductReserved)

	repo.reserved["p1"] = 0
	require.NoError(t, svc.Delete(ctx, "p1"))
	require.ErrorIs(t, svc.Delete(ctx, "p1"), ErrProductNotFound)
}

func TestService_ApplyStockEvent(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	svc := newTestService(repo)
	_, err := svc.Create(ctx, NewProduct{ID: "p1", Name: "Mug", Stock: 5})
	require.NoError(t, err)
	repo.reserved["p1"] = 2
	cps := memCheckpoints{}

	applied, err := svc.ApplyStockEvent(ctx, cps, "basket", 1, StockSet{ProductID: "p1", TotalStock: 10})
	require.NoError(t, err)
	require.True(t, applied)
	require.Equal(t, 8, repo.products["p1"].Available)

	applied, err = svc.ApplyStockEvent(ctx, cps, "basket", 1, StockSet{ProductID: "p1", TotalStock: 50})
	require.NoError(t, err)
	require.False(t, applied)
	require.Equal(t, 8, repo.products["p1"].Available)

	_, err = svc.ApplyStockEvent(ctx, cps, "basket", 2, StockSet{ProductID: "missing", TotalStock: 1})
	require.ErrorIs(t, err, ErrProductNotFound)

	_, err = svc.ApplyStockEvent(ctx, cps, "basket", 3, StockSet{ProductID: "p1", TotalStock: -1})
	require.ErrorIs(t, err, ErrInvalidProduct)
}
