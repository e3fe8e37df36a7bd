package reservation

import (
	"context"
	"sync"

	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/inventory"
)

// memStore is an in-memory stand-in for Postgres: WithTx serialises callers
// and restores a snapshot when fn fails, like a rolled back transaction.
type memStore struct {
	mu     sync.Mutex
	stock  map[string]int
	basket map[string]map[string]int

	// failures keyed by operation ("upsert", "remove", "clear", "getall")
	// or "increment:<productID>"
	fail map[string]error

	txCount   int
	rollbacks int
}

func newMemStore(stock map[string]int) *memStore {
	cp := make(map[string]int, len(stock))
	for k, v := range stock {
		cp[k] = v
	}
	return &memStore{
		stock:  cp,
		basket: make(map[string]map[string]int),
		fail:   make(map[string]error),
	}
}

func (m *memStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txCount++

	stock := make(map[string]int, len(m.stock))
	for k, v := range m.stock {
		stock[k] = v
	}
	baskets := make(map[string]map[string]int, len(m.basket))
	for u, entries := range m.basket {
		cp := make(map[string]int, len(entries))
		for p, q := range entries {
			cp[p] = q
		}
		baskets[u] = cp
	}

	if err := fn(ctx); err != nil {
		m.stock = stock
		m.basket = baskets
		m.rollbacks++
		return err
	}
	return nil
}

func (m *memStore) available(productID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stock[productID]
}

func (m *memStore) held(userID, productID string) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.basket[userID][productID]
	return q, ok
}

func (m *memStore) totalHeld(productID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, entries := range m.basket {
		total += entries[productID]
	}
	return total
}

// ledger side

func (m *memStore) TryDecrement(ctx context.Context, productID string, amount int) (bool, error) {
	if amount <= 0 {
		return false, inventory.ErrInvalidAmount
	}
	available, ok := m.stock[productID]
	if !ok {
		return false, inventory.ErrProductNotFound
	}
	if available < amount {
		return false, nil
	}
	m.stock[productID] = available - amount
	return true, nil
}

func (m *memStore) Increment(ctx context.Context, productID string, amount int) error {
	if err := m.fail["increment:"+productID]; err != nil {
		return err
	}
	if amount <= 0 {
		return inventory.ErrInvalidAmount
	}
	if _, ok := m.stock[productID]; !ok {
		return inventory.ErrProductNotFound
	}
	m.stock[productID] += amount
	return nil
}

func (m *memStore) GetAvailable(ctx context.Context, productID string) (int, error) {
	available, ok := m.stock[productID]
	if !ok {
		return 0, inventory.ErrProductNotFound
	}
	return available, nil
}

// basket side

func (m *memStore) Lock(ctx context.Context, userID string) error { return nil }

func (m *memStore) Upsert(ctx context.Context, userID, productID string, quantity int) error {
	if err := m.fail["upsert"]; err != nil {
		return err
	}
	if m.basket[userID] == nil {
		m.basket[userID] = make(map[string]int)
	}
	m.basket[userID][productID] = quantity
	return nil
}

func (m *memStore) Get(ctx context.Context, userID, productID string) (int, bool, error) {
	q, ok := m.basket[userID][productID]
	return q, ok, nil
}

func (m *memStore) GetAll(ctx context.Context, userID string) (map[string]int, error) {
	if err := m.fail["getall"]; err != nil {
		return nil, err
	}
	out := make(map[string]int, len(m.basket[userID]))
	for p, q := range m.basket[userID] {
		out[p] = q
	}
	return out, nil
}

func (m *memStore) Remove(ctx context.Context, userID, productID string) error {
	if err := m.fail["remove"]; err != nil {
		return err
	}
	delete(m.basket[userID], productID)
	return nil
}

func (m *memStore) ClearAll(ctx context.Context, userID string) error {
	if err := m.fail["clear"]; err != nil {
		return err
	}
	delete(m.basket, userID)
	return nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	changes []Change
	err     error
}

func (n *recordingNotifier) ReservationChanged(ctx context.Context, change Change) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, change)
	return n.err
}
