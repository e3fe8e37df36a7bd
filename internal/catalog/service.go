package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/clock"
	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/inventory"
)

var (
	ErrInvalidProduct     = errors.New("invalid product")
	ErrStockBelowReserved = errors.New("total stock below reserved units")
	ErrProductReserved    = errors.New("product is held in baskets")
)

type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Checkpoints guards event side effects against redelivery.
type Checkpoints interface {
	Claim(ctx context.Context, consumerName, partitionKey string, seq int64) (bool, error)
}

type Service struct {
	tx     Transactor
	repo   Repository
	clock  clock.Clock
	logger zerolog.Logger
}

func NewService(tx Transactor, repo Repository, clk clock.Clock, logger zerolog.Logger) *Service {
	return &Service{tx: tx, repo: repo, clock: clk, logger: logger}
}

func (s *Service) Create(ctx context.Context, in NewProduct) (Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Product{}, fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if in.UnitPrice.IsNegative() {
		return Product{}, fmt.Errorf("%w: unit price must not be negative", ErrInvalidProduct)
	}
	if err := checkStock(in.Stock); err != nil {
		return Product{}, err
	}

	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = uuid.NewString()
	}
	now := s.clock.Now()
	p := Product{
		ID:         id,
		Name:       name,
		CategoryID: in.CategoryID,
		UnitPrice:  in.UnitPrice.Round(2),
		Available:  in.Stock,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Insert(ctx, p); err != nil {
		return Product{}, err
	}
	s.logger.Info().Str("product_id", p.ID).Int("stock", p.Available).Msg("product created")
	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (Product, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, categoryID string) ([]Product, error) {
	return s.repo.List(ctx, categoryID)
}

func (s *Service) Update(ctx context.Context, id string, in ProductUpdate) (Product, error) {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return Product{}, fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if in.UnitPrice != nil && in.UnitPrice.IsNegative() {
		return Product{}, fmt.Errorf("%w: unit price must not be negative", ErrInvalidProduct)
	}
	if in.TotalStock != nil {
		if err := checkStock(*in.TotalStock); err != nil {
			return Product{}, err
		}
	}

	var out Product
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		p, err := s.repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if in.Name != nil {
			p.Name = strings.TrimSpace(*in.Name)
		}
		if in.CategoryID != nil {
			p.CategoryID = *in.CategoryID
		}
		if in.UnitPrice != nil {
			p.UnitPrice = in.UnitPrice.Round(2)
		}
		p.UpdatedAt = s.clock.Now()
		if err := s.repo.UpdateDetails(ctx, p); err != nil {
			return err
		}
		if in.TotalStock != nil {
			available, err := s.setTotalStock(ctx, id, *in.TotalStock)
			if err != nil {
				return err
			}
			p.Available = available
		}
		out = p
		return nil
	})
	if err != nil {
		return Product{}, err
	}
	return out, nil
}

// SetTotalStock sets the physical stock count of a product. Units already in
// baskets stay reserved, so available becomes total minus reserved.
func (s *Service) SetTotalStock(ctx context.Context, id string, total int) (int, error) {
	if err := checkStock(total); err != nil {
		return 0, err
	}
	var available int
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		available, err = s.setTotalStock(ctx, id, total)
		return err
	})
	return available, err
}

func (s *Service) setTotalStock(ctx context.Context, id string, total int) (int, error) {
	before, err := s.repo.LockAvailable(ctx, id)
	if err != nil {
		return 0, err
	}
	reserved, err := s.repo.ReservedUnits(ctx, id)
	if err != nil {
		return 0, err
	}
	if total < reserved {
		return 0, fmt.Errorf("%w: total %d, reserved %d", ErrStockBelowReserved, total, reserved)
	}
	available := total - reserved
	if err := s.repo.SetAvailable(ctx, id, available); err != nil {
		return 0, err
	}
	s.logger.Info().
		Str("product_id", id).
		Int("total", total).
		Int("reserved", reserved).
		Int("available_before", before).
		Int("available", available).
		Msg("stock level set")
	return available, nil
}

// Delete removes a product nobody holds in a basket.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.LockAvailable(ctx, id); err != nil {
			return err
		}
		reserved, err := s.repo.ReservedUnits(ctx, id)
		if err != nil {
			return err
		}
		if reserved > 0 {
			return ErrProductReserved
		}
		return s.repo.Delete(ctx, id)
	})
}

// ApplyStockEvent applies a stock-set event at most once per sequence number.
// It reports false for a redelivered or stale event.
func (s *Service) ApplyStockEvent(ctx context.Context, checkpoints Checkpoints, consumerName string, seq int64, ev StockSet) (bool, error) {
	if ev.ProductID == "" {
		return false, fmt.Errorf("%w: productId is required", ErrInvalidProduct)
	}
	if err := checkStock(ev.TotalStock); err != nil {
		return false, err
	}

	applied := false
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		claimed, err := checkpoints.Claim(ctx, consumerName, ev.ProductID, seq)
		if err != nil {
			return err
		}
		if !claimed {
			return nil
		}
		if _, err := s.setTotalStock(ctx, ev.ProductID, ev.TotalStock); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func checkStock(n int) error {
	switch {
	case n < 0:
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidProduct)
	case n > inventory.MaxUnits:
		return fmt.Errorf("%w: stock must not exceed %d", ErrInvalidProduct, inventory.MaxUnits)
	}
	return nil
}
