package reservation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/basket"
	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/inventory"
	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/metrics"
)

const (
	opReserve  = "reserve"
	opRelease  = "release"
	opAdjust   = "adjust"
	opClearAll = "clear_all"
)

// Transactor runs fn inside one transaction; the ledger and basket writes
// made through ctx commit or roll back together.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Notifier is told about committed changes. Failures are logged, never
// returned to the caller: the reservation itself already happened.
type Notifier interface {
	ReservationChanged(ctx context.Context, change Change) error
}

// Service moves units between product stock and user baskets. Every
// operation takes the user's basket lock first and performs its ledger and
// basket writes in a single transaction.
type Service struct {
	tx     Transactor
	ledger inventory.Ledger
	store  basket.Store

	policy   Policy
	notifier Notifier
	metrics  *metrics.Reservations
	logger   zerolog.Logger
	now      func() time.Time
}

type Option func(*Service)

func WithPolicy(p Policy) Option {
	return func(s *Service) {
		if p != "" {
			s.policy = p
		}
	}
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithMetrics(m *metrics.Reservations) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(tx Transactor, ledger inventory.Ledger, store basket.Store, opts ...Option) *Service {
	s := &Service{
		tx:     tx,
		ledger: ledger,
		store:  store,
		policy: MergePolicy,
		logger: zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Policy() Policy { return s.policy }

// Reserve takes qty units out of stock and puts them in the user's basket.
func (s *Service) Reserve(ctx context.Context, userID, productID string, qty int) (ReserveResult, error) {
	start := s.now()
	var res ReserveResult

	err := s.run(ctx, userID, qty > 0, func(ctx context.Context) error {
		current, _, err := s.store.Get(ctx, userID, productID)
		if err != nil {
			return err
		}

		ok, err := s.ledger.TryDecrement(ctx, productID, qty)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInsufficientStock
		}

		held := qty
		if s.policy == MergePolicy {
			held = current + qty
		}
		if err := s.store.Upsert(ctx, userID, productID, held); err != nil {
			return err
		}

		res = ReserveResult{ProductID: productID, Held: held, Reserved: qty}
		return nil
	})

	s.finish(opReserve, start, userID, productID, err)
	if err != nil {
		return ReserveResult{}, err
	}

	s.metrics.Reserved(qty)
	s.notify(ctx, Change{
		UserID: userID,
		Action: ActionReserved,
		Lines:  []Line{{ProductID: productID, Held: res.Held, StockDelta: -qty}},
	})
	return res, nil
}

// Release empties the user's hold on productID and returns the number of
// units put back into stock.
func (s *Service) Release(ctx context.Context, userID, productID string) (int, error) {
	start := s.now()
	var returned int

	err := s.run(ctx, userID, true, func(ctx context.Context) error {
		qty, ok, err := s.store.Get(ctx, userID, productID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotInBasket
		}

		if err := s.ledger.Increment(ctx, productID, qty); err != nil {
			return err
		}
		if err := s.store.Remove(ctx, userID, productID); err != nil {
			return err
		}
		returned = qty
		return nil
	})

	s.finish(opRelease, start, userID, productID, err)
	if err != nil {
		return 0, err
	}

	s.metrics.Returned(returned)
	s.notify(ctx, Change{
		UserID: userID,
		Action: ActionReleased,
		Lines:  []Line{{ProductID: productID, Held: 0, StockDelta: returned}},
	})
	return returned, nil
}

// Adjust sets the held quantity to newQty, moving only the difference
// through the ledger. newQty == 0 removes the entry.
func (s *Service) Adjust(ctx context.Context, userID, productID string, newQty int) (AdjustResult, error) {
	start := s.now()
	res := AdjustResult{ProductID: productID}

	err := s.run(ctx, userID, newQty >= 0, func(ctx context.Context) error {
		current, ok, err := s.store.Get(ctx, userID, productID)
		if err != nil {
			return err
		}
		if !ok && newQty == 0 {
			return ErrNotInBasket
		}

		delta := newQty - current
		switch {
		case delta == 0:
		case delta > 0:
			ok, err := s.ledger.TryDecrement(ctx, productID, delta)
			if err != nil {
				return err
			}
			if !ok {
				return ErrInsufficientStock
			}
			if err := s.store.Upsert(ctx, userID, productID, newQty); err != nil {
				return err
			}
		default:
			if err := s.ledger.Increment(ctx, productID, -delta); err != nil {
				return err
			}
			if newQty == 0 {
				err = s.store.Remove(ctx, userID, productID)
			} else {
				err = s.store.Upsert(ctx, userID, productID, newQty)
			}
			if err != nil {
				return err
			}
		}

		res.Held = newQty
		res.StockDelta = -delta
		return nil
	})

	s.finish(opAdjust, start, userID, productID, err)
	if err != nil {
		return AdjustResult{}, err
	}

	if res.StockDelta == 0 {
		return res, nil
	}
	if res.StockDelta < 0 {
		s.metrics.Reserved(-res.StockDelta)
	} else {
		s.metrics.Returned(res.StockDelta)
	}
	s.notify(ctx, Change{
		UserID: userID,
		Action: ActionAdjusted,
		Lines:  []Line{{ProductID: productID, Held: res.Held, StockDelta: res.StockDelta}},
	})
	return res, nil
}

// ClearAll returns every held unit to stock and empties the basket. Either
// all entries are restored and removed, or nothing changes.
func (s *Service) ClearAll(ctx context.Context, userID string) (ClearResult, error) {
	start := s.now()
	var res ClearResult

	err := s.run(ctx, userID, true, func(ctx context.Context) error {
		entries, err := s.store.GetAll(ctx, userID)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		// ascending product order keeps row locks ordered across callers
		productIDs := make([]string, 0, len(entries))
		for id := range entries {
			productIDs = append(productIDs, id)
		}
		sort.Strings(productIDs)

		restored := make([]Line, 0, len(productIDs))
		for _, id := range productIDs {
			qty := entries[id]
			if err := s.ledger.Increment(ctx, id, qty); err != nil {
				return fmt.Errorf("restore stock for %s: %w", id, err)
			}
			restored = append(restored, Line{ProductID: id, Held: 0, StockDelta: qty})
		}

		if err := s.store.ClearAll(ctx, userID); err != nil {
			return err
		}
		res.Restored = restored
		return nil
	})

	s.finish(opClearAll, start, userID, "", err)
	if err != nil {
		return ClearResult{}, err
	}
	if len(res.Restored) == 0 {
		return ClearResult{Restored: []Line{}}, nil
	}

	total := 0
	for _, ln := range res.Restored {
		total += ln.StockDelta
	}
	s.metrics.Returned(total)
	s.notify(ctx, Change{UserID: userID, Action: ActionCleared, Lines: res.Restored})
	return res, nil
}

// run validates the request and executes fn under the user's basket lock in
// one transaction.
func (s *Service) run(ctx context.Context, userID string, validQty bool, fn func(ctx context.Context) error) error {
	if userID == "" {
		return ErrUserRequired
	}
	if !validQty {
		return ErrInvalidQuantity
	}
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.store.Lock(ctx, userID); err != nil {
			return err
		}
		return fn(ctx)
	})
}

func (s *Service) finish(op string, start time.Time, userID, productID string, err error) {
	outcome := Outcome(err)
	s.metrics.Observe(op, outcome, s.now().Sub(start))

	switch {
	case err == nil:
		s.logger.Debug().Str("op", op).Str("user_id", userID).Str("product_id", productID).Msg("reservation committed")
	case IsBusiness(err):
		s.logger.Info().Str("op", op).Str("user_id", userID).Str("product_id", productID).Str("outcome", outcome).Msg("reservation refused")
	default:
		s.logger.Error().Err(err).Str("op", op).Str("user_id", userID).Str("product_id", productID).Msg("reservation failed")
	}
}

func (s *Service) notify(ctx context.Context, change Change) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.ReservationChanged(ctx, change); err != nil {
		s.logger.Warn().Err(err).Str("user_id", change.UserID).Str("action", string(change.Action)).Msg("publish reservation change")
	}
}
