package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/middleware"
)

const (
	EventTypeCatalogStockSet = "CatalogStockSet"
	stockSetConsumerName     = "basket-catalog-stock-set"
)

type StockApplier interface {
	ApplyStockEvent(ctx context.Context, checkpoints catalog.Checkpoints, consumerName string, seq int64, ev catalog.StockSet) (bool, error)
}

// StockSetHandler applies catalog stock counts to the ledger. Events are
// partitioned by product and must carry a sequence.
func StockSetHandler(applier StockApplier, checkpoints catalog.Checkpoints, logger zerolog.Logger) HandlerFunc {
	return func(ctx context.Context, body []byte) error {
		env, err := parseEnvelope(body)
		if err != nil {
			return err
		}
		if err := env.Validate(EventTypeCatalogStockSet, 1); err != nil {
			return err
		}
		if env.Sequence <= 0 {
			return fmt.Errorf("missing sequence for partition %s", env.PartitionKey)
		}

		var payload catalog.StockSet
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
		if payload.ProductID != env.PartitionKey {
			return fmt.Errorf("partitionKey %q does not match productId %q", env.PartitionKey, payload.ProductID)
		}

		if env.CorrelationID != "" {
			ctx = middleware.WithCorrelationID(ctx, env.CorrelationID)
		}
		applied, err := applier.ApplyStockEvent(ctx, checkpoints, stockSetConsumerName, env.Sequence, payload)
		if err != nil {
			err = fmt.Errorf("apply stock for %s: %w", payload.ProductID, err)
			if rejectedStockSet(err) {
				return err
			}
			return Retryable(err)
		}

		log := logger.Info()
		if !applied {
			log = logger.Debug()
		}
		log.Str("product_id", payload.ProductID).
			Int64("sequence", env.Sequence).
			Bool("applied", applied).
			Msg("catalog stock event")
		return nil
	}
}

// rejectedStockSet reports whether the catalog refused the event itself, so
// redelivering it cannot succeed.
func rejectedStockSet(err error) bool {
	return errors.Is(err, catalog.ErrProductNotFound) ||
		errors.Is(err, catalog.ErrInvalidProduct) ||
		errors.Is(err, catalog.ErrStockBelowReserved)
}
