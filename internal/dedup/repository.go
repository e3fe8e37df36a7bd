package dedup

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/db"
)

type Repository struct {
	executor db.Executor
}

func NewRepository(exec db.Executor) *Repository {
	return &Repository{executor: exec}
}

// Claim advances the checkpoint for a consumer/partition to seq and reports
// whether it moved. A false result means seq was already processed. Run it in
// the same transaction as the side effect it guards.
func (r *Repository) Claim(ctx context.Context, consumerName, partitionKey string, seq int64) (bool, error) {
	var last int64
	err := db.Conn(ctx, r.executor).QueryRow(ctx, `
		INSERT INTO event_dedup_checkpoint (consumer_name, partition_key, last_sequence)
		VALUES ($1, $2, $3)
		ON CONFLICT (consumer_name, partition_key)
		DO UPDATE SET last_sequence = EXCLUDED.last_sequence, updated_at = now()
		WHERE event_dedup_checkpoint.last_sequence < EXCLUDED.last_sequence
		RETURNING last_sequence
	`, consumerName, partitionKey, seq).Scan(&last)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("claim checkpoint: %w", err)
	}
	return true, nil
}

// LastSequence returns the last processed sequence for a consumer/partition.
// The boolean indicates whether a checkpoint existed.
func (r *Repository) LastSequence(ctx context.Context, consumerName, partitionKey string) (int64, bool, error) {
	var last int64
	if err := db.Conn(ctx, r.executor).QueryRow(ctx, `
		SELECT last_sequence
		FROM event_dedup_checkpoint
		WHERE consumer_name=$1 AND partition_key=$2
	`, consumerName, partitionKey).Scan(&last); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("select checkpoint: %w", err)
	}
	return last, true, nil
}
