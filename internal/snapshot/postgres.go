package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresKV stores one snapshot record per shop in the shop_snapshots
// table. The upsert makes each write atomic; readers see either the old or
// the new payload, never a mix.
type PostgresKV struct {
	pool *pgxpool.Pool
}

// NewPostgresKV creates a Postgres-backed KV.
func NewPostgresKV(pool *pgxpool.Pool) *PostgresKV {
	return &PostgresKV{pool: pool}
}

// Read fetches the snapshot payload for a shop.
func (kv *PostgresKV) Read(ctx context.Context, shopID string) ([]byte, bool, error) {
	var payload []byte
	err := kv.pool.QueryRow(ctx,
		`SELECT payload FROM shop_snapshots WHERE shop_id = $1`,
		shopID,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return payload, true, nil
}

// WriteAtomic replaces the snapshot payload for a shop.
func (kv *PostgresKV) WriteAtomic(ctx context.Context, shopID string, payload []byte) error {
	_, err := kv.pool.Exec(ctx,
		`INSERT INTO shop_snapshots (shop_id, payload, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (shop_id)
		 DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()`,
		shopID, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

var _ KV = (*PostgresKV)(nil)
