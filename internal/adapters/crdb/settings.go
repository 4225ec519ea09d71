package crdb

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/eventgate/booking-core/internal/domain"
)

func (r *Repository) GetFeeSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.pool.QueryRow(ctx, `
		SELECT value FROM fee_settings WHERE key = $1
	`, key).Scan(&value)
	if err == pgx.ErrNoRows {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (r *Repository) UpsertFeeSetting(ctx context.Context, key, value string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO fee_settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, key, value)
	return err
}
