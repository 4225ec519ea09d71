package crdb

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/eventgate/booking-core/internal/domain"
)

func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, email, phone, wallet_balance
		FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.WalletBalance)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repository) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, name, email, phone, wallet_balance)
		VALUES ($1, $2, $3, $4, $5)
	`, u.ID, u.Name, u.Email, u.Phone, u.WalletBalance)
	return err
}

// CreditWallet is an atomic SQL increment; balances must never go through
// read-modify-write in application code.
func (r *Repository) CreditWallet(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount float64) error {
	result, err := tx.Exec(ctx, `
		UPDATE users SET wallet_balance = wallet_balance + $2 WHERE id = $1
	`, userID, amount)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
