package crdb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/eventgate/booking-core/internal/domain"
)

func (r *Repository) CreatePayment(ctx context.Context, p domain.Payment) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO payments (id, booking_id, gateway_order_id, gateway_payment_id, status, amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, p.ID, p.BookingID, p.GatewayOrderID, p.GatewayPaymentID, p.Status, p.Amount, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *Repository) GetPaymentByBooking(ctx context.Context, bookingID uuid.UUID) (*domain.Payment, error) {
	var p domain.Payment
	err := r.pool.QueryRow(ctx, `
		SELECT id, booking_id, gateway_order_id, gateway_payment_id, status, amount, created_at, updated_at
		FROM payments WHERE booking_id = $1
	`, bookingID).Scan(&p.ID, &p.BookingID, &p.GatewayOrderID, &p.GatewayPaymentID, &p.Status, &p.Amount, &p.CreatedAt, &p.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CompletePayment is the settlement idempotency guard: a conditional
// update that only one delivery of the same webhook can win. Returns false
// when the payment was already COMPLETED, domain.ErrNotFound when no
// payment row exists for the booking.
func (r *Repository) CompletePayment(ctx context.Context, tx pgx.Tx, bookingID uuid.UUID, gatewayPaymentID string) (bool, error) {
	result, err := tx.Exec(ctx, `
		UPDATE payments SET status = $2, gateway_payment_id = $3, updated_at = $4
		WHERE booking_id = $1 AND status <> $2
	`, bookingID, domain.PaymentCompleted, gatewayPaymentID, time.Now())
	if err != nil {
		return false, err
	}
	if result.RowsAffected() > 0 {
		return true, nil
	}

	var status domain.PaymentStatus
	err = tx.QueryRow(ctx, `
		SELECT status FROM payments WHERE booking_id = $1
	`, bookingID).Scan(&status)
	if err == pgx.ErrNoRows {
		return false, domain.ErrNotFound
	}
	if err != nil {
		return false, err
	}
	return false, nil
}
