package crdb

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/eventgate/booking-core/internal/domain"
)

func (r *Repository) CreateBooking(ctx context.Context, tx pgx.Tx, b domain.Booking) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO bookings (id, booking_number, status, ticket_count, total_amount, user_id, event_id, package_id, referral_link_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, b.ID, b.BookingNumber, b.Status, b.TicketCount, b.TotalAmount, b.UserID, b.EventID, b.PackageID, b.ReferralLinkID, b.CreatedAt)
	return err
}

func (r *Repository) GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	var b domain.Booking
	err := r.pool.QueryRow(ctx, `
		SELECT id, booking_number, status, ticket_count, total_amount, user_id, event_id, package_id, referral_link_id, created_at
		FROM bookings WHERE id = $1
	`, id).Scan(&b.ID, &b.BookingNumber, &b.Status, &b.TicketCount, &b.TotalAmount, &b.UserID, &b.EventID, &b.PackageID, &b.ReferralLinkID, &b.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ConfirmBooking transitions PENDING -> CONFIRMED. Zero rows means the
// booking is missing or already past PENDING.
func (r *Repository) ConfirmBooking(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	result, err := tx.Exec(ctx, `
		UPDATE bookings SET status = $2 WHERE id = $1 AND status = $3
	`, id, domain.BookingConfirmed, domain.BookingPending)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

// DeleteBooking removes a PENDING booking. Deleting an absent or already
// confirmed booking is a no-op so compensation stays idempotent.
func (r *Repository) DeleteBooking(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM bookings WHERE id = $1 AND status = $2
	`, id, domain.BookingPending)
	return err
}

func (r *Repository) GetStalePendingBookings(ctx context.Context, before time.Time, limit int) ([]domain.Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, booking_number, status, ticket_count, total_amount, user_id, event_id, package_id, referral_link_id, created_at
		FROM bookings WHERE status = $1 AND created_at <= $2
		ORDER BY created_at ASC LIMIT $3
	`, domain.BookingPending, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(&b.ID, &b.BookingNumber, &b.Status, &b.TicketCount, &b.TotalAmount, &b.UserID, &b.EventID, &b.PackageID, &b.ReferralLinkID, &b.CreatedAt); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (r *Repository) CreateTicketIntent(ctx context.Context, tx pgx.Tx, intent domain.TicketIntent) error {
	items, err := json.Marshal(intent.Items)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO ticket_intents (id, booking_id, items_json, created_at)
		VALUES ($1, $2, $3, $4)
	`, intent.ID, intent.BookingID, items, intent.CreatedAt)
	return err
}

func (r *Repository) GetTicketIntent(ctx context.Context, tx pgx.Tx, bookingID uuid.UUID) (*domain.TicketIntent, error) {
	var intent domain.TicketIntent
	var items []byte
	err := tx.QueryRow(ctx, `
		SELECT id, booking_id, items_json, created_at
		FROM ticket_intents WHERE booking_id = $1
	`, bookingID).Scan(&intent.ID, &intent.BookingID, &items, &intent.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &intent.Items); err != nil {
		return nil, err
	}
	return &intent, nil
}

// DeleteTicketIntent is delete-if-exists; compensation may run before the
// intent was ever written.
func (r *Repository) DeleteTicketIntent(ctx context.Context, bookingID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM ticket_intents WHERE booking_id = $1
	`, bookingID)
	return err
}

func (r *Repository) DeleteTicketIntentTx(ctx context.Context, tx pgx.Tx, bookingID uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		DELETE FROM ticket_intents WHERE booking_id = $1
	`, bookingID)
	return err
}

// ReapPendingBooking removes a stale PENDING booking and its intent, but
// only when no payment has completed. Check and deletes share one
// SERIALIZABLE transaction, so a settlement landing concurrently either
// wins outright or forces this call to retry; the two can never interleave
// and strand a half-deleted booking. Returns whether a booking was
// actually removed.
func (r *Repository) ReapPendingBooking(ctx context.Context, bookingID uuid.UUID) (bool, error) {
	var reaped bool
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		var status domain.PaymentStatus
		err := tx.QueryRow(ctx, `
			SELECT status FROM payments WHERE booking_id = $1
		`, bookingID).Scan(&status)
		if err != nil && err != pgx.ErrNoRows {
			return err
		}
		if status == domain.PaymentCompleted {
			return nil
		}
		if _, err := tx.Exec(ctx, `
			DELETE FROM ticket_intents WHERE booking_id = $1
		`, bookingID); err != nil {
			return err
		}
		result, err := tx.Exec(ctx, `
			DELETE FROM bookings WHERE id = $1 AND status = $2
		`, bookingID, domain.BookingPending)
		if err != nil {
			return err
		}
		reaped = result.RowsAffected() > 0
		return nil
	})
	return reaped, err
}
