package crdb

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/eventgate/booking-core/internal/domain"
)

// CreateTickets inserts sequentially: a pgx.Tx rides a single connection
// and must never see concurrent Execs.
func (r *Repository) CreateTickets(ctx context.Context, tx pgx.Tx, tickets []domain.Ticket) error {
	for _, t := range tickets {
		_, err := tx.Exec(ctx, `
			INSERT INTO tickets (id, ticket_number, qr_token, holder_name, holder_age, holder_phone, price, user_id, event_id, package_id, booking_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, t.ID, t.TicketNumber, t.QRToken, t.HolderName, t.HolderAge, t.HolderPhone, t.Price, t.UserID, t.EventID, t.PackageID, t.BookingID, t.CreatedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) CountTicketsByBooking(ctx context.Context, bookingID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM tickets WHERE booking_id = $1
	`, bookingID).Scan(&n)
	return n, err
}

func (r *Repository) ListTicketsByBooking(ctx context.Context, bookingID uuid.UUID) ([]domain.Ticket, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, ticket_number, qr_token, holder_name, holder_age, holder_phone, price, user_id, event_id, package_id, booking_id, created_at
		FROM tickets WHERE booking_id = $1 ORDER BY ticket_number ASC
	`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []domain.Ticket
	for rows.Next() {
		var t domain.Ticket
		if err := rows.Scan(&t.ID, &t.TicketNumber, &t.QRToken, &t.HolderName, &t.HolderAge, &t.HolderPhone, &t.Price, &t.UserID, &t.EventID, &t.PackageID, &t.BookingID, &t.CreatedAt); err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}
