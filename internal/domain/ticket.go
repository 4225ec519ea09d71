package domain

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewTicket issues one ticket for a single unit of purchased quantity.
// Price is the all-in amount attributed to this ticket alone.
func NewTicket(booking Booking, packageID uuid.UUID, holder TicketHolder, seq int, price float64) Ticket {
	return Ticket{
		ID:           uuid.New(),
		TicketNumber: NewTicketNumber(booking.BookingNumber, seq),
		QRToken:      NewQRToken(),
		HolderName:   holder.Name,
		HolderAge:    holder.Age,
		HolderPhone:  holder.Phone,
		Price:        price,
		UserID:       booking.UserID,
		EventID:      booking.EventID,
		PackageID:    packageID,
		BookingID:    booking.ID,
		CreatedAt:    time.Now(),
	}
}

func NewTicketNumber(bookingNumber string, seq int) string {
	return fmt.Sprintf("%s-T%03d", bookingNumber, seq)
}

// NewQRToken returns an unguessable token embedded in the ticket QR code.
func NewQRToken() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}
