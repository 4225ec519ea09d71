package domain

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
)

func NewBooking(userID, eventID, packageID uuid.UUID, ticketCount int, totalAmount float64, referralLinkID *uuid.UUID) Booking {
	return Booking{
		ID:             uuid.New(),
		BookingNumber:  NewBookingNumber(),
		Status:         BookingPending,
		TicketCount:    ticketCount,
		TotalAmount:    totalAmount,
		UserID:         userID,
		EventID:        eventID,
		PackageID:      packageID,
		ReferralLinkID: referralLinkID,
		CreatedAt:      time.Now(),
	}
}

func NewTicketIntent(bookingID uuid.UUID, items []IntentItem) TicketIntent {
	return TicketIntent{
		ID:        uuid.New(),
		BookingID: bookingID,
		Items:     items,
		CreatedAt: time.Now(),
	}
}

func NewPayment(bookingID uuid.UUID, gatewayOrderID string, amount float64) Payment {
	now := time.Now()
	return Payment{
		ID:             uuid.New(),
		BookingID:      bookingID,
		GatewayOrderID: gatewayOrderID,
		Status:         PaymentPending,
		Amount:         amount,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// NewBookingNumber builds a human-readable booking number, e.g.
// BK-20260901-483920. The random suffix keeps numbers unguessable enough
// for support lookups; uniqueness is enforced by the bookings table.
func NewBookingNumber() string {
	n, _ := rand.Int(rand.Reader, big.NewInt(1000000))
	return fmt.Sprintf("BK-%s-%06d", time.Now().Format("20060102"), n.Int64())
}
